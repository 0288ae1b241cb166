package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type applicationResponse struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	DateApplied *string   `json:"date_applied"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	JobType     string    `json:"job_type"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toApplicationResponse(a domain.Application) applicationResponse {
	resp := applicationResponse{
		ID:        a.ID,
		Company:   a.Company,
		Position:  a.Position,
		Status:    a.Status,
		Location:  a.Location,
		JobType:   a.JobType,
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.DateApplied != nil {
		s := a.DateAppliedString()
		resp.DateApplied = &s
	}
	return resp
}

type createApplicationRequest struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	DateApplied string `json:"date_applied"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	JobType     string `json:"job_type"`
	Notes       string `json:"notes"`
}

// optionalDate tells an absent key from an explicit null or "".
type optionalDate struct {
	set   bool
	value string
}

func (o *optionalDate) UnmarshalJSON(b []byte) error {
	o.set = true
	if bytes.Equal(b, []byte("null")) {
		o.value = ""
		return nil
	}
	return json.Unmarshal(b, &o.value)
}

type updateApplicationRequest struct {
	Company     *string      `json:"company"`
	Position    *string      `json:"position"`
	DateApplied optionalDate `json:"date_applied"`
	Status      *string      `json:"status"`
	Location    *string      `json:"location"`
	JobType     *string      `json:"job_type"`
	Notes       *string      `json:"notes"`
}

func (req updateApplicationRequest) patch() (domain.ApplicationPatch, error) {
	p := domain.ApplicationPatch{
		Company:  req.Company,
		Position: req.Position,
		Status:   req.Status,
		Location: req.Location,
		JobType:  req.JobType,
		Notes:    req.Notes,
	}
	if !req.DateApplied.set {
		return p, nil
	}
	d, err := domain.ParseDate(req.DateApplied.value)
	if err != nil {
		return p, badDate()
	}
	if d == nil {
		p.ClearDate = true
	} else {
		p.DateApplied = d
	}
	return p, nil
}

func badDate() error {
	return domain.FieldError("date_applied", "must be a date (YYYY-MM-DD)")
}

func (a *api) handleApplicationsList(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	apps, err := a.applicationSvc.List(r.Context(), u.ID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toApplicationResponse(app))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"applications": out})
}

func (a *api) handleApplicationsCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	var req createApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	d, err := domain.ParseDate(req.DateApplied)
	if err != nil {
		WriteDomainError(w, badDate())
		return
	}

	created, err := a.applicationSvc.Create(r.Context(), u.ID, domain.Application{
		Company:     req.Company,
		Position:    req.Position,
		DateApplied: d,
		Status:      req.Status,
		Location:    req.Location,
		JobType:     req.JobType,
		Notes:       req.Notes,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/applications/"+created.ID)
	WriteJSON(w, http.StatusCreated, toApplicationResponse(created))
}

func (a *api) handleApplicationsGet(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	app, err := a.applicationSvc.Get(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (a *api) handleApplicationsUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	var req updateApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	updated, err := a.applicationSvc.Update(r.Context(), u.ID, r.PathValue("id"), patch)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, toApplicationResponse(updated))
}

func (a *api) handleApplicationsDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := CurrentUser(r.Context())
	if err := a.applicationSvc.Delete(r.Context(), u.ID, r.PathValue("id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !isClientError(err) && !errors.Is(err, r.Context().Err()) {
		a.logger.Error("api: request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	WriteDomainError(w, err)
}
