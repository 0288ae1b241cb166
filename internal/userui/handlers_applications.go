package userui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

const (
	msgApplicationAdded    = "Application added."
	msgApplicationUpdated  = "Application updated."
	msgApplicationDeleted  = "Application deleted."
	msgApplicationNotFound = "Application not found."
	msgBadDate             = "Date applied must be a date (YYYY-MM-DD)."
)

// Both spellings have been used by the forms.
var dateFieldNames = []string{"dateApplied", "appliedDate"}

func (a *app) handleApplicationsList(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	apps, err := a.applicationSvc.List(r.Context(), user.ID)
	if err != nil {
		a.logger.Error("userui: list applications failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	v := applicationsView{baseView: a.base(r, "Applications"), Applications: apps}
	v.Messages = a.flashes(r, flashApplications)
	a.render(w, r, http.StatusOK, "applications", v)
}

func (a *app) applicationForm(r *http.Request, title, action string, rec domain.Application) applicationFormView {
	return applicationFormView{
		baseView:      a.base(r, title),
		Action:        action,
		Application:   rec,
		DateApplied:   rec.DateAppliedString(),
		StatusOptions: domain.StatusOptions,
	}
}

func (a *app) handleApplicationAddGet(w http.ResponseWriter, r *http.Request) {
	v := a.applicationForm(r, "Add Application", "/applications/add", domain.Application{})
	a.render(w, r, http.StatusOK, "application_form", v)
}

func (a *app) handleApplicationAddPost(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "Bad Request", "Invalid form submission.")
		return
	}

	rec := domain.Application{
		Company:  r.PostFormValue("company"),
		Position: r.PostFormValue("position"),
		Status:   r.PostFormValue("status"),
		Location: r.PostFormValue("location"),
		JobType:  r.PostFormValue("jobType"),
		Notes:    r.PostFormValue("notes"),
	}
	rawDate, _ := formDate(r)
	v := a.applicationForm(r, "Add Application", "/applications/add", rec)
	v.DateApplied = rawDate

	d, err := domain.ParseDate(rawDate)
	if err != nil {
		v.Errors = []string{msgBadDate}
		a.render(w, r, http.StatusOK, "application_form", v)
		return
	}
	rec.DateApplied = d

	created, err := a.applicationSvc.Create(r.Context(), user.ID, rec)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			v.Errors = validationMessages(verr)
			a.render(w, r, http.StatusOK, "application_form", v)
			return
		}
		a.logger.Error("userui: create application failed", "user_id", user.ID, "err", err)
		a.renderServerError(w, r, err)
		return
	}

	a.logger.Info("userui: application created", "user_id", user.ID, "application_id", created.ID)
	a.flash(w, r, flashApplications, msgApplicationAdded)
	http.Redirect(w, r, "/applications", http.StatusFound)
}

func (a *app) handleApplicationEditGet(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	id := r.PathValue("id")
	rec, err := a.applicationSvc.Get(r.Context(), user.ID, id)
	if err != nil {
		a.applicationLookupFailed(w, r, err)
		return
	}
	v := a.applicationForm(r, "Edit Application", "/applications/edit/"+id, rec)
	v.Editing = true
	a.render(w, r, http.StatusOK, "application_form", v)
}

// handleApplicationEditPost only touches the fields present in the form.
func (a *app) handleApplicationEditPost(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		a.renderError(w, r, http.StatusBadRequest, "Bad Request", "Invalid form submission.")
		return
	}

	patch, dateErr := patchFromForm(r)
	if dateErr != nil {
		rec, err := a.applicationSvc.Get(r.Context(), user.ID, id)
		if err != nil {
			a.applicationLookupFailed(w, r, err)
			return
		}
		v := a.applicationForm(r, "Edit Application", "/applications/edit/"+id, patch.Apply(rec))
		v.Editing = true
		v.DateApplied, _ = formDate(r)
		v.Errors = []string{msgBadDate}
		a.render(w, r, http.StatusOK, "application_form", v)
		return
	}

	updated, err := a.applicationSvc.Update(r.Context(), user.ID, id, patch)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			a.applicationLookupFailed(w, r, err)
			return
		}
		rec, gerr := a.applicationSvc.Get(r.Context(), user.ID, id)
		if gerr != nil {
			a.applicationLookupFailed(w, r, gerr)
			return
		}
		v := a.applicationForm(r, "Edit Application", "/applications/edit/"+id, patch.Apply(rec))
		v.Editing = true
		v.Errors = validationMessages(verr)
		a.render(w, r, http.StatusOK, "application_form", v)
		return
	}

	a.logger.Info("userui: application updated", "user_id", user.ID, "application_id", updated.ID)
	a.flash(w, r, flashApplications, msgApplicationUpdated)
	http.Redirect(w, r, "/applications", http.StatusFound)
}

func (a *app) handleApplicationDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := a.currentUser(r)
	id := r.PathValue("id")
	err := a.applicationSvc.Delete(r.Context(), user.ID, id)
	switch {
	case err == nil:
		a.logger.Info("userui: application deleted", "user_id", user.ID, "application_id", id)
		a.flash(w, r, flashApplications, msgApplicationDeleted)
	case errors.Is(err, domain.ErrNotFound):
		a.flash(w, r, flashApplications, msgApplicationNotFound)
	default:
		a.logger.Error("userui: delete application failed", "user_id", user.ID, "application_id", id, "err", err)
		a.renderServerError(w, r, err)
		return
	}
	http.Redirect(w, r, "/applications", http.StatusFound)
}

func (a *app) applicationLookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		a.renderError(w, r, http.StatusNotFound, "Not Found", msgApplicationNotFound)
		return
	}
	a.logger.Error("userui: load application failed", "path", r.URL.Path, "err", err)
	a.renderServerError(w, r, err)
}

// formDate returns the submitted date under either field name.
func formDate(r *http.Request) (string, bool) {
	for _, k := range dateFieldNames {
		if vs, ok := r.PostForm[k]; ok && len(vs) > 0 {
			return strings.TrimSpace(vs[0]), true
		}
	}
	return "", false
}

func patchFromForm(r *http.Request) (domain.ApplicationPatch, error) {
	var p domain.ApplicationPatch
	field := func(key string) *string {
		vs, ok := r.PostForm[key]
		if !ok || len(vs) == 0 {
			return nil
		}
		v := vs[0]
		return &v
	}
	p.Company = field("company")
	p.Position = field("position")
	p.Status = field("status")
	p.Location = field("location")
	p.JobType = field("jobType")
	p.Notes = field("notes")

	raw, ok := formDate(r)
	if !ok {
		return p, nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return p, err
	}
	if d == nil {
		p.ClearDate = true
	} else {
		p.DateApplied = d
	}
	return p, nil
}
