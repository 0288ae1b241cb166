package domain

import (
	"strings"
	"time"
)

// DateLayout is the wire and form format of Application.DateApplied.
const DateLayout = "2006-01-02"

// StatusOptions are suggested in forms; status itself is free text.
var StatusOptions = []string{"applied", "interview", "offer", "rejected"}

type Application struct {
	ID          string
	OwnerID     string
	Company     string
	Position    string
	DateApplied *time.Time
	Status      string
	Location    string
	JobType     string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a Application) DateAppliedString() string {
	if a.DateApplied == nil {
		return ""
	}
	return a.DateApplied.Format(DateLayout)
}

// ApplicationPatch carries a partial update. Nil fields are left untouched.
// ClearDate removes the applied date; it wins over DateApplied.
type ApplicationPatch struct {
	Company     *string
	Position    *string
	Status      *string
	Location    *string
	JobType     *string
	Notes       *string
	DateApplied *time.Time
	ClearDate   bool
}

func (p ApplicationPatch) Empty() bool {
	return p.Company == nil && p.Position == nil && p.Status == nil &&
		p.Location == nil && p.JobType == nil && p.Notes == nil &&
		p.DateApplied == nil && !p.ClearDate
}

func (p ApplicationPatch) Apply(a Application) Application {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&a.Company, p.Company)
	set(&a.Position, p.Position)
	set(&a.Status, p.Status)
	set(&a.Location, p.Location)
	set(&a.JobType, p.JobType)
	set(&a.Notes, p.Notes)
	switch {
	case p.ClearDate:
		a.DateApplied = nil
	case p.DateApplied != nil:
		d := *p.DateApplied
		a.DateApplied = &d
	}
	return a
}

func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
