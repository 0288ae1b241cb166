package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type ApplicationsStore interface {
	CreateApplication(ctx context.Context, a domain.Application) (domain.Application, error)
	ListApplications(ctx context.Context, ownerID string) ([]domain.Application, error)
	GetApplication(ctx context.Context, ownerID, id string) (domain.Application, error)
	UpdateApplication(ctx context.Context, ownerID, id string, patch domain.ApplicationPatch, now time.Time) (domain.Application, error)
	DeleteApplication(ctx context.Context, ownerID, id string) error
}

const (
	maxShortField = 200
	maxNotes      = 5000
)

// ApplicationService manages job application records. Every operation is
// scoped to the owning user; records of other users behave as missing.
type ApplicationService struct {
	Store ApplicationsStore
	Now   func() time.Time
}

func (s *ApplicationService) List(ctx context.Context, ownerID string) ([]domain.Application, error) {
	return s.Store.ListApplications(ctx, ownerID)
}

func (s *ApplicationService) Get(ctx context.Context, ownerID, id string) (domain.Application, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Application{}, domain.ErrNotFound
	}
	return s.Store.GetApplication(ctx, ownerID, id)
}

func (s *ApplicationService) Create(ctx context.Context, ownerID string, a domain.Application) (domain.Application, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if ownerID == "" {
		return domain.Application{}, domain.ErrUnauthorized
	}

	a.Company = strings.TrimSpace(a.Company)
	a.Position = strings.TrimSpace(a.Position)
	a.Status = strings.TrimSpace(a.Status)
	a.Location = strings.TrimSpace(a.Location)
	a.JobType = strings.TrimSpace(a.JobType)
	a.Notes = strings.TrimSpace(a.Notes)
	if err := validateApplication(a); err != nil {
		return domain.Application{}, err
	}

	now := s.Now()
	a.ID = ""
	a.OwnerID = ownerID
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.Store.CreateApplication(ctx, a)
}

// Update applies only the fields present in patch.
func (s *ApplicationService) Update(ctx context.Context, ownerID, id string, patch domain.ApplicationPatch) (domain.Application, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if strings.TrimSpace(id) == "" {
		return domain.Application{}, domain.ErrNotFound
	}
	if err := validateApplication(patch.Apply(domain.Application{})); err != nil {
		return domain.Application{}, err
	}
	if patch.Empty() {
		return s.Store.GetApplication(ctx, ownerID, id)
	}
	return s.Store.UpdateApplication(ctx, ownerID, id, patch, s.Now())
}

func (s *ApplicationService) Delete(ctx context.Context, ownerID, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrNotFound
	}
	return s.Store.DeleteApplication(ctx, ownerID, id)
}

func validateApplication(a domain.Application) error {
	fields := map[string]string{}
	for name, v := range map[string]string{
		"company":  a.Company,
		"position": a.Position,
		"status":   a.Status,
		"location": a.Location,
		"job_type": a.JobType,
	} {
		if utf8.RuneCountInString(v) > maxShortField {
			fields[name] = "must be 200 characters or less"
		}
	}
	if utf8.RuneCountInString(a.Notes) > maxNotes {
		fields["notes"] = "must be 5000 characters or less"
	}
	if len(fields) > 0 {
		return domain.NewValidationError(fields)
	}
	return nil
}
