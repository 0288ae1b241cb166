package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type ApplicationsStore struct {
	pool *pgxpool.Pool
}

func NewApplicationsStore(pool *pgxpool.Pool) *ApplicationsStore {
	return &ApplicationsStore{pool: pool}
}

const applicationColumns = `id, owner_id, company, position, date_applied, status, location, job_type, notes, created_at, updated_at`

func scanApplication(row rowScanner) (domain.Application, error) {
	var (
		a       domain.Application
		idUUID  pgtype.UUID
		ownerID pgtype.UUID
		date    pgtype.Date
	)
	err := row.Scan(&idUUID, &ownerID, &a.Company, &a.Position, &date, &a.Status, &a.Location, &a.JobType, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Application{}, err
	}
	a.ID = uuidOrEmpty(idUUID)
	a.OwnerID = uuidOrEmpty(ownerID)
	a.DateApplied = datePtr(date)
	return a, nil
}

func (s *ApplicationsStore) CreateApplication(ctx context.Context, a domain.Application) (domain.Application, error) {
	if !validID(a.OwnerID) {
		return domain.Application{}, domain.ErrNotFound
	}
	q := `
		INSERT INTO applications (owner_id, company, position, date_applied, status, location, job_type, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + applicationColumns

	out, err := scanApplication(s.pool.QueryRow(ctx, q,
		a.OwnerID, a.Company, a.Position, a.DateApplied, a.Status, a.Location, a.JobType, a.Notes, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return out, nil
}

func (s *ApplicationsStore) ListApplications(ctx context.Context, ownerID string) ([]domain.Application, error) {
	if !validID(ownerID) {
		return []domain.Application{}, nil
	}
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

func (s *ApplicationsStore) GetApplication(ctx context.Context, ownerID, id string) (domain.Application, error) {
	if !validID(ownerID) || !validID(id) {
		return domain.Application{}, domain.ErrNotFound
	}
	q := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 AND owner_id = $2`

	a, err := scanApplication(s.pool.QueryRow(ctx, q, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	return a, nil
}

// UpdateApplication builds the SET list from the fields present in patch.
func (s *ApplicationsStore) UpdateApplication(ctx context.Context, ownerID, id string, patch domain.ApplicationPatch, now time.Time) (domain.Application, error) {
	if !validID(ownerID) || !validID(id) {
		return domain.Application{}, domain.ErrNotFound
	}

	sets := []string{}
	args := []any{id, ownerID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	addText := func(col string, v *string) {
		if v != nil {
			add(col, strings.TrimSpace(*v))
		}
	}
	addText("company", patch.Company)
	addText("position", patch.Position)
	addText("status", patch.Status)
	addText("location", patch.Location)
	addText("job_type", patch.JobType)
	addText("notes", patch.Notes)
	switch {
	case patch.ClearDate:
		add("date_applied", nil)
	case patch.DateApplied != nil:
		add("date_applied", *patch.DateApplied)
	}
	add("updated_at", now)

	q := `UPDATE applications SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + applicationColumns

	a, err := scanApplication(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("update application: %w", err)
	}
	return a, nil
}

func (s *ApplicationsStore) DeleteApplication(ctx context.Context, ownerID, id string) error {
	if !validID(ownerID) || !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
