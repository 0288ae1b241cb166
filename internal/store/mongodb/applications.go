package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/domain"
)

type applicationDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	OwnerID     string        `bson:"ownerId"`
	Company     string        `bson:"company"`
	Position    string        `bson:"position"`
	DateApplied *time.Time    `bson:"dateApplied,omitempty"`
	Status      string        `bson:"status"`
	Location    string        `bson:"location"`
	JobType     string        `bson:"jobType"`
	Notes       string        `bson:"notes"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d applicationDoc) toDomain() domain.Application {
	a := domain.Application{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID,
		Company:   d.Company,
		Position:  d.Position,
		Status:    d.Status,
		Location:  d.Location,
		JobType:   d.JobType,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.DateApplied != nil {
		t := d.DateApplied.UTC()
		a.DateApplied = &t
	}
	return a
}

func (s *Store) CreateApplication(ctx context.Context, a domain.Application) (domain.Application, error) {
	d := applicationDoc{
		ID:          bson.NewObjectID(),
		OwnerID:     a.OwnerID,
		Company:     a.Company,
		Position:    a.Position,
		DateApplied: a.DateApplied,
		Status:      a.Status,
		Location:    a.Location,
		JobType:     a.JobType,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if _, err := s.applications.InsertOne(ctx, d); err != nil {
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return d.toDomain(), nil
}

func (s *Store) ListApplications(ctx context.Context, ownerID string) ([]domain.Application, error) {
	cur, err := s.applications.Find(ctx, bson.M{"ownerId": ownerID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	var docs []applicationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	out := make([]domain.Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func ownedBy(ownerID, id string) (bson.M, bool) {
	oid, ok := objectID(id)
	if !ok {
		return nil, false
	}
	return bson.M{"_id": oid, "ownerId": ownerID}, true
}

func (s *Store) GetApplication(ctx context.Context, ownerID, id string) (domain.Application, error) {
	filter, ok := ownedBy(ownerID, id)
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	var d applicationDoc
	if err := s.applications.FindOne(ctx, filter).Decode(&d); err != nil {
		if notFound(err) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("get application: %w", err)
	}
	return d.toDomain(), nil
}

func patchUpdate(patch domain.ApplicationPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	text := func(key string, v *string) {
		if v != nil {
			set[key] = strings.TrimSpace(*v)
		}
	}
	text("company", patch.Company)
	text("position", patch.Position)
	text("status", patch.Status)
	text("location", patch.Location)
	text("jobType", patch.JobType)
	text("notes", patch.Notes)

	update := bson.M{"$set": set}
	switch {
	case patch.ClearDate:
		update["$unset"] = bson.M{"dateApplied": ""}
	case patch.DateApplied != nil:
		set["dateApplied"] = *patch.DateApplied
	}
	return update
}

func (s *Store) UpdateApplication(ctx context.Context, ownerID, id string, patch domain.ApplicationPatch, now time.Time) (domain.Application, error) {
	filter, ok := ownedBy(ownerID, id)
	if !ok {
		return domain.Application{}, domain.ErrNotFound
	}
	var d applicationDoc
	err := s.applications.FindOneAndUpdate(ctx, filter, patchUpdate(patch, now),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if err != nil {
		if notFound(err) {
			return domain.Application{}, domain.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("update application: %w", err)
	}
	return d.toDomain(), nil
}

func (s *Store) DeleteApplication(ctx context.Context, ownerID, id string) error {
	filter, ok := ownedBy(ownerID, id)
	if !ok {
		return domain.ErrNotFound
	}
	res, err := s.applications.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
