package repository

import (
	"context"
	"time"

	"smart-audio/internal/app/model"
)

// RecordStore is the durable mapping from job id to job record. Every
// mutation is serialised by the implementation, so concurrent writers never
// drop each other's updates.
type RecordStore interface {
	Close() error

	// Load returns all records
	Load(ctx context.Context) ([]model.JobRecord, error)

	// Save replaces the whole store
	Save(ctx context.Context, records []model.JobRecord) error

	FindByID(ctx context.Context, id string) (*model.JobRecord, error)

	// Create inserts a new record, rejecting duplicate ids
	Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error)

	// Update applies mutate to the stored record under the writer lock.
	// When mutate returns an error nothing is written.
	Update(ctx context.Context, id string, mutate func(*model.JobRecord) error) (model.JobRecord, error)

	// CompareAndSwap writes rec only when the stored version equals rec.Version
	CompareAndSwap(ctx context.Context, rec model.JobRecord) (model.JobRecord, error)

	Delete(ctx context.Context, id string) error
}

// Touch stamps a mutation onto rec
func Touch(rec *model.JobRecord, now time.Time) {
	rec.UpdatedAt = now.UTC()
	rec.Version++
}

// PrepareNew fills the bookkeeping fields of a record about to be created
func PrepareNew(rec *model.JobRecord, now time.Time) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	rec.UpdatedAt = rec.CreatedAt
	rec.Version = 1
	if rec.Status == "" {
		rec.Status = model.StatusUploaded
	}
}
