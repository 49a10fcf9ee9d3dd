package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/util/files"
)

// Store keeps every job record in one JSON array document. All access goes
// through one mutex, and writes replace the document via temp file + rename.
type Store struct {
	path      string
	bootstrap bool

	mu  sync.Mutex
	now func() time.Time
}

var _ repository.RecordStore = (*Store)(nil)

// New opens the document at path. With bootstrap set, a missing document is
// created empty; otherwise a missing document is a MalformedRecordStore error
// on first access.
func New(path string, bootstrap bool) (*Store, error) {
	s := &Store{path: path, bootstrap: bootstrap, now: time.Now}

	if bootstrap && !files.Exists(path) {
		if err := files.WriteJSONAtomic(path, []model.JobRecord{}); err != nil {
			return nil, fmt.Errorf("failed to create record store: %w", err)
		}
	}
	return s, nil
}

// Path returns the document location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() ([]model.JobRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if s.bootstrap {
			return []model.JobRecord{}, nil
		}
		return nil, apperrors.Wrapf(apperrors.ErrMalformedRecordStore, "%s does not exist", s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record store: %w", err)
	}

	var records []model.JobRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedRecordStore, "%s: %v", s.path, err)
	}
	if records == nil {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedRecordStore, "%s: expected a JSON array", s.path)
	}

	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, apperrors.Wrapf(apperrors.ErrMalformedRecordStore, "%s: record without id", s.path)
		}
		if seen[r.ID] {
			return nil, apperrors.Wrapf(apperrors.ErrMalformedRecordStore, "%s: duplicate id %s", s.path, r.ID)
		}
		seen[r.ID] = true
	}
	return records, nil
}

func (s *Store) save(records []model.JobRecord) error {
	if records == nil {
		records = []model.JobRecord{}
	}
	return files.WriteJSONAtomic(s.path, records)
}

func indexOf(records []model.JobRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

// Load returns all records
func (s *Store) Load(ctx context.Context) ([]model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the whole document
func (s *Store) Save(ctx context.Context, records []model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

// FindByID scans the document for id
func (s *Store) FindByID(ctx context.Context, id string) (*model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, apperrors.NotFound(id)
	}
	rec := records[i]
	return &rec, nil
}

// Create appends a new record
func (s *Store) Create(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.JobRecord{}, err
	}
	if indexOf(records, rec.ID) >= 0 {
		return model.JobRecord{}, apperrors.Wrapf(apperrors.ErrConcurrentModification, "job %s already exists", rec.ID)
	}

	repository.PrepareNew(&rec, s.now())
	if err := s.save(append(records, rec)); err != nil {
		return model.JobRecord{}, err
	}
	return rec, nil
}

// Update applies mutate to one record and rewrites the document
func (s *Store) Update(ctx context.Context, id string, mutate func(*model.JobRecord) error) (model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.JobRecord{}, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return model.JobRecord{}, apperrors.NotFound(id)
	}

	current := records[i]
	next := current
	if err := mutate(&next); err != nil {
		return model.JobRecord{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version
	repository.Touch(&next, s.now())

	records[i] = next
	if err := s.save(records); err != nil {
		return model.JobRecord{}, err
	}
	return next, nil
}

// CompareAndSwap replaces a record when its stored version matches
func (s *Store) CompareAndSwap(ctx context.Context, rec model.JobRecord) (model.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return model.JobRecord{}, err
	}
	i := indexOf(records, rec.ID)
	if i < 0 {
		return model.JobRecord{}, apperrors.NotFound(rec.ID)
	}
	if records[i].Version != rec.Version {
		return model.JobRecord{}, apperrors.Wrapf(apperrors.ErrConcurrentModification,
			"job %s is at version %d, not %d", rec.ID, records[i].Version, rec.Version)
	}

	rec.CreatedAt = records[i].CreatedAt
	repository.Touch(&rec, s.now())
	records[i] = rec
	if err := s.save(records); err != nil {
		return model.JobRecord{}, err
	}
	return rec, nil
}

// Delete removes one record
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return apperrors.NotFound(id)
	}
	return s.save(append(records[:i], records[i+1:]...))
}

// Close is a no-op; the document is rewritten on every mutation
func (s *Store) Close() error {
	return nil
}
