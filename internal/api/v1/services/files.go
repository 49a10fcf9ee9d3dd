package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"smart-audio/internal/api/v1/dto"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/metrics"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/pipeline"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/app/util/files"
)

const defaultPageSize = 100

// UploadPolicy limits what the intake accepts
type UploadPolicy struct {
	AllowedExtensions []string
	MaxBytes          int64
	// PublicPrefix is the URL path the upload root is served under
	PublicPrefix string
}

// FileServiceImpl implements FileService on the record store and the job folders
type FileServiceImpl struct {
	store   repository.RecordStore
	layout  stages.Layout
	locker  pipeline.JobLocker
	policy  UploadPolicy
	allowed map[string]bool
}

// NewFileService creates a new file service
func NewFileService(store repository.RecordStore, layout stages.Layout, locker pipeline.JobLocker, policy UploadPolicy) *FileServiceImpl {
	if policy.PublicPrefix == "" {
		policy.PublicPrefix = "/uploads"
	}
	allowed := lo.SliceToMap(policy.AllowedExtensions, func(ext string) (string, bool) {
		return strings.ToLower(strings.TrimPrefix(ext, ".")), true
	})
	return &FileServiceImpl{store: store, layout: layout, locker: locker, policy: policy, allowed: allowed}
}

// Upload stores the asset under a fresh job folder and creates its record
func (s *FileServiceImpl) Upload(ctx context.Context, req dto.UploadRequest, filename string, content io.Reader) (*dto.FileResponse, error) {
	rec, err := s.upload(ctx, req, filename, content)
	if err != nil {
		metrics.RecordUpload(false, 0)
		return nil, err
	}
	return dto.FromRecord(rec), nil
}

func (s *FileServiceImpl) upload(ctx context.Context, req dto.UploadRequest, filename string, content io.Reader) (model.JobRecord, error) {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(filename, "\\", "/")))
	if filename == "" || base == "." || base == "/" {
		return model.JobRecord{}, apperrors.BadUpload("no file selected")
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !s.allowed[strings.TrimPrefix(ext, ".")] {
		return model.JobRecord{}, apperrors.BadUpload(fmt.Sprintf("extension %q is not allowed", ext))
	}

	id := uuid.NewString()
	stored := s.layout.OriginalName(ext)
	dest := s.layout.Original(id, stored)

	size, err := s.save(dest, content)
	if err != nil {
		_ = os.RemoveAll(s.layout.JobDir(id))
		return model.JobRecord{}, err
	}

	name := req.Name
	if name == "" {
		name = base
	}
	rec, err := s.store.Create(ctx, model.JobRecord{
		ID:       id,
		Name:     name,
		Filename: stored,
		Status:   model.StatusUploaded,
		URL:      path.Join(s.policy.PublicPrefix, id, stored),
	})
	if err != nil {
		_ = os.RemoveAll(s.layout.JobDir(id))
		return model.JobRecord{}, err
	}

	metrics.RecordUpload(true, size)
	return rec, nil
}

// save streams content into dest through a temp file, enforcing the size limit
func (s *FileServiceImpl) save(dest string, content io.Reader) (int64, error) {
	if err := files.EnsureDir(filepath.Dir(dest)); err != nil {
		return 0, err
	}
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	limit := s.policy.MaxBytes
	reader := content
	if limit > 0 {
		reader = io.LimitReader(content, limit+1)
	}
	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to store upload: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to store upload: %w", closeErr)
	case n == 0:
		err = apperrors.BadUpload("file is empty")
	case limit > 0 && n > limit:
		err = apperrors.BadUpload(fmt.Sprintf("file exceeds the %d byte limit", limit))
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to store upload: %w", err)
	}
	return n, nil
}

// List returns one page of records, optionally filtered by status
func (s *FileServiceImpl) List(ctx context.Context, query dto.ListFilesQuery) (*dto.ListFilesResponse, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if query.Status != "" {
		records = lo.Filter(records, func(r model.JobRecord, _ int) bool {
			return string(r.Status) == query.Status
		})
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := lo.Slice(records, query.Offset, query.Offset+limit)

	return &dto.ListFilesResponse{
		Files:  lo.Map(page, func(r model.JobRecord, _ int) dto.FileResponse { return *dto.FromRecord(r) }),
		Total:  len(records),
		Offset: query.Offset,
		Limit:  limit,
	}, nil
}

func (s *FileServiceImpl) Get(ctx context.Context, id string) (*dto.FileResponse, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.FromRecord(*rec), nil
}

// Delete removes the record and the job folder. It is refused while a
// stage holds the job.
func (s *FileServiceImpl) Delete(ctx context.Context, id string) error {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return err
	}

	unlock, err := s.locker.TryLock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.layout.JobDir(id)); err != nil {
		return fmt.Errorf("record deleted but folder remains: %w", err)
	}
	return nil
}
