package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/samber/lo"

	apierrors "smart-audio/internal/api/errors"
	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/app/converter/export"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/app/util/files"
)

// DownloadServiceImpl serves originals and converted exports
type DownloadServiceImpl struct {
	store     repository.RecordStore
	layout    stages.Layout
	publisher Publisher
}

// NewDownloadService creates a download service. publisher may be nil, in
// which case Publish reports the feature as unavailable.
func NewDownloadService(store repository.RecordStore, layout stages.Layout, publisher Publisher) *DownloadServiceImpl {
	return &DownloadServiceImpl{store: store, layout: layout, publisher: publisher}
}

// Original returns the uploaded asset of a job
func (s *DownloadServiceImpl) Original(ctx context.Context, id string) (*Download, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.layout.Original(id, rec.Filename)
	if !files.Exists(p) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "original asset of job %s", id)
	}
	return &Download{Path: p, Name: rec.Filename, ContentType: contentType(rec.Filename)}, nil
}

// Export returns one converted file of a job
func (s *DownloadServiceImpl) Export(ctx context.Context, id, filename string) (*Download, error) {
	if !lo.Contains(export.Files, filename) {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "export %q", filename)
	}
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	p := filepath.Join(s.layout.ConvertedDir(id), filename)
	if !files.Exists(p) {
		return nil, apperrors.Wrapf(apperrors.ErrResultNotFound, "%s of job %s has not been generated", filename, id)
	}
	return &Download{Path: p, Name: filename, ContentType: contentType(filename)}, nil
}

// converted lists the export files present for a job, in bundle order
func (s *DownloadServiceImpl) converted(ctx context.Context, id string) ([]string, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	dir := s.layout.ConvertedDir(id)
	present := lo.Filter(export.Files, func(name string, _ int) bool {
		return files.Exists(filepath.Join(dir, name))
	})
	if len(present) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrResultNotFound, "job %s has no converted files", id)
	}
	return present, nil
}

// WriteArchive zips the converted files of a job into w
func (s *DownloadServiceImpl) WriteArchive(ctx context.Context, id string, w io.Writer) error {
	names, err := s.converted(ctx, id)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		if err := addToZip(zw, filepath.Join(s.layout.ConvertedDir(id), name), name); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addToZip(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}

// Publish uploads the converted files of a job to object storage
func (s *DownloadServiceImpl) Publish(ctx context.Context, id string) (*dto.PublishResponse, error) {
	if s.publisher == nil {
		return nil, apierrors.NewServiceUnavailableError("export publishing is not configured")
	}
	names, err := s.converted(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.PublishResponse{ID: id, Bucket: s.publisher.Bucket(), Objects: make(map[string]string, len(names))}
	for _, name := range names {
		key := path.Join(id, name)
		url, err := s.publisher.Publish(ctx, key, filepath.Join(s.layout.ConvertedDir(id), name), contentType(name))
		if err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", name, err)
		}
		resp.Objects[name] = url
	}
	return resp, nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".trn", ".txt":
		return "text/plain; charset=utf-8"
	case ".csv":
		return "text/csv; charset=utf-8"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
