package services

import (
	"context"
	"io"

	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/app/model"
)

// FileService defines the interface for upload intake and job records
type FileService interface {
	Upload(ctx context.Context, req dto.UploadRequest, filename string, content io.Reader) (*dto.FileResponse, error)
	List(ctx context.Context, query dto.ListFilesQuery) (*dto.ListFilesResponse, error)
	Get(ctx context.Context, id string) (*dto.FileResponse, error)
	Delete(ctx context.Context, id string) error
}

// PipelineService defines the interface for stage dispatch
type PipelineService interface {
	Dispatch(ctx context.Context, id string, stage model.Stage) (*dto.FileResponse, error)
	Process(ctx context.Context, id string) (*dto.FileResponse, error)
	Cancel(ctx context.Context, id string) error
}

// ResultService defines the interface for result documents
type ResultService interface {
	GetResult(ctx context.Context, id string) (*dto.ResultResponse, error)
}

// DownloadService defines the interface for artifact downloads
type DownloadService interface {
	Original(ctx context.Context, id string) (*Download, error)
	Export(ctx context.Context, id, filename string) (*Download, error)
	WriteArchive(ctx context.Context, id string, w io.Writer) error
	Publish(ctx context.Context, id string) (*dto.PublishResponse, error)
}

// Runner is the part of the dispatcher the services use
type Runner interface {
	Dispatch(ctx context.Context, id string, stage model.Stage) (model.JobRecord, error)
	Process(ctx context.Context, id string) (model.JobRecord, error)
	Cancel(id string) error
}

// Download is a file on disk to be sent to the client
type Download struct {
	Path        string
	Name        string
	ContentType string
}
