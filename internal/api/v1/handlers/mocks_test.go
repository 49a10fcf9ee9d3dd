package handlers_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"

	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/api/v1/services"
	"smart-audio/internal/app/model"
)

type mockFileService struct{ mock.Mock }

func (m *mockFileService) Upload(ctx context.Context, req dto.UploadRequest, filename string, content io.Reader) (*dto.FileResponse, error) {
	data, _ := io.ReadAll(content)
	args := m.Called(ctx, req, filename, string(data))
	resp, _ := args.Get(0).(*dto.FileResponse)
	return resp, args.Error(1)
}

func (m *mockFileService) List(ctx context.Context, query dto.ListFilesQuery) (*dto.ListFilesResponse, error) {
	args := m.Called(ctx, query)
	resp, _ := args.Get(0).(*dto.ListFilesResponse)
	return resp, args.Error(1)
}

func (m *mockFileService) Get(ctx context.Context, id string) (*dto.FileResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.FileResponse)
	return resp, args.Error(1)
}

func (m *mockFileService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockPipelineService struct{ mock.Mock }

func (m *mockPipelineService) Dispatch(ctx context.Context, id string, stage model.Stage) (*dto.FileResponse, error) {
	args := m.Called(ctx, id, stage)
	resp, _ := args.Get(0).(*dto.FileResponse)
	return resp, args.Error(1)
}

func (m *mockPipelineService) Process(ctx context.Context, id string) (*dto.FileResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.FileResponse)
	return resp, args.Error(1)
}

func (m *mockPipelineService) Cancel(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockResultService struct{ mock.Mock }

func (m *mockResultService) GetResult(ctx context.Context, id string) (*dto.ResultResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.ResultResponse)
	return resp, args.Error(1)
}

type mockDownloadService struct{ mock.Mock }

func (m *mockDownloadService) Original(ctx context.Context, id string) (*services.Download, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*services.Download)
	return d, args.Error(1)
}

func (m *mockDownloadService) Export(ctx context.Context, id, filename string) (*services.Download, error) {
	args := m.Called(ctx, id, filename)
	d, _ := args.Get(0).(*services.Download)
	return d, args.Error(1)
}

func (m *mockDownloadService) WriteArchive(ctx context.Context, id string, w io.Writer) error {
	args := m.Called(ctx, id, w)
	if body, ok := args.Get(1).(string); ok && body != "" {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(0)
}

func (m *mockDownloadService) Publish(ctx context.Context, id string) (*dto.PublishResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*dto.PublishResponse)
	return resp, args.Error(1)
}

// mockServices groups the service mocks behind one router
type mockServices struct {
	Files    *mockFileService
	Pipeline *mockPipelineService
	Result   *mockResultService
	Download *mockDownloadService
}

func newMockServices(t *testing.T) *mockServices {
	ms := &mockServices{
		Files:    &mockFileService{},
		Pipeline: &mockPipelineService{},
		Result:   &mockResultService{},
		Download: &mockDownloadService{},
	}
	t.Cleanup(func() {
		ms.Files.AssertExpectations(t)
		ms.Pipeline.AssertExpectations(t)
		ms.Result.AssertExpectations(t)
		ms.Download.AssertExpectations(t)
	})
	return ms
}
