package services

import (
	"context"

	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/app/model"
)

// PipelineServiceImpl implements PipelineService on the dispatcher
type PipelineServiceImpl struct {
	runner Runner
}

func NewPipelineService(runner Runner) *PipelineServiceImpl {
	return &PipelineServiceImpl{runner: runner}
}

// Dispatch starts one stage and returns the in-progress record
func (s *PipelineServiceImpl) Dispatch(ctx context.Context, id string, stage model.Stage) (*dto.FileResponse, error) {
	rec, err := s.runner.Dispatch(ctx, id, stage)
	if err != nil {
		return nil, err
	}
	return dto.FromRecord(rec), nil
}

// Process starts the whole pipeline
func (s *PipelineServiceImpl) Process(ctx context.Context, id string) (*dto.FileResponse, error) {
	rec, err := s.runner.Process(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.FromRecord(rec), nil
}

func (s *PipelineServiceImpl) Cancel(_ context.Context, id string) error {
	return s.runner.Cancel(id)
}
