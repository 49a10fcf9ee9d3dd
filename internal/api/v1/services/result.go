package services

import (
	"context"

	"github.com/samber/lo"

	"smart-audio/internal/api/v1/dto"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/result"
)

// ResultServiceImpl implements ResultService on the assembler
type ResultServiceImpl struct {
	assembler *result.Assembler
}

func NewResultService(assembler *result.Assembler) *ResultServiceImpl {
	return &ResultServiceImpl{assembler: assembler}
}

func (s *ResultServiceImpl) GetResult(ctx context.Context, id string) (*dto.ResultResponse, error) {
	doc, err := s.assembler.Assemble(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ResultResponse{
		ID:            doc.ID,
		TotalSpeakers: doc.TotalSpeakers,
		Segments: lo.Map(doc.Segments, func(seg model.Segment, _ int) dto.SegmentResponse {
			return dto.SegmentResponse{
				Speaker:          seg.Speaker,
				Start:            seg.Start,
				End:              seg.End,
				Transcript:       seg.Transcript,
				Language:         seg.Language,
				TranslatedText:   seg.TranslatedText,
				TranslationError: seg.TranslationError,
			}
		}),
	}, nil
}
