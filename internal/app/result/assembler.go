// Package result assembles the per-job result document served to clients.
package result

import (
	"context"
	"errors"
	"io/fs"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/stages"
	"smart-audio/internal/app/util/files"
)

// Document is the result of a job: its segments with whatever the pipeline
// has produced so far
type Document struct {
	ID            string          `json:"id"`
	TotalSpeakers int             `json:"totalSpeakers"`
	Segments      []model.Segment `json:"segment"`
}

// Assembler reads the newest segment document of a job
type Assembler struct {
	store  repository.RecordStore
	layout stages.Layout
}

func NewAssembler(store repository.RecordStore, layout stages.Layout) *Assembler {
	return &Assembler{store: store, layout: layout}
}

// Assemble prefers the translation over the transcription. A job with
// neither yields ResultNotFound.
func (a *Assembler) Assemble(ctx context.Context, id string) (*Document, error) {
	if _, err := a.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	for _, path := range []string{a.layout.Translation(id), a.layout.Transcription(id)} {
		if !files.Exists(path) {
			continue
		}
		doc, err := stages.ReadSegmentDocument(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Document{
			ID:            id,
			TotalSpeakers: stages.CountSpeakers(doc.Segments),
			Segments:      doc.Segments,
		}, nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrResultNotFound, "job %s has no transcription yet", id)
}
