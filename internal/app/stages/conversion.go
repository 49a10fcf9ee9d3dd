package stages

import (
	"context"

	"go.uber.org/zap"

	"smart-audio/internal/app/converter/export"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// Conversion derives the CSV, text and spreadsheet exports
type Conversion struct {
	layout Layout
	logger *zap.Logger
}

// NewConversion creates the format conversion stage
func NewConversion(layout Layout, logger *zap.Logger) *Conversion {
	return &Conversion{layout: layout, logger: logger.Named("conversion")}
}

func (s *Conversion) Name() model.Stage { return model.StageConversion }

func (s *Conversion) Check(rec model.JobRecord) error {
	return requireFiles(s.Name(), s.layout.Transcription(rec.ID), s.layout.Translation(rec.ID))
}

func (s *Conversion) Run(ctx context.Context, rec model.JobRecord) Result {
	transcription, err := ReadSegmentDocument(s.layout.Transcription(rec.ID))
	if err != nil {
		return Fail(err)
	}
	translation, err := ReadSegmentDocument(s.layout.Translation(rec.ID))
	if err != nil {
		return Fail(err)
	}

	var report *model.IdentificationReport
	if reportPath := s.layout.IdentificationReport(rec.ID); files.Exists(reportPath) {
		if report, err = ReadIdentificationReport(reportPath); err != nil {
			return Fail(err)
		}
	}

	if err := ctx.Err(); err != nil {
		return Fail(err)
	}

	paths, err := export.WriteBundle(s.layout.ConvertedDir(rec.ID), export.Input{
		FileLabel:     s.layout.AudioFile,
		Transcription: transcription,
		Translation:   translation,
		Report:        report,
	})
	if err != nil {
		return Fail(err)
	}
	s.logger.Info("exports written", zap.String("job", rec.ID), zap.Int("files", len(paths)))
	return Result{Artifacts: paths}
}
