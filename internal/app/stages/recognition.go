package stages

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smart-audio/internal/app/api"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// Recognition transcribes every clip and records its detected language
type Recognition struct {
	layout      Layout
	recognizer  api.Recognizer
	parallelism int
	logger      *zap.Logger
}

// NewRecognition creates the recognition stage. parallelism bounds the
// number of clips in flight.
func NewRecognition(layout Layout, recognizer api.Recognizer, parallelism int, logger *zap.Logger) *Recognition {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Recognition{layout: layout, recognizer: recognizer, parallelism: parallelism, logger: logger.Named("recognition")}
}

func (s *Recognition) Name() model.Stage { return model.StageRecognition }

func (s *Recognition) Check(rec model.JobRecord) error {
	return requireFiles(s.Name(), s.layout.SegmentIndex(rec.ID))
}

func (s *Recognition) Run(ctx context.Context, rec model.JobRecord) Result {
	doc, err := ReadSegmentDocument(s.layout.SegmentIndex(rec.ID))
	if err != nil {
		return Fail(err)
	}

	results := make([]api.Recognition, len(doc.Segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := range doc.Segments {
		i := i
		clip := s.layout.Clip(rec.ID, i)
		if !files.Exists(clip) {
			s.logger.Warn("clip missing, empty transcript", zap.String("job", rec.ID), zap.Int("segment", i))
			continue
		}
		g.Go(func() error {
			r, err := s.recognizer.Recognize(gctx, clip)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Fail(err)
	}
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}

	for i := range doc.Segments {
		doc.Segments[i].Transcript = model.StringPtr(results[i].Text)
		doc.Segments[i].Language = results[i].Language
	}

	path := s.layout.Transcription(rec.ID)
	if err := WriteSegmentDocument(path, doc); err != nil {
		return Fail(err)
	}
	if err := clearDownstream(s.layout, rec.ID, s.Name()); err != nil {
		return Fail(err)
	}

	status := model.StatusRecognized
	if lo.SomeBy(doc.Segments, func(seg model.Segment) bool { return seg.Language != "" }) {
		status = model.StatusLanguageIdentified
	}
	s.logger.Info("segments recognized", zap.String("job", rec.ID), zap.Int("segments", len(doc.Segments)), zap.String("status", string(status)))
	return Result{Artifacts: []string{path}, Status: status}
}
