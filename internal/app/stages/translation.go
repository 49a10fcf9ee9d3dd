package stages

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"smart-audio/internal/app/api"
	"smart-audio/internal/app/model"
	"smart-audio/internal/config"
)

// TranslationFailed replaces the text of a segment no model could translate
const TranslationFailed = "[TRANSLATION FAILED]"

// Translation translates every transcript with a model picked by its
// detected language
type Translation struct {
	layout  Layout
	models  *api.ModelCache
	routing config.TranslationConfig
	logger  *zap.Logger
}

// NewTranslation creates the translation stage
func NewTranslation(layout Layout, models *api.ModelCache, routing config.TranslationConfig, logger *zap.Logger) *Translation {
	return &Translation{layout: layout, models: models, routing: routing, logger: logger.Named("translation")}
}

func (s *Translation) Name() model.Stage { return model.StageTranslation }

func (s *Translation) Check(rec model.JobRecord) error {
	return requireFiles(s.Name(), s.layout.Transcription(rec.ID))
}

func (s *Translation) Run(ctx context.Context, rec model.JobRecord) Result {
	doc, err := ReadSegmentDocument(s.layout.Transcription(rec.ID))
	if err != nil {
		return Fail(err)
	}

	failed := 0
	for i := range doc.Segments {
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}
		seg := &doc.Segments[i]
		seg.TranslationError = ""

		text := ""
		if seg.Transcript != nil {
			text = *seg.Transcript
		}
		if strings.TrimSpace(text) == "" {
			seg.TranslatedText = model.StringPtr("")
			continue
		}

		out, err := s.translate(ctx, text, seg.Language)
		if err != nil {
			if ctx.Err() != nil {
				return Fail(ctx.Err())
			}
			failed++
			s.logger.Warn("translation failed", zap.String("job", rec.ID), zap.Int("segment", i), zap.Error(err))
			seg.TranslatedText = model.StringPtr(TranslationFailed)
			seg.TranslationError = err.Error()
			continue
		}
		seg.TranslatedText = model.StringPtr(out)
	}

	path := s.layout.Translation(rec.ID)
	if err := WriteSegmentDocument(path, doc); err != nil {
		return Fail(err)
	}
	if err := clearDownstream(s.layout, rec.ID, s.Name()); err != nil {
		return Fail(err)
	}
	s.logger.Info("segments translated", zap.String("job", rec.ID), zap.Int("segments", len(doc.Segments)), zap.Int("failed", failed))
	return Result{Artifacts: []string{path}}
}

// translate tries the language specific model, then the default model
func (s *Translation) translate(ctx context.Context, text, language string) (string, error) {
	primary := s.routing.ModelFor(language)
	out, err := s.models.Translate(ctx, primary, text, language)
	if err == nil || primary == s.routing.DefaultModel || ctx.Err() != nil {
		return out, err
	}

	s.logger.Debug("falling back to default model", zap.String("model", primary), zap.Error(err))
	return s.models.Translate(ctx, s.routing.DefaultModel, text, language)
}
