package stages

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"smart-audio/internal/app/api"
	"smart-audio/internal/app/embedding/similarity"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// UnknownSpeaker labels a segment whose best score is under the threshold
const UnknownSpeaker = "unknown"

// Identification bootstraps an enrolment profile on its first run and
// matches segments against it afterwards
type Identification struct {
	layout     Layout
	embedder   api.Embedder
	calculator *similarity.CosineSimilarityCalculator
	threshold  float64
	logger     *zap.Logger
}

// NewIdentification creates the identification stage
func NewIdentification(layout Layout, embedder api.Embedder, threshold float64, logger *zap.Logger) *Identification {
	return &Identification{
		layout:     layout,
		embedder:   embedder,
		calculator: similarity.NewCosineSimilarityCalculator(),
		threshold:  threshold,
		logger:     logger.Named("identification"),
	}
}

func (s *Identification) Name() model.Stage { return model.StageIdentification }

func (s *Identification) Check(rec model.JobRecord) error {
	return requireFiles(s.Name(), s.layout.SegmentIndex(rec.ID))
}

type embeddedSegment struct {
	index     int
	segment   model.Segment
	embedding []float32
}

func (s *Identification) Run(ctx context.Context, rec model.JobRecord) Result {
	doc, err := ReadSegmentDocument(s.layout.SegmentIndex(rec.ID))
	if err != nil {
		return Fail(err)
	}

	var embedded []embeddedSegment
	for i, seg := range doc.Segments {
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}
		clip := s.layout.Clip(rec.ID, i)
		if !files.Exists(clip) {
			s.logger.Warn("clip missing, segment skipped", zap.String("job", rec.ID), zap.Int("segment", i))
			continue
		}
		vec, err := s.embedder.Embed(ctx, clip)
		if err != nil {
			return Fail(err)
		}
		embedded = append(embedded, embeddedSegment{index: i, segment: seg, embedding: vec})
	}
	if len(embedded) == 0 {
		return Fail(apperrors.MissingInput(string(s.Name()), s.layout.SegmentsDir(rec.ID)+"/*.wav"))
	}

	profilePath := s.layout.Profile(rec.ID)
	if !files.Exists(profilePath) {
		res, created := s.enrol(rec.ID, profilePath, embedded)
		if created || res.Err != nil {
			return res
		}
		s.logger.Info("profile enrolled by another job, matching instead", zap.String("job", rec.ID))
	}
	return s.match(rec.ID, profilePath, embedded)
}

// enrol averages and normalises the embeddings of each speaker. It reports
// false when another run published a profile first.
func (s *Identification) enrol(id, profilePath string, embedded []embeddedSegment) (Result, bool) {
	bySpeaker := lo.GroupBy(embedded, func(e embeddedSegment) string { return e.segment.Speaker })

	profile := &model.EnrolmentProfile{SchemaVersion: 1, Speakers: make(map[string][]float32, len(bySpeaker))}
	for speaker, group := range bySpeaker {
		avg, err := similarity.Average(lo.Map(group, func(e embeddedSegment, _ int) []float32 { return e.embedding }))
		if err != nil {
			return Fail(apperrors.ModelFailure("embedder", fmt.Errorf("speaker %s: %w", speaker, err))), false
		}
		profile.Speakers[speaker] = similarity.Normalize(avg)
	}

	created, err := files.WriteJSONExclusive(profilePath, profile)
	if err != nil {
		return Fail(err), false
	}
	if !created {
		return Result{}, false
	}
	if err := os.RemoveAll(s.layout.IdentificationReport(id)); err != nil {
		return Fail(err), true
	}
	if err := clearDownstream(s.layout, id, s.Name()); err != nil {
		return Fail(err), true
	}
	s.logger.Info("enrolment profile created", zap.String("job", id), zap.Int("speakers", len(profile.Speakers)))
	return Result{Artifacts: []string{profilePath}}, true
}

// match scores every embedded segment against the stored profile
func (s *Identification) match(id, profilePath string, embedded []embeddedSegment) Result {
	profile, err := ReadProfile(profilePath)
	if err != nil {
		return Fail(err)
	}

	report := &model.IdentificationReport{SchemaVersion: 1, ID: id, Threshold: s.threshold}
	for _, e := range embedded {
		best, err := s.calculator.BestMatch(similarity.Normalize(e.embedding), profile.Speakers)
		if err != nil {
			return Fail(apperrors.Malformed(profilePath, err.Error()))
		}
		m := model.SegmentMatch{
			Index:             e.index,
			Speaker:           e.segment.Speaker,
			IdentifiedSpeaker: best.Label,
			Score:             math.Round(float64(best.Score)*1e4) / 1e4,
			Matched:           float64(best.Score) >= s.threshold,
			Start:             e.segment.Start,
			End:               e.segment.End,
		}
		if !m.Matched {
			m.IdentifiedSpeaker = UnknownSpeaker
		}
		report.Segments = append(report.Segments, m)
	}

	path := s.layout.IdentificationReport(id)
	if err := files.WriteJSONAtomic(path, report); err != nil {
		return Fail(err)
	}
	if err := clearDownstream(s.layout, id, s.Name()); err != nil {
		return Fail(err)
	}
	matched := lo.CountBy(report.Segments, func(m model.SegmentMatch) bool { return m.Matched })
	s.logger.Info("segments identified", zap.String("job", id), zap.Int("segments", len(report.Segments)), zap.Int("matched", matched))
	return Result{Artifacts: []string{path}}
}
