package stages

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// Diarization normalises the original asset, splits it into speaker turns
// and crops one clip per turn
type Diarization struct {
	layout   Layout
	audio    api.AudioTool
	diarizer api.Diarizer
	logger   *zap.Logger
}

// NewDiarization creates the diarization stage
func NewDiarization(layout Layout, audio api.AudioTool, diarizer api.Diarizer, logger *zap.Logger) *Diarization {
	return &Diarization{layout: layout, audio: audio, diarizer: diarizer, logger: logger.Named("diarization")}
}

func (d *Diarization) Name() model.Stage { return model.StageDiarization }

func (d *Diarization) Check(rec model.JobRecord) error {
	return requireFiles(d.Name(), d.layout.Original(rec.ID, rec.Filename))
}

func (d *Diarization) Run(ctx context.Context, rec model.JobRecord) Result {
	id := rec.ID
	normalized := d.layout.Normalized(id)
	if err := d.audio.Normalize(ctx, d.layout.Original(id, rec.Filename), normalized); err != nil {
		return Fail(fmt.Errorf("normalize audio: %w", err))
	}

	turns, err := d.diarizer.Diarize(ctx, normalized)
	if err != nil {
		return Fail(err)
	}
	segments := turnsToSegments(turns)
	if len(segments) == 0 {
		return Fail(apperrors.ModelFailure("diarizer", errors.New("no speech turns detected")))
	}
	d.logger.Info("diarized", zap.String("job", id), zap.Int("segments", len(segments)), zap.Int("speakers", CountSpeakers(segments)))

	rttm := d.layout.RTTM(id)
	if err := files.WriteFileAtomic(rttm, FormatRTTM(d.layout.AudioFile, segments)); err != nil {
		return Fail(err)
	}

	// Clips are cut into a staging folder that replaces the old one only
	// once complete.
	final := d.layout.SegmentsDir(id)
	staging := final + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return Fail(err)
	}
	if err := files.EnsureDir(staging); err != nil {
		return Fail(err)
	}
	defer os.RemoveAll(staging)

	artifacts := []string{rttm, d.layout.SegmentIndex(id)}
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return Fail(err)
		}
		clip := d.layout.Clip(id, i)
		staged := filepath.Join(staging, filepath.Base(clip))
		if err := d.audio.Crop(ctx, normalized, staged, seg.Start, seg.End); err != nil {
			return Fail(fmt.Errorf("crop segment %d: %w", i, err))
		}
		artifacts = append(artifacts, clip)
	}

	doc := &model.SegmentDocument{ID: id, Segments: segments}
	if err := WriteSegmentDocument(filepath.Join(staging, filepath.Base(d.layout.SegmentIndex(id))), doc); err != nil {
		return Fail(err)
	}

	if err := os.RemoveAll(final); err != nil {
		return Fail(err)
	}
	if err := os.Rename(staging, final); err != nil {
		return Fail(err)
	}

	if err := clearDownstream(d.layout, id, d.Name()); err != nil {
		return Fail(err)
	}
	return Result{Artifacts: artifacts}
}

func turnsToSegments(turns []model.SpeakerTurn) []model.Segment {
	segments := make([]model.Segment, 0, len(turns))
	for _, t := range turns {
		seg := model.Segment{
			Speaker: t.Speaker,
			Start:   int64(math.Round(t.Start * 1000)),
			End:     int64(math.Round(t.End * 1000)),
		}
		if seg.Speaker == "" || seg.End <= seg.Start {
			continue
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments
}
