package stages

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"

	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// rawDocument detects a missing "segment" key, which a plain slice cannot
type rawDocument struct {
	SchemaVersion int              `json:"schemaVersion"`
	ID            string           `json:"id"`
	TotalSpeakers int              `json:"totalSpeakers"`
	Segments      *[]model.Segment `json:"segment"`
}

// ReadSegmentDocument reads and validates a segment document. A missing
// file is returned wrapping fs.ErrNotExist; any shape problem is MalformedResult.
func ReadSegmentDocument(path string) (*model.SegmentDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Malformed(path, err.Error())
	}
	if raw.Segments == nil {
		return nil, apperrors.Malformed(path, `missing "segment"`)
	}
	if raw.SchemaVersion > model.SegmentSchemaVersion {
		return nil, apperrors.Malformed(path, fmt.Sprintf("unsupported schemaVersion %d", raw.SchemaVersion))
	}

	doc := &model.SegmentDocument{
		SchemaVersion: model.SegmentSchemaVersion,
		ID:            raw.ID,
		TotalSpeakers: raw.TotalSpeakers,
		Segments:      *raw.Segments,
	}
	if err := ValidateSegments(path, doc.Segments); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateSegments checks the per-segment invariants
func ValidateSegments(path string, segments []model.Segment) error {
	for i, seg := range segments {
		if seg.Speaker == "" {
			return apperrors.Malformed(path, fmt.Sprintf("segment %d has no speaker", i))
		}
		if seg.End <= seg.Start {
			return apperrors.Malformed(path, fmt.Sprintf("segment %d ends at %d, not after %d", i, seg.End, seg.Start))
		}
	}
	return nil
}

// WriteSegmentDocument stamps the schema version and speaker count and
// writes the document atomically
func WriteSegmentDocument(path string, doc *model.SegmentDocument) error {
	doc.SchemaVersion = model.SegmentSchemaVersion
	doc.TotalSpeakers = CountSpeakers(doc.Segments)
	if doc.Segments == nil {
		doc.Segments = []model.Segment{}
	}
	return files.WriteJSONAtomic(path, doc)
}

// CountSpeakers returns the number of distinct speaker labels
func CountSpeakers(segments []model.Segment) int {
	return len(lo.Uniq(lo.Map(segments, func(s model.Segment, _ int) string {
		return s.Speaker
	})))
}

// ReadProfile reads an enrolment profile
func ReadProfile(path string) (*model.EnrolmentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var profile model.EnrolmentProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, apperrors.Malformed(path, err.Error())
	}
	if len(profile.Speakers) == 0 {
		return nil, apperrors.Malformed(path, "profile has no speakers")
	}
	return &profile, nil
}

// ReadIdentificationReport reads an identification report
func ReadIdentificationReport(path string) (*model.IdentificationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var report model.IdentificationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, apperrors.Malformed(path, err.Error())
	}
	return &report, nil
}
