package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"smart-audio/internal/app/model"
)

// Column headers of the label CSV exports
var (
	SIDHeader = []string{"file", "speaker_id", "confidence", "start", "end"}
	SDHeader  = []string{"file", "speaker_label", "confidence", "start", "end"}
	LIDHeader = []string{"file", "language", "confidence", "start", "end"}
)

// Row is one line of a label CSV: a label for a time window of a file
type Row struct {
	File       string
	Label      string
	Confidence float64
	Start      int64
	End        int64
}

// SDRows lists the diarization label of every segment
func SDRows(file string, doc *model.SegmentDocument) []Row {
	rows := make([]Row, 0, len(doc.Segments))
	for _, seg := range doc.Segments {
		rows = append(rows, Row{File: file, Label: seg.Speaker, Confidence: 1, Start: seg.Start, End: seg.End})
	}
	return rows
}

// SIDRows lists the identified speaker of every segment. Without a report,
// or for segments the report does not cover, the diarization label is used
// with confidence 1.
func SIDRows(file string, doc *model.SegmentDocument, report *model.IdentificationReport) []Row {
	matches := matchesByIndex(report)
	rows := make([]Row, 0, len(doc.Segments))
	for i, seg := range doc.Segments {
		row := Row{File: file, Label: seg.Speaker, Confidence: 1, Start: seg.Start, End: seg.End}
		if m, ok := matches[i]; ok {
			row.Label = m.IdentifiedSpeaker
			row.Confidence = m.Score
		}
		rows = append(rows, row)
	}
	return rows
}

// LIDRows lists the detected language of every segment
func LIDRows(file string, doc *model.SegmentDocument) []Row {
	rows := make([]Row, 0, len(doc.Segments))
	for _, seg := range doc.Segments {
		rows = append(rows, Row{File: file, Label: seg.Language, Confidence: 1, Start: seg.Start, End: seg.End})
	}
	return rows
}

// WriteCSV writes header and rows as CSV
func WriteCSV(w io.Writer, header []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.File,
			r.Label,
			formatConfidence(r.Confidence),
			strconv.FormatInt(r.Start, 10),
			strconv.FormatInt(r.End, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a label CSV written by WriteCSV
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		confidence, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: confidence: %w", i+2, err)
		}
		start, err := strconv.ParseInt(rec[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", i+2, err)
		}
		end, err := strconv.ParseInt(rec[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: end: %w", i+2, err)
		}
		rows = append(rows, Row{File: rec[0], Label: rec[1], Confidence: confidence, Start: start, End: end})
	}
	return rows, nil
}

// WriteTRN writes one "start-end transcript" line per segment
func WriteTRN(w io.Writer, doc *model.SegmentDocument) error {
	return writeLines(w, doc, func(seg model.Segment) *string { return seg.Transcript })
}

// WriteNMT writes one "start-end translated_text" line per segment
func WriteNMT(w io.Writer, doc *model.SegmentDocument) error {
	return writeLines(w, doc, func(seg model.Segment) *string { return seg.TranslatedText })
}

func writeLines(w io.Writer, doc *model.SegmentDocument, text func(model.Segment) *string) error {
	var buf bytes.Buffer
	for _, seg := range doc.Segments {
		line := strings.ReplaceAll(deref(text(seg)), "\n", " ")
		fmt.Fprintf(&buf, "%d-%d %s\n", seg.Start, seg.End, line)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// formatConfidence renders whole numbers with one decimal ("1.0")
func formatConfidence(c float64) string {
	s := strconv.FormatFloat(c, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
