package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/tealeg/xlsx"

	"smart-audio/internal/app/model"
)

// ToExcel renders the segment table of one job into an xlsx workbook.
// report may be nil when identification has not produced a report.
func ToExcel(doc *model.SegmentDocument, report *model.IdentificationReport) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Segments")
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, title := range []string{"Index", "Speaker", "Identified Speaker", "Score", "Start (ms)", "End (ms)", "Language", "Transcript", "Translation"} {
		headerRow.AddCell().Value = title
	}

	matches := matchesByIndex(report)
	for i, seg := range doc.Segments {
		row := sheet.AddRow()
		row.AddCell().SetInt(i)
		row.AddCell().Value = seg.Speaker
		if m, ok := matches[i]; ok {
			row.AddCell().Value = m.IdentifiedSpeaker
			row.AddCell().Value = strconv.FormatFloat(m.Score, 'f', 4, 64)
		} else {
			row.AddCell().Value = ""
			row.AddCell().Value = ""
		}
		row.AddCell().SetInt64(seg.Start)
		row.AddCell().SetInt64(seg.End)
		row.AddCell().Value = seg.Language
		row.AddCell().Value = deref(seg.Transcript)
		row.AddCell().Value = deref(seg.TranslatedText)
	}

	var buf bytes.Buffer
	if err := writeWorkbook(&buf, file); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// contentTypesPart leads the archive the way spreadsheet apps write it
const contentTypesPart = "[Content_Types].xml"

// writeWorkbook zips the workbook parts in sorted order with zeroed
// timestamps so equal input yields byte-identical output. file.Write ranges
// over a map and does not.
func writeWorkbook(w io.Writer, file *xlsx.File) error {
	parts, err := file.MarshallParts()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == contentTypesPart) != (names[j] == contentTypesPart) {
			return names[i] == contentTypesPart
		}
		return names[i] < names[j]
	})

	zw := zip.NewWriter(w)
	for _, name := range names {
		pw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := io.WriteString(pw, parts[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func matchesByIndex(report *model.IdentificationReport) map[int]model.SegmentMatch {
	out := map[int]model.SegmentMatch{}
	if report == nil {
		return out
	}
	for _, m := range report.Segments {
		out[m.Index] = m
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
