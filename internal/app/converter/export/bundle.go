package export

import (
	"bytes"
	"fmt"
	"path/filepath"

	"smart-audio/internal/app/model"
	"smart-audio/internal/app/util/files"
)

// Export file names inside the converted folder
const (
	SIDFile  = "sid.csv"
	SDFile   = "sd.csv"
	LIDFile  = "lid.csv"
	ASRFile  = "asr.trn"
	NMTFile  = "nmt.txt"
	XLSXFile = "segments.xlsx"
)

// Files lists every export in the order they are written
var Files = []string{SIDFile, SDFile, LIDFile, ASRFile, NMTFile, XLSXFile}

// Input carries the documents an export bundle is derived from
type Input struct {
	// FileLabel fills the "file" column of the CSVs
	FileLabel     string
	Transcription *model.SegmentDocument
	Translation   *model.SegmentDocument
	Report        *model.IdentificationReport
}

// WriteBundle renders every export into dir. Each file is written
// temp-then-rename; the returned paths are in Files order.
func WriteBundle(dir string, in Input) ([]string, error) {
	if err := files.EnsureDir(dir); err != nil {
		return nil, err
	}

	render := map[string]func(*bytes.Buffer) error{
		SIDFile: func(b *bytes.Buffer) error {
			return WriteCSV(b, SIDHeader, SIDRows(in.FileLabel, in.Transcription, in.Report))
		},
		SDFile: func(b *bytes.Buffer) error {
			return WriteCSV(b, SDHeader, SDRows(in.FileLabel, in.Transcription))
		},
		LIDFile: func(b *bytes.Buffer) error {
			return WriteCSV(b, LIDHeader, LIDRows(in.FileLabel, in.Transcription))
		},
		ASRFile: func(b *bytes.Buffer) error { return WriteTRN(b, in.Transcription) },
		NMTFile: func(b *bytes.Buffer) error { return WriteNMT(b, in.Translation) },
		XLSXFile: func(b *bytes.Buffer) error {
			data, err := ToExcel(in.Translation, in.Report)
			if err != nil {
				return err
			}
			_, err = b.Write(data)
			return err
		},
	}

	paths := make([]string, 0, len(Files))
	for _, name := range Files {
		var buf bytes.Buffer
		if err := render[name](&buf); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := files.WriteFileAtomic(path, buf.Bytes()); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
