package export

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"smart-audio/internal/app/model"
)

func sampleTranscription() *model.SegmentDocument {
	return &model.SegmentDocument{
		SchemaVersion: model.SegmentSchemaVersion,
		ID:            "job-1",
		TotalSpeakers: 2,
		Segments: []model.Segment{
			{Speaker: "SPEAKER_00", Start: 0, End: 1500, Transcript: model.StringPtr("namaste"), Language: "hi"},
			{Speaker: "SPEAKER_01", Start: 1500, End: 4200, Transcript: model.StringPtr("hello, \"world\""), Language: "en"},
			{Speaker: "SPEAKER_00", Start: 4200, End: 5000, Transcript: model.StringPtr(""), Language: ""},
		},
	}
}

func sampleTranslation() *model.SegmentDocument {
	doc := sampleTranscription()
	doc.Segments[0].TranslatedText = model.StringPtr("hello")
	doc.Segments[1].TranslatedText = model.StringPtr("hello, \"world\"")
	doc.Segments[2].TranslatedText = model.StringPtr("")
	return doc
}

func TestCSVRoundTrip(t *testing.T) {
	doc := sampleTranscription()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, SDHeader, SDRows("audio-file", doc)))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, len(doc.Segments))
	for i, seg := range doc.Segments {
		assert.Equal(t, seg.Speaker, rows[i].Label)
		assert.Equal(t, seg.Start, rows[i].Start)
		assert.Equal(t, seg.End, rows[i].End)
		assert.Equal(t, "audio-file", rows[i].File)
		assert.Equal(t, 1.0, rows[i].Confidence)
	}
}

func TestWriteCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, SDHeader, SDRows("audio-file", sampleTranscription())))

	expected := "file,speaker_label,confidence,start,end\n" +
		"audio-file,SPEAKER_00,1.0,0,1500\n" +
		"audio-file,SPEAKER_01,1.0,1500,4200\n" +
		"audio-file,SPEAKER_00,1.0,4200,5000\n"
	assert.Equal(t, expected, buf.String())
}

func TestSIDRowsUseIdentificationReport(t *testing.T) {
	report := &model.IdentificationReport{
		Threshold: 0.8,
		Segments: []model.SegmentMatch{
			{Index: 1, Speaker: "SPEAKER_01", IdentifiedSpeaker: "alice", Score: 0.9123, Matched: true},
		},
	}

	rows := SIDRows("audio-file", sampleTranscription(), report)
	require.Len(t, rows, 3)
	assert.Equal(t, "SPEAKER_00", rows[0].Label)
	assert.Equal(t, 1.0, rows[0].Confidence)
	assert.Equal(t, "alice", rows[1].Label)
	assert.Equal(t, 0.9123, rows[1].Confidence)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, SIDHeader, rows))
	assert.Contains(t, buf.String(), "audio-file,alice,0.9123,1500,4200\n")
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "bad start", input: "file,speaker_label,confidence,start,end\na,b,1.0,x,2\n"},
		{name: "bad confidence", input: "file,speaker_label,confidence,start,end\na,b,high,1,2\n"},
		{name: "wrong column count", input: "file,speaker_label,confidence,start,end\na,b,1.0,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(bytes.NewBufferString(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestWriteTRNAndNMT(t *testing.T) {
	var trn, nmt bytes.Buffer
	require.NoError(t, WriteTRN(&trn, sampleTranscription()))
	require.NoError(t, WriteNMT(&nmt, sampleTranslation()))

	assert.Equal(t, "0-1500 namaste\n1500-4200 hello, \"world\"\n4200-5000 \n", trn.String())
	assert.Equal(t, "0-1500 hello\n1500-4200 hello, \"world\"\n4200-5000 \n", nmt.String())
}

func TestWriteBundleIsDeterministic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "converted_files")
	in := Input{FileLabel: "audio-file", Transcription: sampleTranscription(), Translation: sampleTranslation()}

	paths, err := WriteBundle(dir, in)
	require.NoError(t, err)
	require.Len(t, paths, len(Files))

	first := map[string][]byte{}
	for _, name := range Files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		first[name] = data
	}

	_, err = WriteBundle(dir, in)
	require.NoError(t, err)

	for name, data := range first {
		again, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, data, again, name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(Files), "no temp files left behind")
}

func TestToExcel(t *testing.T) {
	report := &model.IdentificationReport{Segments: []model.SegmentMatch{{Index: 0, IdentifiedSpeaker: "bob", Score: 0.85}}}

	data, err := ToExcel(sampleTranslation(), report)
	require.NoError(t, err)

	book, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	sheet := book.Sheets[0]
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "Speaker", sheet.Rows[0].Cells[1].Value)
	assert.Equal(t, "bob", sheet.Rows[1].Cells[2].Value)
	assert.Equal(t, "hello", sheet.Rows[1].Cells[8].Value)
}

func TestToExcelIsStable(t *testing.T) {
	first, err := ToExcel(sampleTranslation(), nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := ToExcel(sampleTranslation(), nil)
		require.NoError(t, err)
		require.Equal(t, first, again, "run %d", i)
	}

	zr, err := zip.NewReader(bytes.NewReader(first), int64(len(first)))
	require.NoError(t, err)
	require.NotEmpty(t, zr.File)
	assert.Equal(t, contentTypesPart, zr.File[0].Name)
}
