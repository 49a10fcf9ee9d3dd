package stages

import (
	"path/filepath"
	"strconv"
	"strings"

	"smart-audio/internal/app/model"
	"smart-audio/internal/config"
)

// consumers maps a stage to the stages that read its outputs
var consumers = map[model.Stage][]model.Stage{
	model.StageDiarization:    {model.StageIdentification, model.StageRecognition},
	model.StageIdentification: {model.StageConversion},
	model.StageRecognition:    {model.StageTranslation, model.StageConversion},
	model.StageTranslation:    {model.StageConversion},
}

// Layout resolves the artifact paths of a job folder
type Layout struct {
	UploadRoot        string
	AudioFile         string
	DiarizationFile   string
	CroppedFolder     string
	TranscriptionFile string
	TranslationFile   string
	ConvertedFolder   string
	// SharedProfile, when set, replaces the per-job enrolment profile
	SharedProfile string
}

// NewLayout builds a layout from storage settings
func NewLayout(s config.StorageSettings, sharedProfile string) Layout {
	return Layout{
		UploadRoot:        s.UploadFolder,
		AudioFile:         s.AudioFile,
		DiarizationFile:   s.DiarizationFile,
		CroppedFolder:     s.CroppedSegmentsFolder,
		TranscriptionFile: s.Transcription,
		TranslationFile:   s.NeuralTranslation,
		ConvertedFolder:   s.ConvertedFolder,
		SharedProfile:     sharedProfile,
	}
}

func (l Layout) JobDir(id string) string {
	return filepath.Join(l.UploadRoot, id)
}

// Original is the uploaded asset, named AudioFile plus the upload extension
func (l Layout) Original(id, filename string) string {
	return filepath.Join(l.JobDir(id), filename)
}

// OriginalName returns the on-disk name for an upload with extension ext
func (l Layout) OriginalName(ext string) string {
	return l.AudioFile + strings.ToLower(ext)
}

// Normalized is the 16 kHz mono WAV derived from the original
func (l Layout) Normalized(id string) string {
	return filepath.Join(l.JobDir(id), l.AudioFile+".16k.wav")
}

func (l Layout) RTTM(id string) string {
	return filepath.Join(l.JobDir(id), l.DiarizationFile)
}

func (l Layout) SegmentsDir(id string) string {
	return filepath.Join(l.JobDir(id), l.CroppedFolder)
}

// SegmentIndex is the diarization segment list
func (l Layout) SegmentIndex(id string) string {
	return filepath.Join(l.SegmentsDir(id), "index.json")
}

// Clip is the cropped audio of segment i
func (l Layout) Clip(id string, i int) string {
	return filepath.Join(l.SegmentsDir(id), strconv.Itoa(i)+".wav")
}

func (l Layout) Profile(id string) string {
	if l.SharedProfile != "" {
		return l.SharedProfile
	}
	return filepath.Join(l.JobDir(id), "enrolment.json")
}

func (l Layout) IdentificationReport(id string) string {
	return filepath.Join(l.JobDir(id), "identification.json")
}

func (l Layout) Transcription(id string) string {
	return filepath.Join(l.JobDir(id), l.TranscriptionFile)
}

func (l Layout) Translation(id string) string {
	return filepath.Join(l.JobDir(id), l.TranslationFile)
}

func (l Layout) ConvertedDir(id string) string {
	return filepath.Join(l.JobDir(id), l.ConvertedFolder)
}

// Outputs lists the artifacts a stage writes for a job. The enrolment
// profile is left out since it outlives any single run.
func (l Layout) Outputs(id string, stage model.Stage) []string {
	switch stage {
	case model.StageDiarization:
		return []string{l.RTTM(id), l.SegmentsDir(id)}
	case model.StageIdentification:
		return []string{l.IdentificationReport(id)}
	case model.StageRecognition:
		return []string{l.Transcription(id)}
	case model.StageTranslation:
		return []string{l.Translation(id)}
	case model.StageConversion:
		return []string{l.ConvertedDir(id)}
	}
	return nil
}

// Downstream lists the outputs of every stage that depends on stage,
// directly or through another stage, in pipeline order
func (l Layout) Downstream(id string, stage model.Stage) []string {
	reached := make(map[model.Stage]bool)
	queue := append([]model.Stage(nil), consumers[stage]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if reached[next] {
			continue
		}
		reached[next] = true
		queue = append(queue, consumers[next]...)
	}

	var out []string
	for _, s := range model.PipelineOrder {
		if reached[s] {
			out = append(out, l.Outputs(id, s)...)
		}
	}
	return out
}
