package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smart-audio/internal/app/model"
)

func TestLayoutDownstream(t *testing.T) {
	l := newTestLayout(t)

	tests := []struct {
		stage model.Stage
		want  []string
	}{
		{
			stage: model.StageDiarization,
			want:  []string{l.IdentificationReport(jobID), l.Transcription(jobID), l.Translation(jobID), l.ConvertedDir(jobID)},
		},
		{stage: model.StageIdentification, want: []string{l.ConvertedDir(jobID)}},
		{stage: model.StageRecognition, want: []string{l.Translation(jobID), l.ConvertedDir(jobID)}},
		{stage: model.StageTranslation, want: []string{l.ConvertedDir(jobID)}},
		{stage: model.StageConversion, want: nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.want, l.Downstream(jobID, tt.stage))
		})
	}
}

func TestLayoutOutputsSkipProfile(t *testing.T) {
	l := newTestLayout(t)
	assert.Equal(t, []string{l.IdentificationReport(jobID)}, l.Outputs(jobID, model.StageIdentification))
	assert.NotContains(t, l.Downstream(jobID, model.StageDiarization), l.Profile(jobID))
}
