package sidecar

import (
	"context"
	"fmt"

	"smart-audio/internal/app/api"
	apperrors "smart-audio/internal/app/errors"
	"smart-audio/internal/app/model"
)

// Diarizer calls a pyannote style diarization server
type Diarizer struct {
	client
}

var _ api.Diarizer = (*Diarizer)(nil)

type diarizeResponse struct {
	Turns []model.SpeakerTurn `json:"turns"`
}

// NewDiarizer creates a diarization client
func NewDiarizer(config Config) *Diarizer {
	return &Diarizer{client: newClient(config)}
}

// Diarize returns the speaker turns of a 16 kHz mono WAV file
func (d *Diarizer) Diarize(ctx context.Context, wavPath string) ([]model.SpeakerTurn, error) {
	var resp diarizeResponse
	if err := d.postFile(ctx, "/diarize", wavPath, nil, &resp); err != nil {
		return nil, apperrors.ModelFailure("diarizer", err)
	}
	for i, turn := range resp.Turns {
		if turn.Speaker == "" || turn.End <= turn.Start {
			return nil, apperrors.ModelFailure("diarizer", fmt.Errorf("invalid turn %d: %+v", i, turn))
		}
	}
	return resp.Turns, nil
}
