package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/VE7LTX/echoframe/internal/models"
)

// Diarizer segments a WAV file into speaker turns. An empty turn list is a
// valid result (silence, or a model that found a single inseparable
// speaker field).
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]models.SpeakerTurn, error)
	Name() string
}

const defaultDiarizeTimeout = 300 * time.Second

// pyannoteTurn mirrors one element of the helper script's JSON array.
type pyannoteTurn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// PyannoteDiarizer shells out to a pyannote helper script that prints a
// JSON array of speaker turns on stdout. The Hugging Face token is passed
// through the environment, never on the command line.
type PyannoteDiarizer struct {
	scriptPath string
	hfToken    string
}

func NewPyannoteDiarizer(scriptPath, hfToken string) *PyannoteDiarizer {
	return &PyannoteDiarizer{scriptPath: scriptPath, hfToken: hfToken}
}

func (p *PyannoteDiarizer) Diarize(ctx context.Context, audioPath string) ([]models.SpeakerTurn, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultDiarizeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.scriptPath, audioPath)
	if p.hfToken != "" {
		cmd.Env = append(cmd.Environ(), "HF_TOKEN="+p.hfToken)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, NewDiarizationError(fmt.Errorf("script failed: %w, stderr: %s", err, stderr.String()))
	}

	var raw []pyannoteTurn
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, NewDiarizationError(fmt.Errorf("failed to parse turns: %w", err))
	}

	turns := make([]models.SpeakerTurn, 0, len(raw))
	for _, t := range raw {
		turns = append(turns, models.SpeakerTurn{
			StartSec:     t.Start,
			EndSec:       t.End,
			SpeakerLabel: t.Speaker,
		})
	}
	return turns, nil
}

func (p *PyannoteDiarizer) Name() string { return "pyannote" }

// NoopDiarizer reports no speaker turns. Every aligned segment then
// carries a null label, which downstream consumers already handle.
type NoopDiarizer struct{}

func (NoopDiarizer) Diarize(ctx context.Context, audioPath string) ([]models.SpeakerTurn, error) {
	return []models.SpeakerTurn{}, nil
}

func (NoopDiarizer) Name() string { return "noop" }

// MockDiarizer returns fixed turns for tests.
type MockDiarizer struct {
	Turns []models.SpeakerTurn
	Err   error
}

func (m *MockDiarizer) Diarize(ctx context.Context, audioPath string) ([]models.SpeakerTurn, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.SpeakerTurn, len(m.Turns))
	copy(out, m.Turns)
	return out, nil
}

func (m *MockDiarizer) Name() string { return "mock" }
