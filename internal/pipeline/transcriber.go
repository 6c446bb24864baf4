package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/VE7LTX/echoframe/internal/models"
)

// TranscribeOptions carries optional transcription parameters. All fields
// are optional; implementations provide defaults.
type TranscribeOptions struct {
	// Model is the whisper model name (e.g. "base", "small", "large-v3").
	Model string

	// Language forces a language (ISO 639-1 code). Empty means
	// auto-detect.
	Language string

	// Prompt gives the model context for domain terminology.
	Prompt string

	// Timeout overrides the default transcription timeout.
	Timeout time.Duration
}

// Transcriber converts a WAV file into timed text segments. Implementations
// must respect context cancellation and return an empty slice, not an
// error, when the audio contains no speech.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) ([]models.Segment, error)
	HealthCheck(ctx context.Context) (bool, error)
	Name() string
}

const defaultTranscribeTimeout = 120 * time.Second

// whisperSegment mirrors one JSON object in the CLI's segment stream.
type whisperSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// WhisperCLI runs a local whisper executable and parses its JSON segment
// output.
type WhisperCLI struct {
	programPath string
	model       string
}

// NewWhisperCLI validates that the whisper program exists and is
// executable before first use.
func NewWhisperCLI(programPath, model string) (*WhisperCLI, error) {
	info, err := os.Stat(programPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("whisper program not found: %s", programPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat whisper program: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("whisper program is not executable: %s (mode: %s)", programPath, info.Mode())
	}
	if model == "" {
		model = "small"
	}
	return &WhisperCLI{programPath: programPath, model: model}, nil
}

// Transcribe invokes the whisper CLI on audioPath and decodes the stream
// of pretty-printed JSON segment objects it emits on stdout.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) ([]models.Segment, error) {
	model := w.model
	if options != nil && options.Model != "" {
		model = options.Model
	}

	timeout := defaultTranscribeTimeout
	if options != nil && options.Timeout > 0 {
		timeout = options.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"transcribe", model, audioPath, "--format", "json"}
	if options != nil && options.Language != "" {
		args = append(args, "--language", options.Language)
	}
	if options != nil && options.Prompt != "" {
		args = append(args, "--prompt", options.Prompt)
	}

	cmd := exec.CommandContext(ctx, w.programPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, NewASRError(fmt.Errorf("CLI execution failed: %w, output: %s", err, string(output)))
	}

	segs, err := decodeSegmentStream(output)
	if err != nil {
		return nil, NewASRError(err)
	}
	return segs, nil
}

// decodeSegmentStream parses concatenated JSON objects. The CLI
// pretty-prints each segment, so this is not line-delimited JSON.
func decodeSegmentStream(output []byte) ([]models.Segment, error) {
	segs := []models.Segment{}
	decoder := json.NewDecoder(bytes.NewReader(output))
	for {
		var ws whisperSegment
		if err := decoder.Decode(&ws); err != nil {
			if errors.Is(err, io.EOF) {
				return segs, nil
			}
			return nil, fmt.Errorf("failed to parse JSON segment: %w", err)
		}
		segs = append(segs, models.Segment{
			StartSec: ws.Start,
			EndSec:   ws.End,
			Text:     strings.TrimSpace(ws.Text),
			Source:   "whisper",
		})
	}
}

// HealthCheck runs the program's version subcommand.
func (w *WhisperCLI) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, w.programPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("version check failed: %w, output: %s", err, string(output))
	}
	if len(output) == 0 {
		return false, fmt.Errorf("unexpected empty version output")
	}
	return true, nil
}

func (w *WhisperCLI) Name() string { return "whisper-cli" }

// MockTranscriber returns canned segments without touching any external
// program. Used in tests and when no whisper binary is configured.
type MockTranscriber struct {
	Segments []models.Segment
	Err      error
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) ([]models.Segment, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Segment, len(m.Segments))
	copy(out, m.Segments)
	return out, nil
}

func (m *MockTranscriber) HealthCheck(ctx context.Context) (bool, error) { return false, nil }

func (m *MockTranscriber) Name() string { return "mock" }
