package pipeline

import (
	"log/slog"
	"time"

	"github.com/VE7LTX/echoframe/internal/config"
)

// BuildTranscriber returns the configured whisper CLI transcriber, falling
// back to the mock when the binary is not usable so capture keeps working
// on machines without ASR.
func BuildTranscriber(cfg *config.Config, log *slog.Logger) Transcriber {
	tr, err := NewWhisperCLI(cfg.Whisper.BinaryPath, cfg.Whisper.Model)
	if err != nil {
		log.Warn("whisper binary unavailable, transcription degraded to mock", "error", err)
		return &MockTranscriber{}
	}
	return tr
}

// BuildDiarizer returns the configured diarizer, or the noop when
// diarization is disabled.
func BuildDiarizer(cfg *config.Config) Diarizer {
	if !cfg.Diarize.Enabled || cfg.Diarize.ScriptPath == "" {
		return NoopDiarizer{}
	}
	return NewPyannoteDiarizer(cfg.Diarize.ScriptPath, cfg.Diarize.HFToken)
}

// BuildEnricher returns the configured enricher, or nil when enrichment is
// disabled.
func BuildEnricher(cfg *config.Config) Enricher {
	if !cfg.Enrich.Enabled || cfg.Enrich.APIURL == "" {
		return nil
	}
	return NewHTTPEnricher(EnricherConfig{
		APIURL:          cfg.Enrich.APIURL,
		APIKey:          cfg.Enrich.APIKey,
		SummaryPrompt:   cfg.Enrich.SummaryPrompt,
		SentimentPrompt: cfg.Enrich.SentimentPrompt,
		Timeout:         time.Duration(cfg.Enrich.TimeoutSeconds) * time.Second,
	})
}

// DefaultTranscribeOptions maps the configured whisper settings to
// per-request options.
func DefaultTranscribeOptions(cfg *config.Config) *TranscribeOptions {
	return &TranscribeOptions{
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
	}
}
