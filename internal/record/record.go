// Package record assembles the final session artifact: capture metadata,
// the aligned transcript, derived statistics and the optional enrichment.
package record

import (
	"time"

	"github.com/VE7LTX/echoframe/internal/models"
)

// StageFailure records a post-processing stage that failed without
// invalidating the session.
type StageFailure struct {
	Stage     string    `json:"stage"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRecord is the durable description of one recorded session.
type SessionRecord struct {
	SessionID    string            `json:"session_id"`
	Title        string            `json:"title"`
	StartedAt    time.Time         `json:"started_at"`
	AudioPath    string            `json:"audio_path"`
	Mode         string            `json:"mode"`
	SampleRateHz int               `json:"sample_rate_hz"`
	BitDepth     int               `json:"bit_depth"`
	Context      map[string]string `json:"context,omitempty"`

	// Derived from the transcript at assembly time.
	DurationSeconds float64 `json:"duration_seconds"`
	WordCount       int     `json:"word_count"`
	SpeakerCount    int     `json:"speaker_count"`

	Transcript []models.AlignedSegment `json:"transcript"`
	Enrichment *models.Enrichment      `json:"enrichment,omitempty"`

	// Failures lists stages that degraded this record. A record with
	// failures is still valid and playable.
	Failures []StageFailure `json:"failures,omitempty"`
}

// CaptureMeta carries the capture-side fields of a session record.
type CaptureMeta struct {
	SessionID    string
	Title        string
	StartedAt    time.Time
	AudioPath    string
	Mode         string
	SampleRateHz int
	BitDepth     int
	Context      map[string]string
}

// Build assembles a session record from capture metadata and an aligned
// transcript. An empty transcript yields a valid record with zero duration
// and counts.
func Build(meta CaptureMeta, transcript []models.AlignedSegment) *SessionRecord {
	if transcript == nil {
		transcript = []models.AlignedSegment{}
	}

	rec := &SessionRecord{
		SessionID:    meta.SessionID,
		Title:        meta.Title,
		StartedAt:    meta.StartedAt,
		AudioPath:    meta.AudioPath,
		Mode:         meta.Mode,
		SampleRateHz: meta.SampleRateHz,
		BitDepth:     meta.BitDepth,
		Context:      meta.Context,
		Transcript:   transcript,
	}

	speakers := map[string]struct{}{}
	for _, seg := range transcript {
		if seg.EndSec > rec.DurationSeconds {
			rec.DurationSeconds = seg.EndSec
		}
		rec.WordCount += seg.WordCount()
		if seg.SpeakerLabel != nil {
			speakers[*seg.SpeakerLabel] = struct{}{}
		}
	}
	rec.SpeakerCount = len(speakers)

	return rec
}

// AttachEnrichment sets the record's enrichment. Attaching the same
// enrichment again is a no-op; a different one replaces the previous.
func (r *SessionRecord) AttachEnrichment(e *models.Enrichment) {
	if e == nil {
		return
	}
	r.Enrichment = e
}

// AddFailure appends a degraded-stage note to the record.
func (r *SessionRecord) AddFailure(stage, code, message string) {
	r.Failures = append(r.Failures, StageFailure{
		Stage:     stage,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
