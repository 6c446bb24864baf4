// Package models defines the transcript data types shared by the segment
// store, the aligner and session record assembly.
package models

import (
	"strings"
	"time"
)

// Segment is one ASR output interval with timestamps relative to the start
// of the transcribed track. Produced by the external ASR collaborator and
// treated as read-only downstream.
type Segment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
}

// SpeakerTurn is one diarization interval labeled with an opaque speaker
// token (e.g. "Speaker_0").
type SpeakerTurn struct {
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	SpeakerLabel string  `json:"speaker_label"`
}

// AlignedSegment is the canonical transcript unit: an ASR segment carrying
// the speaker label that won the overlap vote, or no label when diarization
// was absent or nothing overlapped.
type AlignedSegment struct {
	StartSec     float64 `json:"start_sec"`
	EndSec       float64 `json:"end_sec"`
	Text         string  `json:"text"`
	SpeakerLabel *string `json:"speaker_label"`
}

// Labeled reports whether the segment carries a speaker label.
func (s AlignedSegment) Labeled() bool { return s.SpeakerLabel != nil }

// SameSpeaker reports whether two segments agree on the label, treating two
// unlabeled segments as agreeing (both unknown speaker).
func (a AlignedSegment) SameSpeaker(b AlignedSegment) bool {
	if a.SpeakerLabel == nil || b.SpeakerLabel == nil {
		return a.SpeakerLabel == nil && b.SpeakerLabel == nil
	}
	return *a.SpeakerLabel == *b.SpeakerLabel
}

// WordCount counts whitespace-delimited tokens in the segment text.
func (s AlignedSegment) WordCount() int {
	return len(strings.Fields(s.Text))
}

// Enrichment holds the optional LLM-produced summary attached to a session
// record after alignment. Absence of an enrichment never invalidates the
// record.
type Enrichment struct {
	Summary     string    `json:"summary"`
	Sentiment   string    `json:"sentiment,omitempty"`
	ActionItems []string  `json:"action_items,omitempty"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
