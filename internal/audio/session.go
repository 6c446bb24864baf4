package audio

import "time"

// Status is the lifecycle state of a capture.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusFinalizing Status = "finalizing"
	StatusFinalized  Status = "finalized"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusFailed
}

// AudioSession describes one recording. It is mutated only by the owning
// CaptureSession and becomes immutable once Status is terminal. A failed
// session keeps FilePath when any bytes reached disk, so the partial file
// can be inspected or recovered.
type AudioSession struct {
	ID              string      `json:"id"`
	StartedAt       time.Time   `json:"started_at"`
	SampleRateHz    int         `json:"sample_rate_hz"`
	BitDepth        int         `json:"bit_depth"`
	Layout          TrackLayout `json:"layout"`
	FilePath        string      `json:"file_path"`
	Status          Status      `json:"status"`
	FramesWritten   uint64      `json:"frames_written"`
	OverflowFrames  uint64      `json:"overflow_frames"`
	DurationSeconds float64     `json:"duration_seconds"`
	Error           string      `json:"error,omitempty"`
}
