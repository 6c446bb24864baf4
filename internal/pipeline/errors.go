package pipeline

import (
	"fmt"
	"time"
)

// ErrorCode classifies capture and post-processing failures.
type ErrorCode string

const (
	// DEVICE_UNAVAILABLE the requested audio device cannot be opened
	DEVICE_UNAVAILABLE ErrorCode = "DEVICE_UNAVAILABLE"

	// CAPTURE_OVERFLOW frames were dropped because the writer fell behind
	CAPTURE_OVERFLOW ErrorCode = "CAPTURE_OVERFLOW"

	// WRITE_FAILURE the WAV file could not be written or finalized
	WRITE_FAILURE ErrorCode = "WRITE_FAILURE"

	// ASR_FAILED transcription produced no usable segments
	ASR_FAILED ErrorCode = "ASR_FAILED"

	// DIARIZATION_FAILED speaker segmentation failed
	DIARIZATION_FAILED ErrorCode = "DIARIZATION_FAILED"

	// ENRICHMENT_FAILED the optional enrichment call failed
	ENRICHMENT_FAILED ErrorCode = "ENRICHMENT_FAILED"
)

// PipelineError carries a stable code alongside a human message and the
// underlying cause.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewError creates a PipelineError stamped with the current time.
func NewError(code ErrorCode, message string, cause error) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewDeviceUnavailableError reports a device that could not be opened.
func NewDeviceUnavailableError(device string, cause error) *PipelineError {
	return NewError(DEVICE_UNAVAILABLE, fmt.Sprintf("audio device unavailable: %s", device), cause)
}

// NewASRError reports a transcription failure.
func NewASRError(cause error) *PipelineError {
	return NewError(ASR_FAILED, "transcription failed", cause)
}

// NewDiarizationError reports a speaker segmentation failure.
func NewDiarizationError(cause error) *PipelineError {
	return NewError(DIARIZATION_FAILED, "speaker diarization failed", cause)
}

// NewEnrichmentError reports a failed enrichment call. Enrichment errors
// are always non-fatal to the session record.
func NewEnrichmentError(cause error) *PipelineError {
	return NewError(ENRICHMENT_FAILED, "enrichment request failed", cause)
}

// NewWriteError reports a WAV write or finalize failure.
func NewWriteError(path string, cause error) *PipelineError {
	return NewError(WRITE_FAILURE, fmt.Sprintf("failed writing %s", path), cause)
}
