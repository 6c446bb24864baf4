// Package metrics exposes Prometheus instrumentation for capture and
// post-processing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesWrittenTotal counts PCM frames flushed to disk.
	// Labels: mode (mic/system/dual)
	FramesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echoframe_frames_written_total",
			Help: "Total number of PCM frames written to disk by capture mode",
		},
		[]string{"mode"},
	)

	// OverflowFramesTotal counts frames dropped because the capture ring
	// was full.
	// Labels: mode (mic/system/dual)
	OverflowFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echoframe_overflow_frames_total",
			Help: "Total number of capture frames dropped due to ring overflow",
		},
		[]string{"mode"},
	)

	// CapturesActive tracks the number of capture sessions currently
	// recording.
	CapturesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "echoframe_captures_active",
			Help: "Number of capture sessions currently recording",
		},
	)

	// StageDuration measures post-processing stage latency in seconds.
	// Labels: stage (asr/diarization/align/enrich)
	// Buckets: 0.1s to 300s, matching whisper runtimes on long sessions
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echoframe_stage_duration_seconds",
			Help:    "Post-processing stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	// StageErrorsTotal counts post-processing stage failures.
	// Labels: stage (asr/diarization/align/enrich), error_code
	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echoframe_stage_errors_total",
			Help: "Total number of post-processing stage failures by stage and error code",
		},
		[]string{"stage", "error_code"},
	)
)

// RecordFramesWritten adds flushed frames for a capture mode.
func RecordFramesWritten(mode string, frames int) {
	FramesWrittenTotal.WithLabelValues(mode).Add(float64(frames))
}

// RecordOverflow adds dropped frames for a capture mode.
func RecordOverflow(mode string, frames int) {
	OverflowFramesTotal.WithLabelValues(mode).Add(float64(frames))
}

// RecordStageDuration records a stage's wall-clock duration in seconds.
func RecordStageDuration(stage string, seconds float64) {
	StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordStageError counts a stage failure.
func RecordStageError(stage, errorCode string) {
	StageErrorsTotal.WithLabelValues(stage, errorCode).Inc()
}
