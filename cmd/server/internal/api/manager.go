package api

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/config"
	"github.com/VE7LTX/echoframe/internal/metrics"
	"github.com/VE7LTX/echoframe/internal/record"
)

// captureSession is the slice of audio.CaptureSession the manager needs.
// Tests substitute a fake to avoid opening real devices.
type captureSession interface {
	Start(req audio.StartRequest) (audio.AudioSession, error)
	Stop() (audio.AudioSession, error)
	Status() audio.AudioSession
}

// managedCapture pairs a capture with its user-facing metadata.
type managedCapture struct {
	capture captureSession
	title   string
	context map[string]string
	stopped bool
}

// CaptureManager tracks capture sessions for the HTTP surface. Each start
// creates a fresh session; finished sessions stay listed until the server
// restarts so their records can still be fetched by ID.
type CaptureManager struct {
	cfg *config.Config
	log *slog.Logger

	mu       sync.Mutex
	sessions map[string]*managedCapture

	// Test seams.
	newCatalog func() (*audio.Catalog, error)
	newSession func() captureSession
}

func NewCaptureManager(cfg *config.Config, log *slog.Logger) *CaptureManager {
	return &CaptureManager{
		cfg:        cfg,
		log:        log,
		sessions:   map[string]*managedCapture{},
		newCatalog: audio.NewCatalog,
		newSession: func() captureSession { return audio.NewCaptureSession(log) },
	}
}

// StartParams carries the request body of POST /captures.
type StartParams struct {
	Mode         audio.CaptureMode `json:"mode"`
	Title        string            `json:"title"`
	MicDevice    string            `json:"mic_device,omitempty"`
	SystemDevice string            `json:"system_device,omitempty"`
	Context      map[string]string `json:"context,omitempty"`
}

// Start resolves devices, derives the output path from the title and opens
// the capture.
func (m *CaptureManager) Start(p StartParams) (audio.AudioSession, error) {
	catalog, err := m.newCatalog()
	if err != nil {
		return audio.AudioSession{}, fmt.Errorf("enumerate devices: %w", err)
	}

	req := audio.StartRequest{
		SampleRateHz: m.cfg.Audio.SampleRateHz,
		BitDepth:     m.cfg.Audio.BitDepth,
	}

	switch p.Mode {
	case audio.ModeMic, audio.ModeDual:
		dev, err := catalog.Preferred(m.micMatch(p), audio.DirectionInput)
		if err != nil {
			return audio.AudioSession{}, err
		}
		req.Mic = &dev
		req.MicChannels = m.cfg.Audio.MicChannels
	}
	switch p.Mode {
	case audio.ModeSystem, audio.ModeDual:
		dev, err := catalog.Preferred(m.systemMatch(p), audio.DirectionOutput)
		if err != nil {
			return audio.AudioSession{}, err
		}
		req.System = &dev
		req.SystemChannels = m.cfg.Audio.SystemChannels
	}
	if req.Mic == nil && req.System == nil {
		return audio.AudioSession{}, fmt.Errorf("unknown capture mode %q", p.Mode)
	}

	basename := record.Basename(time.Now(), p.Title)
	req.OutputPath = filepath.Join(m.cfg.Data.RecordingsPath(), basename+".wav")

	cs := m.newSession()
	sess, err := cs.Start(req)
	if err != nil {
		return audio.AudioSession{}, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = &managedCapture{capture: cs, title: p.Title, context: p.Context}
	m.mu.Unlock()

	metrics.CapturesActive.Inc()
	m.log.Info("capture started",
		"session_id", sess.ID,
		"mode", string(sess.Layout.Mode),
		"path", sess.FilePath,
	)
	return sess, nil
}

// Stop finalizes the capture and records its frame counters.
func (m *CaptureManager) Stop(id string) (audio.AudioSession, error) {
	mc, ok := m.lookup(id)
	if !ok {
		return audio.AudioSession{}, fmt.Errorf("capture %s not found", id)
	}

	sess, err := mc.capture.Stop()
	if err != nil {
		return sess, err
	}

	m.mu.Lock()
	alreadyStopped := mc.stopped
	mc.stopped = true
	m.mu.Unlock()
	if alreadyStopped {
		return sess, nil
	}

	metrics.CapturesActive.Dec()
	mode := string(sess.Layout.Mode)
	metrics.RecordFramesWritten(mode, int(sess.FramesWritten))
	if sess.OverflowFrames > 0 {
		metrics.RecordOverflow(mode, int(sess.OverflowFrames))
		m.log.Warn("capture finished with overflow",
			"session_id", sess.ID,
			"dropped_frames", sess.OverflowFrames,
		)
	}
	return sess, nil
}

// Get returns the live status of one session.
func (m *CaptureManager) Get(id string) (audio.AudioSession, bool) {
	mc, ok := m.lookup(id)
	if !ok {
		return audio.AudioSession{}, false
	}
	return mc.capture.Status(), true
}

// Meta returns the title and context supplied at start.
func (m *CaptureManager) Meta(id string) (title string, context map[string]string, ok bool) {
	mc, found := m.lookup(id)
	if !found {
		return "", nil, false
	}
	return mc.title, mc.context, true
}

// List returns the status of every known session.
func (m *CaptureManager) List() []audio.AudioSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]audio.AudioSession, 0, len(m.sessions))
	for _, mc := range m.sessions {
		out = append(out, mc.capture.Status())
	}
	return out
}

func (m *CaptureManager) lookup(id string) (*managedCapture, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.sessions[id]
	return mc, ok
}

func (m *CaptureManager) micMatch(p StartParams) string {
	if p.MicDevice != "" {
		return p.MicDevice
	}
	return m.cfg.Audio.MicDevice
}

func (m *CaptureManager) systemMatch(p StartParams) string {
	if p.SystemDevice != "" {
		return p.SystemDevice
	}
	return m.cfg.Audio.SystemDevice
}
