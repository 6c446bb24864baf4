package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

const (
	// blockFrames is the frame count of one callback block / ring slot.
	blockFrames = 1024
	// ringSlots bounds the buffered backlog per source (~1.5s at 44.1kHz).
	ringSlots = 64
	// drainInterval is the disk writer's polling cadence; it also bounds the
	// latency with which an external stop is observed.
	drainInterval = 10 * time.Millisecond
)

// ErrNotIdle is returned by Start when the session already left Idle.
var ErrNotIdle = errors.New("capture session already started")

// ErrNotRecording is returned by Stop when there is nothing to stop.
var ErrNotRecording = errors.New("capture session is not recording")

// StartRequest describes a capture to open. At least one of Mic and System
// must be set; the capture mode (mic, system, dual) is derived from which
// are present.
type StartRequest struct {
	Mic            *Device
	System         *Device
	MicChannels    int
	SystemChannels int
	SampleRateHz   int
	BitDepth       int
	OutputPath     string
}

// blockSource feeds interleaved sample blocks into a frameRing. The
// portaudio implementation runs on the host's audio callback; tests use
// stubs that push blocks directly.
type blockSource interface {
	start() error
	stop() error
	close() error
}

// CaptureSession owns the live stream(s) of one recording and writes frames
// to a WAV container incrementally. One instance records at most once:
// Idle -> Recording -> Finalizing -> Finalized, with Failed reachable from
// Recording and Finalizing.
type CaptureSession struct {
	log *slog.Logger

	mu      sync.Mutex
	status  Status
	session AudioSession

	sources []blockSource
	rings   []*frameRing
	chans   []int // channel count per source, mic first

	enc  *wav.Encoder
	file *os.File

	stopCh chan struct{}
	done   chan struct{}

	framesWritten uint64
}

// NewCaptureSession returns a capture session in the Idle state.
func NewCaptureSession(log *slog.Logger) *CaptureSession {
	return &CaptureSession{log: log, status: StatusIdle}
}

// Start validates the request, opens the device stream(s) and begins the
// writer loop. Device failures are reported synchronously and leave the
// session in Idle. The effective channel count per track is the requested
// count clamped to the device maximum; hardware reporting fewer channels
// than asked for is not an error.
func (c *CaptureSession) Start(req StartRequest) (AudioSession, error) {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return AudioSession{}, ErrNotIdle
	}
	c.mu.Unlock()

	if req.Mic == nil && req.System == nil {
		return AudioSession{}, errors.New("at least one of mic and system device is required")
	}
	if req.SampleRateHz <= 0 {
		return AudioSession{}, fmt.Errorf("invalid sample rate %d", req.SampleRateHz)
	}
	if req.BitDepth != 16 {
		return AudioSession{}, fmt.Errorf("unsupported bit depth %d: capture path is 16-bit PCM", req.BitDepth)
	}
	if req.OutputPath == "" {
		return AudioSession{}, errors.New("output path is required")
	}

	layout, chans := resolveLayout(req)
	if err := layout.Validate(); err != nil {
		return AudioSession{}, err
	}

	file, err := os.Create(req.OutputPath)
	if err != nil {
		return AudioSession{}, fmt.Errorf("create output file: %w", err)
	}
	enc := wav.NewEncoder(file, req.SampleRateHz, req.BitDepth, layout.TotalChannels, 1)

	rings := make([]*frameRing, len(chans))
	for i, ch := range chans {
		rings[i] = newFrameRing(ringSlots, blockFrames, ch)
	}

	var sources []blockSource
	devices := captureDevices(req)
	for i, dev := range devices {
		src, err := openPaSource(dev, chans[i], req.SampleRateHz, rings[i])
		if err != nil {
			closeSources(sources)
			_ = file.Close()
			_ = os.Remove(req.OutputPath)
			return AudioSession{}, fmt.Errorf("%w: open %q: %v", ErrDeviceUnavailable, dev.Name, err)
		}
		sources = append(sources, src)
	}

	sess := AudioSession{
		ID:           uuid.NewString(),
		StartedAt:    time.Now(),
		SampleRateHz: req.SampleRateHz,
		BitDepth:     req.BitDepth,
		Layout:       layout,
		FilePath:     req.OutputPath,
		Status:       StatusRecording,
	}

	if err := c.begin(sess, sources, rings, chans, enc, file); err != nil {
		_ = file.Close()
		_ = os.Remove(req.OutputPath)
		return AudioSession{}, err
	}
	return c.Status(), nil
}

// begin installs the opened resources, starts the sources and launches the
// writer goroutine. Split out from Start so tests can drive the state
// machine with stub sources instead of live devices.
func (c *CaptureSession) begin(sess AudioSession, sources []blockSource, rings []*frameRing, chans []int, enc *wav.Encoder, file *os.File) error {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		closeSources(sources)
		return ErrNotIdle
	}
	c.session = sess
	c.sources = sources
	c.rings = rings
	c.chans = chans
	c.enc = enc
	c.file = file
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.status = StatusRecording
	c.mu.Unlock()

	for _, src := range sources {
		if err := src.start(); err != nil {
			c.mu.Lock()
			c.status = StatusIdle
			c.mu.Unlock()
			closeSources(sources)
			return fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
		}
	}

	if c.log != nil {
		c.log.Info("capture started",
			"session_id", sess.ID,
			"mode", string(sess.Layout.Mode),
			"channels", sess.Layout.TotalChannels,
			"rate_hz", sess.SampleRateHz,
			"path", sess.FilePath,
		)
	}

	go c.writerLoop()
	return nil
}

// Stop transitions Recording -> Finalizing -> Finalized. It is safe to call
// from any goroutine and acts as a barrier: it returns only after the writer
// has flushed every buffered frame and finalized the container header. With
// zero captured frames the result is still a valid, playable, empty WAV.
func (c *CaptureSession) Stop() (AudioSession, error) {
	c.mu.Lock()
	switch c.status {
	case StatusRecording:
		c.status = StatusFinalizing
	case StatusFinalizing, StatusFinalized, StatusFailed:
		done := c.done
		c.mu.Unlock()
		if done != nil {
			<-done
		}
		return c.Status(), nil
	default:
		c.mu.Unlock()
		return AudioSession{}, ErrNotRecording
	}
	sources := c.sources
	c.mu.Unlock()

	// Stop the callbacks first so the rings stop filling, then let the
	// writer drain what remains.
	for _, src := range sources {
		_ = src.stop()
	}
	close(c.stopCh)
	<-c.done

	for _, src := range sources {
		_ = src.close()
	}
	return c.Status(), nil
}

// Status returns a point-in-time snapshot of the session, including live
// frame and overflow counters while recording.
func (c *CaptureSession) Status() AudioSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.session
	snap.Status = c.status
	snap.FramesWritten = c.framesWritten
	snap.OverflowFrames = c.overflowLocked()
	if snap.SampleRateHz > 0 {
		snap.DurationSeconds = float64(snap.FramesWritten) / float64(snap.SampleRateHz)
	}
	return snap
}

func (c *CaptureSession) overflowLocked() uint64 {
	var total uint64
	for _, r := range c.rings {
		total += r.droppedFrames()
	}
	return total
}

// writerLoop drains the rings to disk until stopped, then flushes and
// finalizes the container. Runs on its own goroutine; all blocking I/O
// happens here, never in the device callback.
func (c *CaptureSession) writerLoop() {
	defer close(c.done)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	maxCh := 0
	for _, ch := range c.chans {
		maxCh = maxInt(maxCh, ch)
	}
	pending := make([][]int16, len(c.rings))
	scratch := make([]int16, blockFrames*maxCh)

	for {
		select {
		case <-ticker.C:
			if err := c.drain(pending, scratch, false); err != nil {
				c.fail(err)
				return
			}
		case <-c.stopCh:
			if err := c.drain(pending, scratch, true); err != nil {
				c.fail(err)
				return
			}
			c.finalize()
			return
		}
	}
}

// drain moves buffered blocks from the rings into the encoder. In dual mode
// frames from the two rings are interleaved pairwise; the two hardware
// clocks are only approximately aligned and no resampling is attempted. On
// the final drain the shorter track is zero-padded so both tracks cover the
// same frame count.
func (c *CaptureSession) drain(pending [][]int16, scratch []int16, final bool) error {
	for i, ring := range c.rings {
		for ring.pending() > 0 {
			n := ring.pop(scratch)
			if n == 0 {
				break
			}
			pending[i] = append(pending[i], scratch[:n]...)
		}
	}

	if len(c.rings) == 1 {
		if len(pending[0]) == 0 {
			return nil
		}
		if err := c.writeSamples(pending[0]); err != nil {
			return err
		}
		pending[0] = pending[0][:0]
		return nil
	}

	micCh, sysCh := c.chans[0], c.chans[1]
	frames := minInt(len(pending[0])/micCh, len(pending[1])/sysCh)
	if final {
		// zero-pad the shorter track so both cover the same frame count
		frames = maxInt(len(pending[0])/micCh, len(pending[1])/sysCh)
	}
	if frames == 0 {
		return nil
	}

	total := micCh + sysCh
	out := make([]int16, frames*total)
	for f := 0; f < frames; f++ {
		for ch := 0; ch < micCh; ch++ {
			idx := f*micCh + ch
			if idx < len(pending[0]) {
				out[f*total+ch] = pending[0][idx]
			}
		}
		for ch := 0; ch < sysCh; ch++ {
			idx := f*sysCh + ch
			if idx < len(pending[1]) {
				out[f*total+micCh+ch] = pending[1][idx]
			}
		}
	}

	pending[0] = trimConsumed(pending[0], frames*micCh)
	pending[1] = trimConsumed(pending[1], frames*sysCh)

	return c.writeSamples(out)
}

// closeSources stops and closes every opened stream. Failure paths call it
// before the writer goroutine owns the sources.
func closeSources(sources []blockSource) {
	for _, s := range sources {
		_ = s.stop()
		_ = s.close()
	}
}

func trimConsumed(buf []int16, consumed int) []int16 {
	if consumed >= len(buf) {
		return buf[:0]
	}
	n := copy(buf, buf[consumed:])
	return buf[:n]
}

func (c *CaptureSession) writeSamples(samples []int16) error {
	total := c.session.Layout.TotalChannels
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: total, SampleRate: c.session.SampleRateHz},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := c.enc.Write(buf); err != nil {
		return fmt.Errorf("write audio frames: %w", err)
	}
	c.mu.Lock()
	c.framesWritten += uint64(len(samples) / total)
	c.mu.Unlock()
	return nil
}

// finalize writes the container header reflecting the final byte length and
// closes the file.
func (c *CaptureSession) finalize() {
	err := c.enc.Close()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = StatusFailed
		c.session.Error = fmt.Sprintf("finalize container: %v", err)
	} else {
		c.status = StatusFinalized
	}
	c.session.Status = c.status
	c.session.FramesWritten = c.framesWritten
	c.session.OverflowFrames = c.overflowLocked()
	if c.session.SampleRateHz > 0 {
		c.session.DurationSeconds = float64(c.framesWritten) / float64(c.session.SampleRateHz)
	}

	if c.log != nil {
		c.log.Info("capture finalized",
			"session_id", c.session.ID,
			"status", string(c.status),
			"frames", c.framesWritten,
			"overflow_frames", c.session.OverflowFrames,
			"duration_s", c.session.DurationSeconds,
		)
	}
}

// fail transitions to Failed while preserving whatever bytes already
// reached disk. The header is still rewritten on a best-effort basis so the
// partial file stays playable.
func (c *CaptureSession) fail(err error) {
	for _, src := range c.sources {
		_ = src.stop()
	}
	_ = c.enc.Close()
	_ = c.file.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusFailed
	c.session.Status = StatusFailed
	c.session.Error = err.Error()
	c.session.FramesWritten = c.framesWritten
	c.session.OverflowFrames = c.overflowLocked()

	if c.log != nil {
		c.log.Error("capture failed", "session_id", c.session.ID, "error", err)
	}
}

func resolveLayout(req StartRequest) (TrackLayout, []int) {
	switch {
	case req.Mic != nil && req.System != nil:
		mic := clampChannels(req.MicChannels, req.Mic.MaxChannels)
		sys := clampChannels(req.SystemChannels, req.System.MaxChannels)
		return DualLayout(mic, sys), []int{mic, sys}
	case req.Mic != nil:
		mic := clampChannels(req.MicChannels, req.Mic.MaxChannels)
		return MicOnlyLayout(mic), []int{mic}
	default:
		sys := clampChannels(req.SystemChannels, req.System.MaxChannels)
		return SystemOnlyLayout(sys), []int{sys}
	}
}

func clampChannels(requested, deviceMax int) int {
	if requested < 1 {
		requested = 1
	}
	if deviceMax > 0 && requested > deviceMax {
		return deviceMax
	}
	return requested
}

func captureDevices(req StartRequest) []Device {
	var out []Device
	if req.Mic != nil {
		out = append(out, *req.Mic)
	}
	if req.System != nil {
		out = append(out, *req.System)
	}
	return out
}

// paSource adapts a portaudio input stream to the blockSource interface.
// The callback copies each block into the ring and accounts device-reported
// overflow; it does no allocation and no blocking I/O.
type paSource struct {
	stream *portaudio.Stream
}

func openPaSource(dev Device, channels, sampleRate int, ring *frameRing) (*paSource, error) {
	if dev.info == nil {
		return nil, errors.New("device snapshot is stale")
	}
	params := portaudio.LowLatencyParameters(dev.info, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = blockFrames

	stream, err := portaudio.OpenStream(params, func(in []int16, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			ring.addDropped(uint64(len(in) / channels))
		}
		ring.push(in)
	})
	if err != nil {
		return nil, err
	}
	return &paSource{stream: stream}, nil
}

func (s *paSource) start() error { return s.stream.Start() }
func (s *paSource) stop() error  { return s.stream.Stop() }
func (s *paSource) close() error { return s.stream.Close() }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
