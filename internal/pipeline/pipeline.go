// Package pipeline orchestrates post-processing of a finalized capture:
// transcription and diarization run concurrently, their outputs are fused
// into a speaker-attributed transcript, and the session record is written
// next to the audio.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/VE7LTX/echoframe/internal/align"
	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/metrics"
	"github.com/VE7LTX/echoframe/internal/models"
	"github.com/VE7LTX/echoframe/internal/record"
	"github.com/VE7LTX/echoframe/internal/store"
	"github.com/VE7LTX/echoframe/pkg/logger"
)

// Processor runs the post-capture stages. Transcription failure leaves a
// record with an empty transcript; diarization failure leaves every
// segment unlabeled; enrichment failure leaves the record unenriched. Only
// I/O on the session artifacts themselves is fatal.
type Processor struct {
	transcriber Transcriber
	diarizer    Diarizer
	enricher    Enricher
	aligner     align.Aligner
	segments    *store.Store
	log         *slog.Logger
}

// Options configures a Processor. Transcriber is required; a nil Diarizer
// degrades to NoopDiarizer and a nil Enricher skips enrichment.
type Options struct {
	Transcriber Transcriber
	Diarizer    Diarizer
	Enricher    Enricher
	Store       *store.Store
	Logger      *slog.Logger
}

func New(opts Options) (*Processor, error) {
	if opts.Transcriber == nil {
		return nil, errors.New("pipeline: transcriber is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: segment store is required")
	}
	d := opts.Diarizer
	if d == nil {
		d = NoopDiarizer{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}
	return &Processor{
		transcriber: opts.Transcriber,
		diarizer:    d,
		enricher:    opts.Enricher,
		aligner:     align.New(),
		segments:    opts.Store,
		log:         log,
	}, nil
}

// Request names the finalized session to process and how to title its
// record.
type Request struct {
	Session audio.AudioSession
	Title   string
	Context map[string]string

	// Transcribe options forwarded to the ASR stage.
	Options *TranscribeOptions
}

// Process runs ASR and diarization concurrently on the session's speech
// track, aligns the results and writes the session record JSON next to the
// audio file. The returned record is always usable; degraded stages are
// listed in its Failures.
func (p *Processor) Process(ctx context.Context, req Request) (*record.SessionRecord, error) {
	sess := req.Session
	if sess.Status != audio.StatusFinalized {
		return nil, fmt.Errorf("session %s is %s, not finalized", sess.ID, sess.Status)
	}

	speechPath, cleanup, err := p.speechTrack(sess)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	meta := record.CaptureMeta{
		SessionID:    sess.ID,
		Title:        req.Title,
		StartedAt:    sess.StartedAt,
		AudioPath:    sess.FilePath,
		Mode:         string(sess.Layout.Mode),
		SampleRateHz: sess.SampleRateHz,
		BitDepth:     sess.BitDepth,
		Context:      req.Context,
	}

	var (
		segs    []models.Segment
		turns   []models.SpeakerTurn
		asrErr  error
		diarErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		segs, asrErr = p.transcriber.Transcribe(gctx, speechPath, req.Options)
		p.observeStage("asr", sess.ID, start, asrErr)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		turns, diarErr = p.diarizer.Diarize(gctx, speechPath)
		p.observeStage("diarization", sess.ID, start, diarErr)
		return nil
	})
	g.Wait()

	if asrErr == nil {
		segs = DropRepetitions(segs)
		if err := p.segments.PutASR(sess.ID, segs); err != nil {
			return nil, fmt.Errorf("persist segments: %w", err)
		}
	}
	if diarErr == nil {
		if err := p.segments.PutDiarization(sess.ID, turns); err != nil {
			return nil, fmt.Errorf("persist turns: %w", err)
		}
	}

	start := time.Now()
	transcript := p.aligner.Align(segs, turns)
	metrics.RecordStageDuration("align", time.Since(start).Seconds())

	rec := record.Build(meta, transcript)
	if asrErr != nil {
		rec.AddFailure("asr", string(ASR_FAILED), asrErr.Error())
	}
	if diarErr != nil {
		rec.AddFailure("diarization", string(DIARIZATION_FAILED), diarErr.Error())
	}
	if sess.OverflowFrames > 0 {
		rec.AddFailure("capture", string(CAPTURE_OVERFLOW),
			fmt.Sprintf("%d frames dropped during capture", sess.OverflowFrames))
	}

	p.enrich(ctx, rec)

	recordPath := RecordPath(sess.FilePath)
	if err := record.Save(rec, recordPath); err != nil {
		return nil, NewWriteError(recordPath, err)
	}
	return rec, nil
}

// Reprocess realigns a session from stored segments and turns, skipping
// ASR and diarization entirely. Useful after an aligner change.
func (p *Processor) Reprocess(ctx context.Context, req Request) (*record.SessionRecord, error) {
	sess := req.Session

	segs, err := p.segments.ASRSegments(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	turns, err := p.segments.DiarizationTurns(sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	meta := record.CaptureMeta{
		SessionID:    sess.ID,
		Title:        req.Title,
		StartedAt:    sess.StartedAt,
		AudioPath:    sess.FilePath,
		Mode:         string(sess.Layout.Mode),
		SampleRateHz: sess.SampleRateHz,
		BitDepth:     sess.BitDepth,
		Context:      req.Context,
	}
	rec := record.Build(meta, p.aligner.Align(segs, turns))
	p.enrich(ctx, rec)

	recordPath := RecordPath(sess.FilePath)
	if err := record.Save(rec, recordPath); err != nil {
		return nil, NewWriteError(recordPath, err)
	}
	return rec, nil
}

// EnrichRecord attaches a summary to an already-written record and saves it
// back. A record that is already enriched is returned as-is, so repeated
// calls are safe. Unlike the inline enrichment during Process, an explicit
// request that fails reports the failure to the caller.
func (p *Processor) EnrichRecord(ctx context.Context, recordPath string) (*record.SessionRecord, error) {
	rec, err := record.Load(recordPath)
	if err != nil {
		return nil, err
	}
	if rec.Enrichment != nil {
		return rec, nil
	}
	if p.enricher == nil {
		return nil, NewEnrichmentError(errors.New("enrichment is not configured"))
	}

	start := time.Now()
	e, err := p.enricher.Enrich(ctx, rec.Transcript)
	p.observeStage("enrich", rec.SessionID, start, err)
	if err != nil {
		return nil, err
	}
	rec.AttachEnrichment(e)

	if err := record.Save(rec, recordPath); err != nil {
		return nil, NewWriteError(recordPath, err)
	}
	return rec, nil
}

// enrich attaches a summary when an enricher is configured. Failures are
// logged on the record and never propagate.
func (p *Processor) enrich(ctx context.Context, rec *record.SessionRecord) {
	if p.enricher == nil || len(rec.Transcript) == 0 {
		return
	}
	start := time.Now()
	e, err := p.enricher.Enrich(ctx, rec.Transcript)
	p.observeStage("enrich", rec.SessionID, start, err)
	if err != nil {
		rec.AddFailure("enrich", string(ENRICHMENT_FAILED), err.Error())
		return
	}
	rec.AttachEnrichment(e)
}

// speechTrack returns the WAV path the ASR and diarization stages should
// read. Dual captures get their mic channels extracted to a scratch file;
// wide mic tracks are narrowed to the front pair.
func (p *Processor) speechTrack(sess audio.AudioSession) (string, func(), error) {
	noop := func() {}

	track, ok := sess.Layout.Track(audio.TrackMic)
	if !ok {
		// System-only capture: transcribe the file as recorded.
		return sess.FilePath, noop, nil
	}

	keep := audio.FrontPairChannels(track)
	if sess.Layout.Mode == audio.ModeMic && len(keep) == track.ChannelCount {
		return sess.FilePath, noop, nil
	}

	tmp, err := os.CreateTemp("", "echoframe-mic-*.wav")
	if err != nil {
		return "", noop, fmt.Errorf("create scratch track: %w", err)
	}
	tmp.Close()

	if err := audio.ExtractChannels(sess.FilePath, tmp.Name(), keep); err != nil {
		os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("extract mic track: %w", err)
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// RecordPath maps an audio path to its session record path
// ("x.wav" to "x.json").
func RecordPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return audioPath[:len(audioPath)-len(ext)] + ".json"
}

func (p *Processor) observeStage(stage, sessionID string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.RecordStageDuration(stage, elapsed.Seconds())

	code := ""
	if err != nil {
		code = errorCodeOf(err)
		metrics.RecordStageError(stage, code)
	}
	logger.LogStageEvent(p.log, stage, "complete", sessionID, elapsed.Milliseconds(), code)
}

func errorCodeOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return "UNKNOWN"
}
