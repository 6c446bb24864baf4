package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/config"
	"github.com/VE7LTX/echoframe/internal/record"
)

func newRecordCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "record",
		Short: "Record a capture session to WAV",
		Long:  "Opens the configured devices and records until Ctrl-C, or until --duration elapses. Session metadata is written next to the WAV so `echoframe process` can pick it up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			if err := portaudio.Initialize(); err != nil {
				return fmt.Errorf("initialize audio host: %w", err)
			}
			defer portaudio.Terminate()

			mode := audio.CaptureMode(mustGetString(cmd, "mode"))
			title := mustGetString(cmd, "title")
			duration, _ := cmd.Flags().GetDuration("duration")

			req, err := buildStartRequest(cfg, cmd, mode, title)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
				return err
			}

			capture := audio.NewCaptureSession(log)
			sess, err := capture.Start(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "recording %s (%s), Ctrl-C to stop\n", sess.FilePath, sess.Layout.Mode)

			waitForStop(duration)

			sess, err = capture.Stop()
			if err != nil {
				return err
			}
			if sess.Status == audio.StatusFailed {
				return fmt.Errorf("capture failed: %s", sess.Error)
			}
			if err := audio.SaveSession(sess, audio.SidecarPath(sess.FilePath)); err != nil {
				return err
			}
			if sess.OverflowFrames > 0 {
				fmt.Fprintf(os.Stderr, "warning: %d frames dropped during capture\n", sess.OverflowFrames)
			}
			return printOutput(cmd, sess)
		},
	}
	c.Flags().String("mode", string(audio.ModeMic), "capture mode: mic, system or dual")
	c.Flags().String("title", "", "session title, used for the output file name")
	c.Flags().String("mic", "", "microphone device name or substring")
	c.Flags().String("system", "", "system output device name or substring")
	c.Flags().Int("rate", 0, "sample rate in Hz (default from config)")
	c.Flags().Int("mic-channels", 0, "microphone channel count (default from config)")
	c.Flags().Int("system-channels", 0, "system channel count (default from config)")
	c.Flags().Duration("duration", 0, "stop automatically after this long (0 = wait for Ctrl-C)")
	return c
}

// buildStartRequest mirrors the device resolution the HTTP surface does.
func buildStartRequest(cfg *config.Config, cmd *cobra.Command, mode audio.CaptureMode, title string) (audio.StartRequest, error) {
	catalog, err := audio.NewCatalog()
	if err != nil {
		return audio.StartRequest{}, err
	}

	req := audio.StartRequest{
		SampleRateHz: cfg.Audio.SampleRateHz,
		BitDepth:     cfg.Audio.BitDepth,
	}
	if rate, _ := cmd.Flags().GetInt("rate"); rate > 0 {
		req.SampleRateHz = rate
	}
	micChannels := cfg.Audio.MicChannels
	if n, _ := cmd.Flags().GetInt("mic-channels"); n > 0 {
		micChannels = n
	}
	systemChannels := cfg.Audio.SystemChannels
	if n, _ := cmd.Flags().GetInt("system-channels"); n > 0 {
		systemChannels = n
	}

	micMatch := mustGetString(cmd, "mic")
	if micMatch == "" {
		micMatch = cfg.Audio.MicDevice
	}
	systemMatch := mustGetString(cmd, "system")
	if systemMatch == "" {
		systemMatch = cfg.Audio.SystemDevice
	}

	switch mode {
	case audio.ModeMic, audio.ModeDual:
		dev, err := catalog.Preferred(micMatch, audio.DirectionInput)
		if err != nil {
			return audio.StartRequest{}, err
		}
		req.Mic = &dev
		req.MicChannels = micChannels
	}
	switch mode {
	case audio.ModeSystem, audio.ModeDual:
		dev, err := catalog.Preferred(systemMatch, audio.DirectionOutput)
		if err != nil {
			return audio.StartRequest{}, err
		}
		req.System = &dev
		req.SystemChannels = systemChannels
	}
	if req.Mic == nil && req.System == nil {
		return audio.StartRequest{}, fmt.Errorf("unknown capture mode %q", mode)
	}

	basename := record.Basename(time.Now(), title)
	req.OutputPath = filepath.Join(cfg.Data.RecordingsPath(), basename+".wav")
	return req, nil
}

// waitForStop blocks until an interrupt arrives or the duration elapses.
func waitForStop(duration time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-quit:
		case <-timer.C:
		}
		return
	}
	<-quit
}
