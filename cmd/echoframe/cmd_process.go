package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/pipeline"
	"github.com/VE7LTX/echoframe/internal/record"
	"github.com/VE7LTX/echoframe/internal/store"
)

func newProcessCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "process <recording.wav>",
		Short: "Run ASR, diarization and alignment over a finished recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}

			sess, err := loadSessionArg(args[0])
			if err != nil {
				return err
			}

			segStore, err := store.Open(cfg.Data.StoreFile())
			if err != nil {
				return err
			}
			defer segStore.Close()

			proc, err := pipeline.New(pipeline.Options{
				Transcriber: pipeline.BuildTranscriber(cfg, log),
				Diarizer:    pipeline.BuildDiarizer(cfg),
				Enricher:    pipeline.BuildEnricher(cfg),
				Store:       segStore,
				Logger:      log,
			})
			if err != nil {
				return err
			}

			req := pipeline.Request{
				Session: sess,
				Title:   mustGetString(cmd, "title"),
				Context: parseContext(cmd),
				Options: pipeline.DefaultTranscribeOptions(cfg),
			}

			fromStore, _ := cmd.Flags().GetBool("from-store")
			var rec *record.SessionRecord
			if fromStore {
				rec, err = proc.Reprocess(cmd.Context(), req)
			} else {
				rec, err = proc.Process(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "record written to", pipeline.RecordPath(sess.FilePath))
			return printOutput(cmd, rec)
		},
	}
	c.Flags().String("title", "", "session title for the record")
	c.Flags().StringSlice("context", nil, "extra record context as key=value, repeatable")
	c.Flags().Bool("from-store", false, "rebuild the record from stored segments instead of re-running ASR")
	return c
}

// loadSessionArg accepts either the WAV path or the sidecar path written by
// `echoframe record`.
func loadSessionArg(path string) (audio.AudioSession, error) {
	sidecar := path
	if filepath.Ext(path) != ".json" {
		sidecar = audio.SidecarPath(path)
	}
	sess, err := audio.LoadSession(sidecar)
	if err != nil {
		return audio.AudioSession{}, fmt.Errorf("load session metadata (run `echoframe record` first, or pass its .capture.json): %w", err)
	}
	if sess.Status != audio.StatusFinalized {
		return audio.AudioSession{}, fmt.Errorf("session %s is %s, only finalized sessions can be processed", sess.ID, sess.Status)
	}
	return sess, nil
}

func parseContext(cmd *cobra.Command) map[string]string {
	pairs, _ := cmd.Flags().GetStringSlice("context")
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
