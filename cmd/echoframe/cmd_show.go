package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VE7LTX/echoframe/internal/pipeline"
	"github.com/VE7LTX/echoframe/internal/record"
)

func newShowCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "show <recording.wav|record.json>",
		Short: "Print the session record of a processed recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if filepath.Ext(path) != ".json" {
				path = pipeline.RecordPath(path)
			}
			rec, err := record.Load(path)
			if err != nil {
				return err
			}

			if format, _ := cmd.Flags().GetString("output"); format == "text" {
				fmt.Print(renderTranscript(rec))
				return nil
			}
			return printOutput(cmd, rec)
		},
	}
	return c
}

// renderTranscript prints a readable transcript, one line per segment.
func renderTranscript(rec *record.SessionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %.0fs, %d words, %d speakers)\n",
		rec.Title, rec.Mode, rec.DurationSeconds, rec.WordCount, rec.SpeakerCount)
	for _, f := range rec.Failures {
		fmt.Fprintf(&b, "degraded: %s stage failed (%s)\n", f.Stage, f.Code)
	}
	for _, seg := range rec.Transcript {
		speaker := "Unknown"
		if seg.Labeled() {
			speaker = *seg.SpeakerLabel
		}
		fmt.Fprintf(&b, "[%7.2f-%7.2f] %s: %s\n", seg.StartSec, seg.EndSec, speaker, seg.Text)
	}
	if rec.Enrichment != nil && rec.Enrichment.Summary != "" {
		fmt.Fprintf(&b, "\nSummary:\n%s\n", rec.Enrichment.Summary)
		for _, item := range rec.Enrichment.ActionItems {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		if rec.Enrichment.Sentiment != "" {
			fmt.Fprintf(&b, "\nSentiment: %s\n", rec.Enrichment.Sentiment)
		}
	}
	return b.String()
}
