package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "echoframe",
		Short:   "EchoFrame CLI for offline capture and transcript alignment",
		Long:    "Record microphone and system audio to WAV and turn finished sessions into speaker-attributed transcripts, without the HTTP server.",
		Version: version,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newShowCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "path to the YAML config file (default echoframe.yml)")
	cmd.PersistentFlags().String("output", "json", "output format: json or text")
}
