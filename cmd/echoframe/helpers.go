package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VE7LTX/echoframe/internal/config"
	"github.com/VE7LTX/echoframe/pkg/logger"
)

// loadRuntime resolves the config file and sets up logging for a command.
// CLI runs log to the console only; the rotating file sink is a server
// concern.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = "echoframe.yml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	log, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		WithSource:  false,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With("component", "cli"), nil
}

// printOutput renders data in the format chosen by the global --output flag.
func printOutput(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if format == "json" {
		var out bytes.Buffer
		if err := json.Indent(&out, data, "", "  "); err != nil {
			fmt.Println(string(data))
			return nil
		}
		fmt.Println(out.String())
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func mustGetString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(v)
}
