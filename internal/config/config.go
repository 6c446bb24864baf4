package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the unified runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Log     LogConfig     `yaml:"log"`
	Audio   AudioConfig   `yaml:"audio"`
	Whisper WhisperConfig `yaml:"whisper"`
	Diarize DiarizeConfig `yaml:"diarization"`
	Enrich  EnrichConfig  `yaml:"enrichment"`
}

// ServerConfig configures the local HTTP control surface.
type ServerConfig struct {
	Env  string `yaml:"env"` // dev, prod
	Port string `yaml:"port"`
}

// DataConfig configures output locations.
type DataConfig struct {
	BaseDir        string `yaml:"base_dir"`
	RecordingsDir  string `yaml:"recordings_dir"`
	SessionsDir    string `yaml:"sessions_dir"`
	SegmentsDir    string `yaml:"segments_dir"`
	StorePath      string `yaml:"store_path"`      // sqlite segment store
	RetentionHours int    `yaml:"retention_hours"` // 0 disables the sweep
}

// LogConfig configures logging.
type LogConfig struct {
	Level    string `yaml:"level"` // debug, info, warn, error
	FilePath string `yaml:"file_path"`
}

// AudioConfig holds capture defaults.
type AudioConfig struct {
	SampleRateHz   int    `yaml:"sample_rate_hz"`
	BitDepth       int    `yaml:"bit_depth"`
	MicChannels    int    `yaml:"mic_channels"`
	SystemChannels int    `yaml:"system_channels"`
	MicDevice      string `yaml:"mic_device"`
	SystemDevice   string `yaml:"system_device"`
}

// WhisperConfig configures the external ASR collaborator.
type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
}

// DiarizeConfig configures the optional diarization collaborator.
type DiarizeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ScriptPath string `yaml:"script_path"`
	PythonPath string `yaml:"python_path"`
	HFToken    string `yaml:"hf_token"`
}

// EnrichConfig configures the optional enrichment collaborator.
type EnrichConfig struct {
	Enabled         bool   `yaml:"enabled"`
	APIURL          string `yaml:"api_url"`
	APIKey          string `yaml:"api_key"`
	SummaryPrompt   string `yaml:"summary_prompt"`
	SentimentPrompt string `yaml:"sentiment_prompt"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// RecordingsPath is the directory WAV captures are written to.
func (d DataConfig) RecordingsPath() string {
	return filepath.Join(d.BaseDir, d.RecordingsDir)
}

// StoreFile is the full path of the sqlite segment store.
func (d DataConfig) StoreFile() string {
	return filepath.Join(d.BaseDir, d.StorePath)
}

// Load reads the YAML config file when path is non-empty (a missing file is
// not an error, defaults apply) and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes the configuration back to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Env: "dev", Port: "8804"},
		Data: DataConfig{
			BaseDir:        "./echoframe-data",
			RecordingsDir:  "recordings",
			SessionsDir:    "sessions",
			SegmentsDir:    "segments",
			StorePath:      "echoframe.sqlite",
			RetentionHours: 48,
		},
		Log: LogConfig{Level: "info"},
		Audio: AudioConfig{
			SampleRateHz:   44100,
			BitDepth:       16,
			MicChannels:    1,
			SystemChannels: 2,
		},
		Whisper: WhisperConfig{BinaryPath: "whisper-cli", Model: "small"},
		Diarize: DiarizeConfig{PythonPath: "python3"},
		Enrich:  EnrichConfig{TimeoutSeconds: 30, SummaryPrompt: "Summarize the key points in 3-5 bullets.", SentimentPrompt: "Describe the overall sentiment in one sentence."},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Env = getEnv("ENV", cfg.Server.Env)
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Data.BaseDir = getEnv("ECHOFRAME_BASE_DIR", cfg.Data.BaseDir)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.FilePath = getEnv("LOG_FILE", cfg.Log.FilePath)
	cfg.Whisper.BinaryPath = getEnv("WHISPER_BIN", cfg.Whisper.BinaryPath)
	cfg.Whisper.Model = getEnv("WHISPER_MODEL", cfg.Whisper.Model)
	cfg.Diarize.HFToken = getEnv("HF_TOKEN", cfg.Diarize.HFToken)
	cfg.Enrich.APIKey = getEnv("ENRICH_API_KEY", cfg.Enrich.APIKey)
	cfg.Enrich.APIURL = getEnv("ENRICH_API_URL", cfg.Enrich.APIURL)
	if v := os.Getenv("RETENTION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Data.RetentionHours = n
		}
	}
}

// Validate checks configuration consistency and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Audio.SampleRateHz <= 0 {
		errs = append(errs, fmt.Sprintf("audio.sample_rate_hz must be > 0, got %d", cfg.Audio.SampleRateHz))
	}
	if cfg.Audio.BitDepth != 16 {
		// Capture is 16-bit PCM only.
		errs = append(errs, fmt.Sprintf("audio.bit_depth must be 16, got %d", cfg.Audio.BitDepth))
	}
	if cfg.Audio.MicChannels < 1 || cfg.Audio.MicChannels > 8 {
		errs = append(errs, fmt.Sprintf("audio.mic_channels must be 1..8, got %d", cfg.Audio.MicChannels))
	}
	if cfg.Audio.SystemChannels < 1 || cfg.Audio.SystemChannels > 8 {
		errs = append(errs, fmt.Sprintf("audio.system_channels must be 1..8, got %d", cfg.Audio.SystemChannels))
	}
	if cfg.Data.BaseDir == "" {
		errs = append(errs, "data.base_dir is required")
	}
	if cfg.Data.RetentionHours < 0 {
		errs = append(errs, "data.retention_hours must be >= 0")
	}
	if cfg.Enrich.Enabled && cfg.Enrich.APIURL == "" {
		errs = append(errs, "enrichment.api_url is required when enrichment is enabled")
	}
	if cfg.Diarize.Enabled && cfg.Diarize.ScriptPath == "" {
		errs = append(errs, "diarization.script_path is required when diarization is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
