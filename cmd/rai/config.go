package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/rai/internal/inference"
)

// Config represents the rai configuration file (~/.config/rai/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	ModelPath   string `yaml:"model_path"`
	RemoteModel string `yaml:"remote_model"`
	Order       *int64 `yaml:"order"`

	// Sampling defaults
	MaxTokens     *int64   `yaml:"max_tokens"`
	Temperature   *float64 `yaml:"temperature"`
	TopK          *int64   `yaml:"top_k"`
	TopP          *float64 `yaml:"top_p"`
	MinP          *float64 `yaml:"min_p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	RepeatLastN   *int64   `yaml:"repeat_last_n"`
	Seed          *int64   `yaml:"seed"`

	// Transcript
	Purpose    string  `yaml:"purpose"`
	UserLabel  string  `yaml:"user_label"`
	AgentLabel string  `yaml:"agent_label"`
	Persona    string  `yaml:"persona"`
	StopMarker *string `yaml:"stop_marker"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "rai", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func loadCommandConfig(c *cli.Command) (Config, error) {
	path := configPath()
	if c.IsSet("config") {
		path = configFile
	}
	return LoadConfig(path)
}

// applyModelConfig applies config file defaults for model selection and the
// transcript when the corresponding CLI flag was not explicitly set.
// model_path is handled by resolveModelPath.
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.RemoteModel != "" && !c.IsSet("remote-model") {
		remoteModel = cfg.RemoteModel
	}
	if cfg.Order != nil && !c.IsSet("order") {
		order = *cfg.Order
	}
	if cfg.UserLabel != "" && !c.IsSet("user-label") {
		userLabel = cfg.UserLabel
	}
	if cfg.AgentLabel != "" && !c.IsSet("agent-label") {
		agentLabel = cfg.AgentLabel
	}
	if cfg.Persona != "" && !c.IsSet("persona") {
		persona = cfg.Persona
	}
	if cfg.StopMarker != nil && !c.IsSet("stop-marker") {
		stopMarker = *cfg.StopMarker
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyChatConfig applies config file defaults to chat-only variables.
func applyChatConfig(c *cli.Command, cfg Config, streamMode *string) {
	if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
		*streamMode = cfg.StreamMode
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.Purpose != "" && !c.IsSet("purpose") {
		purpose = cfg.Purpose
	}
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// generationOptions collects the sampling settings that were given on the
// command line or in the config file. Anything left nil falls back to the
// inference defaults.
func generationOptions(c *cli.Command, cfg Config) inference.Options {
	var opts inference.Options
	opts.MaxTokens = pickInt(c, "max-tokens", maxTokens, cfg.MaxTokens)
	opts.Temperature = pickFloat(c, "temperature", temperature, cfg.Temperature)
	opts.TopK = pickInt(c, "top-k", topK, cfg.TopK)
	opts.TopP = pickFloat(c, "top-p", topP, cfg.TopP)
	opts.MinP = pickFloat(c, "min-p", minP, cfg.MinP)
	opts.RepeatPenalty = pickFloat(c, "repeat-penalty", repeatPenalty, cfg.RepeatPenalty)
	opts.RepeatLastN = pickInt(c, "repeat-last-n", repeatLastN, cfg.RepeatLastN)
	return opts
}

// configuredSeed reports the seed to use, if one was fixed.
func configuredSeed(c *cli.Command, cfg Config) (int64, bool) {
	if c.IsSet("seed") {
		return seed, true
	}
	if cfg.Seed != nil {
		return *cfg.Seed, true
	}
	return 0, false
}

func pickInt(c *cli.Command, name string, flagValue int64, cfgValue *int64) *int {
	switch {
	case c.IsSet(name):
		v := int(flagValue)
		return &v
	case cfgValue != nil:
		v := int(*cfgValue)
		return &v
	default:
		return nil
	}
}

func pickFloat(c *cli.Command, name string, flagValue float64, cfgValue *float64) *float64 {
	switch {
	case c.IsSet(name):
		v := flagValue
		return &v
	case cfgValue != nil:
		v := *cfgValue
		return &v
	default:
		return nil
	}
}
