package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	stateDir = ".evseg"

	DefaultTimelineSpanMS     = 60000
	DefaultTimeUpdateInterval = 250 * time.Millisecond
	DefaultVideoSeconds       = 30.0
	DefaultLogLevel           = "info"
	DefaultFFProbePath        = "ffprobe"
)

type Config struct {
	WorkspacePath       string
	DBPath              string
	DataPath            string
	LogPath             string
	PluginsPath         string
	LogLevel            string
	TimelineSpanMS      float64
	TimeUpdateInterval  time.Duration
	DefaultVideoSeconds float64
	FFProbePath         string
}

// fileConfig mirrors .evseg/config.yaml. Absent keys keep their defaults.
type fileConfig struct {
	LogLevel             *string  `yaml:"log_level"`
	TimelineSpanMS       *float64 `yaml:"timeline_span_ms"`
	TimeUpdateIntervalMS *int     `yaml:"timeupdate_interval_ms"`
	DefaultVideoSeconds  *float64 `yaml:"default_video_seconds"`
	FFProbePath          *string  `yaml:"ffprobe_path"`
}

func New(workspacePath string) (Config, error) {
	if workspacePath == "" {
		return Config{}, fmt.Errorf("workspace path is required")
	}
	cfg := Config{
		WorkspacePath:       workspacePath,
		DBPath:              filepath.Join(workspacePath, stateDir, "evseg.db"),
		DataPath:            filepath.Join(workspacePath, stateDir, "data", "trials.jsonl"),
		LogPath:             filepath.Join(workspacePath, stateDir, "evseg.log"),
		PluginsPath:         filepath.Join(workspacePath, "plugins", "plugins.json"),
		LogLevel:            DefaultLogLevel,
		TimelineSpanMS:      DefaultTimelineSpanMS,
		TimeUpdateInterval:  DefaultTimeUpdateInterval,
		DefaultVideoSeconds: DefaultVideoSeconds,
		FFProbePath:         DefaultFFProbePath,
	}
	if err := cfg.overlay(filepath.Join(workspacePath, stateDir, "config.yaml")); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	fc := fileConfig{}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config: %w", err)
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.TimelineSpanMS != nil {
		if *fc.TimelineSpanMS <= 0 {
			return fmt.Errorf("timeline_span_ms must be positive")
		}
		c.TimelineSpanMS = *fc.TimelineSpanMS
	}
	if fc.TimeUpdateIntervalMS != nil {
		if *fc.TimeUpdateIntervalMS <= 0 {
			return fmt.Errorf("timeupdate_interval_ms must be positive")
		}
		c.TimeUpdateInterval = time.Duration(*fc.TimeUpdateIntervalMS) * time.Millisecond
	}
	if fc.DefaultVideoSeconds != nil {
		c.DefaultVideoSeconds = *fc.DefaultVideoSeconds
	}
	if fc.FFProbePath != nil {
		c.FFProbePath = *fc.FFProbePath
	}
	return nil
}
