package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Unknown YAML keys are rejected so typos surface at
// startup instead of silently configuring nothing.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Model.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}

	if !cfg.Audio.Source.IsValid() {
		errs = append(errs, fmt.Errorf("audio.source %q is invalid; valid values: microphone, file", cfg.Audio.Source))
	}
	if cfg.Audio.Source == SourceFile && cfg.Audio.File == "" {
		errs = append(errs, errors.New("audio.file is required when audio.source is file"))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [1, 2]", cfg.Audio.Channels))
	}
	if cfg.Audio.FrameMs < 10 || cfg.Audio.FrameMs > 1000 {
		errs = append(errs, fmt.Errorf("audio.frame_ms %d is out of range [10, 1000]", cfg.Audio.FrameMs))
	}

	if cfg.Session.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("session.queue_size %d must be positive", cfg.Session.QueueSize))
	}
	if cfg.Session.PollMs < 10 {
		errs = append(errs, fmt.Errorf("session.poll_ms %d must be at least 10", cfg.Session.PollMs))
	}

	return errors.Join(errs...)
}

// ListModels returns the names of GGML model files (*.bin) in dir, sorted.
// A missing directory is not an error; it returns an empty list so a fresh
// install can still start and report "no models found" in the UI.
func ListModels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: list models in %q: %w", dir, err)
	}

	var models []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".bin") {
			models = append(models, e.Name())
		}
	}
	sort.Strings(models)
	return models, nil
}
