package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mverran/scrivano/internal/config"
)

const validYAML = `
server:
  log_level: debug
  metrics_addr: ":9091"
  feed_addr: ":8787"
model:
  path: models/ggml-base.en.bin
  dir: models
  language: en
audio:
  source: file
  file: testdata/sample.pcm
  sample_rate: 16000
  channels: 1
  frame_ms: 100
session:
  queue_size: 64
  poll_ms: 50
export:
  archive_dsn: postgres://localhost/scrivano
vocabulary:
  - Kubernetes
  - Grafana
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Model.Path != "models/ggml-base.en.bin" {
		t.Errorf("model.path = %q", cfg.Model.Path)
	}
	if cfg.Audio.Source != config.SourceFile || cfg.Audio.File != "testdata/sample.pcm" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Session.QueueSize != 64 || cfg.Session.PollMs != 50 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if len(cfg.Vocabulary) != 2 || cfg.Vocabulary[0] != "Kubernetes" {
		t.Errorf("vocabulary = %v", cfg.Vocabulary)
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("model:\n  path: m.bin\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("default log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Audio.Source != config.SourceMicrophone {
		t.Errorf("default audio.source = %q, want microphone", cfg.Audio.Source)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.FrameMs != 100 {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Session.QueueSize != 32 || cfg.Session.PollMs != 100 {
		t.Errorf("session defaults = %+v", cfg.Session)
	}
	if cfg.Model.Language != "en" {
		t.Errorf("default language = %q", cfg.Model.Language)
	}
}

func TestLoadFromReader_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("model:\n  path: m.bin\n  pathh: typo.bin\n"))
	if err == nil {
		t.Fatal("unknown key accepted")
	}
}

func TestLoadFromReader_ValidationFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing model path", "server:\n  log_level: info\n", "model.path is required"},
		{"bad log level", "server:\n  log_level: loud\nmodel:\n  path: m.bin\n", "log_level"},
		{"file source without file", "model:\n  path: m.bin\naudio:\n  source: file\n", "audio.file is required"},
		{"bad source", "model:\n  path: m.bin\naudio:\n  source: tape\n", "audio.source"},
		{"bad channels", "model:\n  path: m.bin\naudio:\n  channels: 6\n", "audio.channels"},
		{"bad frame duration", "model:\n  path: m.bin\naudio:\n  frame_ms: 5000\n", "audio.frame_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("config accepted")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"ggml-base.en.bin", "ggml-small.bin", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	models, err := config.ListModels(dir)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "ggml-base.en.bin" || models[1] != "ggml-small.bin" {
		t.Errorf("ListModels = %v", models)
	}
}

func TestListModels_MissingDirectory(t *testing.T) {
	t.Parallel()

	models, err := config.ListModels(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("ListModels = %v, want empty", models)
	}
}
