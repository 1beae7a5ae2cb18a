// Package config provides the configuration schema and loader for the
// Scrivano transcription engine.
package config

// LogLevel controls log verbosity for the Scrivano process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// AudioSource selects where captured audio comes from.
type AudioSource string

const (
	// SourceMicrophone captures from the default input device via
	// PortAudio.
	SourceMicrophone AudioSource = "microphone"

	// SourceFile streams a raw PCM (s16le) file, mainly for development
	// and testing without a microphone.
	SourceFile AudioSource = "file"
)

// IsValid reports whether a is a recognised audio source.
func (a AudioSource) IsValid() bool {
	return a == SourceMicrophone || a == SourceFile
}

// Config is the root configuration structure for Scrivano.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Export  ExportConfig  `yaml:"export"`

	// Vocabulary lists domain terms (names, products, jargon) used to
	// correct finalized recognizer output.
	Vocabulary []string `yaml:"vocabulary"`
}

// ServerConfig holds logging and network settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address for the /metrics and /healthz
	// endpoints (e.g., ":9091"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`

	// FeedAddr is the TCP address for the live caption WebSocket feed
	// (e.g., ":8787"). Empty disables the feed.
	FeedAddr string `yaml:"feed_addr"`
}

// ModelConfig selects the recognition model.
type ModelConfig struct {
	// Path is the whisper.cpp GGML model file to load.
	Path string `yaml:"path"`

	// Dir is a directory of model files offered for selection. Used by
	// [ListModels]; Path may point inside or outside it.
	Dir string `yaml:"dir"`

	// Language is the ISO 639-1 hint passed to the recognizer.
	// Default: en.
	Language string `yaml:"language"`
}

// AudioConfig describes the capture pipeline.
type AudioConfig struct {
	// Source selects the capture backend. Default: microphone.
	Source AudioSource `yaml:"source"`

	// File is the raw PCM file to stream when Source is "file".
	File string `yaml:"file"`

	// SampleRate is the capture sample rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count. Default: 1.
	Channels int `yaml:"channels"`

	// FrameMs is the duration of one captured frame in milliseconds.
	// Default: 100.
	FrameMs int `yaml:"frame_ms"`
}

// SessionConfig tunes the session engine.
type SessionConfig struct {
	// QueueSize bounds the capture-to-recognition frame queue. When the
	// recognizer falls behind, capture blocks rather than dropping
	// frames. Default: 32.
	QueueSize int `yaml:"queue_size"`

	// PollMs is the UI event-poll interval in milliseconds. Default: 100.
	PollMs int `yaml:"poll_ms"`
}

// ExportConfig controls export persistence.
type ExportConfig struct {
	// ArchiveDSN is a PostgreSQL DSN for archiving export documents.
	// Empty disables archiving; file export always works.
	ArchiveDSN string `yaml:"archive_dsn"`
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Model.Language == "" {
		c.Model.Language = "en"
	}
	if c.Audio.Source == "" {
		c.Audio.Source = SourceMicrophone
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.FrameMs == 0 {
		c.Audio.FrameMs = 100
	}
	if c.Session.QueueSize == 0 {
		c.Session.QueueSize = 32
	}
	if c.Session.PollMs == 0 {
		c.Session.PollMs = 100
	}
}
