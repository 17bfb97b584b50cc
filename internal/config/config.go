// Package config handles daemon configuration file management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/austinkregel/local-media/audiod/internal/analysis"
)

// Config represents the daemon configuration
type Config struct {
	// LibraryPaths are the directories audioRef file paths may point into
	LibraryPaths []string `json:"libraryPaths"`

	Engine    EngineConfig    `json:"engine"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Decoder   DecoderConfig   `json:"decoder"`
	Source    SourceConfig    `json:"source"`
	Transport TransportConfig `json:"transport"`
}

// EngineConfig contains worker pool settings
type EngineConfig struct {
	// Workers is the number of engine instances (0 = NumCPU - 1)
	Workers int `json:"workers"`

	// QueueSize is how many requests may wait for a worker (0 = 4 per worker)
	QueueSize int `json:"queueSize"`

	// RequestTimeoutMs bounds one request end to end (0 = no limit)
	RequestTimeoutMs int `json:"requestTimeoutMs"`

	// MaxRequestBytes bounds one encoded request line
	MaxRequestBytes int `json:"maxRequestBytes"`
}

// AnalysisConfig contains the analysis pipeline tunables
type AnalysisConfig struct {
	SpectrumSize      int     `json:"spectrumSize"`
	BeatWindowMs      int     `json:"beatWindowMs"`
	BeatThreshold     float64 `json:"beatThreshold"`
	SegmentWindowMs   int     `json:"segmentWindowMs"`
	SegmentHopMs      int     `json:"segmentHopMs"`
	MinPitchLag       int     `json:"minPitchLag"`
	WaveformPoints    int     `json:"waveformPoints"`
	TempoReferenceBpm float64 `json:"tempoReferenceBpm"`

	// KeyStrategy is "bin" (peak bin mod 12) or "pitch" (nearest pitch class)
	KeyStrategy string `json:"keyStrategy"`

	// Transform is "fft" or "direct"
	Transform string `json:"transform"`
}

// DecoderConfig contains decoding settings
type DecoderConfig struct {
	// FFmpegFallback decodes containers other than WAV/MP3 with ffmpeg
	FFmpegFallback bool `json:"ffmpegFallback"`

	// SampleRate requested from ffmpeg (default: 44100)
	SampleRate int `json:"sampleRate"`
}

// SourceConfig contains audioRef resolution settings
type SourceConfig struct {
	// HTTPTimeoutMs bounds one remote fetch
	HTTPTimeoutMs int `json:"httpTimeoutMs"`

	// MaxFetchBytes bounds the size of a resolved file or download
	MaxFetchBytes int64 `json:"maxFetchBytes"`

	// AllowRemote enables http(s) audioRefs
	AllowRemote bool `json:"allowRemote"`
}

// TransportConfig selects the transports the daemon exposes
type TransportConfig struct {
	// DBus exports the engine on the session bus (Linux only)
	DBus bool `json:"dbus"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	defaults := analysis.DefaultParams()
	return &Config{
		LibraryPaths: []string{},
		Engine: EngineConfig{
			Workers:          0,
			QueueSize:        0,
			RequestTimeoutMs: 60000,
			MaxRequestBytes:  64 << 20,
		},
		Analysis: AnalysisConfig{
			SpectrumSize:      defaults.SpectrumSize,
			BeatWindowMs:      int(defaults.BeatWindow / time.Millisecond),
			BeatThreshold:     defaults.BeatThreshold,
			SegmentWindowMs:   int(defaults.SegmentWindow / time.Millisecond),
			SegmentHopMs:      int(defaults.SegmentHop / time.Millisecond),
			MinPitchLag:       defaults.MinPitchLag,
			WaveformPoints:    defaults.WaveformPoints,
			TempoReferenceBpm: defaults.TempoReference,
			KeyStrategy:       string(defaults.KeyStrategy),
			Transform:         string(defaults.Transform),
		},
		Decoder: DecoderConfig{
			FFmpegFallback: true,
			SampleRate:     44100,
		},
		Source: SourceConfig{
			HTTPTimeoutMs: 30000,
			MaxFetchBytes: 512 << 20,
			AllowRemote:   false,
		},
		Transport: TransportConfig{
			DBus: true,
		},
	}
}

// Params converts the analysis section into pipeline parameters
func (c *Config) Params() analysis.Params {
	a := c.Analysis
	return analysis.Params{
		SpectrumSize:   a.SpectrumSize,
		BeatWindow:     time.Duration(a.BeatWindowMs) * time.Millisecond,
		BeatThreshold:  a.BeatThreshold,
		SegmentWindow:  time.Duration(a.SegmentWindowMs) * time.Millisecond,
		SegmentHop:     time.Duration(a.SegmentHopMs) * time.Millisecond,
		MinPitchLag:    a.MinPitchLag,
		WaveformPoints: a.WaveformPoints,
		TempoReference: a.TempoReferenceBpm,
		KeyStrategy:    analysis.KeyStrategy(a.KeyStrategy),
		Transform:      analysis.Transform(a.Transform),
	}
}

// RequestTimeout returns the per-request deadline (0 = none)
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Engine.RequestTimeoutMs) * time.Millisecond
}

// HTTPTimeout returns the remote fetch timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Source.HTTPTimeoutMs) * time.Millisecond
}

// Validate rejects settings the daemon cannot run with
func (c *Config) Validate() error {
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative")
	}
	if c.Engine.QueueSize < 0 {
		return fmt.Errorf("engine.queueSize must not be negative")
	}
	if c.Engine.RequestTimeoutMs < 0 {
		return fmt.Errorf("engine.requestTimeoutMs must not be negative")
	}
	if c.Engine.MaxRequestBytes < 0 {
		return fmt.Errorf("engine.maxRequestBytes must not be negative")
	}
	if c.Decoder.SampleRate < 0 {
		return fmt.Errorf("decoder.sampleRate must not be negative")
	}
	if c.Source.HTTPTimeoutMs < 0 || c.Source.MaxFetchBytes < 0 {
		return fmt.Errorf("source limits must not be negative")
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// Manager handles loading and saving configuration
type Manager struct {
	configDir  string
	configPath string
	config     *Config
}

// NewManager creates a new configuration manager
func NewManager(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configPath: filepath.Join(configDir, "config.json"),
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk, writing the defaults on first run
func (m *Manager) Load() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// AddLibraryPath adds a library path
func (m *Manager) AddLibraryPath(path string) error {
	for _, p := range m.config.LibraryPaths {
		if p == path {
			return nil // Already exists
		}
	}

	m.config.LibraryPaths = append(m.config.LibraryPaths, path)
	return m.Save()
}

// RemoveLibraryPath removes a library path
func (m *Manager) RemoveLibraryPath(path string) error {
	paths := make([]string, 0, len(m.config.LibraryPaths))
	for _, p := range m.config.LibraryPaths {
		if p != path {
			paths = append(paths, p)
		}
	}
	m.config.LibraryPaths = paths
	return m.Save()
}
