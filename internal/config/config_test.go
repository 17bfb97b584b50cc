package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/austinkregel/local-media/audiod/internal/analysis"
)

func TestDefaultConfigMatchesAnalysisDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
	if got, want := cfg.Params(), analysis.DefaultParams(); got != want {
		t.Errorf("Expected params %+v, got %+v", want, got)
	}
	if cfg.RequestTimeout() != time.Minute {
		t.Errorf("Expected 1m request timeout, got %v", cfg.RequestTimeout())
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audiod")
	m := NewManager(dir)

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	info, err := os.Stat(m.GetPath())
	if err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	data := `{"analysis":{"keyStrategy":"pitch","spectrumSize":4096},"engine":{"workers":3}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := NewManager(dir)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Engine.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Engine.Workers)
	}
	p := cfg.Params()
	if p.KeyStrategy != analysis.KeyByPitch || p.SpectrumSize != 4096 {
		t.Errorf("Expected overridden analysis params, got %+v", p)
	}
	// Untouched keys keep their defaults
	if p.BeatWindow != analysis.DefaultBeatWindow || p.Transform != analysis.TransformFFT {
		t.Errorf("Expected defaults for unspecified keys, got %+v", p)
	}
	if !cfg.Decoder.FFmpegFallback {
		t.Error("Expected decoder defaults kept")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"engine":`},
		{"negative workers", `{"engine":{"workers":-1}}`},
		{"bad key strategy", `{"analysis":{"keyStrategy":"chroma"}}`},
		{"zero waveform", `{"analysis":{"waveformPoints":0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(tt.data), 0600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if err := NewManager(dir).Load(); err == nil {
				t.Error("Expected Load to fail")
			}
		})
	}
}

func TestLibraryPaths(t *testing.T) {
	m := NewManager(t.TempDir())

	if err := m.AddLibraryPath("/music"); err != nil {
		t.Fatalf("AddLibraryPath failed: %v", err)
	}
	if err := m.AddLibraryPath("/music"); err != nil {
		t.Fatalf("AddLibraryPath failed: %v", err)
	}
	if err := m.AddLibraryPath("/podcasts"); err != nil {
		t.Fatalf("AddLibraryPath failed: %v", err)
	}
	if len(m.Get().LibraryPaths) != 2 {
		t.Errorf("Expected 2 library paths, got %v", m.Get().LibraryPaths)
	}

	if err := m.RemoveLibraryPath("/music"); err != nil {
		t.Fatalf("RemoveLibraryPath failed: %v", err)
	}

	reloaded := NewManager(filepath.Dir(m.GetPath()))
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if paths := reloaded.Get().LibraryPaths; len(paths) != 1 || paths[0] != "/podcasts" {
		t.Errorf("Expected [/podcasts] persisted, got %v", paths)
	}
}
