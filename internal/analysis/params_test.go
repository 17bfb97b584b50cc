package analysis

import (
	"testing"
	"time"
)

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"tiny spectrum", func(p *Params) { p.SpectrumSize = 1 }},
		{"zero beat window", func(p *Params) { p.BeatWindow = 0 }},
		{"negative hop", func(p *Params) { p.SegmentHop = -time.Millisecond }},
		{"zero min lag", func(p *Params) { p.MinPitchLag = 0 }},
		{"no waveform points", func(p *Params) { p.WaveformPoints = 0 }},
		{"zero tempo reference", func(p *Params) { p.TempoReference = 0 }},
		{"unknown key strategy", func(p *Params) { p.KeyStrategy = "chroma" }},
		{"unknown transform", func(p *Params) { p.Transform = "wavelet" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestFramesFor(t *testing.T) {
	if got := framesFor(100*time.Millisecond, 44100); got != 4410 {
		t.Errorf("Expected 4410, got %d", got)
	}
	if got := framesFor(500*time.Millisecond, 8000); got != 4000 {
		t.Errorf("Expected 4000, got %d", got)
	}
}
