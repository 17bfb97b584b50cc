// Package analysis derives descriptors and auxiliary representations from decoded audio.
//
// Key detection defaults to KeyByBin, which takes the index of the loudest
// spectrum bin mod 12 as the pitch class. That index is not a frequency: a
// 440 Hz tone at 44.1 kHz with a 2048-sample window peaks in bin 20 and
// reports "G#", not "A". Set KeyStrategy to KeyByPitch (config
// analysis.keyStrategy "pitch") to map the bin's centre frequency to the
// nearest equal-tempered pitch class instead.
package analysis

import (
	"fmt"
	"time"
)

const (
	// Spectrum window size (samples)
	DefaultSpectrumSize = 2048
	// Beat detection frame length
	DefaultBeatWindow = 100 * time.Millisecond
	// Mean-square energy above which a frame counts as an onset
	DefaultBeatThreshold = 0.1
	// Pitch tracking window and hop
	DefaultSegmentWindow = 500 * time.Millisecond
	DefaultSegmentHop    = 100 * time.Millisecond
	// Shortest autocorrelation lag considered (samples)
	DefaultMinPitchLag = 20
	// Waveform envelope resolution
	DefaultWaveformPoints = 1000
	// Tempo that maps to a full danceability tempo score
	DefaultTempoReference = 120.0
)

// KeyStrategy selects how the spectral peak is mapped to a pitch class
type KeyStrategy string

const (
	// KeyByBin maps the peak bin index mod 12 onto the pitch-class table
	KeyByBin KeyStrategy = "bin"
	// KeyByPitch maps the peak bin's centre frequency to the nearest pitch class
	KeyByPitch KeyStrategy = "pitch"
)

// Transform selects the spectrum implementation
type Transform string

const (
	TransformFFT    Transform = "fft"
	TransformDirect Transform = "direct"
)

// Params holds the tunables of the analysis pipeline
type Params struct {
	SpectrumSize   int
	BeatWindow     time.Duration
	BeatThreshold  float64
	SegmentWindow  time.Duration
	SegmentHop     time.Duration
	MinPitchLag    int
	WaveformPoints int
	TempoReference float64
	KeyStrategy    KeyStrategy
	Transform      Transform
}

// DefaultParams returns the reference analysis parameters
func DefaultParams() Params {
	return Params{
		SpectrumSize:   DefaultSpectrumSize,
		BeatWindow:     DefaultBeatWindow,
		BeatThreshold:  DefaultBeatThreshold,
		SegmentWindow:  DefaultSegmentWindow,
		SegmentHop:     DefaultSegmentHop,
		MinPitchLag:    DefaultMinPitchLag,
		WaveformPoints: DefaultWaveformPoints,
		TempoReference: DefaultTempoReference,
		KeyStrategy:    KeyByBin,
		Transform:      TransformFFT,
	}
}

// Validate checks that the parameters describe a usable pipeline
func (p Params) Validate() error {
	switch {
	case p.SpectrumSize < 2:
		return fmt.Errorf("spectrum size must be at least 2, got %d", p.SpectrumSize)
	case p.BeatWindow <= 0:
		return fmt.Errorf("beat window must be positive")
	case p.SegmentWindow <= 0 || p.SegmentHop <= 0:
		return fmt.Errorf("segment window and hop must be positive")
	case p.MinPitchLag < 1:
		return fmt.Errorf("minimum pitch lag must be at least 1, got %d", p.MinPitchLag)
	case p.WaveformPoints < 1:
		return fmt.Errorf("waveform points must be at least 1, got %d", p.WaveformPoints)
	case p.TempoReference <= 0:
		return fmt.Errorf("tempo reference must be positive")
	}
	switch p.KeyStrategy {
	case KeyByBin, KeyByPitch:
	default:
		return fmt.Errorf("unknown key strategy %q", p.KeyStrategy)
	}
	switch p.Transform {
	case TransformFFT, TransformDirect:
	default:
		return fmt.Errorf("unknown transform %q", p.Transform)
	}
	return nil
}

// framesFor converts a duration into a whole number of samples at rate
func framesFor(d time.Duration, rate int) int {
	return int(float64(rate) * d.Seconds())
}
