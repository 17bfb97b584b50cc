// Package types provides shared type definitions used across the audiod daemon.
package types

import "fmt"

// SampleSequence is one channel of decoded audio.
// Samples are normalized to [-1, 1]. A sequence is never modified after decoding.
type SampleSequence struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples
func (s SampleSequence) Len() int {
	return len(s.Samples)
}

// At returns the sample at i, or 0 (silence) when i is out of range
func (s SampleSequence) At(i int) float64 {
	if i < 0 || i >= len(s.Samples) {
		return 0
	}
	return s.Samples[i]
}

// Duration returns the length of the sequence in seconds
func (s SampleSequence) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// DecodedAudio is the output of the decoder: at least two equal-length channels
// sharing one sample rate.
type DecodedAudio struct {
	Channels   []SampleSequence
	SampleRate int
}

// Left returns the first channel
func (d *DecodedAudio) Left() SampleSequence {
	if len(d.Channels) == 0 {
		return SampleSequence{SampleRate: d.SampleRate}
	}
	return d.Channels[0]
}

// DescriptorVector is the ten-field perceptual summary of a track
type DescriptorVector struct {
	Tempo            float64 `json:"tempo"`
	Key              string  `json:"key"`
	Mode             string  `json:"mode"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
}

// Segment is one pitch-tracking window
type Segment struct {
	Start      float64 `json:"start"`      // seconds
	End        float64 `json:"end"`        // seconds
	Confidence float64 `json:"confidence"` // 0-1
	Pitch      float64 `json:"pitch"`      // Hz, 0 when unvoiced
}

// AnalysisResult is the full analysis of one track
type AnalysisResult struct {
	Features DescriptorVector `json:"features"`
	Waveform []float64        `json:"waveform"`
	Spectrum []float64        `json:"spectrum"`
	Beats    []float64        `json:"beats"`
	Segments []Segment        `json:"segments"`
}

// ProcessedAudio is the result of quality-adaptive mixing
type ProcessedAudio struct {
	TrackID    string    `json:"trackId,omitempty"`
	Samples    []float64 `json:"processedSamples"`
	SampleRate int       `json:"sampleRate"`
	Duration   float64   `json:"duration"` // seconds
}

// Quality selects how channels are combined by the mixer
type Quality int

const (
	QualityAdaptive Quality = iota
	QualityLow
	QualityMedium
	QualityHigh
	QualityLossless
)

// String returns the wire name of the quality tier
func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityLossless:
		return "lossless"
	default:
		return "adaptive"
	}
}

// ParseQuality parses a wire quality name. An empty string selects adaptive.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "", "adaptive":
		return QualityAdaptive, nil
	case "low":
		return QualityLow, nil
	case "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	case "lossless":
		return QualityLossless, nil
	default:
		return QualityAdaptive, fmt.Errorf("unknown quality %q", s)
	}
}
