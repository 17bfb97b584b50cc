package analysis

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Frequency bands (Hz) used by the vocal descriptors
const (
	vocalFundamentalMin = 80.0
	vocalFundamentalMax = 300.0
	speechBandMin       = 300.0
	speechBandMax       = 3400.0
)

// ExtractFeatures computes the descriptor vector of one channel
func ExtractFeatures(seq types.SampleSequence, p Params) types.DescriptorVector {
	return Describe(seq, Spectrum(seq, p), DetectBeats(seq, p), p)
}

// Analyze computes the descriptor vector together with the waveform envelope,
// magnitude spectrum, beat onsets and pitch segments of one channel.
func Analyze(ctx context.Context, seq types.SampleSequence, p Params) (*types.AnalysisResult, error) {
	spectrum := Spectrum(seq, p)
	beats := DetectBeats(seq, p)

	segments, err := Segment(ctx, seq, p)
	if err != nil {
		return nil, err
	}

	return &types.AnalysisResult{
		Features: Describe(seq, spectrum, beats, p),
		Waveform: Waveform(seq, p.WaveformPoints),
		Spectrum: spectrum,
		Beats:    beats,
		Segments: segments,
	}, nil
}

// Describe combines the spectrum, onsets and raw sample statistics into the
// descriptor vector. "Spectral energy" throughout is the sum of bin magnitudes.
func Describe(seq types.SampleSequence, spectrum, beats []float64, p Params) types.DescriptorVector {
	tempo := Tempo(beats)
	energy := meanSquare(seq.Samples)

	n := len(spectrum)
	size := p.SpectrumSize
	rate := seq.SampleRate
	inBand := func(lo, hi float64) func(int) bool {
		return func(k int) bool {
			f := binFrequency(k, size, rate)
			return f >= lo && f <= hi
		}
	}

	var instrumentalness float64
	if total := floats.Sum(spectrum); total > 0 {
		instrumentalness = 1 - spectralShare(spectrum, inBand(vocalFundamentalMin, vocalFundamentalMax))
	}

	return types.DescriptorVector{
		Tempo:            tempo,
		Key:              DetectKey(spectrum, p.KeyStrategy, rate, size),
		Mode:             DetectMode(spectrum),
		Energy:           clamp01(energy),
		Danceability:     clamp01((math.Min(tempo/p.TempoReference, 1) + beatRegularity(beats)) / 2),
		Valence:          clamp01(spectralShare(spectrum, func(k int) bool { return k > n/2 })),
		Acousticness:     clamp01(spectralShare(spectrum, func(k int) bool { return k < n/4 })),
		Instrumentalness: clamp01(instrumentalness),
		Liveness:         clamp01(math.Min((energy+popVariance(seq.Samples))/2, 1)),
		Speechiness:      clamp01(spectralShare(spectrum, inBand(speechBandMin, speechBandMax))),
	}
}

// spectralShare returns the fraction of total magnitude in the selected bins,
// or 0 when the spectrum is silent.
func spectralShare(spectrum []float64, include func(k int) bool) float64 {
	var part, total float64
	for k, mag := range spectrum {
		total += mag
		if include(k) {
			part += mag
		}
	}
	if total <= 0 {
		return 0
	}
	return part / total
}

func meanSquare(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Dot(x, x) / float64(len(x))
}

func popVariance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopVariance(x, nil)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
