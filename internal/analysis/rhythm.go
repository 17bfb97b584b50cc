package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

// DetectBeats returns onset times in seconds. The channel is cut into
// back-to-back frames of p.BeatWindow; a frame whose mean-square energy exceeds
// p.BeatThreshold contributes its start time. The trailing partial frame (and a
// final frame ending exactly at the last sample) is not examined.
func DetectBeats(seq types.SampleSequence, p Params) []float64 {
	beats := make([]float64, 0)

	window := framesFor(p.BeatWindow, seq.SampleRate)
	if window < 1 {
		return beats
	}

	for start := 0; start < seq.Len()-window; start += window {
		chunk := seq.Samples[start : start+window]
		energy := floats.Dot(chunk, chunk) / float64(window)
		if energy > p.BeatThreshold {
			beats = append(beats, float64(start)/float64(seq.SampleRate))
		}
	}
	return beats
}

// intervals returns the differences between consecutive onsets
func intervals(beats []float64) []float64 {
	if len(beats) < 2 {
		return nil
	}
	out := make([]float64, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		out[i-1] = beats[i] - beats[i-1]
	}
	return out
}

// Tempo returns 60 / mean inter-onset interval, or 0 with fewer than two onsets
func Tempo(beats []float64) float64 {
	iv := intervals(beats)
	if len(iv) == 0 {
		return 0
	}
	mean := stat.Mean(iv, nil)
	if mean <= 0 {
		return 0
	}
	return 60 / mean
}

// beatRegularity scores steady onsets near 1. It needs at least two intervals.
func beatRegularity(beats []float64) float64 {
	if len(beats) <= 2 {
		return 0
	}
	return 1 / (1 + stat.PopVariance(intervals(beats), nil))
}
