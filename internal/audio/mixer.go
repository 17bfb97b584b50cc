package audio

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

const (
	// Frames quieter than this fraction of the loudest frame are attenuated
	adaptiveThresholdRatio = 0.1
	// Gain applied to quiet frames in adaptive mode
	adaptiveQuietGain = 0.5
)

// ErrNoChannels is returned when there is nothing to mix
var ErrNoChannels = errors.New("no channels to mix")

// Mix combines equal-length channels into one sequence according to the
// quality tier. low, medium, high and lossless currently all produce the plain
// channel average; adaptive additionally halves frames whose summed absolute
// amplitude does not exceed 10% of the loudest frame.
func Mix(channels []types.SampleSequence, q types.Quality) (types.SampleSequence, error) {
	if len(channels) == 0 {
		return types.SampleSequence{}, ErrNoChannels
	}
	n := channels[0].Len()
	for i, ch := range channels[1:] {
		if ch.Len() != n {
			return types.SampleSequence{}, fmt.Errorf("channel %d has %d samples, expected %d", i+1, ch.Len(), n)
		}
	}

	switch q {
	case types.QualityLow, types.QualityMedium, types.QualityHigh, types.QualityLossless:
		return average(channels), nil
	default:
		return adaptive(channels), nil
	}
}

// average returns the equal-weight mean of the channels per frame
func average(channels []types.SampleSequence) types.SampleSequence {
	n := channels[0].Len()
	out := make([]float64, n)
	count := float64(len(channels))
	for i := 0; i < n; i++ {
		var sum float64
		for _, ch := range channels {
			sum += ch.Samples[i]
		}
		out[i] = sum / count
	}
	return types.SampleSequence{Samples: out, SampleRate: channels[0].SampleRate}
}

func adaptive(channels []types.SampleSequence) types.SampleSequence {
	n := channels[0].Len()
	amplitude := make([]float64, n)
	for i := range amplitude {
		for _, ch := range channels {
			amplitude[i] += math.Abs(ch.Samples[i])
		}
	}

	var threshold float64
	if n > 0 {
		threshold = floats.Max(amplitude) * adaptiveThresholdRatio
	}

	mixed := average(channels)
	for i, a := range amplitude {
		if a <= threshold {
			mixed.Samples[i] *= adaptiveQuietGain
		}
	}
	return mixed
}
