package analysis

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Segment slides a pitch-tracking window across seq and estimates the dominant
// periodicity of each window by unnormalized autocorrelation. Windows start
// every p.SegmentHop while a full window fits with at least one sample to spare.
// ctx is checked between windows.
func Segment(ctx context.Context, seq types.SampleSequence, p Params) ([]types.Segment, error) {
	segments := make([]types.Segment, 0)

	window := framesFor(p.SegmentWindow, seq.SampleRate)
	hop := framesFor(p.SegmentHop, seq.SampleRate)
	if window < 1 || hop < 1 {
		return segments, nil
	}

	rate := float64(seq.SampleRate)
	for start := 0; start < seq.Len()-window; start += hop {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seg := types.Segment{
			Start: float64(start) / rate,
			End:   float64(start+window) / rate,
		}
		if lag, confidence := trackPitch(seq.Samples[start:start+window], p.MinPitchLag); lag > 0 {
			seg.Pitch = rate / float64(lag)
			seg.Confidence = confidence
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// trackPitch returns the lag with the greatest positive autocorrelation and its
// confidence. The lag is 0 when nothing correlates positively.
func trackPitch(w []float64, minLag int) (int, float64) {
	n := len(w)
	var maxCorr float64
	bestLag := 0

	// Lags up to half the window; the last one is (n-1)/2 when n is odd
	for lag := minLag; 2*lag < n; lag++ {
		corr := floats.Dot(w[:n-lag], w[lag:])
		if corr > maxCorr {
			maxCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0, 0
	}
	return bestLag, math.Min(maxCorr/float64(n), 1)
}
