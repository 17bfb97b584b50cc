package audio

import (
	"errors"
	"testing"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

func seq(samples ...float64) types.SampleSequence {
	return types.SampleSequence{Samples: samples, SampleRate: 8000}
}

func TestMixIdenticalChannelsIsIdentity(t *testing.T) {
	ch := seq(0.25, -0.5, 0.125, 0.9, -0.9, 0.001)

	for _, q := range []types.Quality{types.QualityLow, types.QualityMedium, types.QualityHigh, types.QualityLossless} {
		t.Run(q.String(), func(t *testing.T) {
			mixed, err := Mix([]types.SampleSequence{ch, ch}, q)
			if err != nil {
				t.Fatalf("Mix failed: %v", err)
			}
			for i, v := range mixed.Samples {
				if v != ch.Samples[i] {
					t.Errorf("Sample %d: expected %v, got %v", i, ch.Samples[i], v)
				}
			}
			if mixed.SampleRate != ch.SampleRate {
				t.Errorf("Expected sample rate %d, got %d", ch.SampleRate, mixed.SampleRate)
			}
		})
	}

	t.Run("adaptive without quiet frames", func(t *testing.T) {
		square := seq(0.5, -0.5, 0.5, -0.5)
		mixed, err := Mix([]types.SampleSequence{square, square}, types.QualityAdaptive)
		if err != nil {
			t.Fatalf("Mix failed: %v", err)
		}
		for i, v := range mixed.Samples {
			if v != square.Samples[i] {
				t.Errorf("Sample %d: expected %v, got %v", i, square.Samples[i], v)
			}
		}
	})
}

func TestMixAveragingTiersAgree(t *testing.T) {
	left := seq(0.1, 0.2, -0.3, 0.4)
	right := seq(-0.1, 0.6, 0.3, 0.0)
	chans := []types.SampleSequence{left, right}

	ref, err := Mix(chans, types.QualityLow)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	want := []float64{0, 0.4, 0, 0.2}
	for i := range want {
		if diff := ref.Samples[i] - want[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], ref.Samples[i])
		}
	}

	for _, q := range []types.Quality{types.QualityMedium, types.QualityHigh, types.QualityLossless} {
		mixed, err := Mix(chans, q)
		if err != nil {
			t.Fatalf("Mix(%s) failed: %v", q, err)
		}
		for i := range ref.Samples {
			if mixed.Samples[i] != ref.Samples[i] {
				t.Errorf("%s sample %d: expected %v, got %v", q, i, ref.Samples[i], mixed.Samples[i])
			}
		}
	}
}

func TestMixAdaptiveAttenuatesQuietFrames(t *testing.T) {
	// Peak summed amplitude is 2.0, threshold 0.2
	left := seq(1.0, 0.05, 0.2, 0)
	right := seq(1.0, 0.05, 0.1, 0)

	mixed, err := Mix([]types.SampleSequence{left, right}, types.QualityAdaptive)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}

	want := []float64{1.0, 0.025, 0.15, 0}
	for i := range want {
		if diff := mixed.Samples[i] - want[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], mixed.Samples[i])
		}
	}
}

func TestMixErrors(t *testing.T) {
	if _, err := Mix(nil, types.QualityLow); !errors.Is(err, ErrNoChannels) {
		t.Errorf("Expected ErrNoChannels, got %v", err)
	}

	_, err := Mix([]types.SampleSequence{seq(0, 1), seq(0)}, types.QualityLow)
	if err == nil {
		t.Error("Expected error for mismatched channel lengths")
	}
}

func TestMixMoreThanTwoChannels(t *testing.T) {
	mixed, err := Mix([]types.SampleSequence{seq(0.3), seq(0.6), seq(0.9)}, types.QualityHigh)
	if err != nil {
		t.Fatalf("Mix failed: %v", err)
	}
	if diff := mixed.Samples[0] - 0.6; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("Expected 0.6, got %v", mixed.Samples[0])
	}
}
