package types

import "testing"

func TestSampleSequenceAt(t *testing.T) {
	s := SampleSequence{Samples: []float64{0.5, -0.25}, SampleRate: 8000}

	tests := []struct {
		name string
		i    int
		want float64
	}{
		{"first", 0, 0.5},
		{"last", 1, -0.25},
		{"past end pads with silence", 2, 0},
		{"negative index", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.At(tt.i); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    Quality
		wantErr bool
	}{
		{"", QualityAdaptive, false},
		{"low", QualityLow, false},
		{"lossless", QualityLossless, false},
		{"ultra", QualityAdaptive, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuality(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
