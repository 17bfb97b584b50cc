package analysis

import "testing"

func spectrumWithPeak(n, bin int) []float64 {
	s := make([]float64, n)
	s[bin] = 10
	return s
}

func TestDetectKeyByBin(t *testing.T) {
	tests := []struct {
		bin  int
		want string
	}{
		{0, "C"},
		{1, "C#"},
		{9, "A"},
		{21, "A"},
		{20, "G#"},
		{12 * 7, "C"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := DetectKey(spectrumWithPeak(1024, tt.bin), KeyByBin, 44100, 2048)
			if got != tt.want {
				t.Errorf("bin %d: expected %s, got %s", tt.bin, tt.want, got)
			}
		})
	}
}

func TestDetectKeyFirstMaxWins(t *testing.T) {
	s := make([]float64, 64)
	s[5] = 3
	s[7] = 3
	if got := DetectKey(s, KeyByBin, 8000, 128); got != "F" {
		t.Errorf("Expected F from the first peak, got %s", got)
	}
}

func TestDetectKeyOf440Hz(t *testing.T) {
	p := DefaultParams()
	spectrum := Spectrum(sine(440, 0.5, 44100, 44100), p)

	if bin := peakBin(spectrum); bin != 20 {
		t.Fatalf("Expected 440 Hz to peak in bin 20, got %d", bin)
	}
	if got := DetectKey(spectrum, KeyByBin, 44100, p.SpectrumSize); got != "G#" {
		t.Errorf("Expected G# by bin, got %s", got)
	}
	if got := DetectKey(spectrum, KeyByPitch, 44100, p.SpectrumSize); got != "A" {
		t.Errorf("Expected A by pitch, got %s", got)
	}
}

func TestDetectKeySilence(t *testing.T) {
	for _, strategy := range []KeyStrategy{KeyByBin, KeyByPitch} {
		if got := DetectKey(make([]float64, 16), strategy, 8000, 32); got != "C" {
			t.Errorf("%s: expected C for silence, got %s", strategy, got)
		}
	}
}

func TestPitchClassOf(t *testing.T) {
	tests := []struct {
		freq float64
		want string
	}{
		{440, "A"},
		{261.63, "C"},
		{277.18, "C#"},
		{27.5, "A"},
		{4186.01, "C"},
		{466.16, "A#"},
	}

	for _, tt := range tests {
		if got := PitchClasses[pitchClassOf(tt.freq)]; got != tt.want {
			t.Errorf("%v Hz: expected %s, got %s", tt.freq, tt.want, got)
		}
	}
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name string
		bin  int
		want string
	}{
		{"major third", 4, ModeMajor},
		{"minor third", 3, ModeMinor},
		{"shared tonic counts major", 0, ModeMajor},
		{"shared fifth counts major", 19, ModeMajor},
		{"flat sixth", 8, ModeMinor},
		{"tritone counts neither", 6, ModeMinor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(spectrumWithPeak(64, tt.bin)); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	if got := DetectMode(make([]float64, 64)); got != ModeMinor {
		t.Errorf("Expected minor for silence, got %s", got)
	}
}
