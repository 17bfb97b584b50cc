package analysis

import "math"

// PitchClasses in the fixed order used for key mapping
var PitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	ModeMajor = "major"
	ModeMinor = "minor"
)

// Interval sets the mode heuristic compares. Classes present in both only
// count toward major. This is a coarse heuristic and downstream consumers rely
// on its output distribution; do not change the sets without versioning it.
var (
	majorIntervals = [12]bool{0: true, 2: true, 4: true, 5: true, 7: true, 9: true, 11: true}
	minorIntervals = [12]bool{0: true, 2: true, 3: true, 5: true, 7: true, 8: true, 10: true}
)

// peakBin returns the first bin holding the maximum magnitude (0 for silence)
func peakBin(spectrum []float64) int {
	best := 0
	var max float64
	for i, mag := range spectrum {
		if mag > max {
			max = mag
			best = i
		}
	}
	return best
}

// DetectKey maps the spectral peak onto one of the twelve pitch classes.
// sampleRate and size are only consulted by KeyByPitch.
func DetectKey(spectrum []float64, strategy KeyStrategy, sampleRate, size int) string {
	bin := peakBin(spectrum)
	if strategy == KeyByPitch && bin > 0 {
		return PitchClasses[pitchClassOf(binFrequency(bin, size, sampleRate))]
	}
	return PitchClasses[bin%12]
}

// pitchClassOf returns the nearest equal-tempered pitch class (C=0) for freq
func pitchClassOf(freq float64) int {
	midi := 69 + 12*math.Log2(freq/440)
	pc := int(math.Round(midi)) % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

// DetectMode compares magnitude at major-scale and minor-scale bin classes.
// Ties, including silence, report minor.
func DetectMode(spectrum []float64) string {
	var major, minor float64
	for i, mag := range spectrum {
		note := i % 12
		if majorIntervals[note] {
			major += mag
		} else if minorIntervals[note] {
			minor += mag
		}
	}
	if major > minor {
		return ModeMajor
	}
	return ModeMinor
}
