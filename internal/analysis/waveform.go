package analysis

import "github.com/austinkregel/local-media/audiod/internal/types"

// Waveform reduces seq to exactly points peak-to-peak values, one per block of
// len/points samples. The envelope is measured against zero, so a block that
// never crosses it reports its largest excursion. Trailing samples that do not
// fill a block are ignored; a sequence shorter than points yields all zeros.
func Waveform(seq types.SampleSequence, points int) []float64 {
	if points < 1 {
		return []float64{}
	}
	waveform := make([]float64, points)
	block := seq.Len() / points
	if block == 0 {
		return waveform
	}

	for i := range waveform {
		var max, min float64
		for _, s := range seq.Samples[i*block : (i+1)*block] {
			if s > max {
				max = s
			}
			if s < min {
				min = s
			}
		}
		waveform[i] = max - min
	}
	return waveform
}
