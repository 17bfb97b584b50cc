package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/austinkregel/local-media/audiod/internal/types"
)

// Spectrum computes the magnitude spectrum of the first size samples of seq
// using the transform selected in p. The result always has size/2 bins.
func Spectrum(seq types.SampleSequence, p Params) []float64 {
	if p.Transform == TransformDirect {
		return DirectSpectrum(seq, p.SpectrumSize)
	}
	return FFTSpectrum(seq, p.SpectrumSize)
}

// frame copies the first size samples of seq, zero-padding past the end
func frame(seq types.SampleSequence, size int) []float64 {
	out := make([]float64, size)
	for i := range out {
		out[i] = seq.At(i)
	}
	return out
}

// DirectSpectrum correlates the frame against a cosine/sine basis per bin.
// O(size²); kept as the reference the fast path is checked against.
func DirectSpectrum(seq types.SampleSequence, size int) []float64 {
	x := frame(seq, size)
	spectrum := make([]float64, size/2)

	for k := range spectrum {
		var re, im float64
		for j, v := range x {
			angle := -2 * math.Pi * float64(k) * float64(j) / float64(size)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		spectrum[k] = math.Sqrt(re*re + im*im)
	}
	return spectrum
}

// FFTSpectrum produces the same bins as DirectSpectrum using gonum's FFT
func FFTSpectrum(seq types.SampleSequence, size int) []float64 {
	x := frame(seq, size)
	coeffs := fourier.NewFFT(size).Coefficients(nil, x)

	spectrum := make([]float64, size/2)
	for k := range spectrum {
		spectrum[k] = cmplx.Abs(coeffs[k])
	}
	return spectrum
}

// binFrequency returns the centre frequency of bin k in Hz
func binFrequency(k, size, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(size)
}
