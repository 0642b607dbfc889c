package audio

import (
	"math"
	"math/bits"
	"math/cmplx"
)

// epsilon guards the dB conversions against log10(0) on digital silence.
const epsilon = 1e-10

// RMS returns the root-mean-square amplitude of the samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// RMSdB returns the RMS energy of the samples in decibels relative to full
// scale. Digital silence yields -200 dB.
func RMSdB(samples []float64) float64 {
	return 20 * math.Log10(RMS(samples)+epsilon)
}

// Spectrum holds the positive-frequency half of a chunk's magnitude spectrum
// in decibels.
type Spectrum struct {
	// MagnitudesDB is the magnitude of each positive-frequency bin,
	// converted to dB as 20·log10(|X| + ε).
	MagnitudesDB []float64

	// BinWidth is the frequency spacing between adjacent bins in Hz.
	BinWidth float64
}

// PeakInBand returns the maximum magnitude (dB) across bins whose centre
// frequency lies in [lowHz, highHz]. ok is false when no bin falls in the
// band, e.g. for a degenerate range or an empty spectrum.
func (s Spectrum) PeakInBand(lowHz, highHz float64) (peakDB float64, ok bool) {
	peakDB = math.Inf(-1)
	for i, mag := range s.MagnitudesDB {
		freq := float64(i) * s.BinWidth
		if freq < lowHz || freq > highHz {
			continue
		}
		ok = true
		if mag > peakDB {
			peakDB = mag
		}
	}
	return peakDB, ok
}

// ComputeSpectrum computes the exact N-point discrete Fourier transform of
// the samples and returns the positive-frequency magnitude spectrum in dB.
// Power-of-two lengths use the radix-2 transform; other lengths fall back to
// direct evaluation, which is fine at chunk sizes. No zero padding: padding
// would smear tonal energy across bins and inflate band peaks.
func ComputeSpectrum(samples []float64, sampleRate int) Spectrum {
	n := len(samples)
	if n == 0 {
		return Spectrum{}
	}
	buf := make([]complex128, n)
	for i, s := range samples {
		buf[i] = complex(s, 0)
	}
	if n&(n-1) == 0 {
		fft(buf)
	} else {
		buf = dft(buf)
	}

	half := n / 2
	db := make([]float64, half)
	for i := range half {
		db[i] = 20 * math.Log10(cmplx.Abs(buf[i])+epsilon)
	}
	return Spectrum{
		MagnitudesDB: db,
		BinWidth:     float64(sampleRate) / float64(n),
	}
}

// dft evaluates the transform directly for lengths the radix-2 path cannot
// handle. O(n²), acceptable for per-chunk sizes of a few hundred samples.
func dft(in []complex128) []complex128 {
	n := len(in)
	out := make([]complex128, n)
	for k := range n {
		var sum complex128
		for t, x := range in {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += x * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	return out
}

// fft performs an in-place iterative radix-2 Cooley-Tukey transform.
// len(buf) must be a power of two.
func fft(buf []complex128) {
	n := len(buf)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	shift := 64 - uint(bits.TrailingZeros(uint(n)))
	for i := range n {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := range half {
				w := cmplx.Exp(complex(0, step*float64(k)))
				even := buf[start+k]
				odd := w * buf[start+k+half]
				buf[start+k] = even + odd
				buf[start+k+half] = even - odd
			}
		}
	}
}
