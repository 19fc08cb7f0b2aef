package preproc

import "math"

// DCBlocker is a single-pole DC-blocking (high-pass) filter:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// with the pole R placed from the desired -3dB cutoff by the small-angle
// approximation R = 1 - 2*pi*fc/fs.
type DCBlocker struct {
	pole float64

	// filter state
	x1 float64
	y1 float64
}

// NewDCBlocker creates a DC blocker for the given sample rate and cutoff
// frequency in Hz. The pole is clamped into (0, 1).
func NewDCBlocker(sampleRate, cutoffFreq float64) *DCBlocker {
	pole := 0.995
	if sampleRate > 0 && cutoffFreq > 0 {
		pole = 1 - 2*math.Pi*cutoffFreq/sampleRate
		if pole >= 1 {
			pole = 0.999
		} else if pole <= 0 {
			pole = 0.001
		}
	}
	return &DCBlocker{pole: pole}
}

// Process filters a single sample.
func (d *DCBlocker) Process(input float64) float64 {
	output := input - d.x1 + d.pole*d.y1
	d.x1 = input
	d.y1 = output
	return output
}

// ProcessBuffer filters an entire buffer.
func (d *DCBlocker) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = d.Process(sample)
	}
	return output
}

// Reset clears the filter state. Call between discontinuous segments.
func (d *DCBlocker) Reset() {
	d.x1 = 0
	d.y1 = 0
}

// CutoffFrequency reports the approximate -3dB cutoff for a sample rate,
// the inverse of the design formula: fc = (1-R)*fs/(2*pi).
func (d *DCBlocker) CutoffFrequency(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return (1 - d.pole) * sampleRate / (2 * math.Pi)
}

// Pole returns the pole location R.
func (d *DCBlocker) Pole() float64 { return d.pole }
