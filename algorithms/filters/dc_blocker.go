// Package filters holds the signal conditioning applied before pitch analysis.
package filters

import "math"

// DefaultDCCutoff is the -3 dB point used ahead of pitch tracking. It sits
// well below the lowest speech F0.
const DefaultDCCutoff = 20.0

// DCBlocker is a one-pole high-pass filter removing the 0 Hz component:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// See Julius O. Smith III, "Introduction to Digital Filters", DC Blocker.
type DCBlocker struct {
	pole float64
	x1   float64
	y1   float64
}

// NewDCBlocker creates a blocker with the given cutoff. The pole is
// R = 1 - 2*pi*fc/fs, clamped to (0, 1).
func NewDCBlocker(sampleRate int, cutoff float64) *DCBlocker {
	pole := 0.995
	if sampleRate > 0 && cutoff > 0 {
		pole = 1 - 2*math.Pi*cutoff/float64(sampleRate)
	}
	pole = math.Min(math.Max(pole, 0.001), 0.999)
	return &DCBlocker{pole: pole}
}

// Pole returns R
func (d *DCBlocker) Pole() float64 {
	return d.pole
}

// Cutoff returns the approximate -3 dB frequency for sampleRate
func (d *DCBlocker) Cutoff(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return (1 - d.pole) * float64(sampleRate) / (2 * math.Pi)
}

// Process filters one sample
func (d *DCBlocker) Process(x float64) float64 {
	y := x - d.x1 + d.pole*d.y1
	d.x1, d.y1 = x, y
	return y
}

// Apply filters a whole buffer into a new slice
func (d *DCBlocker) Apply(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = d.Process(x)
	}
	return out
}

// Reset clears the filter state between discontinuous segments
func (d *DCBlocker) Reset() {
	d.x1, d.y1 = 0, 0
}
