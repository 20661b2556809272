package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// YIN estimates the fundamental frequency of single frames using the
// cumulative mean normalized difference function.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
//
// The difference function is evaluated through an FFT cross-correlation so
// that a frame costs O(N log N) instead of O(N * maxLag).
type YIN struct {
	sampleRate int
	minLag     int
	maxLag     int
	threshold  float64
	fftSize    int
}

// NewYIN creates a detector for frequencies in [floor, ceiling] Hz
func NewYIN(sampleRate int, floor, ceiling, threshold float64) (*YIN, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if floor <= 0 || ceiling <= floor {
		return nil, fmt.Errorf("invalid pitch range [%v, %v]", floor, ceiling)
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("yin threshold must be in (0, 1): %v", threshold)
	}

	maxLag := int(math.Ceil(float64(sampleRate) / floor))
	minLag := int(math.Floor(float64(sampleRate) / ceiling))
	if minLag < 2 {
		minLag = 2
	}

	size := 1
	for size < 3*maxLag {
		size <<= 1
	}

	return &YIN{
		sampleRate: sampleRate,
		minLag:     minLag,
		maxLag:     maxLag,
		threshold:  threshold,
		fftSize:    size,
	}, nil
}

// FrameSize is the number of samples Estimate expects: an integration window
// of maxLag samples followed by maxLag samples of lookahead.
func (y *YIN) FrameSize() int {
	return 2 * y.maxLag
}

// Estimate returns the fundamental frequency of frame in Hz and the
// periodicity (1 - normalized difference at the chosen lag). A zero
// frequency means no period was found below the threshold.
func (y *YIN) Estimate(frame []float64) (float64, float64, error) {
	if len(frame) != y.FrameSize() {
		return 0, 0, fmt.Errorf("frame size (%d) doesn't match expected size (%d)", len(frame), y.FrameSize())
	}

	w := y.maxLag
	energy0 := floats.Dot(frame[:w], frame[:w])
	if energy0 <= 0 {
		return 0, 0, nil
	}

	diff := y.difference(frame, energy0)
	cmnd := cumulativeMeanNormalize(diff)

	tau := -1
	for t := y.minLag; t <= y.maxLag; t++ {
		if cmnd[t] < y.threshold {
			for t+1 <= y.maxLag && cmnd[t+1] < cmnd[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0, 0, nil
	}

	refined := parabolicPeak(cmnd, tau)
	if refined <= 0 {
		return 0, 0, nil
	}

	periodicity := 1 - cmnd[tau]
	return float64(y.sampleRate) / refined, math.Max(0, math.Min(1, periodicity)), nil
}

// difference computes d(tau) = sum_j (x_j - x_{j+tau})^2 over the integration
// window for tau in [0, maxLag].
func (y *YIN) difference(frame []float64, energy0 float64) []float64 {
	w := y.maxLag

	a := make([]float64, y.fftSize)
	b := make([]float64, y.fftSize)
	copy(a, frame[:w])
	copy(b, frame)

	fa := fft.FFTReal(a)
	fb := fft.FFTReal(b)
	for i := range fa {
		fa[i] = cmplx.Conj(fa[i]) * fb[i]
	}
	corr := fft.IFFT(fa)

	// Rescale so that the zero-lag term equals the directly measured energy;
	// this keeps the result independent of the inverse transform's scaling.
	scale := 1.0
	if c0 := real(corr[0]); c0 != 0 {
		scale = energy0 / c0
	}

	// prefix[i] = sum of squares of frame[:i]
	prefix := make([]float64, len(frame)+1)
	for i, v := range frame {
		prefix[i+1] = prefix[i] + v*v
	}

	diff := make([]float64, w+1)
	for tau := 0; tau <= w; tau++ {
		energyTau := prefix[tau+w] - prefix[tau]
		d := energy0 + energyTau - 2*real(corr[tau])*scale
		if d < 0 {
			d = 0
		}
		diff[tau] = d
	}
	return diff
}

func cumulativeMeanNormalize(diff []float64) []float64 {
	out := make([]float64, len(diff))
	out[0] = 1
	running := 0.0
	for tau := 1; tau < len(diff); tau++ {
		running += diff[tau]
		if running == 0 {
			out[tau] = 1
			continue
		}
		out[tau] = diff[tau] * float64(tau) / running
	}
	return out
}

// parabolicPeak refines the minimum at index i using its neighbours
func parabolicPeak(data []float64, i int) float64 {
	if i <= 0 || i >= len(data)-1 {
		return float64(i)
	}

	left, center, right := data[i-1], data[i], data[i+1]
	denom := left - 2*center + right
	if denom == 0 {
		return float64(i)
	}

	offset := 0.5 * (left - right) / denom
	if math.Abs(offset) > 1 {
		return float64(i)
	}
	return float64(i) + offset
}
