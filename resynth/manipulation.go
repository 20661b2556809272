package resynth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/pitchdrop/algorithms/pitch"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// ErrUnsupportedWaveform is returned for audio this backend cannot process
var ErrUnsupportedWaveform = errors.New("unsupported waveform")

// Manipulation holds a sound together with its pitch analysis, glottal pulse
// marks and an editable pitch tier. Resynthesize renders the sound with the
// tier's pitch using time-domain PSOLA.
type Manipulation struct {
	source *Sound
	track  *pitch.Track
	pulses [][]float64
	tier   *PitchTier

	windows map[int][]float64
}

// NewManipulation analyses s and seeds the pitch tier with its original pitch
func NewManipulation(s *Sound, cfg pitch.TrackConfig) (*Manipulation, error) {
	if s == nil || len(s.Samples) == 0 || s.SampleRate <= 0 {
		return nil, ErrUnsupportedWaveform
	}

	track, err := pitch.Analyze(s.Samples, s.SampleRate, cfg)
	if err != nil {
		return nil, fmt.Errorf("pitch analysis failed: %w", err)
	}

	pulses := Pulses(s, track)

	var base []TierPoint
	for _, marks := range pulses {
		for k := 0; k+1 < len(marks); k++ {
			base = append(base, TierPoint{
				Time:      (marks[k] + marks[k+1]) / 2,
				Frequency: 1 / (marks[k+1] - marks[k]),
			})
		}
	}

	logging.WithFields(logging.Fields{
		"component": "psola",
		"function":  "NewManipulation",
	}).Debug("Manipulation prepared", logging.Fields{
		"duration":  s.Duration(),
		"stretches": len(pulses),
		"mean_f0":   math.Round(track.MeanFrequency()),
	})

	return &Manipulation{
		source:  s,
		track:   track,
		pulses:  pulses,
		tier:    NewPitchTier(base),
		windows: make(map[int][]float64),
	}, nil
}

// Source returns the analysed sound
func (m *Manipulation) Source() *Sound { return m.source }

// Track returns the pitch analysis
func (m *Manipulation) Track() *pitch.Track { return m.track }

// Tier returns the editable pitch tier
func (m *Manipulation) Tier() *PitchTier { return m.tier }

// PitchAt returns the original pitch at t
func (m *Manipulation) PitchAt(t float64) (float64, bool) {
	return m.track.ValueAt(t)
}

// AddPoint sets the target pitch at t
func (m *Manipulation) AddPoint(t, hz float64) {
	m.tier.AddPoint(t, hz)
}

// Resynthesize renders the source with the tier's pitch. Unvoiced audio is
// copied unchanged. The output is scaled down if it would clip.
func (m *Manipulation) Resynthesize(ctx context.Context) (*Sound, error) {
	out := m.source.Clone()

	for _, marks := range m.pulses {
		if err := m.overlapAdd(ctx, out.Samples, marks); err != nil {
			return nil, err
		}
	}

	if len(out.Samples) > 0 {
		peak := math.Max(floats.Max(out.Samples), -floats.Min(out.Samples))
		if peak > 1 {
			floats.Scale(1/peak, out.Samples)
		}
	}

	return out, nil
}

// overlapAdd rebuilds one voiced stretch. Target marks are spaced by the
// tier's period, never closer than one sample; each receives a two-period Hann
// grain cut around the nearest source mark. Cancellation is checked per grain.
func (m *Manipulation) overlapAdd(ctx context.Context, out []float64, marks []float64) error {
	src := m.source.Samples
	sr := float64(m.source.SampleRate)
	n := len(marks)

	period := func(k int) float64 {
		switch {
		case n == 1:
			if f0, ok := m.track.ValueAt(marks[0]); ok {
				return 1 / f0
			}
			return 0.01
		case k == 0:
			return marks[1] - marks[0]
		case k == n-1:
			return marks[n-1] - marks[n-2]
		default:
			return (marks[k+1] - marks[k-1]) / 2
		}
	}

	from := max(0, int(math.Round((marks[0]-period(0))*sr)))
	to := min(len(out), int(math.Round((marks[n-1]+period(n-1))*sr)))
	for i := from; i < to; i++ {
		out[i] = 0
	}

	minStep := 1 / sr
	k := 0
	for tau := marks[0]; tau <= marks[n-1]+1e-9; {
		if err := ctx.Err(); err != nil {
			return err
		}

		for k+1 < n && math.Abs(marks[k+1]-tau) < math.Abs(marks[k]-tau) {
			k++
		}

		p := period(k)
		m.addGrain(out, src, int(math.Round(marks[k]*sr)), int(math.Round(tau*sr)), int(math.Round(p*sr)))

		step := p
		if f, ok := m.tier.ValueAt(tau); ok && f > 0 {
			step = 1 / f
		}
		tau += max(step, minStep)
	}
	return nil
}

func (m *Manipulation) addGrain(out, src []float64, srcCenter, dstCenter, half int) {
	if half < 1 {
		return
	}

	win, ok := m.windows[half]
	if !ok {
		win = window.Hann(2*half + 1)
		m.windows[half] = win
	}

	for i := -half; i <= half; i++ {
		s, d := srcCenter+i, dstCenter+i
		if s < 0 || s >= len(src) || d < 0 || d >= len(out) {
			continue
		}
		out[d] += src[s] * win[i+half]
	}
}
