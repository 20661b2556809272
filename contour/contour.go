package contour

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/pitchdrop/cues"
)

// LeadInDepth is the share of the shift reached when the cue itself starts
const LeadInDepth = 0.3

// Params controls the shape of a pitch-drop contour. All values are seconds.
type Params struct {
	LeadIn     float64 `json:"lead_in" yaml:"lead_in"`
	TailOut    float64 `json:"tail_out" yaml:"tail_out"`
	SampleStep float64 `json:"sample_step" yaml:"sample_step"`
}

// DefaultParams returns a 300ms ease-in, a 400ms recovery and 5ms sampling
func DefaultParams() Params {
	return Params{
		LeadIn:     0.3,
		TailOut:    0.4,
		SampleStep: 0.005,
	}
}

// Validate checks that the parameters describe a walkable contour
func (p Params) Validate() error {
	if p.LeadIn < 0 || math.IsNaN(p.LeadIn) {
		return fmt.Errorf("lead-in must be non-negative: %v", p.LeadIn)
	}
	if p.TailOut < 0 || math.IsNaN(p.TailOut) {
		return fmt.Errorf("tail-out must be non-negative: %v", p.TailOut)
	}
	if p.SampleStep <= 0 || math.IsNaN(p.SampleStep) {
		return fmt.Errorf("sample step must be positive: %v", p.SampleStep)
	}
	return nil
}

// Point is one pitch control point handed to the resynthesis backend
type Point struct {
	Time      float64 `json:"time"`
	Frequency float64 `json:"frequency"`
}

// PitchLookup returns the original pitch at a time, or false where the
// signal is unvoiced or silent.
type PitchLookup func(t float64) (float64, bool)

// TargetFactor converts a semitone shift into a frequency multiplier
func TargetFactor(semitones int) float64 {
	return math.Pow(2, float64(semitones)/12)
}

// Region is the stretch of audio a cue affects: the cue widened by the
// lead-in and tail-out and clipped to the waveform.
type Region struct {
	Cue     cues.Cue
	Start   float64
	End     float64
	LeadIn  float64
	TailOut float64
}

// Region computes the region of effect for c in a waveform of the given
// duration. Pass math.Inf(1) when the duration is not bounded.
func (p Params) Region(c cues.Cue, duration float64) Region {
	return Region{
		Cue:     c,
		Start:   math.Max(0, c.Start-p.LeadIn),
		End:     math.Min(duration, c.End+p.TailOut),
		LeadIn:  p.LeadIn,
		TailOut: p.TailOut,
	}
}

// Depth is the fraction of the full shift applied at t: a sine ease-in to
// LeadInDepth before the cue, a linear slide to 1 across the cue, and a sine
// ease-out back to 0 after it.
func (r Region) Depth(t float64) float64 {
	c := r.Cue

	switch {
	case t < c.Start:
		p := progress(t-r.Start, r.LeadIn)
		return LeadInDepth * (1 - math.Cos(p*math.Pi/2))
	case t <= c.End:
		p := progress(t-c.Start, c.End-c.Start)
		return LeadInDepth + (1-LeadInDepth)*p
	default:
		p := progress(t-c.End, r.TailOut)
		return math.Cos(p * math.Pi / 2)
	}
}

// Factor is the pitch multiplier applied at t
func (r Region) Factor(t float64) float64 {
	return 1 + (TargetFactor(r.Cue.Semitones)-1)*r.Depth(t)
}

// progress returns elapsed/span clamped to [0, 1]; a zero span is complete
func progress(elapsed, span float64) float64 {
	if span <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, elapsed/span))
}

// Times lists the sample instants of the region: Start, Start+step, ... up to
// and including End when it lands on the grid within floating-point tolerance.
func (r Region) Times(step float64) []float64 {
	if step <= 0 || r.End < r.Start {
		return nil
	}

	const tolerance = 1e-9
	n := int(math.Floor((r.End-r.Start)/step+tolerance)) + 1

	out := make([]float64, 0, n)
	for i := range n {
		out = append(out, r.Start+float64(i)*step)
	}
	return out
}

// Build produces the control points for one cue. Instants where lookup
// reports no pitch are skipped entirely.
func (p Params) Build(c cues.Cue, duration float64, lookup PitchLookup) []Point {
	r := p.Region(c, duration)
	times := r.Times(p.SampleStep)

	points := make([]Point, 0, len(times))
	for _, t := range times {
		f0, ok := lookup(t)
		if !ok || f0 <= 0 || math.IsNaN(f0) {
			continue
		}
		points = append(points, Point{Time: t, Frequency: f0 * r.Factor(t)})
	}
	return points
}
