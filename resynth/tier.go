package resynth

import (
	"sort"

	"gonum.org/v1/gonum/interp"
)

// DefaultJoinGap is the largest spacing, in seconds, between added points that
// still belong to the same edited span.
const DefaultJoinGap = 0.05

// TierPoint is one (time, frequency) control point
type TierPoint struct {
	Time      float64 `json:"time"`
	Frequency float64 `json:"frequency"`
}

// PitchTier is the target pitch over time. It holds a base layer seeded from
// the analysed pulses and a layer of explicitly added points. Inside a span of
// added points (neighbours no more than JoinGap apart) only the added points
// are interpolated; elsewhere the base layer applies.
type PitchTier struct {
	JoinGap float64

	base  []TierPoint
	added []TierPoint

	dirty     bool
	baseCurve *interp.PiecewiseLinear
	spans     []tierSpan
}

type tierSpan struct {
	start, end float64
	value      float64
	curve      *interp.PiecewiseLinear
}

func (s tierSpan) at(t float64) float64 {
	if s.curve == nil {
		return s.value
	}
	return s.curve.Predict(t)
}

// NewPitchTier creates a tier over base points, which must be sorted by time
// with strictly increasing times.
func NewPitchTier(base []TierPoint) *PitchTier {
	return &PitchTier{
		JoinGap: DefaultJoinGap,
		base:    base,
		dirty:   true,
	}
}

// AddPoint sets the target frequency at t. A point already present at exactly
// t is replaced.
func (pt *PitchTier) AddPoint(t, hz float64) {
	i := sort.Search(len(pt.added), func(i int) bool { return pt.added[i].Time >= t })
	if i < len(pt.added) && pt.added[i].Time == t {
		pt.added[i].Frequency = hz
	} else {
		pt.added = append(pt.added, TierPoint{})
		copy(pt.added[i+1:], pt.added[i:])
		pt.added[i] = TierPoint{Time: t, Frequency: hz}
	}
	pt.dirty = true
}

// Added returns the explicitly added points in time order
func (pt *PitchTier) Added() []TierPoint {
	out := make([]TierPoint, len(pt.added))
	copy(out, pt.added)
	return out
}

// ValueAt returns the target frequency at t. It reports false only when the
// tier holds no points at all.
func (pt *PitchTier) ValueAt(t float64) (float64, bool) {
	if pt.dirty {
		pt.rebuild()
	}

	i := sort.Search(len(pt.spans), func(i int) bool { return pt.spans[i].end >= t })
	if i < len(pt.spans) && pt.spans[i].start <= t {
		return pt.spans[i].at(t), true
	}

	switch {
	case len(pt.base) == 0:
		return 0, false
	case pt.baseCurve == nil:
		return pt.base[0].Frequency, true
	default:
		return pt.baseCurve.Predict(t), true
	}
}

func (pt *PitchTier) rebuild() {
	pt.baseCurve = fitPoints(pt.base)

	gap := pt.JoinGap
	if gap <= 0 {
		gap = DefaultJoinGap
	}

	pt.spans = pt.spans[:0]
	for start := 0; start < len(pt.added); {
		end := start
		for end+1 < len(pt.added) && pt.added[end+1].Time-pt.added[end].Time <= gap {
			end++
		}

		points := pt.added[start : end+1]
		pt.spans = append(pt.spans, tierSpan{
			start: points[0].Time,
			end:   points[len(points)-1].Time,
			value: points[0].Frequency,
			curve: fitPoints(points),
		})
		start = end + 1
	}

	pt.dirty = false
}

// fitPoints fits a piecewise-linear curve, or returns nil for fewer than two points
func fitPoints(points []TierPoint) *interp.PiecewiseLinear {
	if len(points) < 2 {
		return nil
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = p.Frequency
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil
	}
	return &pl
}
