package contour

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoWaveform is returned when the input audio cannot be loaded or is empty
var ErrNoWaveform = errors.New("no waveform to manipulate")

// Waveform is loaded audio as seen by the contour synthesizer
type Waveform interface {
	Duration() float64
}

// Manipulation couples a waveform with its analysed pitch and an editable
// pitch tier.
type Manipulation interface {
	// PitchAt returns the original pitch at t, or false when unvoiced
	PitchAt(t float64) (float64, bool)
	// AddPoint sets the target pitch at t. A point at an identical time
	// replaces the earlier one.
	AddPoint(t, hz float64)
	Resynthesize(ctx context.Context) (Waveform, error)
}

// Backend is the signal-processing engine that performs analysis and
// pitch-synchronous resynthesis.
type Backend interface {
	Load(ctx context.Context, path string) (Waveform, error)
	Manipulate(w Waveform) (Manipulation, error)
	Export(w Waveform, path string) error
}

// Stats summarises one contour run
type Stats struct {
	Cues   int `json:"cues"`
	Points int `json:"points"`
}

// AddCues writes the control points for every cue into m and returns how many
// points were added. Cues are processed in order; when regions overlap the
// later cue's points replace the earlier cue's at identical instants.
func AddCues(m Manipulation, duration float64, cs []cues.Cue, p Params) int {
	total := 0
	for _, c := range cs {
		points := p.Build(c, duration, m.PitchAt)
		for _, pt := range points {
			m.AddPoint(pt.Time, pt.Frequency)
		}
		total += len(points)
	}
	return total
}

// Apply loads input, shapes its pitch around each cue and exports the
// resynthesized audio to output. With no cues the waveform is exported
// unchanged.
func Apply(ctx context.Context, b Backend, input, output string, cs []cues.Cue, p Params) (Stats, error) {
	ctx, span := tracer.Start(ctx, "contour.Apply")
	defer span.End()

	logger := logging.WithFields(logging.Fields{
		"component": "contour",
		"function":  "Apply",
		"input":     input,
	})

	stats := Stats{Cues: len(cs)}
	span.SetAttributes(attribute.Int("pitchdrop.cues", len(cs)))

	if err := p.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	w, err := b.Load(ctx, input)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrNoWaveform, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	if w == nil || w.Duration() <= 0 {
		span.SetStatus(codes.Error, ErrNoWaveform.Error())
		return stats, ErrNoWaveform
	}

	if len(cs) == 0 {
		logger.Info("No cues, exporting original audio")
		if err := b.Export(w, output); err != nil {
			return stats, fmt.Errorf("failed to export audio: %w", err)
		}
		return stats, nil
	}

	m, err := b.Manipulate(w)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, fmt.Errorf("failed to analyse pitch: %w", err)
	}

	stats.Points = AddCues(m, w.Duration(), cs, p)
	span.SetAttributes(attribute.Int("pitchdrop.points", stats.Points))

	result, err := m.Resynthesize(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, fmt.Errorf("failed to resynthesize: %w", err)
	}

	if err := b.Export(result, output); err != nil {
		return stats, fmt.Errorf("failed to export audio: %w", err)
	}

	logger.Info("Pitch contours applied", logging.Fields{
		"cues":   stats.Cues,
		"points": stats.Points,
		"output": output,
	})

	return stats, nil
}
