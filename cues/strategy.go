package cues

import (
	"context"

	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

// Strategy is one tier of cue resolution. Tiers are evaluated in order by
// Chain; a tier with nothing to offer returns an empty slice.
type Strategy interface {
	Name() string
	Cues(ctx context.Context, words transcript.Transcript) ([]Cue, error)
}

// Manual serves cues supplied directly by a caller, such as an editor.
// They only go through Validate.
type Manual []Cue

func (m Manual) Name() string { return "manual" }

func (m Manual) Cues(ctx context.Context, words transcript.Transcript) ([]Cue, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return Validate(m), nil
}

// FromMarkers resolves script-embedded markers against the transcript
type FromMarkers []markers.Marker

func (f FromMarkers) Name() string { return "markers" }

func (f FromMarkers) Cues(ctx context.Context, words transcript.Transcript) ([]Cue, error) {
	return Resolve(f, words), nil
}

// StrategyFunc adapts a function to a named Strategy
type StrategyFunc struct {
	Label string
	Fn    func(ctx context.Context, words transcript.Transcript) ([]Cue, error)
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Cues(ctx context.Context, words transcript.Transcript) ([]Cue, error) {
	return s.Fn(ctx, words)
}

// Chain runs strategies in order and returns the first non-empty result
// with the name of the tier that produced it. A failing tier is logged and
// skipped. When every tier comes back empty the result is empty, with no error;
// only a cancelled context is reported.
func Chain(ctx context.Context, words transcript.Transcript, strategies ...Strategy) ([]Cue, string, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "cue_resolver",
		"function":  "Chain",
	}).WithContext(ctx)

	for _, s := range strategies {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		found, err := s.Cues(ctx, words)
		if err != nil {
			logger.Warn("Cue tier failed, trying next", logging.Fields{
				"tier":  s.Name(),
				"error": err.Error(),
			})
			continue
		}
		if len(found) == 0 {
			logger.Debug("Cue tier produced no cues", logging.Fields{"tier": s.Name()})
			continue
		}

		logger.Info("Resolved pitch cues", logging.Fields{
			"tier": s.Name(),
			"cues": len(found),
		})
		return found, s.Name(), nil
	}

	return []Cue{}, "", nil
}
