package cues

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/RyanBlaney/pitchdrop/logging"
)

// Cue is a marker bound to transcript timing: shift the audio between Start
// and End (seconds) by Semitones.
type Cue struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Semitones int     `json:"semitones"`
}

// Duration of the held part of the cue
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// valid reports whether c has a usable shape. Semitone range is not checked.
func (c Cue) valid() bool {
	if math.IsNaN(c.Start) || math.IsNaN(c.End) || math.IsInf(c.Start, 0) || math.IsInf(c.End, 0) {
		return false
	}
	return c.Start >= 0 && c.End >= c.Start
}

// Validate applies the basic shape checks used for externally resolved cues:
// non-finite times, negative starts and inverted intervals are dropped. The
// remaining cues are returned stably sorted by start.
func Validate(in []Cue) []Cue {
	logger := logging.WithFields(logging.Fields{
		"component": "cue_validator",
		"function":  "Validate",
	})

	out := make([]Cue, 0, len(in))
	for i, c := range in {
		if !c.valid() {
			logger.Warn("Dropping malformed cue", logging.Fields{
				"index": i,
				"start": c.Start,
				"end":   c.End,
			})
			continue
		}
		out = append(out, c)
	}

	SortByStart(out)
	return out
}

// SortByStart sorts cues ascending by start, keeping input order for ties
func SortByStart(c []Cue) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Start < c[j].Start
	})
}

// Load reads a JSON array of {start, end, semitones} objects
func Load(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c []Cue
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse cues %s: %w", path, err)
	}
	return c, nil
}

// Save writes c as an indented JSON array
func Save(path string, c []Cue) error {
	if c == nil {
		c = []Cue{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cues: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
