// Package sfx places emphasis sound effects on resolved pitch-drop cues.
package sfx

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
)

// DefaultVolume is the mix level of an emphasis effect
const DefaultVolume = 0.7

// Placement schedules one sound effect in the voice timeline
type Placement struct {
	Path   string  `json:"sfx_path"`
	Time   float64 `json:"time"`
	Volume float64 `json:"volume"`
}

// Place returns one placement of the effect at path per cue, right after the
// pitched phrase ends. It returns an empty list when the effect file does not
// exist.
func Place(cs []cues.Cue, path string, volume float64) []Placement {
	logger := logging.WithFields(logging.Fields{
		"component": "sfx",
		"function":  "Place",
		"path":      path,
	})

	if _, err := os.Stat(path); err != nil {
		logger.Info("Effect not found, skipping placements", logging.Fields{"error": err.Error()})
		return []Placement{}
	}

	out := make([]Placement, 0, len(cs))
	for _, c := range cs {
		out = append(out, Placement{Path: path, Time: c.End, Volume: volume})
	}

	logger.Debug("Effects placed", logging.Fields{"count": len(out)})
	return out
}

// Load reads a placement document
func Load(path string) ([]Placement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []Placement
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse placements %s: %w", path, err)
	}
	for i := range out {
		if out[i].Volume == 0 {
			out[i].Volume = DefaultVolume
		}
	}
	return out, nil
}

// Save writes placements as indented JSON
func Save(path string, placements []Placement) error {
	if placements == nil {
		placements = []Placement{}
	}
	data, err := json.MarshalIndent(placements, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
