// Package markers holds pitch-drop markers: script-level instructions to
// pitch-shift a named phrase, either produced by a script generator or
// written inline as *phrase*(-N).
package markers

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// DefaultSemitones is used when a marker document omits the semitone value
const DefaultSemitones = -4

// Marker asks for Phrase to be shifted by Semitones (negative drops pitch)
type Marker struct {
	Phrase    string `json:"phrase"`
	Semitones int    `json:"semitones"`
}

func (m *Marker) UnmarshalJSON(data []byte) error {
	var raw struct {
		Phrase    string `json:"phrase"`
		Semitones *int   `json:"semitones"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Phrase = raw.Phrase
	m.Semitones = DefaultSemitones
	if raw.Semitones != nil {
		m.Semitones = *raw.Semitones
	}
	return nil
}

// markupPattern matches *phrase*(N). The phrase may not contain '*', so an
// unmatched or nested asterisk never produces a marker.
var markupPattern = regexp.MustCompile(`\*([^*]+)\*\(([+-]?\d+)\)`)

// ParseMarkup extracts inline markers from text in left-to-right order and
// returns the text with each marker replaced by its phrase. The semitone value
// is the signed integer written in the parentheses, taken verbatim.
// Malformed markup is left untouched and produces no marker.
func ParseMarkup(text string) (string, []Marker) {
	var found []Marker

	clean := markupPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := markupPattern.FindStringSubmatch(match)
		semitones, err := strconv.Atoi(groups[2])
		if err != nil {
			return match
		}
		found = append(found, Marker{Phrase: groups[1], Semitones: semitones})
		return groups[1]
	})

	return clean, found
}

// Load reads a JSON array of {phrase, semitones} objects
func Load(path string) ([]Marker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m []Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse markers %s: %w", path, err)
	}
	return m, nil
}

// Save writes m as an indented JSON array
func Save(path string, m []Marker) error {
	if m == nil {
		m = []Marker{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode markers: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
