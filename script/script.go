// Package script generates rant-style short-form scripts with embedded
// pitch-drop markers and converts them into marker documents.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/RyanBlaney/pitchdrop/markers"
)

// PitchDrop is a phrase the script asks to be spoken deeper
type PitchDrop struct {
	Phrase    string `json:"phrase" jsonschema_description:"The exact phrase (1-3 words) to pitch-shift, must appear verbatim in full_script"`
	Semitones int    `json:"semitones" jsonschema_description:"Pitch shift in semitones, negative is deeper (-3 to -6 typical)"`
}

// Beat is one spoken line of the script
type Beat struct {
	Line             string  `json:"line" jsonschema_description:"The spoken line for this beat"`
	Type             string  `json:"type" jsonschema:"enum=hook,enum=observation,enum=joke,enum=punchline,enum=callback,enum=wrap"`
	EstimatedSeconds float64 `json:"estimated_seconds" jsonschema_description:"Estimated read time in seconds for this line"`
	Energy           string  `json:"energy" jsonschema:"enum=high,enum=medium,enum=low"`
}

// GeneratedScript is the structured reply of the script model
type GeneratedScript struct {
	Title                    string      `json:"title" jsonschema_description:"Internal title or label for this script"`
	Topic                    string      `json:"topic" jsonschema_description:"The core topic or premise"`
	Hook                     string      `json:"hook" jsonschema_description:"The opening hook line (first 1-2 seconds)"`
	Beats                    []Beat      `json:"beats" jsonschema_description:"Ordered list of script beats"`
	FinalPunchline           string      `json:"final_punchline" jsonschema_description:"The closing punchline or wrap line"`
	FullScript               string      `json:"full_script" jsonschema_description:"The complete script as one block of text"`
	WordCount                int         `json:"word_count" jsonschema_description:"Total word count of full_script"`
	EstimatedDurationSeconds float64     `json:"estimated_duration_seconds" jsonschema_description:"Estimated total read time"`
	Tone                     string      `json:"tone" jsonschema_description:"The overall tone, e.g. sarcastic, unhinged or deadpan"`
	TargetAudience           string      `json:"target_audience" jsonschema_description:"Primary audience demographic"`
	HashtagSuggestions       []string    `json:"hashtag_suggestions" jsonschema_description:"3-5 suggested hashtags"`
	PitchDrops               []PitchDrop `json:"pitch_drops" jsonschema_description:"3-6 phrases to pitch-shift for comedic emphasis"`
}

// Markers returns the embedded pitch drops as markers, skipping blank phrases
func (s *GeneratedScript) Markers() []markers.Marker {
	out := make([]markers.Marker, 0, len(s.PitchDrops))
	for _, d := range s.PitchDrops {
		phrase := strings.TrimSpace(d.Phrase)
		if phrase == "" {
			continue
		}
		out = append(out, markers.Marker{Phrase: phrase, Semitones: d.Semitones})
	}
	return out
}

// MissingPhrases lists pitch-drop phrases that do not occur in the full script
func (s *GeneratedScript) MissingPhrases() []string {
	text := strings.ToLower(s.FullScript)

	var missing []string
	for _, m := range s.Markers() {
		if !strings.Contains(text, strings.ToLower(m.Phrase)) {
			missing = append(missing, m.Phrase)
		}
	}
	return missing
}

// Load reads a script document
func Load(path string) (*GeneratedScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s GeneratedScript
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	return &s, nil
}

// Save writes a script document as indented JSON
func Save(path string, s *GeneratedScript) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
