package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

// BuildPrompt renders the user prompt listing every word with its timing
func BuildPrompt(script string, words transcript.Transcript) string {
	var b strings.Builder

	b.WriteString("Given this script and its word-level timestamps, pick 3-5 words or phrases ")
	b.WriteString("that should be pitch-dropped for comedic emphasis (deeper voice for punchlines).\n\n")
	fmt.Fprintf(&b, "Script: %s\n\n", strings.TrimSpace(script))
	b.WriteString("Words with timestamps:\n")
	for _, w := range words {
		fmt.Fprintf(&b, "%s [%.2f-%.2f]\n", w.Word, w.Start, w.End)
	}
	b.WriteString("\nReturn a JSON object of the form ")
	b.WriteString(`{"cues":[{"start":0.0,"end":0.0,"semitones":-4}]}`)
	b.WriteString(".\nUse semitones between -3 and -6. Pick punchline words, shocking claims, or absurd phrases.\n")
	b.WriteString("Space them at least 2 seconds apart.\n")

	return b.String()
}

type rawCue struct {
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	Semitones *float64 `json:"semitones"`
}

func (r rawCue) cue() cues.Cue {
	semitones := markers.DefaultSemitones
	if r.Semitones != nil && !math.IsNaN(*r.Semitones) && !math.IsInf(*r.Semitones, 0) {
		semitones = int(math.Round(*r.Semitones))
	}
	return cues.Cue{Start: r.Start, End: r.End, Semitones: semitones}
}

// ParseCues reads a model reply holding either {"cues":[...]} or a bare
// array of cues, tolerating prose around the JSON.
func ParseCues(raw string) ([]cues.Cue, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty reply")
	}

	found, err := decodeCues(raw)
	if err != nil {
		fixed := extractFirstJSON(raw)
		if fixed == "" {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if found, err = decodeCues(fixed); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return found, nil
}

func decodeCues(raw string) ([]cues.Cue, error) {
	var list []rawCue
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, err
		}
	} else {
		var envelope struct {
			Cues []rawCue `json:"cues"`
		}
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			return nil, err
		}
		list = envelope.Cues
	}

	out := make([]cues.Cue, 0, len(list))
	for _, r := range list {
		out = append(out, r.cue())
	}
	return out, nil
}

// extractFirstJSON returns the outermost JSON object or array in raw
func extractFirstJSON(raw string) string {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return ""
	}

	closer := "}"
	if raw[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(raw, closer)
	if end <= start {
		return ""
	}
	return raw[start : end+1]
}
