package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Word is one aligned word of the spoken transcript. Times are in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the ordered word sequence produced by the alignment provider.
// It is treated as read-only input.
type Transcript []Word

// Tokens returns the normalized form of every word, index-aligned with t
func (t Transcript) Tokens() []string {
	out := make([]string, len(t))
	for i, w := range t {
		out[i] = Normalize(w.Word)
	}
	return out
}

// Duration is the end time of the last word, or 0 for an empty transcript
func (t Transcript) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End
}

// Text joins the raw words with single spaces
func (t Transcript) Text() string {
	words := make([]string, len(t))
	for i, w := range t {
		words[i] = w.Word
	}
	return strings.Join(words, " ")
}

// Scale returns a copy of t with every timestamp divided by speed and rounded
// to the millisecond, matching audio that was sped up uniformly by speed.
func (t Transcript) Scale(speed float64) (Transcript, error) {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return nil, fmt.Errorf("invalid speed factor: %v", speed)
	}

	scaled := make(Transcript, len(t))
	for i, w := range t {
		scaled[i] = Word{
			Word:  w.Word,
			Start: roundMillis(w.Start / speed),
			End:   roundMillis(w.End / speed),
		}
	}
	return scaled, nil
}

func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Load reads a JSON array of {word,start,end} objects
func Load(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", path, err)
	}
	return t, nil
}

// Save writes t as an indented JSON array
func Save(path string, t Transcript) error {
	if t == nil {
		t = Transcript{}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
