package cues

import (
	"strings"

	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

// Resolve binds each marker to the earliest unclaimed run of transcript words
// matching its phrase and returns the resulting cues sorted by start.
//
// Markers are processed in input order and earlier markers keep their spans
// for the rest of the run, so no two cues ever share a word. When a
// multi-word phrase is not found whole, its last word alone is tried. Markers
// with an empty phrase, or that match nowhere, produce no cue.
func Resolve(ms []markers.Marker, words transcript.Transcript) []Cue {
	logger := logging.WithFields(logging.Fields{
		"component": "cue_resolver",
		"function":  "Resolve",
	})

	if len(ms) == 0 || len(words) == 0 {
		return []Cue{}
	}

	tokens := words.Tokens()
	claimed := make(Claims)
	out := make([]Cue, 0, len(ms))

	for i, m := range ms {
		span, ok := resolveMarker(m, tokens, claimed)
		if !ok {
			logger.Debug("Marker not found in transcript", logging.Fields{
				"marker_index": i,
				"phrase":       m.Phrase,
			})
			continue
		}

		claimed.Claim(span)
		out = append(out, Cue{
			Start:     words[span.First].Start,
			End:       words[span.Last].End,
			Semitones: m.Semitones,
		})
	}

	SortByStart(out)

	logger.Debug("Resolved pitch cues", logging.Fields{
		"markers": len(ms),
		"cues":    len(out),
	})

	return out
}

func resolveMarker(m markers.Marker, tokens []string, claimed Claims) (Span, bool) {
	target := transcript.NormalizeAll(strings.Fields(m.Phrase))
	if len(target) == 0 {
		return Span{}, false
	}

	if span, ok := FindSpan(target, tokens, claimed); ok {
		return span, true
	}

	if len(target) > 1 {
		return FindSpan(target[len(target)-1:], tokens, claimed)
	}
	return Span{}, false
}
