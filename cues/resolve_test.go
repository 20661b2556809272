package cues

import (
	"os"
	"testing"

	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	os.Exit(m.Run())
}

// words builds a transcript where word i spans [i, i+0.5)
func words(ws ...string) transcript.Transcript {
	out := make(transcript.Transcript, len(ws))
	for i, w := range ws {
		out[i] = transcript.Word{Word: w, Start: float64(i), End: float64(i) + 0.5}
	}
	return out
}

// spanOf recovers the transcript span a cue was built from
func spanOf(t *testing.T, tr transcript.Transcript, c Cue) Span {
	t.Helper()
	first, last := -1, -1
	for i, w := range tr {
		if w.Start == c.Start && first < 0 {
			first = i
		}
		if w.End == c.End {
			last = i
		}
	}
	if first < 0 || last < first {
		t.Fatalf("cue %+v does not map to a transcript span", c)
	}
	return Span{First: first, Last: last}
}

func TestFindSpan(t *testing.T) {
	tokens := []string{"the", "war", "crime", "was", "a", "war", "crime"}

	tests := []struct {
		name    string
		target  []string
		claimed Claims
		want    Span
		found   bool
	}{
		{"earliest match wins", []string{"war", "crime"}, nil, Span{1, 2}, true},
		{"claimed span skipped", []string{"war", "crime"}, Claims{2: {}}, Span{5, 6}, true},
		{"partially claimed span skipped", []string{"war", "crime"}, Claims{1: {}}, Span{5, 6}, true},
		{"single word", []string{"was"}, nil, Span{3, 3}, true},
		{"absent", []string{"peace"}, nil, Span{}, false},
		{"longer than transcript", make([]string, 10), nil, Span{}, false},
		{"empty target", nil, nil, Span{}, false},
		{"match at end", []string{"a", "war", "crime"}, nil, Span{4, 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindSpan(tt.target, tokens, tt.claimed)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && got != tt.want {
				t.Fatalf("span = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSpanIndices(t *testing.T) {
	s := Span{First: 3, Last: 5}
	got := s.Indices()
	if s.Len() != 3 || len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("unexpected indices %v for %+v", got, s)
	}
}

func TestResolveLastWordFallback(t *testing.T) {
	tr := words("the", "war", "crime?", "was", "real")
	got := Resolve([]markers.Marker{{Phrase: "literal war crime", Semitones: -4}}, tr)

	if len(got) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(got))
	}
	want := Cue{Start: tr[2].Start, End: tr[2].End, Semitones: -4}
	if got[0] != want {
		t.Fatalf("cue = %+v, want %+v", got[0], want)
	}
}

func TestResolveFullPhrase(t *testing.T) {
	tr := words("that", "is", "Emotional", "DAMAGE!", "honestly")
	got := Resolve([]markers.Marker{{Phrase: "emotional damage", Semitones: -5}}, tr)

	want := Cue{Start: 2, End: 3.5, Semitones: -5}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("cues = %+v, want [%+v]", got, want)
	}
}

func TestResolveMissIsSilent(t *testing.T) {
	tr := words("nothing", "to", "see", "here")
	got := Resolve([]markers.Marker{{Phrase: "federal offense", Semitones: -4}}, tr)
	if len(got) != 0 {
		t.Fatalf("expected no cues, got %+v", got)
	}
}

func TestResolveSkipsEmptyPhrases(t *testing.T) {
	tr := words("a", "b")
	got := Resolve([]markers.Marker{{Phrase: ""}, {Phrase: "   "}, {Phrase: "b", Semitones: -3}}, tr)
	if len(got) != 1 || got[0].Semitones != -3 {
		t.Fatalf("unexpected cues %+v", got)
	}
}

func TestResolveEmptyInputs(t *testing.T) {
	if got := Resolve(nil, words("a")); len(got) != 0 {
		t.Fatalf("expected no cues for no markers, got %+v", got)
	}
	if got := Resolve([]markers.Marker{{Phrase: "a"}}, nil); len(got) != 0 {
		t.Fatalf("expected no cues for empty transcript, got %+v", got)
	}
}

func TestResolveEarlierMarkerWins(t *testing.T) {
	tr := words("war", "crime", "then", "nothing")
	ms := []markers.Marker{
		{Phrase: "war crime", Semitones: -4},
		{Phrase: "war crime", Semitones: -6},
	}

	got := Resolve(ms, tr)
	if len(got) != 1 {
		t.Fatalf("expected the later duplicate to be dropped, got %+v", got)
	}
	if got[0].Semitones != -4 {
		t.Fatalf("expected earlier marker to win, got %+v", got[0])
	}
}

func TestResolveLaterMarkerMatchesElsewhere(t *testing.T) {
	tr := words("war", "crime", "and", "another", "war", "crime")
	ms := []markers.Marker{
		{Phrase: "war crime", Semitones: -4},
		{Phrase: "war crime", Semitones: -6},
	}

	got := Resolve(ms, tr)
	if len(got) != 2 {
		t.Fatalf("expected 2 cues, got %+v", got)
	}
	if got[0].Start != 0 || got[0].Semitones != -4 {
		t.Fatalf("first cue = %+v", got[0])
	}
	if got[1].Start != 4 || got[1].Semitones != -6 {
		t.Fatalf("second cue = %+v", got[1])
	}
}

func TestResolveOrderAndDisjointness(t *testing.T) {
	tr := words("my", "rent", "is", "a", "war", "crime", "and", "my", "boss", "is", "a", "villain", "arc", "crime")
	ms := []markers.Marker{
		{Phrase: "villain arc", Semitones: -5},
		{Phrase: "war crime", Semitones: -4},
		{Phrase: "boss crime", Semitones: -3},
		{Phrase: "rent", Semitones: -6},
		{Phrase: "my rent", Semitones: -4},
	}

	got := Resolve(ms, tr)

	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].Start {
			t.Fatalf("cues not sorted by start: %+v", got)
		}
	}

	seen := make(Claims)
	for _, c := range got {
		span := spanOf(t, tr, c)
		for _, idx := range span.Indices() {
			if seen.Has(idx) {
				t.Fatalf("word %d claimed twice in %+v", idx, got)
			}
		}
		seen.Claim(span)
	}

	// "boss crime" falls back to the only unclaimed "crime" (index 13),
	// "my rent" loses "rent" to the earlier marker and has no fallback left.
	if len(got) != 4 {
		t.Fatalf("expected 4 cues, got %d: %+v", len(got), got)
	}
	if last := got[len(got)-1]; last.Start != 13 || last.Semitones != -3 {
		t.Fatalf("expected fallback cue on final crime, got %+v", last)
	}
}

func TestResolveStableForEqualStarts(t *testing.T) {
	tr := transcript.Transcript{
		{Word: "a", Start: 1, End: 1},
		{Word: "b", Start: 1, End: 1},
	}
	ms := []markers.Marker{
		{Phrase: "b", Semitones: -2},
		{Phrase: "a", Semitones: -1},
	}

	got := Resolve(ms, tr)
	if len(got) != 2 || got[0].Semitones != -2 || got[1].Semitones != -1 {
		t.Fatalf("expected marker order preserved for equal starts, got %+v", got)
	}
}

func TestResolveDoesNotShareClaimsAcrossRuns(t *testing.T) {
	tr := words("war", "crime")
	ms := []markers.Marker{{Phrase: "war crime", Semitones: -4}}

	first := Resolve(ms, tr)
	second := Resolve(ms, tr)
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected each run to resolve independently, got %+v and %+v", first, second)
	}
}
