package cues

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

func TestChainPrefersFirstNonEmptyTier(t *testing.T) {
	tr := words("war", "crime")
	legacyCalled := false
	legacy := StrategyFunc{Label: "legacy", Fn: func(context.Context, transcript.Transcript) ([]Cue, error) {
		legacyCalled = true
		return []Cue{{Start: 9, End: 9.5, Semitones: -3}}, nil
	}}

	got, tier, err := Chain(context.Background(), tr,
		Manual(nil),
		FromMarkers{{Phrase: "war crime", Semitones: -4}},
		legacy,
	)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if tier != "markers" {
		t.Fatalf("tier = %q, want markers", tier)
	}
	if len(got) != 1 || got[0].Semitones != -4 {
		t.Fatalf("unexpected cues %+v", got)
	}
	if legacyCalled {
		t.Fatalf("legacy tier should not run when markers resolve")
	}
}

func TestChainManualTierWins(t *testing.T) {
	manual := Manual{{Start: 2, End: 2.5, Semitones: -6}}
	got, tier, err := Chain(context.Background(), words("x"), manual, FromMarkers{{Phrase: "x"}})
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if tier != "manual" || len(got) != 1 || got[0] != manual[0] {
		t.Fatalf("unexpected result %q %+v", tier, got)
	}
}

func TestChainFallsThroughEmptyAndFailingTiers(t *testing.T) {
	failing := StrategyFunc{Label: "broken", Fn: func(context.Context, transcript.Transcript) ([]Cue, error) {
		return nil, errors.New("provider unavailable")
	}}
	legacy := StrategyFunc{Label: "legacy", Fn: func(context.Context, transcript.Transcript) ([]Cue, error) {
		return []Cue{{Start: 1, End: 1.5, Semitones: -4}}, nil
	}}

	got, tier, err := Chain(context.Background(), words("nothing"),
		FromMarkers{{Phrase: "absent"}},
		failing,
		legacy,
	)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if tier != "legacy" || len(got) != 1 {
		t.Fatalf("expected legacy tier result, got %q %+v", tier, got)
	}
}

func TestChainAllEmpty(t *testing.T) {
	got, tier, err := Chain(context.Background(), words("a"), Manual(nil), FromMarkers(nil))
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if tier != "" || got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %q %+v", tier, got)
	}
}

func TestChainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := Chain(ctx, words("a"), FromMarkers{{Phrase: "a"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	in := []Cue{
		{Start: 3, End: 3.5, Semitones: -4},
		{Start: -1, End: 0.5, Semitones: -4},
		{Start: 2, End: 1, Semitones: -4},
		{Start: math.NaN(), End: 1, Semitones: -4},
		{Start: 1, End: math.Inf(1), Semitones: -4},
		{Start: 1, End: 1, Semitones: 12},
	}

	got := Validate(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 valid cues, got %+v", got)
	}
	if got[0].Start != 1 || got[1].Start != 3 {
		t.Fatalf("expected cues sorted by start, got %+v", got)
	}
}

func TestCueSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitch_cues.json")
	in := Resolve([]markers.Marker{{Phrase: "real", Semitones: -4}}, words("it", "was", "real"))

	if err := Save(path, in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}
