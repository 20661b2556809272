package sfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func TestPlaceAtCueEnds(t *testing.T) {
	effect := filepath.Join(t.TempDir(), "vine-boom.mp3")
	if err := os.WriteFile(effect, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cs := []cues.Cue{{Start: 1, End: 1.4, Semitones: -4}, {Start: 4, End: 4.8, Semitones: -6}}
	got := Place(cs, effect, DefaultVolume)

	if len(got) != 2 {
		t.Fatalf("expected 2 placements, got %+v", got)
	}
	if got[0].Time != 1.4 || got[1].Time != 4.8 || got[0].Volume != 0.7 || got[1].Path != effect {
		t.Fatalf("unexpected placements %+v", got)
	}
}

func TestPlaceMissingEffect(t *testing.T) {
	got := Place([]cues.Cue{{Start: 1, End: 2}}, filepath.Join(t.TempDir(), "missing.mp3"), DefaultVolume)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty placements, got %+v", got)
	}
}

func TestSaveLoadDefaultsVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sfx_placements.json")
	if err := os.WriteFile(path, []byte(`[{"sfx_path":"boom.mp3","time":2.5}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].Volume != DefaultVolume || got[0].Time != 2.5 {
		t.Fatalf("unexpected placements %+v", got)
	}

	if err := Save(path, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", data)
	}
}
