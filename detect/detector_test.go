package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/transcript"
)

func init() {
	logging.SetGlobalLogger(nil)
}

type fakeCompleter struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

var sample = transcript.Transcript{
	{Word: "that", Start: 0, End: 0.3},
	{Word: "was", Start: 0.3, End: 0.5},
	{Word: "illegal", Start: 0.5, End: 1.1},
}

func TestParseCues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []cues.Cue
	}{
		{
			name: "envelope",
			raw:  `{"cues":[{"start":0.5,"end":1.1,"semitones":-5}]}`,
			want: []cues.Cue{{Start: 0.5, End: 1.1, Semitones: -5}},
		},
		{
			name: "bare array",
			raw:  `[{"start":1,"end":2,"semitones":-3}]`,
			want: []cues.Cue{{Start: 1, End: 2, Semitones: -3}},
		},
		{
			name: "wrapped in prose",
			raw:  "Sure! Here you go:\n```json\n{\"cues\":[{\"start\":2,\"end\":2.4,\"semitones\":-6}]}\n```",
			want: []cues.Cue{{Start: 2, End: 2.4, Semitones: -6}},
		},
		{
			name: "missing semitones",
			raw:  `{"cues":[{"start":3,"end":3.5}]}`,
			want: []cues.Cue{{Start: 3, End: 3.5, Semitones: -4}},
		},
		{
			name: "fractional semitones",
			raw:  `[{"start":3,"end":3.5,"semitones":-4.6}]`,
			want: []cues.Cue{{Start: 3, End: 3.5, Semitones: -5}},
		},
		{
			name: "empty list",
			raw:  `{"cues":[]}`,
			want: []cues.Cue{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCues(tt.raw)
			if err != nil {
				t.Fatalf("ParseCues failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("cue %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseCuesRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", `{"cues": "nope"}`} {
		if _, err := ParseCues(raw); err == nil {
			t.Errorf("ParseCues(%q) should fail", raw)
		}
	}
}

func TestBuildPromptListsTimedWords(t *testing.T) {
	prompt := BuildPrompt("that was illegal", sample)

	for _, want := range []string{
		"Script: that was illegal",
		"that [0.00-0.30]",
		"illegal [0.50-1.10]",
		"between -3 and -6",
		"at least 2 seconds apart",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestDetectorCues(t *testing.T) {
	fc := &fakeCompleter{reply: `{"cues":[{"start":2,"end":2.5,"semitones":-4},{"start":0.5,"end":1.1,"semitones":-5},{"start":-1,"end":0,"semitones":-4}]}`}
	d := NewWithCompleter(fc, "test-model")

	got, err := d.Cues(context.Background(), sample)
	if err != nil {
		t.Fatalf("Cues failed: %v", err)
	}
	if len(got) != 2 || got[0].Start != 0.5 || got[1].Start != 2 {
		t.Fatalf("expected two validated cues sorted by start, got %+v", got)
	}
	if !strings.Contains(fc.user, "Script: that was illegal") {
		t.Fatalf("expected transcript text as the script, got %q", fc.user)
	}
	if d.Name() != "legacy" {
		t.Fatalf("unexpected tier name %q", d.Name())
	}
}

func TestDetectorUnparseableReplyIsEmpty(t *testing.T) {
	d := NewWithCompleter(&fakeCompleter{reply: "I cannot help with that."}, "test-model")

	got, err := d.Cues(context.Background(), sample)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty cues, got %+v", got)
	}
}

func TestDetectorTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	d := NewWithCompleter(&fakeCompleter{err: boom}, "test-model")

	if _, err := d.Cues(context.Background(), sample); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestDetectorInChain(t *testing.T) {
	d := NewWithCompleter(&fakeCompleter{reply: `[{"start":0.5,"end":1.1,"semitones":-4}]`}, "test-model")
	d.Script = "custom script"

	got, tier, err := cues.Chain(context.Background(), sample, cues.Manual(nil), d)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if tier != "legacy" || len(got) != 1 {
		t.Fatalf("expected legacy tier result, got %q %+v", tier, got)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(DefaultConfig()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
