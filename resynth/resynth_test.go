package resynth

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/pitchdrop/algorithms/pitch"
	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
)

const testRate = 16000

func init() {
	logging.SetGlobalLogger(nil)
}

func sineSound(freq, seconds float64) *Sound {
	n := int(seconds * testRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return NewSound(samples, testRate)
}

func pitchOf(t *testing.T, s *Sound, at float64) float64 {
	t.Helper()
	track, err := pitch.Analyze(s.Samples, s.SampleRate, pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	f0, ok := track.ValueAt(at)
	if !ok {
		t.Fatalf("no pitch at %v", at)
	}
	return f0
}

func TestWAVRoundTrip(t *testing.T) {
	in := NewSound([]float64{0, 0.5, -0.5, 1, -1, 0.25}, 22050)

	var buf bytes.Buffer
	if err := EncodeWAV(&buf, in); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if buf.Len() != 44+2*len(in.Samples) {
		t.Fatalf("unexpected encoded size %d", buf.Len())
	}

	out, err := ReadWAV(&buf)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if out.SampleRate != 22050 || len(out.Samples) != len(in.Samples) {
		t.Fatalf("unexpected sound %d Hz, %d samples", out.SampleRate, len(out.Samples))
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestWriteWAVClipsAndLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := WriteWAV(path, NewSound([]float64{2, -3, 0.1}, 8000)); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	s, err := LoadWAV(path)
	if err != nil {
		t.Fatalf("LoadWAV failed: %v", err)
	}
	if s.Samples[0] < 0.99 || s.Samples[1] > -0.99 {
		t.Fatalf("expected clipped samples, got %v", s.Samples)
	}
	if math.Abs(s.Duration()-3.0/8000) > 1e-12 {
		t.Fatalf("unexpected duration %v", s.Duration())
	}
}

func TestDownmix(t *testing.T) {
	got := downmix([]float64{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float64{0.5, 0.5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("downmix = %v, want %v", got, want)
		}
	}
}

func TestPitchTier(t *testing.T) {
	tier := NewPitchTier([]TierPoint{{Time: 0, Frequency: 200}, {Time: 1, Frequency: 100}})

	if got, _ := tier.ValueAt(0.5); math.Abs(got-150) > 1e-9 {
		t.Fatalf("base interpolation = %v, want 150", got)
	}

	tier.AddPoint(0.40, 80)
	tier.AddPoint(0.42, 90)
	tier.AddPoint(0.44, 100)

	tests := []struct {
		at   float64
		want float64
	}{
		{0.41, 85},  // inside the added span
		{0.44, 100}, // span edge
		{0.2, 180},  // base layer before the span
		{0.8, 120},  // base layer after the span
		{-1, 200},   // base extrapolates flat
		{2, 100},
	}
	for _, tt := range tests {
		got, ok := tier.ValueAt(tt.at)
		if !ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	tier.AddPoint(0.42, 60)
	if got, _ := tier.ValueAt(0.42); got != 60 {
		t.Fatalf("expected the later point to replace the earlier, got %v", got)
	}
	if n := len(tier.Added()); n != 3 {
		t.Fatalf("expected 3 added points, got %d", n)
	}

	// a distant point forms its own span
	tier.AddPoint(0.9, 50)
	if got, _ := tier.ValueAt(0.9); got != 50 {
		t.Fatalf("single-point span = %v, want 50", got)
	}
	if got, _ := tier.ValueAt(0.7); math.Abs(got-130) > 1e-9 {
		t.Fatalf("expected base between spans, got %v", got)
	}
}

func TestPitchTierEmpty(t *testing.T) {
	if _, ok := NewPitchTier(nil).ValueAt(0.5); ok {
		t.Fatalf("expected empty tier to be undefined")
	}
}

func TestPulsesFollowPeriod(t *testing.T) {
	s := sineSound(200, 0.5)
	track, err := pitch.Analyze(s.Samples, s.SampleRate, pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatal(err)
	}

	stretches := Pulses(s, track)
	if len(stretches) != 1 {
		t.Fatalf("expected one voiced stretch, got %d", len(stretches))
	}
	marks := stretches[0]
	if len(marks) < 80 {
		t.Fatalf("expected ~100 marks, got %d", len(marks))
	}
	for k := 5; k+1 < len(marks)-5; k++ {
		if d := marks[k+1] - marks[k]; math.Abs(d-0.005) > 0.0005 {
			t.Fatalf("mark spacing %v at %d, want ~5ms", d, k)
		}
	}
}

func TestResynthesizeKeepsPitchWithoutEdits(t *testing.T) {
	s := sineSound(200, 1)
	m, err := NewManipulation(s, pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatalf("NewManipulation failed: %v", err)
	}

	out, err := m.Resynthesize(context.Background())
	if err != nil {
		t.Fatalf("Resynthesize failed: %v", err)
	}
	if len(out.Samples) != len(s.Samples) || out.SampleRate != s.SampleRate {
		t.Fatalf("output shape changed")
	}
	if f0 := pitchOf(t, out, 0.5); math.Abs(f0-200)/200 > 0.05 {
		t.Fatalf("pitch after identity resynthesis = %v, want ~200", f0)
	}
}

func TestResynthesizeLowersPitch(t *testing.T) {
	s := sineSound(200, 1)
	m, err := NewManipulation(s, pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatal(err)
	}

	for ts := 0.0; ts <= 1.0; ts += 0.005 {
		m.AddPoint(ts, 100)
	}

	out, err := m.Resynthesize(context.Background())
	if err != nil {
		t.Fatalf("Resynthesize failed: %v", err)
	}
	if f0 := pitchOf(t, out, 0.5); math.Abs(f0-100)/100 > 0.1 {
		t.Fatalf("pitch after lowering = %v, want ~100", f0)
	}
	if f0, ok := m.PitchAt(0.5); !ok || math.Abs(f0-200) > 4 {
		t.Fatalf("PitchAt should report the original pitch, got %v", f0)
	}
}

func TestResynthesizeCancelled(t *testing.T) {
	m, err := NewManipulation(sineSound(200, 0.3), pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Resynthesize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResynthesizeExtremeRaiseTerminates(t *testing.T) {
	src := sineSound(200, 1)
	m, err := NewManipulation(src, pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatal(err)
	}

	// +600 semitones pushes the period far below one sample
	contour.AddCues(manipulation{m}, src.Duration(), []cues.Cue{{Start: 0.4, End: 0.6, Semitones: 600}}, contour.DefaultParams())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := m.Resynthesize(ctx)
	if err != nil {
		t.Fatalf("Resynthesize failed: %v", err)
	}
	if len(out.Samples) != len(src.Samples) {
		t.Fatalf("output has %d samples, want %d", len(out.Samples), len(src.Samples))
	}
}

// expiringContext reports cancellation after a fixed number of Err calls
type expiringContext struct {
	context.Context
	calls int
	after int
}

func (c *expiringContext) Err() error {
	c.calls++
	if c.calls > c.after {
		return context.Canceled
	}
	return nil
}

func TestResynthesizeCancelledWithinStretch(t *testing.T) {
	m, err := NewManipulation(sineSound(200, 1), pitch.DefaultTrackConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx := &expiringContext{Context: context.Background(), after: 10}
	if _, err := m.Resynthesize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ctx.calls != ctx.after+1 {
		t.Fatalf("expected cancellation to stop the grain loop, Err called %d times", ctx.calls)
	}
}

func TestNewManipulationRejectsEmptySound(t *testing.T) {
	if _, err := NewManipulation(NewSound(nil, testRate), pitch.DefaultTrackConfig()); !errors.Is(err, ErrUnsupportedWaveform) {
		t.Fatalf("expected ErrUnsupportedWaveform, got %v", err)
	}
}

type foreignWave struct{}

func (foreignWave) Duration() float64 { return 1 }

func TestBackendRejections(t *testing.T) {
	b := NewBackend(pitch.DefaultTrackConfig(), nil)

	if _, err := b.Load(context.Background(), "voice.mp3"); !errors.Is(err, ErrUnsupportedWaveform) {
		t.Fatalf("expected ErrUnsupportedWaveform without a decoder, got %v", err)
	}
	if _, err := b.Manipulate(foreignWave{}); !errors.Is(err, ErrUnsupportedWaveform) {
		t.Fatalf("expected ErrUnsupportedWaveform for a foreign waveform, got %v", err)
	}
	if err := b.Export(foreignWave{}, filepath.Join(t.TempDir(), "x.wav")); !errors.Is(err, ErrUnsupportedWaveform) {
		t.Fatalf("expected ErrUnsupportedWaveform on export, got %v", err)
	}
}

func TestApplyThroughBackend(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "voice.wav")
	out := filepath.Join(dir, "voice_pitched.wav")
	if err := WriteWAV(in, sineSound(200, 2)); err != nil {
		t.Fatal(err)
	}

	b := NewBackend(pitch.DefaultTrackConfig(), nil)
	cs := []cues.Cue{{Start: 0.8, End: 1.2, Semitones: -12}}

	stats, err := contour.Apply(context.Background(), b, in, out, cs, contour.DefaultParams())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if stats.Points == 0 {
		t.Fatalf("expected control points to be emitted")
	}

	result, err := LoadWAV(out)
	if err != nil {
		t.Fatalf("LoadWAV(output) failed: %v", err)
	}
	if math.Abs(result.Duration()-2) > 1e-3 {
		t.Fatalf("output duration = %v, want 2s", result.Duration())
	}
	if f0 := pitchOf(t, result, 1.2); math.Abs(f0-100)/100 > 0.1 {
		t.Fatalf("pitch at the cue end = %v, want ~100", f0)
	}
	if f0 := pitchOf(t, result, 0.3); math.Abs(f0-200)/200 > 0.05 {
		t.Fatalf("pitch outside the region = %v, want ~200", f0)
	}
}
