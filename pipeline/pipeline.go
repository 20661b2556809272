// Package pipeline runs pitch-drop post-production over a run directory: it
// applies the speed curve, resolves cues through the tier chain, shapes the
// voice pitch and schedules emphasis effects.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/pitchdrop/config"
	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/detect"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/resynth"
	"github.com/RyanBlaney/pitchdrop/script"
	"github.com/RyanBlaney/pitchdrop/sfx"
	"github.com/RyanBlaney/pitchdrop/transcode"
	"github.com/RyanBlaney/pitchdrop/transcript"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMissingTranscript is returned when the run directory has no word timestamps
	ErrMissingTranscript = errors.New("word timestamps not found")

	// ErrMissingVoice is returned when the run directory has no voice audio
	ErrMissingVoice = errors.New("voice audio not found")
)

// Options describe one run
type Options struct {
	// Dir holds the input artifacts and receives every output
	Dir string

	// ScriptText is script text with inline *phrase*(N) markup. When empty
	// the markers come from the marker document or the generated script.
	ScriptText string

	// Cues are manual cues, e.g. from an editor. They win over every other tier.
	Cues []cues.Cue

	// Speed overrides the configured speed factor when positive
	Speed float64
}

// Manifest records what a run produced
type Manifest struct {
	RunID      string    `json:"run_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Duration   float64   `json:"duration_seconds"`
	Speed      float64   `json:"speed"`
	Tier       string    `json:"tier"`
	Cues       int       `json:"cues"`
	Points     int       `json:"points"`
	Placements int       `json:"placements"`
	Transcript string    `json:"transcript"`
	Voice      string    `json:"voice"`
	Output     string    `json:"output"`
}

// Runner wires the pipeline stages together
type Runner struct {
	cfg      config.Config
	decoder  *transcode.Decoder
	backend  contour.Backend
	detector *detect.LLMDetector
}

// NewRunner builds a runner from cfg. The legacy detector is only attached
// when it is enabled and an API key is available.
func NewRunner(cfg config.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithFields(logging.Fields{
		"component": "pipeline",
		"function":  "NewRunner",
	})

	decoder := transcode.NewDecoder(cfg.DecoderConfig())
	r := &Runner{
		cfg:     cfg,
		decoder: decoder,
		backend: resynth.NewBackend(cfg.Pitch, decoder),
	}

	if cfg.Detector.Enabled {
		d, err := detect.New(cfg.DetectConfig())
		switch {
		case errors.Is(err, detect.ErrNoAPIKey):
			logger.Warn("Legacy detector enabled without an API key, tier disabled", logging.Fields{
				"api_key_env": cfg.Detector.APIKeyEnv,
			})
		case err != nil:
			return nil, fmt.Errorf("failed to create detector: %w", err)
		default:
			r.detector = d
		}
	}

	return r, nil
}

// WithBackend replaces the resynthesis backend
func (r *Runner) WithBackend(b contour.Backend) *Runner {
	r.backend = b
	return r
}

// WithDetector replaces the legacy detector tier
func (r *Runner) WithDetector(d *detect.LLMDetector) *Runner {
	r.detector = d
	return r
}

// Config returns the runner's configuration
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run executes every stage over opts.Dir and returns the run manifest, which
// is also written to the directory.
func (r *Runner) Run(ctx context.Context, opts Options) (*Manifest, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	manifest := &Manifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Speed:     r.cfg.Speed,
	}
	if opts.Speed > 0 {
		manifest.Speed = opts.Speed
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
		manifest.TraceID = sc.TraceID().String()
	}

	logger := logging.WithFields(logging.Fields{
		"component": "pipeline",
		"function":  "Run",
		"run_id":    manifest.RunID,
		"dir":       opts.Dir,
	})

	span.SetAttributes(
		attribute.String("pitchdrop.run_id", manifest.RunID),
		attribute.Float64("pitchdrop.speed", manifest.Speed),
	)

	fail := func(err error) (*Manifest, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if math.IsNaN(manifest.Speed) || math.IsInf(manifest.Speed, 0) {
		return fail(fmt.Errorf("invalid speed factor: %v", manifest.Speed))
	}

	// Inputs
	words, voice, err := r.loadInputs(opts.Dir)
	if err != nil {
		return fail(err)
	}
	manifest.Transcript = r.path(opts.Dir, r.cfg.Files.Transcript)
	logger.Info("Loaded run inputs", logging.Fields{
		"words": len(words),
		"voice": voice,
	})

	// Speed curve
	words, voice, err = r.applySpeed(ctx, opts.Dir, words, voice, manifest.Speed)
	if err != nil {
		return fail(err)
	}
	manifest.Voice = voice
	manifest.Duration = words.Duration()

	// Cue tiers
	found, tier, err := r.resolveCues(ctx, opts, words)
	if err != nil {
		return fail(err)
	}
	manifest.Tier = tier
	manifest.Cues = len(found)

	if err := cues.Save(r.path(opts.Dir, r.cfg.Files.Cues), found); err != nil {
		return fail(fmt.Errorf("failed to save cues: %w", err))
	}

	// Pitch contours
	manifest.Output = voice
	if len(found) > 0 {
		output := r.path(opts.Dir, r.cfg.Files.PitchedVoice)
		stats, err := contour.Apply(ctx, r.backend, voice, output, found, r.cfg.Contour)
		if err != nil {
			return fail(fmt.Errorf("failed to apply pitch drops: %w", err))
		}
		manifest.Points = stats.Points
		manifest.Output = output
	} else {
		logger.Info("No pitch cues, skipping pitch shaping")
	}

	// Emphasis effects
	placements := sfx.Place(found, r.cfg.SFX.Path, r.cfg.SFX.Volume)
	manifest.Placements = len(placements)
	if err := sfx.Save(r.path(opts.Dir, r.cfg.Files.Placements), placements); err != nil {
		return fail(fmt.Errorf("failed to save sfx placements: %w", err))
	}

	if err := saveManifest(r.path(opts.Dir, r.cfg.Files.Manifest), manifest); err != nil {
		return fail(fmt.Errorf("failed to save manifest: %w", err))
	}

	span.SetAttributes(
		attribute.String("pitchdrop.tier", manifest.Tier),
		attribute.Int("pitchdrop.cues", manifest.Cues),
		attribute.Int("pitchdrop.points", manifest.Points),
	)
	logger.Info("Pipeline run complete", logging.Fields{
		"tier":       manifest.Tier,
		"cues":       manifest.Cues,
		"points":     manifest.Points,
		"placements": manifest.Placements,
		"output":     manifest.Output,
	})

	return manifest, nil
}

func (r *Runner) path(dir, name string) string {
	return filepath.Join(dir, name)
}

func (r *Runner) loadInputs(dir string) (transcript.Transcript, string, error) {
	tsPath := r.path(dir, r.cfg.Files.Transcript)
	words, err := transcript.Load(tsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", ErrMissingTranscript, tsPath)
		}
		return nil, "", err
	}

	voice := r.path(dir, r.cfg.Files.Voice)
	if _, err := os.Stat(voice); err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingVoice, voice)
	}

	return words, voice, nil
}

// applySpeed speeds the voice up and rescales the transcript to match. A
// factor of 1 leaves both untouched.
func (r *Runner) applySpeed(ctx context.Context, dir string, words transcript.Transcript, voice string, speed float64) (transcript.Transcript, string, error) {
	if speed == 1 {
		return words, voice, nil
	}

	ctx, span := tracer.Start(ctx, "pipeline.applySpeed")
	defer span.End()

	fast := r.path(dir, r.cfg.Files.FastVoice)
	if err := r.decoder.SpeedUp(ctx, voice, fast, speed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}

	scaled, err := words.Scale(speed)
	if err != nil {
		return nil, "", err
	}
	if err := transcript.Save(r.path(dir, r.cfg.Files.ScaledTranscript), scaled); err != nil {
		return nil, "", fmt.Errorf("failed to save scaled timestamps: %w", err)
	}

	return scaled, fast, nil
}

// resolveCues runs manual, marker and legacy tiers in that order
func (r *Runner) resolveCues(ctx context.Context, opts Options, words transcript.Transcript) ([]cues.Cue, string, error) {
	ctx, span := tracer.Start(ctx, "pipeline.resolveCues")
	defer span.End()

	clean, ms, err := r.loadMarkers(opts)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}

	tiers := []cues.Strategy{cues.Manual(opts.Cues), cues.FromMarkers(ms)}
	if r.detector != nil {
		// Per-run copy; the runner's detector is never written
		d := *r.detector
		d.Script = clean
		tiers = append(tiers, &d)
	}

	found, tier, err := cues.Chain(ctx, words, tiers...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, "", err
	}
	span.SetAttributes(attribute.String("pitchdrop.tier", tier))
	return found, tier, nil
}

// loadMarkers picks the first marker source available: inline markup, the
// marker document, then the generated script. It also returns the clean
// script text when one is known.
func (r *Runner) loadMarkers(opts Options) (string, []markers.Marker, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "pipeline",
		"function":  "loadMarkers",
	})

	if opts.ScriptText != "" {
		clean, ms := markers.ParseMarkup(opts.ScriptText)
		logger.Debug("Markers from inline markup", logging.Fields{"markers": len(ms)})
		return clean, ms, nil
	}

	ms, err := markers.Load(r.path(opts.Dir, r.cfg.Files.Markers))
	switch {
	case err == nil:
		logger.Debug("Markers from marker document", logging.Fields{"markers": len(ms)})
		return "", ms, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", nil, fmt.Errorf("failed to load markers: %w", err)
	}

	s, err := script.Load(r.path(opts.Dir, r.cfg.Files.Script))
	switch {
	case err == nil:
		ms := s.Markers()
		logger.Debug("Markers from generated script", logging.Fields{"markers": len(ms)})
		return s.FullScript, ms, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", nil, fmt.Errorf("failed to load script: %w", err)
	}

	logger.Debug("No marker source found")
	return "", nil, nil
}

func saveManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadManifest reads a run manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
