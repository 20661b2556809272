// Package config loads pitchdrop settings from YAML.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/RyanBlaney/pitchdrop/algorithms/pitch"
	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/detect"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/script"
	"github.com/RyanBlaney/pitchdrop/sfx"
	"github.com/RyanBlaney/pitchdrop/transcode"
	"gopkg.in/yaml.v3"
)

// Config captures every tunable of a pitchdrop run
type Config struct {
	Speed    float64           `yaml:"speed"`
	Contour  contour.Params    `yaml:"contour"`
	Pitch    pitch.TrackConfig `yaml:"pitch"`
	Audio    AudioConfig       `yaml:"audio"`
	SFX      SFXConfig         `yaml:"sfx"`
	Detector DetectorConfig    `yaml:"detector"`
	Script   ScriptConfig      `yaml:"script"`
	Files    FileNames         `yaml:"files"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// AudioConfig controls decoding and the speed curve
type AudioConfig struct {
	SampleRate  int           `yaml:"sample_rate"`
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SFXConfig selects the emphasis effect placed at each cue
type SFXConfig struct {
	Path   string  `yaml:"path"`
	Volume float64 `yaml:"volume"`
}

// DetectorConfig configures the legacy chat-model tier
type DetectorConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ScriptConfig configures the script generator
type ScriptConfig struct {
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FileNames are the artifact names inside a run directory
type FileNames struct {
	Transcript       string `yaml:"transcript"`
	ScaledTranscript string `yaml:"scaled_transcript"`
	Markers          string `yaml:"markers"`
	Cues             string `yaml:"cues"`
	Voice            string `yaml:"voice"`
	FastVoice        string `yaml:"fast_voice"`
	PitchedVoice     string `yaml:"pitched_voice"`
	Placements       string `yaml:"placements"`
	Script           string `yaml:"script"`
	Manifest         string `yaml:"manifest"`
}

// LoggingConfig controls the default logger
type LoggingConfig struct {
	Level string `yaml:"level"`
	Color bool   `yaml:"color"`
}

// Default returns the built-in configuration
func Default() Config {
	dec := transcode.DefaultDecoderConfig()
	det := detect.DefaultConfig()
	gen := script.DefaultConfig()

	return Config{
		Speed:   1.2,
		Contour: contour.DefaultParams(),
		Pitch:   pitch.DefaultTrackConfig(),
		Audio: AudioConfig{
			SampleRate:  dec.TargetSampleRate,
			FFmpegPath:  dec.FFmpegPath,
			FFprobePath: dec.FFprobePath,
			Timeout:     dec.Timeout,
		},
		SFX: SFXConfig{
			Path:   "assets/sfx/emphasis/vine-boom.mp3",
			Volume: sfx.DefaultVolume,
		},
		Detector: DetectorConfig{
			Enabled:     false,
			Model:       det.Model,
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: det.Temperature,
			Timeout:     det.Timeout,
		},
		Script: ScriptConfig{
			Model:       gen.Model,
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: gen.Temperature,
			Timeout:     gen.Timeout,
		},
		Files: FileNames{
			Transcript:       "word_timestamps.json",
			ScaledTranscript: "word_timestamps_fast.json",
			Markers:          "pitch_markers.json",
			Cues:             "pitch_cues.json",
			Voice:            "voice.mp3",
			FastVoice:        "voice_fast.wav",
			PitchedVoice:     "voice_pitched.wav",
			Placements:       "sfx_placements.json",
			Script:           "script.json",
			Manifest:         "run.json",
		},
		Logging: LoggingConfig{
			Level: "info",
			Color: true,
		},
	}
}

// Load overlays the YAML file at path onto Default. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges
func (c Config) Validate() error {
	var problems []string

	if c.Speed <= 0 || math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) {
		problems = append(problems, fmt.Sprintf("speed must be positive, got %v", c.Speed))
	}
	if err := c.Contour.Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Pitch.TimeStep <= 0 {
		problems = append(problems, fmt.Sprintf("pitch.time_step must be positive, got %v", c.Pitch.TimeStep))
	}
	if c.Pitch.Floor <= 0 || c.Pitch.Ceiling <= c.Pitch.Floor {
		problems = append(problems, fmt.Sprintf("pitch range [%v, %v] is invalid", c.Pitch.Floor, c.Pitch.Ceiling))
	}
	if c.Pitch.Threshold <= 0 || c.Pitch.Threshold >= 1 {
		problems = append(problems, fmt.Sprintf("pitch.threshold must be in (0, 1), got %v", c.Pitch.Threshold))
	}
	if c.Audio.SampleRate <= 0 {
		problems = append(problems, fmt.Sprintf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.SFX.Volume < 0 {
		problems = append(problems, fmt.Sprintf("sfx.volume must not be negative, got %v", c.SFX.Volume))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DecoderConfig returns the ffmpeg decoder settings
func (c Config) DecoderConfig() *transcode.DecoderConfig {
	dec := transcode.DefaultDecoderConfig()
	dec.TargetSampleRate = c.Audio.SampleRate
	dec.FFmpegPath = c.Audio.FFmpegPath
	dec.FFprobePath = c.Audio.FFprobePath
	dec.Timeout = c.Audio.Timeout
	return dec
}

// DetectConfig returns the detector settings with the API key read from the
// configured environment variable.
func (c Config) DetectConfig() detect.Config {
	cfg := detect.DefaultConfig()
	cfg.Model = c.Detector.Model
	cfg.BaseURL = c.Detector.BaseURL
	cfg.Temperature = c.Detector.Temperature
	cfg.Timeout = c.Detector.Timeout
	if c.Detector.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(c.Detector.APIKeyEnv)
	}
	return cfg
}

// ScriptConfig returns the script generator settings with the API key read
// from the configured environment variable.
func (c Config) ScriptConfig() script.Config {
	cfg := script.DefaultConfig()
	cfg.Model = c.Script.Model
	cfg.BaseURL = c.Script.BaseURL
	cfg.Temperature = c.Script.Temperature
	cfg.Timeout = c.Script.Timeout
	if c.Script.APIKeyEnv != "" {
		cfg.APIKey = os.Getenv(c.Script.APIKeyEnv)
	}
	return cfg
}

// Logger builds the default logger described by the logging section
func (c Config) Logger() logging.Logger {
	var l *logging.DefaultLogger
	if c.Logging.Color {
		l = logging.NewDefaultLogger()
	} else {
		l = logging.NewDefaultLoggerNoColor()
	}
	l.SetLevel(logging.ParseLevel(c.Logging.Level))
	return l
}
