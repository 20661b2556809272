// Package detect picks pitch-drop cues straight from a timed transcript by
// asking a chat model. It is the last-resort tier, used when neither manual
// cues nor script markers are available.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/transcript"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoAPIKey is returned when the detector is built without credentials
var ErrNoAPIKey = errors.New("no API key configured for cue detection")

const systemPrompt = "You place comedic pitch drops in short-form voiceovers. Reply with JSON only."

// Config holds chat model settings
type Config struct {
	Model       string        `json:"model" yaml:"model"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKey      string        `json:"-" yaml:"-"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	MaxTokens   int64         `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the default detector configuration
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4.1-mini",
		Temperature: 0.3,
		MaxTokens:   512,
		Timeout:     90 * time.Second,
	}
}

// Completer sends one system/user exchange and returns the raw reply
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type openAICompleter struct {
	client openai.Client
	cfg    Config
}

// NewOpenAICompleter returns a Completer backed by an OpenAI-compatible API
func NewOpenAICompleter(cfg Config) (Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openAICompleter{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       c.cfg.Model,
		Temperature: openai.Float(c.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.cfg.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// LLMDetector implements cues.Strategy on top of a chat model
type LLMDetector struct {
	completer Completer
	model     string

	// Script is the full script text included in the prompt. When empty the
	// transcript text is used instead.
	Script string
}

// New creates a detector talking to an OpenAI-compatible endpoint
func New(cfg Config) (*LLMDetector, error) {
	c, err := NewOpenAICompleter(cfg)
	if err != nil {
		return nil, err
	}
	return &LLMDetector{completer: c, model: cfg.Model}, nil
}

// NewWithCompleter creates a detector over any Completer
func NewWithCompleter(c Completer, model string) *LLMDetector {
	return &LLMDetector{completer: c, model: model}
}

// Name identifies the tier
func (d *LLMDetector) Name() string { return "legacy" }

// Cues asks the model for drop placements. A reply that cannot be parsed
// yields no cues; transport failures are returned.
func (d *LLMDetector) Cues(ctx context.Context, words transcript.Transcript) ([]cues.Cue, error) {
	ctx, span := tracer.Start(ctx, "detect.Cues")
	defer span.End()

	logger := logging.WithFields(logging.Fields{
		"component": "cue_detector",
		"function":  "Cues",
		"model":     d.model,
	})

	span.SetAttributes(
		attribute.String("request.model", d.model),
		attribute.Int("request.words", len(words)),
	)

	if len(words) == 0 {
		return []cues.Cue{}, nil
	}

	script := d.Script
	if strings.TrimSpace(script) == "" {
		script = words.Text()
	}

	raw, err := d.completer.Complete(ctx, systemPrompt, BuildPrompt(script, words))
	if err != nil {
		err = fmt.Errorf("cue detection request failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	found, err := ParseCues(raw)
	if err != nil {
		logger.Warn("Could not parse model reply, no cues detected", logging.Fields{
			"error": err.Error(),
		})
		span.SetAttributes(attribute.String("response.raw", raw))
		return []cues.Cue{}, nil
	}

	result := cues.Validate(found)
	span.SetAttributes(attribute.Int("response.cues", len(result)))
	logger.Info("Cues detected", logging.Fields{"cues": len(result)})

	return result, nil
}
