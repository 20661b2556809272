package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoAPIKey is returned when the generator is built without credentials
var ErrNoAPIKey = errors.New("no API key configured for script generation")

const schemaName = "generated_script"

const systemPrompt = `You write viral rant-style scripts for TikTok and YouTube Shorts. They should sound like someone ranting to a friend: raw, specific and relatable.

Style:
- Open with a hook that stops the scroll ("Why does nobody talk about...", "I need to address something...", "The fact that...").
- Land a new observation or mini-punchline every 2-3 lines and keep escalating.
- Write how people talk. Fragments and tangents are fine. Never preachy or corporate.
- 100-170 words. The video plays at 1.2x speed, so aim for at most 40 seconds of final duration.

Structure: hook (1 line), setup (1-2 lines), escalation (3-5 lines), punchline (1 line), optional wrap (0-1 lines).

Pitch drops: pick 3-6 phrases of 1-3 words that appear exactly in full_script and will be made deeper for comedic emphasis. Prefer punchline words, shocking claims and absurd exaggerations. Keep them at least 2 seconds apart. Use -3 to -6 semitones (-4 is standard); the last punchline usually gets the deepest drop.

Return JSON matching the provided schema exactly.`

// Request describes the script to write
type Request struct {
	Topic           string `json:"topic"`
	StyleNotes      string `json:"style_notes,omitempty"`
	PastPerformance string `json:"past_performance,omitempty"`
}

// Prompt renders the user message for r
func (r Request) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a viral short-form video script about: %s", strings.TrimSpace(r.Topic))
	if s := strings.TrimSpace(r.StyleNotes); s != "" {
		fmt.Fprintf(&b, "\n\nStyle notes: %s", s)
	}
	if s := strings.TrimSpace(r.PastPerformance); s != "" {
		fmt.Fprintf(&b, "\n\nContext from past performance data:\n%s", s)
	}
	return b.String()
}

// Config holds chat model settings for script generation
type Config struct {
	Model       string        `json:"model" yaml:"model"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKey      string        `json:"-" yaml:"-"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	MaxTokens   int64         `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the default generator configuration
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-2024-08-06",
		Temperature: 0.85,
		MaxTokens:   1024,
		Timeout:     2 * time.Minute,
	}
}

// Schema reflects the JSON schema of GeneratedScript for structured output
func Schema() (map[string]any, error) {
	return schemaFor(&GeneratedScript{})
}

// schemaFor reflects v into a generic map. Strict structured output needs an
// object schema, so anything else is an error.
func schemaFor(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if out["type"] != "object" {
		return nil, fmt.Errorf("schema for %T is %v, not an object", v, out["type"])
	}

	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

// Completer sends one exchange with a structured-output schema and returns
// the raw reply
type Completer interface {
	Complete(ctx context.Context, system, user string, schema map[string]any) (string, error)
}

type openAICompleter struct {
	client openai.Client
	cfg    Config
}

func (c *openAICompleter) Complete(ctx context.Context, system, user string, schema map[string]any) (string, error) {
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
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
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

// Generator writes scripts through a chat model
type Generator struct {
	completer Completer
	model     string
	schema    func() (map[string]any, error)
}

// NewGenerator creates a generator talking to an OpenAI-compatible endpoint
func NewGenerator(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Generator{
		completer: &openAICompleter{client: openai.NewClient(opts...), cfg: cfg},
		model:     cfg.Model,
		schema:    Schema,
	}, nil
}

// NewGeneratorWithCompleter creates a generator over any Completer
func NewGeneratorWithCompleter(c Completer, model string) *Generator {
	return &Generator{completer: c, model: model, schema: Schema}
}

// Generate writes a script for req
func (g *Generator) Generate(ctx context.Context, req Request) (*GeneratedScript, error) {
	ctx, span := tracer.Start(ctx, "script.Generate")
	defer span.End()

	logger := logging.WithFields(logging.Fields{
		"component": "script_generator",
		"function":  "Generate",
		"model":     g.model,
	})

	span.SetAttributes(
		attribute.String("request.model", g.model),
		attribute.String("request.topic", req.Topic),
	)

	if strings.TrimSpace(req.Topic) == "" {
		return nil, errors.New("topic is required")
	}

	schema, err := g.schema()
	if err != nil {
		err = fmt.Errorf("failed to build response schema: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw, err := g.completer.Complete(ctx, systemPrompt, req.Prompt(), schema)
	if err != nil {
		err = fmt.Errorf("script generation failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var s GeneratedScript
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		err = fmt.Errorf("failed to parse generated script: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if missing := s.MissingPhrases(); len(missing) > 0 {
		logger.Warn("Pitch-drop phrases not found in script", logging.Fields{
			"phrases": missing,
		})
	}

	span.SetAttributes(attribute.Int("response.pitch_drops", len(s.PitchDrops)))
	logger.Info("Script generated", logging.Fields{
		"title":       s.Title,
		"word_count":  s.WordCount,
		"pitch_drops": len(s.PitchDrops),
	})

	return &s, nil
}
