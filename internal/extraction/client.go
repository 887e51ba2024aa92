// Package extraction wraps the vision model call that reads cope and drag
// identifiers off a mould photograph. It owns prompt construction, output
// parsing, and the mapping of model failures onto typed errors.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mouldworks/mouldlens/internal/config"
	"github.com/mouldworks/mouldlens/internal/telemetry"
)

// maxAttempts bounds transparent retries of the remote call. Retries cover
// transient transport failures only; parse failures are never retried.
const maxAttempts = 2

// Client calls the Gemini vision model and converts its output into a
// MouldReading.
type Client struct {
	genai   *genai.Client
	model   string
	binding string
	logger  *zap.Logger
}

// NewClient builds an extraction client. A missing API key is not fatal here:
// the service still boots and each extraction attempt fails with ErrNoAPIKey,
// which the pipeline records as an error outcome.
func NewClient(ctx context.Context, cfg config.ExtractionConfig, logger *zap.Logger) (*Client, error) {
	c := &Client{
		model:   cfg.Model,
		binding: cfg.Binding,
		logger:  logger,
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genai = client
	return c, nil
}

// Extract reads the cope and drag identifiers from the image. A drag value is
// built only when the model reports a main drag number: a lone bracketed
// sub-number is discarded, since a sub-value is only meaningful alongside its
// main number.
func (c *Client) Extract(ctx context.Context, imageBytes []byte, mimeType string) (telemetry.MouldReading, error) {
	if c.genai == nil {
		return telemetry.MouldReading{}, ErrNoAPIKey
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(userPrompt),
			genai.NewPartFromBytes(imageBytes, mimeType),
		}, genai.RoleUser),
	}

	// Temperature zero: reproducibility on identical input is the design
	// goal, even though the model remains a black box.
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	}
	if c.binding == config.BindingSchema {
		genCfg.ResponseMIMEType = "application/json"
		genCfg.ResponseSchema = extractionSchema()
	}

	text, err := c.generate(ctx, contents, genCfg)
	if err != nil {
		return telemetry.MouldReading{}, err
	}

	var raw rawExtraction
	if c.binding == config.BindingSchema {
		// Structured binding: the runtime enforces the shape, so a decode
		// failure here means the model runtime misbehaved, not that the
		// output text was malformed. Treat it as a model fault.
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return telemetry.MouldReading{}, fmt.Errorf("%w: structured output undecodable: %v", ErrModel, err)
		}
	} else {
		raw, err = parseExtraction(text)
		if err != nil {
			c.logger.Error("failed to decode model JSON",
				zap.String("model", c.model),
				zap.String("content", text))
			return telemetry.MouldReading{}, fmt.Errorf("%w: %s", ErrParse, truncate(text, 200))
		}
	}

	return deriveReading(raw), nil
}

// generate performs the remote call with bounded retries and backoff.
func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrModel, ctx.Err())
			}
		}

		resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			lastErr = err
			c.logger.Warn("model call failed",
				zap.String("model", c.model),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = fmt.Errorf("empty response")
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %v", ErrModel, lastErr)
}

// deriveReading converts the intermediate extraction into the domain payload.
func deriveReading(raw rawExtraction) telemetry.MouldReading {
	reading := telemetry.MouldReading{Cope: nonEmpty(raw.Cope)}
	if main := nonEmpty(raw.DragMain); main != nil {
		reading.Drag = &telemetry.DragValue{Main: *main, Sub: nonEmpty(raw.DragSub)}
	}
	return reading
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// extractionSchema is the response schema used by the structured binding.
func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"cope":      {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"drag_main": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"drag_sub":  {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		},
		Required: []string{"cope", "drag_main", "drag_sub"},
	}
}
