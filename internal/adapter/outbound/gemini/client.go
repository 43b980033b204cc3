// Package gemini implements the image model client on top of the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/thumbfast/server/internal/module/generation"
	"github.com/thumbfast/server/internal/shared/metrics"
)

// Config holds client settings.
type Config struct {
	APIKey           string
	Timeout          time.Duration
	FailureThreshold uint32
	CircuitTimeout   time.Duration
}

// generateFunc issues one request against the remote model.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Client implements generation.ImageClient.
// Each model gets its own circuit breaker so a failing pro model does not
// block the flash model.
type Client struct {
	generate generateFunc
	config   Config
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewClient creates a client. A missing API key is not an error here: every
// call then fails as unavailable so the rest of the service keeps serving.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	c := newClient(nil, cfg, logger, m)
	if cfg.APIKey == "" {
		c.logger.Warn("gemini api key not configured, generation disabled")
		return c, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c.generate = gc.Models.GenerateContent
	return c, nil
}

func newClient(fn generateFunc, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CircuitTimeout <= 0 {
		cfg.CircuitTimeout = 60 * time.Second
	}
	return &Client{
		generate: fn,
		config:   cfg,
		logger:   logger.Named("gemini"),
		metrics:  m,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Generate sends parts as a single user message and returns every inline
// attachment of every candidate.
func (c *Client) Generate(ctx context.Context, model string, parts []generation.Part) ([]generation.Image, error) {
	if c.generate == nil {
		return nil, fmt.Errorf("%w: api key not configured", generation.ErrUnavailable)
	}

	start := time.Now()
	out, err := c.breaker(model).Execute(func() (any, error) {
		return c.call(ctx, model, parts)
	})
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
			err = fmt.Errorf("%w: %w", generation.ErrUnavailable, err)
		}
	}
	if c.metrics != nil {
		c.metrics.RecordGenerationCall(model, status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return out.([]generation.Image), nil
}

func (c *Client) call(ctx context.Context, model string, parts []generation.Part) ([]generation.Image, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromParts(toGenaiParts(parts), genai.RoleUser)}
	resp, err := c.generate(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		// The model answered; the batch treats this as one failed variant.
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s: %w", model, apiErr)
		}
		return nil, fmt.Errorf("%w: %v", generation.ErrUnavailable, err)
	}
	return fromResponse(resp), nil
}

// countsAsSuccess keeps request-specific refusals (safety blocks, bad
// input, quota) from opening the circuit for every caller.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500
}

func (c *Client) breaker(model string) *gobreaker.CircuitBreaker[any] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[model]; ok {
		return cb
	}

	threshold := c.config.FailureThreshold
	settings := gobreaker.Settings{
		Name:        model,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     c.config.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit state changed",
				zap.String("model", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if c.metrics != nil {
				c.metrics.SetCircuitState(name, int(to))
			}
		},
	}

	cb := gobreaker.NewCircuitBreaker[any](settings)
	c.breakers[model] = cb
	return cb
}

func toGenaiParts(parts []generation.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Data != nil {
			out = append(out, genai.NewPartFromBytes(p.Data, p.MediaType))
			continue
		}
		out = append(out, genai.NewPartFromText(p.Text))
	}
	return out
}

func fromResponse(resp *genai.GenerateContentResponse) []generation.Image {
	if resp == nil {
		return nil
	}
	var images []generation.Image
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			images = append(images, generation.Image{
				Data:      part.InlineData.Data,
				MediaType: part.InlineData.MIMEType,
			})
		}
	}
	return images
}
