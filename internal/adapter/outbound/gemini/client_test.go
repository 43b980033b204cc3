package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/thumbfast/server/internal/module/generation"
	"github.com/thumbfast/server/internal/shared/metrics"
)

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: parts}},
		},
	}
}

func TestClient_Generate_ReturnsInlineData(t *testing.T) {
	var gotModel string
	var gotContents []*genai.Content
	fn := func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel = model
		gotContents = contents
		assert.Equal(t, []string{"TEXT", "IMAGE"}, cfg.ResponseModalities)
		return imageResponse(
			genai.NewPartFromText("here you go"),
			genai.NewPartFromBytes([]byte("png"), "image/png"),
			genai.NewPartFromBytes([]byte("note"), "text/plain"),
		), nil
	}
	c := newClient(fn, Config{}, nil, metrics.New("test"))

	images, err := c.Generate(context.Background(), "flash", []generation.Part{
		generation.TextPart("draw a cat"),
		{Data: []byte{0x89}, MediaType: "image/png"},
	})
	require.NoError(t, err)

	assert.Equal(t, "flash", gotModel)
	require.Len(t, gotContents, 1)
	assert.Equal(t, genai.RoleUser, gotContents[0].Role)
	require.Len(t, gotContents[0].Parts, 2)
	assert.Equal(t, "draw a cat", gotContents[0].Parts[0].Text)
	require.NotNil(t, gotContents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", gotContents[0].Parts[1].InlineData.MIMEType)

	// Non-image attachments are passed through for the caller to filter.
	require.Len(t, images, 2)
	assert.Equal(t, []byte("png"), images[0].Data)
	assert.True(t, images[0].IsImage())
	assert.False(t, images[1].IsImage())
}

func TestClient_Generate_NilResponse(t *testing.T) {
	fn := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{nil, {}}}, nil
	}
	c := newClient(fn, Config{}, nil, nil)

	images, err := c.Generate(context.Background(), "flash", nil)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestClient_Generate_TransportErrorIsUnavailable(t *testing.T) {
	fn := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("connection reset")
	}
	c := newClient(fn, Config{}, nil, nil)

	_, err := c.Generate(context.Background(), "flash", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClient_Generate_WithoutAPIKey(t *testing.T) {
	c, err := NewClient(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "flash", nil)
	assert.ErrorIs(t, err, generation.ErrUnavailable)
}

func TestClient_Generate_AppliesTimeout(t *testing.T) {
	fn := func(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := newClient(fn, Config{Timeout: 10 * time.Millisecond}, nil, nil)

	_, err := c.Generate(context.Background(), "flash", nil)
	assert.ErrorIs(t, err, generation.ErrUnavailable)
}

func TestClient_CircuitOpensPerModel(t *testing.T) {
	var calls atomic.Int32
	fn := func(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls.Add(1)
		if model == "pro" {
			return nil, errors.New("boom")
		}
		return imageResponse(genai.NewPartFromBytes([]byte("x"), "image/png")), nil
	}
	c := newClient(fn, Config{FailureThreshold: 2, CircuitTimeout: time.Minute}, nil, metrics.New("test"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Generate(ctx, "pro", nil)
		require.Error(t, err)
	}
	require.Equal(t, int32(2), calls.Load())

	_, err := c.Generate(ctx, "pro", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load(), "open circuit must not reach the model")

	images, err := c.Generate(ctx, "flash", nil)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestClient_Generate_APIErrorIsNotUnavailable(t *testing.T) {
	fn := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "blocked"}
	}
	c := newClient(fn, Config{}, nil, nil)

	_, err := c.Generate(context.Background(), "flash", nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, generation.ErrUnavailable)

	var apiErr genai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
}

func TestClient_RefusedBatchIsEmptyResult(t *testing.T) {
	fn := func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"}
	}
	svc := generation.NewService(&generation.ServiceConfig{Client: newClient(fn, Config{}, nil, nil)})

	result, err := svc.Generate(context.Background(), &generation.Request{
		Prompt:       "A robot holding a sign",
		VariantCount: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.Images)
	assert.Equal(t, 2, result.Failed)
}

func TestClient_ClientErrorsDoNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	fn := func(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		calls.Add(1)
		if model == "pro" {
			return nil, genai.APIError{Code: 503, Status: "UNAVAILABLE"}
		}
		return nil, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}
	}
	c := newClient(fn, Config{FailureThreshold: 2, CircuitTimeout: time.Minute}, nil, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := c.Generate(ctx, "flash", nil)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, int32(4), calls.Load())

	// Server-side failures still count.
	for i := 0; i < 2; i++ {
		_, _ = c.Generate(ctx, "pro", nil)
	}
	_, err := c.Generate(ctx, "pro", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(6), calls.Load())
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, countsAsSuccess(nil))
	assert.True(t, countsAsSuccess(genai.APIError{Code: 400}))
	assert.True(t, countsAsSuccess(fmt.Errorf("flash: %w", genai.APIError{Code: 429})))
	assert.False(t, countsAsSuccess(genai.APIError{Code: 500}))
	assert.False(t, countsAsSuccess(errors.New("connection reset")))
}
