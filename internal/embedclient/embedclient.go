// Package embedclient is the Embedder half of the external interface
// named in spec.md §6: it turns source text into fixed-dimension vectors
// via an external provider. Two backends are wired, grounded on the
// teacher's internal/agent and internal/llm clients: OpenAI
// (openai-go/v3) and Gemini (google.golang.org/genai). Both are
// rate-limited with golang.org/x/time/rate and report failures as
// errors.EmbedderUnavailable.
package embedclient

import (
	"context"
	"fmt"
	"os"

	"github.com/coderisk-labs/intelcore/internal/errors"
	"github.com/openai/openai-go/v3"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Embedder turns a batch of texts into same-order, fixed-dimension
// vectors. Implementations never partially fail: either every text in
// the batch is embedded or the call returns an error.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// OpenAIEmbedder wraps the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     openai.EmbeddingModel
	dimension int
	limiter   *rate.Limiter
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder. requestsPerSecond
// bounds the call rate; the API key is set via the environment before
// constructing the official client.
func NewOpenAIEmbedder(apiKey string, dimension int, requestsPerSecond float64) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.ConfigError("OpenAI API key is required")
	}
	os.Setenv("OPENAI_API_KEY", apiKey)

	return &OpenAIEmbedder{
		client:    openai.NewClient(),
		model:     openai.EmbeddingModelTextEmbedding3Small,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, errors.CancelledErr("openai embed")
	}

	inputs := make(openai.EmbeddingNewParamsInputArrayOfStrings, len(texts))
	copy(inputs, texts)

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:          e.model,
		Dimensions:     openai.Int(int64(e.dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, errors.EmbedderUnavailable(fmt.Errorf("openai embeddings: %w", err))
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.EmbedderUnavailable(fmt.Errorf("openai returned %d vectors for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}

// GeminiEmbedder wraps Google's Generative AI SDK embedding endpoint.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	limiter   *rate.Limiter
}

// NewGeminiEmbedder constructs a GeminiEmbedder, grounded on the
// teacher's llm.NewGeminiClient construction pattern.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int, requestsPerSecond float64) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.ConfigError("Gemini API key is required")
	}
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (e *GeminiEmbedder) Dimension() int { return e.dimension }

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, errors.CancelledErr("gemini embed")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
		if err != nil {
			return nil, errors.EmbedderUnavailable(fmt.Errorf("gemini embed content: %w", err))
		}
		if len(resp.Embeddings) == 0 {
			return nil, errors.EmbedderUnavailable(fmt.Errorf("gemini returned no embedding for text %d", i))
		}
		out[i] = resp.Embeddings[0].Values
	}
	return out, nil
}
