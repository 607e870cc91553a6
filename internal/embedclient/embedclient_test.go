package embedclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder is a minimal Embedder used to exercise code that depends
// only on the interface, without a live provider.
type fakeEmbedder struct {
	dimension int
	calls     int
}

func (f *fakeEmbedder) Dimension() int { return f.dimension }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dimension)
	}
	return out, nil
}

func TestFakeEmbedder_SatisfiesInterface(t *testing.T) {
	var e Embedder = &fakeEmbedder{dimension: 768}
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 768)
	assert.Equal(t, 768, e.Dimension())
}

func TestNewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", 768, 1.0)
	assert.Error(t, err)
}

func TestNewGeminiEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiEmbedder(context.Background(), "", "", 768, 1.0)
	assert.Error(t, err)
}
