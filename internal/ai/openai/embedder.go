package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/metrics"
)

const defaultEmbeddingModel = string(openai.SmallEmbedding3)

// Embedder is a batch embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
}

// NewEmbedder creates an embedder; dimensions <= 0 keeps the model default
// and timeout <= 0 leaves the call bounded only by the caller's context.
func NewEmbedder(client *openai.Client, model string, dimensions int, timeout time.Duration) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}

	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return string(e.model) }

// Dimensions returns the requested vector size, 0 for the model default.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed returns one vector per text. Vectors are placed by the index the API reports.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.ObserveEmbedding(provider, string(e.model), err)
	if err != nil {
		return nil, parseAPIError("create embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d texts", errs.ErrShape, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || vectors[item.Index] != nil {
			return nil, fmt.Errorf("%w: unexpected embedding index %d", errs.ErrShape, item.Index)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", errs.ErrShape, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}
