package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/metrics"
	"google.golang.org/genai"
)

const defaultEmbeddingModel = "gemini-embedding-001"

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder turns texts into vectors with the Gemini embedding API.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int
	timeout    time.Duration
}

// NewEmbedder creates an embedder backed by client.Models. Each call is bounded by timeout when it is positive.
func NewEmbedder(client *genai.Client, model string, dimensions int, timeout time.Duration) (*Embedder, error) {
	if client == nil || client.Models == nil {
		return nil, errors.New("gemini client is required")
	}
	return newEmbedder(client.Models, model, dimensions, timeout), nil
}

func newEmbedder(models contentEmbedder, model string, dimensions int, timeout time.Duration) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	return &Embedder{models: models, model: model, dimensions: dimensions, timeout: timeout}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

// Dimensions returns the requested output dimensionality, 0 for the model default.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	var config *genai.EmbedContentConfig
	if e.dimensions > 0 {
		config = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dimensions))}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, config)
	metrics.ObserveEmbedding(provider, e.model, err)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed content: %w", errs.ErrTransport, err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts", errs.ErrShape, got, len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned empty embedding at index %d", errs.ErrShape, i)
		}
		vectors[i] = emb.Values
	}

	return vectors, nil
}
