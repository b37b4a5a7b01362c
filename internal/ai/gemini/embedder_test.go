package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spigell/smartintern/internal/errs"
	"google.golang.org/genai"
)

type fakeEmbedder struct {
	resp   *genai.EmbedContentResponse
	err    error
	model  string
	config *genai.EmbedContentConfig
	texts  []string
}

func (f *fakeEmbedder) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.config = config
	for _, c := range contents {
		f.texts = append(f.texts, c.Parts[0].Text)
	}
	return f.resp, f.err
}

type blockingEmbedder struct{}

func (blockingEmbedder) EmbedContent(ctx context.Context, _ string, _ []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEmbedderEmbed(t *testing.T) {
	fake := &fakeEmbedder{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 0}}, {Values: []float32{0, 1}}},
	}}
	e := newEmbedder(fake, "", 2, 0)

	vectors, err := e.Embed(context.Background(), []string{"candidate", "job"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(vectors) != 2 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if fake.model != defaultEmbeddingModel {
		t.Fatalf("expected default model, got %q", fake.model)
	}
	if fake.config == nil || *fake.config.OutputDimensionality != 2 {
		t.Fatalf("expected output dimensionality to be set")
	}
	if len(fake.texts) != 2 || fake.texts[0] != "candidate" {
		t.Fatalf("unexpected texts sent: %v", fake.texts)
	}
}

func TestEmbedderErrors(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeEmbedder
		want error
	}{
		{name: "transport", fake: &fakeEmbedder{err: errors.New("dial tcp")}, want: errs.ErrTransport},
		{name: "count mismatch", fake: &fakeEmbedder{resp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
		}}, want: errs.ErrShape},
		{name: "empty vector", fake: &fakeEmbedder{resp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}, {}},
		}}, want: errs.ErrShape},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newEmbedder(tc.fake, "m", 0, 0).Embed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEmbedderTimeoutIsTransportError(t *testing.T) {
	e := newEmbedder(blockingEmbedder{}, "m", 0, 50*time.Millisecond)

	started := time.Now()
	_, err := e.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, errs.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 5*time.Second {
		t.Fatalf("embed did not respect timeout, took %s", elapsed)
	}
}

func TestEmbedderReportsDimensions(t *testing.T) {
	if got := newEmbedder(&fakeEmbedder{}, "m", 768, 0).Dimensions(); got != 768 {
		t.Fatalf("expected 768 dimensions, got %d", got)
	}
}
