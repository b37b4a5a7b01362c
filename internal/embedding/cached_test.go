package embedding

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/kv"
)

type fakeEmbedder struct {
	calls [][]string
	err   error
	dims  int
}

func (f *fakeEmbedder) Model() string { return "fake" }

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

type memoryStore struct {
	data   map[string][]byte
	getErr error
	ttls   []time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, kv.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls = append(m.ttls, ttl)
	return nil
}

func TestCachedEmbedSendsOnlyMisses(t *testing.T) {
	inner := &fakeEmbedder{}
	store := newMemoryStore()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	c := NewCached(inner, store, time.Hour, counter, zap.NewNop())

	first, err := c.Embed(context.Background(), []string{"go", "python"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := c.Embed(context.Background(), []string{"rust", "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inner.calls) != 2 {
		t.Fatalf("expected 2 inner calls, got %d", len(inner.calls))
	}
	if !reflect.DeepEqual(inner.calls[1], []string{"rust"}) {
		t.Fatalf("expected only the miss to be embedded, got %v", inner.calls[1])
	}
	if !reflect.DeepEqual(second[1], first[0]) {
		t.Fatalf("expected cached vector for go, got %v", second[1])
	}
	if second[0][0] != 4 {
		t.Fatalf("unexpected fresh vector: %v", second[0])
	}

	if hits := testutil.ToFloat64(counter.WithLabelValues("hit")); hits != 1 {
		t.Fatalf("expected 1 hit, got %v", hits)
	}
	if misses := testutil.ToFloat64(counter.WithLabelValues("miss")); misses != 3 {
		t.Fatalf("expected 3 misses, got %v", misses)
	}
	if store.ttls[0] != time.Hour {
		t.Fatalf("expected ttl to be passed to store, got %v", store.ttls[0])
	}
}

func TestCachedEmbedKeysByDimensions(t *testing.T) {
	store := newMemoryStore()

	small := &fakeEmbedder{dims: 256}
	if _, err := NewCached(small, store, time.Hour, nil, nil).Embed(context.Background(), []string{"python"}); err != nil {
		t.Fatalf("embed: %v", err)
	}

	large := &fakeEmbedder{dims: 1024}
	if _, err := NewCached(large, store, time.Hour, nil, nil).Embed(context.Background(), []string{"python"}); err != nil {
		t.Fatalf("embed: %v", err)
	}

	if len(large.calls) != 1 {
		t.Fatalf("expected a cache miss for a different vector size, got %d inner calls", len(large.calls))
	}
	if len(store.data) != 2 {
		t.Fatalf("expected separate entries per vector size, got %d", len(store.data))
	}
}

func TestCachedEmbedStoreFailureFallsBackToInner(t *testing.T) {
	inner := &fakeEmbedder{}
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")

	vectors, err := NewCached(inner, store, 0, nil, nil).Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 || len(inner.calls) != 1 {
		t.Fatalf("expected inner embedder to serve the request")
	}
}

func TestCachedEmbedInnerError(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("provider down")}

	if _, err := NewCached(inner, newMemoryStore(), 0, nil, nil).Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCorruptCacheEntryIsIgnored(t *testing.T) {
	inner := &fakeEmbedder{}
	store := newMemoryStore()
	c := NewCached(inner, store, 0, nil, nil)
	store.data[c.cacheKey("abc")] = []byte{1, 2, 3}

	vectors, err := c.Embed(context.Background(), []string{"abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors[0][0] != 3 || len(inner.calls) != 1 {
		t.Fatalf("expected corrupt entry to be re-embedded, got %v", vectors)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := bytesToVector(vectorToBytes(in))
	if err != nil || !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch: %v %v", out, err)
	}
}
