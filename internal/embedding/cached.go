package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/kv"
)

const cacheKeyPrefix = "smartintern:emb:"

type dimensioned interface {
	Dimensions() int
}

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cached decorates an Embedder with a key-value cache keyed by model, dimensions and text.
type Cached struct {
	inner      Embedder
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewCached creates a caching decorator. cacheTotal may be nil.
func NewCached(inner Embedder, s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Model returns the inner model name.
func (c *Cached) Model() string { return c.inner.Model() }

// Embed serves cached vectors and sends only the misses to the inner embedder in one batch.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
		if vec, ok := c.getFromCache(ctx, keys[i]); ok {
			c.incCache("hit")
			vectors[i] = vec
			continue
		}
		c.incCache("miss")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", errs.ErrShape, len(fresh), len(missTexts))
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		c.putToCache(ctx, keys[i], fresh[j])
	}

	return vectors, nil
}

func (c *Cached) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cached) cacheKey(text string) string {
	dims := 0
	if d, ok := c.inner.(dimensioned); ok {
		dims = d.Dimensions()
	}
	h := sha256.Sum256([]byte(c.inner.Model() + "\x00" + strconv.Itoa(dims) + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *Cached) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			c.logger.Warn("failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *Cached) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToBytes(vec), c.ttl); err != nil {
		c.logger.Warn("failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
