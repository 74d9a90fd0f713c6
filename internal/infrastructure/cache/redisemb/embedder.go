package redisemb

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/rueidis"

	"github.com/deckhaven/cardsearch/internal/core/ports"
)

const keyPrefix = "cardsearch:emb:"

// CachedEmbedder decorates an embedder with a Redis cache keyed by the
// query text hash. Cache failures degrade to a direct embedder call and are
// logged, never surfaced to the search path.
type CachedEmbedder struct {
	inner    ports.Embedder
	client   rueidis.Client
	ttl      time.Duration
	requests *prometheus.CounterVec
	logger   *slog.Logger
}

func New(
	inner ports.Embedder,
	client rueidis.Client,
	ttl time.Duration,
	requests *prometheus.CounterVec,
	logger *slog.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedEmbedder{
		inner:    inner,
		client:   client,
		ttl:      ttl,
		requests: requests,
		logger:   logger,
	}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return vec, nil
	}
	c.count("miss")

	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	cmd := c.client.B().Get().Key(key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("embedding_cache_get_failed", "key", key, "error", err)
		}
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("embedding_cache_corrupt", "key", key, "error", err)
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	cmd := c.client.B().Set().Key(key).Value(string(vectorToBytes(vec))).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("embedding_cache_set_failed", "key", key, "error", err)
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.requests != nil {
		c.requests.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid cached embedding: %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
