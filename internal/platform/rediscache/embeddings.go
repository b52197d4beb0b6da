package rediscache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

// EmbeddingCache stores vectors keyed by embedding model and content hash so
// index rebuilds only pay for chunks they have not seen before.
type EmbeddingCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*EmbeddingCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(log, rdb, cfg.Prefix, cfg.TTL), nil
}

func NewWithClient(log *logger.Logger, rdb goredis.UniversalClient, prefix string, ttl time.Duration) *EmbeddingCache {
	if prefix == "" {
		prefix = "reviewer:emb"
	}
	return &EmbeddingCache{
		log:    log.With("service", "EmbeddingCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *EmbeddingCache) key(model, hash string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, model, hash)
}

// Get returns the cached vector, or ok=false on a miss.
func (c *EmbeddingCache) Get(ctx context.Context, model, hash string) ([]float32, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(model, hash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := decodeVector(raw)
	if err != nil {
		c.log.Warn("Dropping undecodable cached embedding", "hash", hash, "error", err)
		return nil, false, nil
	}
	return vec, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, hash string, vec []float32) error {
	return c.rdb.Set(ctx, c.key(model, hash), encodeVector(vec), c.ttl).Err()
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *EmbeddingCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, fmt.Errorf("invalid vector payload length %d", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
