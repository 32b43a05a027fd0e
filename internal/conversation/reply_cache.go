package conversation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ReplyCache stores provider replies keyed by provider and user text.
// It holds no conversation history.
type ReplyCache interface {
	Get(ctx context.Context, provider, text string) (string, bool, error)
	Put(ctx context.Context, provider, text, reply string) error
}

// RedisReplyCache is a ReplyCache backed by Redis with a fixed TTL.
type RedisReplyCache struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisReplyCache(client *redis.Client, ttl time.Duration) *RedisReplyCache {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisReplyCache{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("rahi.internal.conversation.cache"),
	}
}

func (c *RedisReplyCache) Get(ctx context.Context, provider, text string) (string, bool, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.cache_get")
	defer span.End()

	reply, err := c.redis.Get(ctx, replyCacheKey(provider, text)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("conversation: failed to read reply cache: %w", err)
	}
	return reply, true, nil
}

func (c *RedisReplyCache) Put(ctx context.Context, provider, text, reply string) error {
	ctx, span := c.tracer.Start(ctx, "conversation.cache_put")
	defer span.End()

	if err := c.redis.Set(ctx, replyCacheKey(provider, text), reply, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to write reply cache: %w", err)
	}
	return nil
}

func replyCacheKey(provider, text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return fmt.Sprintf("reply:%s:%s", provider, hex.EncodeToString(sum[:]))
}
