package mfa

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKeyPrefix = "user:"
	defaultRedisField     = "mfa_enabled"
)

// RedisGate reads the MFA flag from a hash stored at KeyPrefix+principalID.
//
// A missing key or field means MFA is disabled. Field values are parsed with
// strconv.ParseBool, so "1", "t" and "true" all count as enabled.
type RedisGate struct {
	client    redis.Cmdable
	keyPrefix string
	field     string
}

// RedisOption customizes a [RedisGate].
type RedisOption func(*RedisGate)

// WithKeyPrefix overrides the hash key prefix (default "user:").
func WithKeyPrefix(prefix string) RedisOption {
	return func(g *RedisGate) { g.keyPrefix = prefix }
}

// WithField overrides the hash field (default "mfa_enabled").
func WithField(field string) RedisOption {
	return func(g *RedisGate) { g.field = field }
}

func NewRedisGate(client redis.Cmdable, opts ...RedisOption) *RedisGate {
	g := &RedisGate{
		client:    client,
		keyPrefix: defaultRedisKeyPrefix,
		field:     defaultRedisField,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RedisGate) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	raw, err := g.client.HGet(ctx, g.keyPrefix+principalID, g.field).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if raw == "" {
		return false, nil
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: malformed %s value %q", ErrLookupFailed, g.field, raw)
	}
	return enabled, nil
}
