// Package session provides an optional Redis cache for bearer-token lookups.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zedit/api/internal/store"
)

// ErrMiss is returned when a token has no cached user.
var ErrMiss = errors.New("session cache miss")

// cachedUser is the subset of the user record the auth middleware needs.
// The password hash is deliberately not cached.
type cachedUser struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProfilePic  string `json:"profile_pic"`
	AvatarColor string `json:"avatar_color"`
	Theme       string `json:"theme"`
}

// RedisCache memoizes token-hash to user lookups. Postgres stays the source
// of truth; entries expire quickly so profile updates surface within the TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient builds a cache from an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, prefix: "authcache:", ttl: ttl}
}

// HashToken keys cache entries by digest so raw bearer tokens never reach Redis.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (c *RedisCache) key(tokenHash string) string {
	return c.prefix + tokenHash
}

// Put stores the user for the given token hash.
func (c *RedisCache) Put(ctx context.Context, tokenHash string, user store.User) error {
	data, err := json.Marshal(cachedUser{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		ProfilePic:  user.ProfilePic,
		AvatarColor: user.AvatarColor,
		Theme:       user.Theme,
	})
	if err != nil {
		return fmt.Errorf("marshal cached user: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tokenHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	return nil
}

// Get returns the cached user for a token hash, or ErrMiss.
func (c *RedisCache) Get(ctx context.Context, tokenHash string) (store.User, error) {
	data, err := c.client.Get(ctx, c.key(tokenHash)).Result()
	if err == redis.Nil {
		return store.User{}, ErrMiss
	}
	if err != nil {
		return store.User{}, fmt.Errorf("cache lookup: %w", err)
	}

	var cached cachedUser
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		return store.User{}, fmt.Errorf("unmarshal cached user: %w", err)
	}
	return store.User{
		ID:          cached.ID,
		Name:        cached.Name,
		Email:       cached.Email,
		ProfilePic:  cached.ProfilePic,
		AvatarColor: cached.AvatarColor,
		Theme:       cached.Theme,
	}, nil
}

// Invalidate drops the cached entry for a user's tokens after profile changes.
func (c *RedisCache) Invalidate(ctx context.Context, tokenHash string) error {
	if err := c.client.Del(ctx, c.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
