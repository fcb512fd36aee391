package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss means the key does not exist
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the key/value backend of the token registry (Redis in production)
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKVStore is the go-redis implementation of KVStore
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKVStore) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// SessionToken is the server-side record of an issued access token
type SessionToken struct {
	TokenID    string    `json:"tokenId"`
	Role       Role      `json:"role"`
	CenterID   string    `json:"centerId,omitempty"`
	CenterName string    `json:"centerName,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CheckedAt  time.Time `json:"checkedAt"`
}

const tokenKeyPrefix = "centerhub:token:"

// TokenRegistry tracks live tokens. A token missing from the registry is revoked.
type TokenRegistry struct {
	kv  KVStore
	now func() time.Time
}

// NewTokenRegistry creates a registry. now may be nil.
func NewTokenRegistry(kv KVStore, now func() time.Time) *TokenRegistry {
	if now == nil {
		now = time.Now
	}
	return &TokenRegistry{kv: kv, now: now}
}

// Put stores tok until its expiry
func (r *TokenRegistry) Put(ctx context.Context, tok SessionToken) error {
	ttl := tok.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("token %s already expired", tok.TokenID)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, tokenKeyPrefix+tok.TokenID, string(raw), ttl)
}

// Get returns the live token or ErrTokenRevoked
func (r *TokenRegistry) Get(ctx context.Context, tokenID string) (*SessionToken, error) {
	raw, err := r.kv.Get(ctx, tokenKeyPrefix+tokenID)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("token registry: %w", err)
	}
	var tok SessionToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", tokenID, err)
	}
	return &tok, nil
}

// Revoke removes a token
func (r *TokenRegistry) Revoke(ctx context.Context, tokenID string) error {
	return r.kv.Del(ctx, tokenKeyPrefix+tokenID)
}
