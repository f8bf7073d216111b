package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portal:browser:"

// RedisStore keeps sealed tokens in Redis so several portal replicas share
// the same browser areas. Each browser is one hash; fields are storage keys.
type RedisStore struct {
	client redis.UniversalClient
	sealer *Sealer
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient, sealer *Sealer) *RedisStore {
	return &RedisStore{client: client, sealer: sealer}
}

// NewRedisClient builds a client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func redisKey(browserID string) string {
	return redisKeyPrefix + browserID
}

// Get returns the token stored for the browser and kind.
func (s *RedisStore) Get(ctx context.Context, browserID string, kind Kind) (string, error) {
	if err := checkKey(browserID, kind); err != nil {
		return "", err
	}

	sealed, err := s.client.HGet(ctx, redisKey(browserID), kind.StorageKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return s.sealer.Open(browserID, kind, sealed)
}

// Set stores the token, replacing the previous one of the same kind.
func (s *RedisStore) Set(ctx context.Context, browserID string, kind Kind, token string) error {
	if err := checkEntry(browserID, kind, token); err != nil {
		return err
	}

	sealed, err := s.sealer.Seal(browserID, kind, token)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	if err := s.client.HSet(ctx, redisKey(browserID), kind.StorageKey(), sealed).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes the token of kind for the browser.
func (s *RedisStore) Clear(ctx context.Context, browserID string, kind Kind) error {
	if err := checkKey(browserID, kind); err != nil {
		return err
	}

	if err := s.client.HDel(ctx, redisKey(browserID), kind.StorageKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
