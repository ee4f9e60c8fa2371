package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFingerprintTTL is used when the store is built with a zero ttl
const DefaultFingerprintTTL = 5 * time.Minute

// Store keeps relay change-detection state in Redis so it survives restarts
// and can be inspected from outside the process.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultFingerprintTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the stored fingerprint and whether one exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, FingerprintKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // miss
		}
		return "", false, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return v, true, nil
}

// Set stores a fingerprint with the store ttl.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, FingerprintKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save fingerprint: %w", err)
	}
	return nil
}

// Flush removes every stored fingerprint, forcing the next tick to broadcast.
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixFingerprint+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete fingerprint key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush fingerprints: %w", err)
	}
	return nil
}
