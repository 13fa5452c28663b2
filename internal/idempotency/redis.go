package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "clearing:idempotency:v1:"

// RedisStore keeps idempotency records as JSON values with a native TTL.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed idempotency store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// InsertIfAbsent uses SET NX so that only one caller can create the key.
func (s *RedisStore) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return false, fmt.Errorf("record for %s already expired", rec.TransactionID)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode idempotency record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+rec.TransactionID, payload, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", rec.TransactionID, err)
	}
	return ok, nil
}

// Get loads a record.
func (s *RedisStore) Get(ctx context.Context, transactionID string) (Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+transactionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load %s: %w", transactionID, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode idempotency record %s: %w", transactionID, err)
	}
	return rec, nil
}

// Update rewrites the record in place with SET XX KEEPTTL.
func (s *RedisStore) Update(ctx context.Context, transactionID string, status Status, outcome string) error {
	rec, err := s.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	rec.Status = status
	rec.Outcome = outcome
	rec.UpdatedAt = s.now().UTC()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	err = s.client.SetArgs(ctx, keyPrefix+transactionID, payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", transactionID, err)
	}
	return nil
}
