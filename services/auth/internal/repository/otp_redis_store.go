package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisOTPStore keeps OTP records as JSON values with a Redis TTL.
type RedisOTPStore struct {
	client redis.UniversalClient
}

var _ OTPStore = (*RedisOTPStore)(nil)

func NewRedisOTPStore(client redis.UniversalClient) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*domain.OTPRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	payload, err := s.client.Get(ctx, OTPKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}

	var record domain.OTPRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode otp: %w", err)
	}
	return &record, nil
}

func (s *RedisOTPStore) Put(ctx context.Context, phone string, record *domain.OTPRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("persist otp: non-positive ttl %s", ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.client.Set(ctx, OTPKey(phone), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.client.Del(ctx, OTPKey(phone)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}
