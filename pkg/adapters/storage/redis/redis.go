package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

const keyPrefix = "atransport:invocation:"

// InvocationStore implements InvocationStore using Redis
type InvocationStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewInvocationStore creates a new Redis invocation store. Every save
// refreshes the key's TTL.
func NewInvocationStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *InvocationStore {
	return &InvocationStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists an invocation as JSON
func (s *InvocationStore) Save(ctx context.Context, inv *domain.Invocation) error {
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("invocation ID is required")
	}

	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation: %w", err)
	}

	if err := s.client.Set(ctx, getInvocationKey(inv.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save invocation: %w", err)
	}

	s.logger.Debug("invocation saved",
		zap.String("invocation_id", inv.ID),
		zap.String("status", string(inv.Status)))

	return nil
}

// Get retrieves an invocation
func (s *InvocationStore) Get(ctx context.Context, id string) (*domain.Invocation, error) {
	data, err := s.client.Get(ctx, getInvocationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("invocation %s: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invocation: %w", err)
	}

	return decodeInvocation(data)
}

// List returns all stored invocations, oldest first
func (s *InvocationStore) List(ctx context.Context) ([]*domain.Invocation, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	invocations := make([]*domain.Invocation, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			// expired between SCAN and GET
			continue
		}

		inv, err := decodeInvocation(data)
		if err != nil {
			s.logger.Warn("skipping undecodable invocation",
				zap.String("key", key),
				zap.Error(err))
			continue
		}
		invocations = append(invocations, inv)
	}

	sort.Slice(invocations, func(i, j int) bool {
		return invocations[i].SubmittedAt.Before(invocations[j].SubmittedAt)
	})

	return invocations, nil
}

// Delete removes an invocation
func (s *InvocationStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, getInvocationKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete invocation: %w", err)
	}

	s.logger.Debug("invocation deleted", zap.String("invocation_id", id))
	return nil
}

func decodeInvocation(data []byte) (*domain.Invocation, error) {
	var inv domain.Invocation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invocation: %w", err)
	}
	return &inv, nil
}

// getInvocationKey returns the Redis key for an invocation
func getInvocationKey(id string) string {
	return keyPrefix + id
}
