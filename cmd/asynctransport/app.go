package main

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/internal/application/orchestrator"
	"github.com/smithcommajoseph/async-transport/internal/config"
	eventsmemory "github.com/smithcommajoseph/async-transport/pkg/adapters/events/memory"
	"github.com/smithcommajoseph/async-transport/pkg/adapters/events/redis"
	"github.com/smithcommajoseph/async-transport/pkg/adapters/fetch"
	"github.com/smithcommajoseph/async-transport/pkg/adapters/llm"
	"github.com/smithcommajoseph/async-transport/pkg/adapters/metrics/prometheus"
	storagememory "github.com/smithcommajoseph/async-transport/pkg/adapters/storage/memory"
	redisstorage "github.com/smithcommajoseph/async-transport/pkg/adapters/storage/redis"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

// components are the adapters shared by serve and run
type components struct {
	eventBus    ports.EventBus
	store       ports.InvocationStore
	metrics     *prometheus.Collector
	validator   *orchestrator.Validator
	builder     *orchestrator.StepBuilder
	redisClient *goredis.Client
}

// newComponents builds the adapters. Redis backs events and storage when
// useRedis is set and an address is configured.
func newComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, useRedis bool) (*components, error) {
	c := &components{
		metrics: prometheus.NewCollector(),
	}

	if useRedis && cfg.UseRedis() {
		c.redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			_ = c.redisClient.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		c.eventBus = redis.NewStreamsEventBus(c.redisClient, cfg.Redis.StreamMaxLen, logger)
		c.store = redisstorage.NewInvocationStore(c.redisClient, cfg.Storage.ResultTTL, logger)
	} else {
		logger.Info("using in-memory event bus and storage")
		c.eventBus = eventsmemory.NewInMemoryEventBus()
		c.store = storagememory.NewInMemoryInvocationStore()
	}

	llmClient, err := llm.NewClient(&llm.Config{
		Provider:         cfg.LLM.Provider,
		APIKey:           cfg.LLM.APIKey,
		DefaultModel:     cfg.LLM.DefaultModel,
		DefaultMaxTokens: cfg.LLM.DefaultMaxTokens,
		Logger:           logger,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Info("LLM steps disabled: no API key configured")
		llmClient = nil
	case err != nil:
		c.close(logger)
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	fetcher := fetch.NewClient(cfg.Fetch.Timeout, cfg.Fetch.MaxBodyBytes, logger)

	c.validator = orchestrator.NewValidator(cfg.Limits.MaxSteps, llmClient != nil)
	c.builder = orchestrator.NewStepBuilder(fetcher, llmClient)

	return c, nil
}

// newManager creates the orchestrator over the components
func (c *components) newManager(cfg *config.Config, dispatcher ports.Dispatcher, logger *zap.Logger) *orchestrator.Manager {
	return orchestrator.NewManager(
		c.eventBus,
		c.store,
		c.metrics,
		c.validator,
		c.builder,
		dispatcher,
		logger,
		cfg.Strategy(),
		cfg.Timeouts.InvocationTimeout,
	)
}

func (c *components) close(logger *zap.Logger) {
	if c.eventBus != nil {
		if err := c.eventBus.Close(); err != nil {
			logger.Error("event bus close error", zap.Error(err))
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}
}
