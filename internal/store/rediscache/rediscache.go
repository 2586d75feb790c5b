// Package rediscache decorates a signal store with a Redis read-through
// cache for the slow-changing lookups: per-unit geography attributes and
// citywide baselines. Date-windowed signal and population fetches pass
// through uncached. Redis trouble never fails a read; the decorator logs
// and falls back to the inner store.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/engine"
)

const keyPrefix = "uci"

// Store wraps an engine.Store with cached geo and baseline lookups.
type Store struct {
	inner  engine.Store
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// New creates the cache decorator. It verifies connectivity up front so a
// misconfigured Redis address fails at startup, not mid-batch.
func New(ctx context.Context, inner engine.Store, addr string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return &Store{inner: inner, client: client, logger: logger, ttl: ttl}, nil
}

// Close releases the Redis client. The inner store is not closed.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) FetchSignals(ctx context.Context, unitID, from, to string) ([]domain.SignalRecord, error) {
	return s.inner.FetchSignals(ctx, unitID, from, to)
}

func (s *Store) FetchPopulation(ctx context.Context, unitID, from, to string) ([]domain.PopulationRecord, error) {
	return s.inner.FetchPopulation(ctx, unitID, from, to)
}

func (s *Store) ListUnits(ctx context.Context) ([]string, error) {
	return s.inner.ListUnits(ctx)
}

func (s *Store) FetchGeo(ctx context.Context, unitID string) (*domain.GeoAttributes, error) {
	key := fmt.Sprintf("%s:geo:%s", keyPrefix, unitID)

	var cached domain.GeoAttributes
	if hit, err := s.lookup(ctx, key, &cached); err != nil {
		s.logger.Warn("geo cache read failed", "unit_id", unitID, "error", err)
	} else if hit {
		return &cached, nil
	}

	geo, err := s.inner.FetchGeo(ctx, unitID)
	if err != nil {
		return nil, err
	}
	// Absence is not cached: a unit gaining geo data must be visible
	// within one fetch, not one TTL.
	if geo != nil {
		s.save(ctx, key, geo)
	}
	return geo, nil
}

func (s *Store) FetchBaseline(ctx context.Context, period, category string) (*domain.BaselineMetric, error) {
	key := fmt.Sprintf("%s:baseline:%s:%s", keyPrefix, period, category)

	var cached domain.BaselineMetric
	if hit, err := s.lookup(ctx, key, &cached); err != nil {
		s.logger.Warn("baseline cache read failed", "period", period, "category", category, "error", err)
	} else if hit {
		return &cached, nil
	}

	baseline, err := s.inner.FetchBaseline(ctx, period, category)
	if err != nil {
		return nil, err
	}
	if baseline != nil {
		s.save(ctx, key, baseline)
	}
	return baseline, nil
}

// lookup reads and decodes a cached value. A decode failure is treated as
// a miss after deleting the bad key.
func (s *Store) lookup(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
