package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"reliefledger/internal/models"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "reliefledger"

type CacheService interface {
	// Stock record caching
	GetStockRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error)
	SetStockRecord(ctx context.Context, rec *models.StockRecord, ttl time.Duration) error
	DeleteStockRecord(ctx context.Context, id uuid.UUID) error

	// Analytics caching. Get reports false on a miss.
	GetAnalytics(ctx context.Context, name string, dst interface{}) (bool, error)
	SetAnalytics(ctx context.Context, name string, value interface{}, ttl time.Duration) error
	InvalidateAnalytics(ctx context.Context) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisCacheService(addr, password string, db int, log *logger.Logger) CacheService {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		log.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}

	return &redisCacheService{client: client, log: log}
}

func stockKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:stock:%s", keyPrefix, id.String())
}

func analyticsKey(name string) string {
	return fmt.Sprintf("%s:analytics:%s", keyPrefix, name)
}

func (r *redisCacheService) GetStockRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	data, err := r.client.Get(ctx, stockKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var rec models.StockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *redisCacheService) SetStockRecord(ctx context.Context, rec *models.StockRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, stockKey(rec.ID), data, ttl).Err()
}

func (r *redisCacheService) DeleteStockRecord(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, stockKey(id)).Err()
}

func (r *redisCacheService) GetAnalytics(ctx context.Context, name string, dst interface{}) (bool, error) {
	data, err := r.client.Get(ctx, analyticsKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) SetAnalytics(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, analyticsKey(name), data, ttl).Err()
}

func (r *redisCacheService) InvalidateAnalytics(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, analyticsKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type noopCacheService struct{}

// NewNoopCacheService returns a cache that never hits.
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetStockRecord(ctx context.Context, id uuid.UUID) (*models.StockRecord, error) {
	return nil, nil
}

func (noopCacheService) SetStockRecord(ctx context.Context, rec *models.StockRecord, ttl time.Duration) error {
	return nil
}

func (noopCacheService) DeleteStockRecord(ctx context.Context, id uuid.UUID) error { return nil }

func (noopCacheService) GetAnalytics(ctx context.Context, name string, dst interface{}) (bool, error) {
	return false, nil
}

func (noopCacheService) SetAnalytics(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	return nil
}

func (noopCacheService) InvalidateAnalytics(ctx context.Context) error { return nil }

func (noopCacheService) Ping(ctx context.Context) error { return nil }
