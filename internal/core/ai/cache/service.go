package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisKeyPrefix = "ingredient-analyzer:"

// Service Redis 快取，多個實例可共用推理結果
type Service struct {
	client *redis.Client
	ttl    time.Duration
	hits   int64
	misses int64
}

// NewService 連線 Redis 並以 Ping 驗證
func NewService(ctx context.Context, cfg config.CacheConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis cache connected",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
		zap.Duration("ttl", cfg.TTL),
	)
	return newServiceWithClient(client, cfg.TTL), nil
}

func newServiceWithClient(client *redis.Client, ttl time.Duration) *Service {
	return &Service{client: client, ttl: ttl}
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		atomic.AddInt64(&s.misses, 1)
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("redis")
			return "", ErrMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	atomic.AddInt64(&s.hits, 1)
	common.LogCacheHit("redis")
	return val, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Stats 回傳命中統計與連線狀態
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"backend": "redis",
		"hits":    atomic.LoadInt64(&s.hits),
		"misses":  atomic.LoadInt64(&s.misses),
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		stats["status"] = "unavailable"
		stats["error"] = err.Error()
	} else {
		stats["status"] = "ok"
	}
	return stats
}

// Close 關閉連線
func (s *Service) Close() error {
	return s.client.Close()
}

// New 依設定建立快取；停用時回傳 nil
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case "redis":
		svc, err := NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return NewManager(cfg), nil
	}
}
