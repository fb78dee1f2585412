package adapter

import (
	"context"
	"fmt"
	"roofing-photo-sync/internal/config"
	"roofing-photo-sync/internal/queue"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("gagal terhubung ke redis: %w", err)
	}
	return client, nil
}

// RedisStatsPublisher keeps the queue counters in a Redis hash for dashboards.
type RedisStatsPublisher struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisStatsPublisher(client *redis.Client, key string) *RedisStatsPublisher {
	return &RedisStatsPublisher{client: client, key: key, now: time.Now}
}

func (p *RedisStatsPublisher) Publish(ctx context.Context, stats queue.Stats) error {
	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, p.key, map[string]interface{}{
		"pending":    stats.Pending,
		"syncing":    stats.Syncing,
		"completed":  stats.Completed,
		"failed":     stats.Failed,
		"updated_at": p.now().Unix(),
	})
	_, err := pipe.Exec(ctx)
	return err
}
