package db

import (
	"context"
	"fmt"
	"time"

	conf "github.com/iceymoss/go-agora/pkg/config"

	"github.com/go-redis/redis/v8"
)

// NewRedis 创建 redis 客户端并做一次连通性检查
func NewRedis(ctx context.Context, cfg conf.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.PassWord,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	return rdb, nil
}
