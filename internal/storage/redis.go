package storage

import (
	"context"

	"github.com/SurajPatil2645/VentureFlow/internal/redis"
)

func openRedis(_ context.Context, config Config) (Backend, error) {
	return redis.NewClient(&redis.Config{
		Address:  config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		PoolSize: config.RedisPoolSize,
	})
}
