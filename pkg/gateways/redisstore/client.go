package redisstore

import (
	"context"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and checks the connection with a ping.
func NewClient(ctx context.Context, conf entities.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "redis connection to %s failed", conf.Addr)
	}
	return client, nil
}
