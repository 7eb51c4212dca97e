package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/paku/core"
)

// NewClient connects to the configured Redis server and pings it.
func NewClient(conf *core.Config) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Address,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return cli, nil
}
