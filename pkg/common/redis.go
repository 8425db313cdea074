package common

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	redis.UniversalClient
}

type RedisOption func(*redis.UniversalOptions)

func WithClientName(name string) RedisOption {
	return func(uo *redis.UniversalOptions) {
		uo.ClientName = name
	}
}

func WithTLS(config *tls.Config) RedisOption {
	return func(uo *redis.UniversalOptions) {
		uo.TLSConfig = config
	}
}

// NewRedisClient connects to a single node or a cluster and pings it
func NewRedisClient(config types.RedisConfig, options ...RedisOption) (*RedisClient, error) {
	if !config.IsConfigured() {
		return nil, &types.ConfigurationError{Key: "REDIS_ADDR"}
	}

	opts := &redis.UniversalOptions{
		Addrs:        config.Addrs,
		Username:     config.Username,
		Password:     config.Password,
		ClientName:   config.ClientName,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		MaxRetries:   config.MaxRetries,
	}
	for _, opt := range options {
		opt(opts)
	}

	var client redis.UniversalClient
	switch config.Mode {
	case types.RedisModeCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case types.RedisModeSingle, "":
		client = redis.NewClient(opts.Simple())
	default:
		return nil, fmt.Errorf("invalid redis mode: %s", config.Mode)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, &types.ConnectionError{Backend: "redis", Err: err}
	}

	return &RedisClient{UniversalClient: client}, nil
}
