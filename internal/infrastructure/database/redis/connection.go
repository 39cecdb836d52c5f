// internal/infrastructure/database/redis/connection.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

const (
	connectAttempts = 3
	connectBackoff  = 500 * time.Millisecond
)

// Client owns the shared Redis pool used for carts and rate limiting
type Client struct {
	rdb  *redis.Client
	addr string
}

// NewConnection dials Redis and waits for a successful ping, retrying a
// few times so the service can start alongside its Redis container
func NewConnection(cfg *config.Config, log *logrus.Logger) (*Client, error) {
	c := &Client{
		rdb:  redis.NewClient(options(cfg)),
		addr: cfg.GetRedisAddr(),
	}

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = c.ping(5 * time.Second); err == nil {
			log.WithFields(logrus.Fields{
				"addr": c.addr,
				"db":   cfg.Redis.DB,
			}).Info("Redis connection established")
			return c, nil
		}
		log.WithError(err).WithField("attempt", attempt).Warn("Redis not reachable yet")
		time.Sleep(time.Duration(attempt) * connectBackoff)
	}

	c.rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", c.addr, err)
}

func options(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

// GetClient returns the pool for stores and middleware
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close releases the pool
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings Redis for the health endpoint
func (c *Client) Health() error {
	return c.ping(3 * time.Second)
}

func (c *Client) ping(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}
