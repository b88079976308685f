// Package redis wraps the go-redis client with connection verification so
// startup fails fast on a misconfigured address.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client embeds the go-redis client with a health check.
type Client struct {
	*redis.Client
}

// Connect creates a client for addr and verifies the connection with a ping.
func Connect(ctx context.Context, addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection is still usable.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
