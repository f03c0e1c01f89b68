package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client publishes admitted transactions to Redis.
type Client struct {
	rdb     *redis.Client
	channel string
	recent  string
	keep    int64
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
	// Recent caps the list of the latest payloads kept under "<channel>:recent".
	// Zero disables the list.
	Recent int64 `yaml:"recent"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg), nil
}

func newClient(rdb *redis.Client, cfg Config) *Client {
	channel := cfg.Channel
	if channel == "" {
		channel = "tokenwatch:transactions"
	}
	return &Client{
		rdb:     rdb,
		channel: channel,
		recent:  recentKey(channel),
		keep:    cfg.Recent,
	}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func recentKey(channel string) string {
	return fmt.Sprintf("%s:recent", channel)
}

// Channel returns the publish channel.
func (c *Client) Channel() string {
	return c.channel
}

// Publish sends payload to the channel and, when enabled, prepends it to the
// capped recent list in the same pipeline.
func (c *Client) Publish(ctx context.Context, payload []byte) error {
	pipe := c.rdb.TxPipeline()
	pipe.Publish(ctx, c.channel, payload)
	if c.keep > 0 {
		pipe.LPush(ctx, c.recent, payload)
		pipe.LTrim(ctx, c.recent, 0, c.keep-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest payloads, newest first.
func (c *Client) Recent(ctx context.Context, n int64) ([][]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	vals, err := c.rdb.LRange(ctx, c.recent, 0, n-1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}
