package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Nil is returned by reads of missing keys or fields
const Nil = redis.Nil

// Config holds Redis connection configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRetries bounds the pings made by NewClient before giving up
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          6379,
		PoolSize:      50,
		MinIdleConns:  5,
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
}

// Addr returns host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// Client is a go-redis client that keeps the Lua scripts of the service by
// name. Every go-redis command is available on it directly.
type Client struct {
	*redis.Client

	mu      sync.RWMutex
	scripts map[string]*redis.Script
}

// NewClient connects and pings until the server answers, ctx is done or
// the retries run out
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rdb := redis.NewClient(cfg.options())

	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return nil, fmt.Errorf("redis connect cancelled: %w", ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}
		if err = rdb.Ping(ctx).Err(); err == nil {
			return &Client{Client: rdb, scripts: make(map[string]*redis.Script)}, nil
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("redis at %s did not answer %d pings: %w", cfg.Addr(), cfg.MaxRetries+1, err)
}

// HealthCheck pings the server with a short deadline
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// script returns the script registered as name, registering src on first use
func (c *Client) script(name, src string) *redis.Script {
	c.mu.RLock()
	s, ok := c.scripts[name]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.scripts[name]; !ok {
		s = redis.NewScript(src)
		c.scripts[name] = s
	}
	return s
}

// LoadScript registers src as name and loads it into the server script
// cache. It returns the script hash.
func (c *Client) LoadScript(ctx context.Context, name, src string) (string, error) {
	s := c.script(name, src)
	if err := s.Load(ctx, c.Client).Err(); err != nil {
		return "", fmt.Errorf("failed to load script %s: %w", name, err)
	}
	return s.Hash(), nil
}

// ScriptHash returns the hash of a registered script
func (c *Client) ScriptHash(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.scripts[name]
	if !ok {
		return "", false
	}
	return s.Hash(), true
}

// RunScript evaluates the named script by hash. When the server lost its
// script cache the source is sent again with EVAL.
func (c *Client) RunScript(ctx context.Context, name, src string, keys []string, args ...interface{}) *redis.Cmd {
	return c.script(name, src).Run(ctx, c.Client, keys, args...)
}
