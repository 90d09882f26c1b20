package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// getTestConfig returns config for testing
func getTestConfig() *Config {
	cfg := DefaultConfig()

	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if password := os.Getenv("TEST_REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}

	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", cfg.Host)
	}
	if cfg.Port != 6379 {
		t.Errorf("Expected port 6379, got %d", cfg.Port)
	}
	if cfg.PoolSize != 50 {
		t.Errorf("Expected pool size 50, got %d", cfg.PoolSize)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis.example.com", Port: 6380}

	if got := cfg.Addr(); got != "redis.example.com:6380" {
		t.Errorf("Expected addr 'redis.example.com:6380', got '%s'", got)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "invalid-host-that-does-not-exist",
		Port:          9999,
		MaxRetries:    0,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   500 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewClient(ctx, cfg); err == nil {
		t.Error("Expected error for unreachable redis, got nil")
	}
}

func TestNewClient_CancelledDuringRetry(t *testing.T) {
	cfg := &Config{
		Host:          "invalid-host-that-does-not-exist",
		Port:          9999,
		MaxRetries:    5,
		RetryInterval: time.Hour,
		DialTimeout:   200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := NewClient(ctx, cfg); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("NewClient should stop retrying once the context is done")
	}
}

func TestClient_ScriptRegistry(t *testing.T) {
	c := &Client{scripts: make(map[string]*redis.Script)}

	if _, ok := c.ScriptHash("double"); ok {
		t.Error("Expected no hash before the script is used")
	}

	first := c.script("double", "return 1")
	if c.script("double", "return 2") != first {
		t.Error("Expected the first registration to win")
	}

	hash, ok := c.ScriptHash("double")
	if !ok {
		t.Fatal("Expected the script to be registered")
	}
	if len(hash) != 40 {
		t.Errorf("Expected SHA1 length 40, got %d", len(hash))
	}
	if hash != redis.NewScript("return 1").Hash() {
		t.Errorf("Hash = %s, want the hash of the first source", hash)
	}
}

// Integration tests - require Redis to be running

func TestClient_HealthCheck_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestClient_RunScriptReloadsAfterFlush_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	script := `return tonumber(ARGV[1]) * 2`

	result, err := client.RunScript(ctx, "test_double", script, nil, 7).Int()
	if err != nil {
		t.Fatalf("RunScript failed: %v", err)
	}
	if result != 14 {
		t.Errorf("Expected result 14, got %d", result)
	}

	if _, ok := client.ScriptHash("test_double"); !ok {
		t.Error("Expected script SHA to be cached")
	}

	// flush the server cache, the next call must reload transparently
	client.ScriptFlush(ctx)

	result, err = client.RunScript(ctx, "test_double", script, nil, 10).Int()
	if err != nil {
		t.Fatalf("RunScript after flush failed: %v", err)
	}
	if result != 20 {
		t.Errorf("Expected result 20, got %d", result)
	}
}

func TestClient_HashOperations_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	key := "test:hash:" + time.Now().Format("20060102150405")
	defer client.Del(ctx, key)

	if err := client.HSet(ctx, key, "f1", "v1", "f2", "v2").Err(); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	if val, _ := client.HGet(ctx, key, "f1").Result(); val != "v1" {
		t.Errorf("Expected 'v1', got '%s'", val)
	}

	if n, _ := client.HDel(ctx, key, "f1").Result(); n != 1 {
		t.Errorf("Expected 1 deleted field, got %d", n)
	}

	all, _ := client.HGetAll(ctx, key).Result()
	if len(all) != 1 {
		t.Errorf("Expected 1 field, got %d", len(all))
	}
}
