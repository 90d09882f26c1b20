package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithPath_Defaults(t *testing.T) {
	cfg, err := LoadWithPath(writeEnv(t, "APP_NAME=seatmap-test\n"))
	require.NoError(t, err)

	assert.Equal(t, "seatmap-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 0.5, cfg.SeatMap.MinScale)
	assert.Equal(t, 3.0, cfg.SeatMap.MaxScale)
	assert.Equal(t, 0.2, cfg.SeatMap.ZoomStep)
	assert.Equal(t, 20.0, cfg.SeatMap.GridSpacing)
	assert.Equal(t, "WALL", cfg.SeatMap.WallPrefix)
	assert.Equal(t, 30*time.Minute, cfg.SeatMap.ViewerIdleTTL)
	assert.Equal(t, 15*time.Second, cfg.SeatMap.AssignTimeout)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadWithPath_Overrides(t *testing.T) {
	cfg, err := LoadWithPath(writeEnv(t, `SERVER_PORT=9090
KAFKA_ENABLED=true
KAFKA_BROKERS=k1:9092, k2:9092
SEATMAP_WALL_PREFIX=BLOCK
SEATMAP_MAX_SCALE=5
DATABASE_ENABLED=false
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "BLOCK", cfg.SeatMap.WallPrefix)
	assert.Equal(t, 5.0, cfg.SeatMap.MaxScale)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadWithPath_MissingFile(t *testing.T) {
	_, err := LoadWithPath(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Name: "seatmap", Environment: "development"},
			Server: ServerConfig{Port: 8080},
			JWT:    JWTConfig{Secret: defaultJWTSecret},
			SeatMap: SeatMapConfig{
				MinScale: 0.5, MaxScale: 3, ZoomStep: 0.2, GridSpacing: 20,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no app name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"jwt without secret", func(c *Config) { c.JWT.Enabled = true; c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.JWT.Enabled = true
			c.App.Environment = "production"
		}, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
		{"inverted scales", func(c *Config) { c.SeatMap.MinScale = 4 }, true},
		{"zero zoom step", func(c *Config) { c.SeatMap.ZoomStep = 0 }, true},
		{"zero grid spacing", func(c *Config) { c.SeatMap.GridSpacing = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
