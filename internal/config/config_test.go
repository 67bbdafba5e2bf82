package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  mode: debug
database:
  host: db.internal
  password: secret
embedding:
  provider: openai
  openai:
    api_key: sk-test
scan:
  presave_threshold: 80
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, float64(80), cfg.Scan.PresaveThreshold)

	// Unset fields picked up defaults.
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, 15, cfg.Scoring.Levels.MediumMin)
	assert.Equal(t, 36, cfg.Scoring.Levels.HighMin)
	assert.Equal(t, 3, cfg.Scan.MinTitleLength)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GRANITE_SERVER_PORT", "7070")
	t.Setenv("GRANITE_DATABASE_HOST", "pg.example.com")
	t.Setenv("GRANITE_REDIS_ADDR", "cache.example.com:6379")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "pg.example.com", cfg.Database.Host)
	assert.Equal(t, "cache.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown embedding provider",
			mutate:  func(c *Config) { c.Embedding.Provider = "triton" },
			wantErr: true,
		},
		{
			name: "milvus enabled without addr",
			mutate: func(c *Config) {
				c.Milvus.Enabled = true
				c.Milvus.Addr = ""
			},
			wantErr: true,
		},
		{
			name:    "inverted level bands",
			mutate:  func(c *Config) { c.Scoring.Levels.HighMin = 10 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
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

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "granite", Password: "pw",
		DBName: "granite", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://granite:pw@localhost:5432/granite?sslmode=disable", db.DSN())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Redis.VectorTTL = time.Minute
	cfg.Scan.ProgressCap = 90
	ApplyDefaults(cfg)

	assert.Equal(t, time.Minute, cfg.Redis.VectorTTL)
	assert.Equal(t, 90, cfg.Scan.ProgressCap)
}
