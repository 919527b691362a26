package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "checkflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Telegram.PollTimeout)
	assert.Equal(t, "postgres", cfg.Ledger.Backend)
	assert.Equal(t, "file", cfg.Directory.Backend)
	assert.Equal(t, "users.json", cfg.Directory.Path)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, 30*time.Second, cfg.Breaker.OpenTimeout)
	assert.Equal(t, ":8080", cfg.Admin.Addr)
	assert.Equal(t, "dev-token", cfg.Admin.Token)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Metrics.OTLPEndpoint)
	assert.Empty(t, cfg.Operators)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: file-token
  poll_timeout: 10
operators: [1001, 1002]
ledger:
  backend: memory
directory:
  backend: redis
  redis_addr: redis:6379
  redis_db: 2
breaker:
  open_timeout: 1m
log:
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, 10*time.Second, cfg.Telegram.PollTimeout)
	assert.Equal(t, []int64{1001, 1002}, cfg.Operators)
	assert.Equal(t, "memory", cfg.Ledger.Backend)
	assert.Equal(t, "redis", cfg.Directory.Backend)
	assert.Equal(t, "redis:6379", cfg.Directory.RedisAddr)
	assert.Equal(t, 2, cfg.Directory.RedisDB)
	assert.Equal(t, time.Minute, cfg.Breaker.OpenTimeout)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: file-token
directory:
  backend: memory
`)
	t.Setenv("CHECKFLOW_TELEGRAM_TOKEN", "env-token")
	t.Setenv("CHECKFLOW_OPERATORS", "7, 8")
	t.Setenv("CHECKFLOW_DIRECTORY_BACKEND", "postgres")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, []int64{7, 8}, cfg.Operators)
	assert.Equal(t, "postgres", cfg.Directory.Backend)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("BOT_API_TOKEN", "legacy-token")
	t.Setenv("ADMIN_IDS", "1001,1002")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "legacy-token", cfg.Telegram.Token)
	assert.Equal(t, []int64{1001, 1002}, cfg.Operators)
}

func TestLoad_InvalidOperator(t *testing.T) {
	t.Setenv("ADMIN_IDS", "1001,abc")

	_, err := Load("")

	assert.ErrorContains(t, err, `invalid operator id "abc"`)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.ErrorContains(t, err, "failed to read config file")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Telegram:  TelegramConfig{Token: "t", PollTimeout: time.Second},
			Operators: []int64{1},
			Ledger:    LedgerConfig{Backend: "postgres", DSN: "dsn"},
			Directory: DirectoryConfig{Backend: "file", Path: "users.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Missing Token", mutate: func(c *Config) { c.Telegram.Token = " " }, wantErr: "telegram.token is required"},
		{name: "No Operators", mutate: func(c *Config) { c.Operators = nil }, wantErr: "operator id is required"},
		{name: "Unknown Ledger", mutate: func(c *Config) { c.Ledger.Backend = "sheets" }, wantErr: `unknown ledger backend "sheets"`},
		{name: "Postgres Ledger Without DSN", mutate: func(c *Config) { c.Ledger.DSN = "" }, wantErr: "ledger.dsn is required"},
		{name: "Unknown Directory", mutate: func(c *Config) { c.Directory.Backend = "ldap" }, wantErr: `unknown directory backend "ldap"`},
		{name: "Redis Without Addr", mutate: func(c *Config) {
			c.Directory.Backend = "redis"
			c.Directory.RedisAddr = ""
		}, wantErr: "directory.redis_addr is required"},
		{name: "Memory Backends", mutate: func(c *Config) {
			c.Ledger = LedgerConfig{Backend: "memory"}
			c.Directory = DirectoryConfig{Backend: "memory"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
