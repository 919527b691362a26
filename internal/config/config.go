package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CHECKFLOW_LEDGER_DSN
const EnvPrefix = "CHECKFLOW"

// Config holds the process configuration
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Operators []int64         `mapstructure:"-"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"-"`
}

type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // postgres, memory
	DSN     string `mapstructure:"dsn"`
}

type DirectoryConfig struct {
	Backend   string `mapstructure:"backend"` // file, redis, postgres, memory
	Path      string `mapstructure:"path"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	RedisKey  string `mapstructure:"redis_key"`
}

type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

type AdminConfig struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

type MetricsConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("operators", "")
	v.SetDefault("ledger.backend", "postgres")
	v.SetDefault("ledger.dsn", "host=localhost port=5432 user=postgres password=postgres dbname=checkflow sslmode=disable")
	v.SetDefault("directory.backend", "file")
	v.SetDefault("directory.path", "users.json")
	v.SetDefault("directory.redis_addr", "localhost:6379")
	v.SetDefault("directory.redis_db", 0)
	v.SetDefault("directory.redis_key", "checkflow:recipients")
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.open_timeout", "30s")
	v.SetDefault("admin.addr", ":8080")
	v.SetDefault("admin.token", "dev-token")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.otlp_endpoint", "")
}

// Load reads defaults, then the optional YAML file at path, then the environment.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments
	if err := v.BindEnv("telegram.token", EnvPrefix+"_TELEGRAM_TOKEN", "BOT_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}
	if err := v.BindEnv("operators", EnvPrefix+"_OPERATORS", "ADMIN_IDS"); err != nil {
		return nil, fmt.Errorf("failed to bind operators env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	operators, err := parseOperators(v.Get("operators"))
	if err != nil {
		return nil, err
	}
	cfg.Operators = operators
	cfg.Telegram.PollTimeout = time.Duration(v.GetInt("telegram.poll_timeout")) * time.Second

	return cfg, nil
}

// parseOperators accepts a comma separated string or a YAML list of ids
func parseOperators(raw interface{}) ([]int64, error) {
	var parts []string
	switch value := raw.(type) {
	case nil:
	case string:
		parts = strings.Split(value, ",")
	case []interface{}:
		for _, item := range value {
			parts = append(parts, fmt.Sprint(item))
		}
	case []string:
		parts = value
	default:
		parts = []string{fmt.Sprint(value)}
	}

	var ids []int64
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid operator id %q: %w", part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Validate rejects configurations the process cannot start with
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if len(c.Operators) == 0 {
		errs = append(errs, errors.New("at least one operator id is required"))
	}

	switch c.Ledger.Backend {
	case "postgres":
		if c.Ledger.DSN == "" {
			errs = append(errs, errors.New("ledger.dsn is required for the postgres backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	switch c.Directory.Backend {
	case "file":
		if c.Directory.Path == "" {
			errs = append(errs, errors.New("directory.path is required for the file backend"))
		}
	case "redis":
		if c.Directory.RedisAddr == "" {
			errs = append(errs, errors.New("directory.redis_addr is required for the redis backend"))
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			errs = append(errs, errors.New("ledger.dsn is required for the postgres directory"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown directory backend %q", c.Directory.Backend))
	}

	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, errors.New("telegram.poll_timeout must not be negative"))
	}

	return errors.Join(errs...)
}
