package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "propertyhub.yaml"

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: PROPERTYHUB_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "PROPERTYHUB_"

// sliceKeys are parsed from comma-separated env values.
var sliceKeys = []string{
	"server.cors_origins",
	"realtime.origin_patterns",
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if yamlPath != "" {
		if _, err := os.Stat(yamlPath); err == nil {
			if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config yaml %s: %w", yamlPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	// DATABASE_URL is honoured for parity with the integration tests.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" && os.Getenv(EnvPrefix+"POSTGRES__DSN") == "" {
		if err := k.Set("postgres.dsn", dsn); err != nil {
			return nil, fmt.Errorf("config env: %w", err)
		}
	}
	if err := splitSlices(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

// envKey maps PROPERTYHUB_RATELIMIT__AUTH_REQUESTS to ratelimit.auth_requests.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.MaxTokens < 1 {
		return errors.New("auth.max_tokens must be >= 1")
	}
	if c.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.AuthRequests < 1 {
		return errors.New("ratelimit.requests must be >= 1")
	}
	return nil
}
