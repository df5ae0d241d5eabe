package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Auth.MaxTokens != 5 {
		t.Errorf("expected max tokens 5, got %d", cfg.Auth.MaxTokens)
	}
	if cfg.Auth.TokenTTL != 365*24*time.Hour {
		t.Errorf("expected token ttl 365d, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Billing.Schedule != "0 6 1,16 * *" {
		t.Errorf("unexpected billing schedule %q", cfg.Billing.Schedule)
	}
}

func TestLoadFromYAMLOverride(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH__JWT_SECRET", testSecret)
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origins: ["http://example.com"]
postgres:
  max_conns: 20
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://example.com" {
		t.Errorf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadFromMissingYAML(t *testing.T) {
	t.Setenv(EnvPrefix+"AUTH__JWT_SECRET", testSecret)
	if _, err := LoadFrom("/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadFromEnvWins(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPrefix+"AUTH__JWT_SECRET", testSecret)
	t.Setenv(EnvPrefix+"SERVER__PORT", "7070")
	t.Setenv(EnvPrefix+"BREAKER__TIMEOUT", "1m")
	t.Setenv(EnvPrefix+"RATELIMIT__AUTH_REQUESTS", "3")
	t.Setenv(EnvPrefix+"SERVER__CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.RateLimit.AuthRequests != 3 {
		t.Errorf("expected auth requests 3, got %d", cfg.RateLimit.AuthRequests)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins %v", cfg.Server.CORSOrigins)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected DATABASE_URL dsn, got %s", cfg.Postgres.DSN)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Postgres.DSN = "" },
			errMsg: "postgres.dsn is required",
		},
		{
			name:   "empty redis",
			modify: func(c *Config) { c.Redis.Addr = "" },
			errMsg: "redis.addr is required",
		},
		{
			name:   "missing secret",
			modify: func(c *Config) { c.Auth.JWTSecret = "" },
			errMsg: "auth.jwt_secret is required",
		},
		{
			name:   "short secret",
			modify: func(c *Config) { c.Auth.JWTSecret = "short" },
			errMsg: "auth.jwt_secret must be at least 32 bytes",
		},
		{
			name:   "zero max tokens",
			modify: func(c *Config) { c.Auth.MaxTokens = 0 },
			errMsg: "auth.max_tokens must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Auth.JWTSecret = testSecret
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"PROPERTYHUB_SERVER__PORT":            "server.port",
		"PROPERTYHUB_AUTH__JWT_SECRET":        "auth.jwt_secret",
		"PROPERTYHUB_CACHE__L1_MAX_COST":      "cache.l1_max_cost",
		"PROPERTYHUB_BILLING__PLANS_FILE":     "billing.plans_file",
		"PROPERTYHUB_OTEL__SERVICE_NAME":      "otel.service_name",
		"PROPERTYHUB_REALTIME__WRITE_TIMEOUT": "realtime.write_timeout",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
