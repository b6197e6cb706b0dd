package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCUMIND_AUTH_JWT_SECRET", "s3cret")
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.Listen != ":8000" {
		t.Fatalf("listen = %q", cfg.General.Listen)
	}
	if cfg.Auth.TokenTTL() != 30*time.Minute {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL())
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" || cfg.LLM.MaxContextChars != 25000 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 20*time.Second {
		t.Fatalf("llm timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.RateLimit.ChatRequests != 5 || cfg.RateLimit.ChatWindow != time.Minute {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.LLM.Enabled() {
		t.Fatalf("llm should be disabled without a key")
	}
	if cfg.Storage.Postgres.Configured() || cfg.Storage.Redis.Configured() {
		t.Fatalf("storage should be unconfigured by default")
	}
	if len(cfg.CORS.AllowOrigins) != 1 || cfg.CORS.AllowOrigins[0] != "*" {
		t.Fatalf("cors = %#v", cfg.CORS.AllowOrigins)
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `{
		"general": {"listen": "9090"},
		"auth": {"jwt_secret": "from-file", "access_token_expire_minutes": 5},
		"llm": {"api_key": "gsk_file", "timeout": "3s"},
		"rate_limit": {"chat_requests": 2, "chat_window": "10s"},
		"cors": {"allow_origins": ["http://localhost:3000", " "]},
		"storage": {"postgres": {"host": "db", "user": "u", "password": "p", "dbname": "documind"}}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.Listen != ":9090" {
		t.Fatalf("listen = %q", cfg.General.Listen)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.Auth.TokenTTL() != 5*time.Minute {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.LLM.Timeout != 3*time.Second || !cfg.LLM.Enabled() {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.Transcription.APIKey != "gsk_file" {
		t.Fatalf("transcription key should inherit llm key, got %q", cfg.Transcription.APIKey)
	}
	if cfg.RateLimit.ChatRequests != 2 || cfg.RateLimit.ChatWindow != 10*time.Second {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
	if len(cfg.CORS.AllowOrigins) != 1 || cfg.CORS.AllowOrigins[0] != "http://localhost:3000" {
		t.Fatalf("cors = %#v", cfg.CORS.AllowOrigins)
	}
	if got := cfg.Storage.Postgres.DSN(); got != "postgres://u:p@db:5432/documind?sslmode=disable" {
		t.Fatalf("dsn = %q", got)
	}
}

func TestLoadLegacyEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("GROQ_API_KEY", "gsk_env")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "45")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("DATABASE_URL", "postgres://x@y/z")

	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "legacy" || cfg.Auth.AccessTokenExpireMinutes != 45 {
		t.Fatalf("auth = %+v", cfg.Auth)
	}
	if cfg.LLM.APIKey != "gsk_env" {
		t.Fatalf("llm key = %q", cfg.LLM.APIKey)
	}
	if cfg.Storage.Redis.URL != "redis://cache:6379/1" {
		t.Fatalf("redis url = %q", cfg.Storage.Redis.URL)
	}
	if cfg.Storage.Postgres.DSN() != "postgres://x@y/z" {
		t.Fatalf("dsn = %q", cfg.Storage.Postgres.DSN())
	}
}

func TestPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("DOCUMIND_AUTH_JWT_SECRET", "prefixed")
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "prefixed" {
		t.Fatalf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	if _, err := Load(writeConfig(t, `{}`)); err == nil {
		t.Fatalf("expected error without jwt secret")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestRateLimitValidate(t *testing.T) {
	if err := (RateLimitConfig{ChatRequests: -1}).Validate(); err == nil {
		t.Fatalf("negative requests should fail")
	}
	if err := (RateLimitConfig{ChatRequests: 3}).Validate(); err == nil {
		t.Fatalf("missing window should fail")
	}
	if err := (RateLimitConfig{}).Validate(); err != nil {
		t.Fatalf("zero disables limiting: %v", err)
	}
}

func TestPostgresValidate(t *testing.T) {
	if err := (PostgresConfig{Host: "db"}).Validate(); err == nil {
		t.Fatalf("host without dbname should fail")
	}
	if err := (PostgresConfig{URL: "postgres://a"}).Validate(); err != nil {
		t.Fatalf("url should pass: %v", err)
	}
}

func TestRedisAddr(t *testing.T) {
	if got := (RedisConfig{Host: "cache"}).Addr(); got != "cache:6379" {
		t.Fatalf("addr = %q", got)
	}
}
