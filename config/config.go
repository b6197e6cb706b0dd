package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the API service
type Config struct {
	General       GeneralConfig       `mapstructure:"general"`
	Auth          AuthConfig          `mapstructure:"auth"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Upload        UploadConfig        `mapstructure:"upload"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Env    string `mapstructure:"env"` // "prod" marks auth cookies Secure
}

// AuthConfig contains token issuance settings
type AuthConfig struct {
	JWTSecret                string `mapstructure:"jwt_secret"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`
	GuestSubject             string `mapstructure:"guest_subject"`
}

// TokenTTL is the lifetime of issued access tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

func (a AuthConfig) Validate() error {
	if strings.TrimSpace(a.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret required (or JWT_SECRET)")
	}
	if a.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("auth.access_token_expire_minutes must be > 0")
	}
	return nil
}

// LLMConfig configures the OpenAI-compatible chat completion endpoint.
// An empty APIKey disables model answers; keyword matching still works.
type LLMConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxContextChars int           `mapstructure:"max_context_chars"`
}

// Enabled reports whether a credential is configured.
func (l LLMConfig) Enabled() bool { return strings.TrimSpace(l.APIKey) != "" }

// TranscriptionConfig configures the speech-to-text endpoint.
type TranscriptionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (t TranscriptionConfig) Enabled() bool { return strings.TrimSpace(t.APIKey) != "" }

// UploadConfig limits file uploads
type UploadConfig struct {
	MaxSize string `mapstructure:"max_size"` // echo body limit syntax, e.g. "50M"
	TempDir string `mapstructure:"temp_dir"`
}

// RateLimitConfig bounds how often a caller may ask questions
type RateLimitConfig struct {
	ChatRequests int           `mapstructure:"chat_requests"`
	ChatWindow   time.Duration `mapstructure:"chat_window"`
}

func (r RateLimitConfig) Validate() error {
	if r.ChatRequests < 0 {
		return fmt.Errorf("rate_limit.chat_requests cannot be negative")
	}
	if r.ChatRequests > 0 && r.ChatWindow <= 0 {
		return fmt.Errorf("rate_limit.chat_window must be > 0 when chat_requests is set")
	}
	return nil
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether enough settings are present to connect.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.URL) != "" || (strings.TrimSpace(p.Host) != "" && strings.TrimSpace(p.DBName) != "")
}

// DSN builds a libpq connection URL, preferring URL when set.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s", p.User, p.Password, net.JoinHostPort(p.Host, port), p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) != "" && strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when host is provided")
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether a Redis endpoint is set.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Host) != ""
}

// Addr returns host:port, defaulting the port to 6379.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return net.JoinHostPort(r.Host, port)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Validate checks cross-section invariants.
func (c *Config) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Postgres.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalize() {
	c.General.Listen = strings.TrimSpace(c.General.Listen)
	if c.General.Listen != "" && !strings.Contains(c.General.Listen, ":") {
		c.General.Listen = ":" + c.General.Listen
	}
	// one Groq key usually serves both chat and Whisper
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = c.LLM.APIKey
	}
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = c.LLM.BaseURL
	}
	var origins []string
	for _, o := range c.CORS.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORS.AllowOrigins = origins
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.listen", ":8000")
	v.SetDefault("general.env", "dev")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_expire_minutes", 30)
	v.SetDefault("auth.guest_subject", "guest@documind.local")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.timeout", 20*time.Second)
	v.SetDefault("llm.max_context_chars", 25000)
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.base_url", "")
	v.SetDefault("transcription.model", "whisper-large-v3")
	v.SetDefault("transcription.timeout", 5*time.Minute)
	v.SetDefault("upload.max_size", "100M")
	v.SetDefault("upload.temp_dir", "")
	v.SetDefault("rate_limit.chat_requests", 5)
	v.SetDefault("rate_limit.chat_window", time.Minute)
	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timeout", 5*time.Second)
	v.SetDefault("storage.redis.url", "")
	v.SetDefault("storage.redis.host", "")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 3*time.Second)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "documind-api")
	v.SetDefault("telemetry.otlp_endpoint", "")
}

// Environment names used by earlier deployments of the service.
var legacyEnv = map[string]string{
	"llm.api_key":                      "GROQ_API_KEY",
	"auth.jwt_secret":                  "JWT_SECRET",
	"auth.access_token_expire_minutes": "ACCESS_TOKEN_EXPIRE_MINUTES",
	"storage.postgres.url":             "DATABASE_URL",
	"storage.redis.url":                "REDIS_URL",
}

// Load reads configuration from path (or the default search paths when
// empty), a .env file and DOCUMIND_* environment variables.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DOCUMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "DOCUMIND_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
