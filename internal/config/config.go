package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PublishMode controls the initial status of newly submitted comments
type PublishMode string

const (
	// PublishAlways auto-publishes every comment that passes strict moderation
	PublishAlways PublishMode = "always"
	// PublishManual holds every new comment as pending
	PublishManual PublishMode = "manual"
	// PublishEnvironment auto-publishes unless the running environment is
	// listed as a manual-review environment
	PublishEnvironment PublishMode = "environment"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Security   SecurityConfig
	RateLimit  RateLimitConfig
	Moderation ModerationConfig
	Captcha    CaptchaConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TrustedProxies  []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectTimeout time.Duration
	MigrationsPath string
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig holds NATS settings. An empty URL disables event publishing.
type NATSConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
	SubjectPrefix string
}

// SecurityConfig holds the secrets used for hashing and moderator auth
type SecurityConfig struct {
	Pepper             string
	AliasSalt          string
	ModeratorJWTSecret string
}

// RateLimitConfig holds submission throttling thresholds.
// A zero limit disables that window.
type RateLimitConfig struct {
	PerMinute           int
	PerHour             int
	PerDay              int
	SimilarityHistory   int
	SimilarityThreshold float64
}

// ModerationConfig holds moderation policy settings
type ModerationConfig struct {
	PublishMode              PublishMode
	Environment              string
	ManualReviewEnvironments []string
	BannedTerms              []string // nil = built-in list
	AllowedLinkHosts         []string
	MaxLinks                 int
	ReportThreshold          int
	BanSweepInterval         time.Duration
	AliasTimezone            string
	DefaultAlias             string
}

// CaptchaConfig holds CAPTCHA provider settings
type CaptchaConfig struct {
	Provider  string // none, turnstile, hcaptcha, recaptcha
	SecretKey string
	VerifyURL string // overrides the provider's default endpoint
	Timeout   time.Duration
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getListEnv("ALLOWED_ORIGINS", nil),
			TrustedProxies:  getListEnv("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "anon_comments"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout: getDurationEnv("DB_CONNECT_TIMEOUT", 5*time.Second),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			Name:          getEnv("NATS_CLIENT_NAME", "anon-comments-api"),
			ReconnectWait: getDurationEnv("NATS_RECONNECT_WAIT", 2*time.Second),
			MaxReconnects: getIntEnv("NATS_MAX_RECONNECTS", -1),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "anon"),
		},
		Security: SecurityConfig{
			Pepper:             getEnv("IP_HASH_PEPPER", ""),
			AliasSalt:          getEnv("ALIAS_SALT", ""),
			ModeratorJWTSecret: getEnv("MODERATOR_JWT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			PerMinute:           getIntEnv("RATE_LIMIT_PER_MINUTE", 3),
			PerHour:             getIntEnv("RATE_LIMIT_PER_HOUR", 30),
			PerDay:              getIntEnv("RATE_LIMIT_PER_DAY", 100),
			SimilarityHistory:   getIntEnv("SIMILARITY_HISTORY", 5),
			SimilarityThreshold: getFloatEnv("SIMILARITY_THRESHOLD", 0.9),
		},
		Moderation: ModerationConfig{
			PublishMode:              PublishMode(getEnv("PUBLISH_MODE", string(PublishManual))),
			Environment:              getEnv("APP_ENV", "production"),
			ManualReviewEnvironments: getListEnv("MANUAL_REVIEW_ENVIRONMENTS", []string{"production"}),
			BannedTerms:              getTermsEnv("BANNED_TERMS"),
			AllowedLinkHosts:         getListEnv("ALLOWED_LINK_HOSTS", nil),
			MaxLinks:                 getIntEnv("MAX_LINKS", 3),
			ReportThreshold:          getIntEnv("REPORT_THRESHOLD", 3),
			BanSweepInterval:         getDurationEnv("BAN_SWEEP_INTERVAL", 10*time.Minute),
			AliasTimezone:            getEnv("ALIAS_TIMEZONE", "UTC"),
			DefaultAlias:             getEnv("DEFAULT_ALIAS", ""),
		},
		Captcha: CaptchaConfig{
			Provider:  getEnv("CAPTCHA_PROVIDER", "none"),
			SecretKey: getEnv("CAPTCHA_SECRET", ""),
			VerifyURL: getEnv("CAPTCHA_VERIFY_URL", ""),
			Timeout:   getDurationEnv("CAPTCHA_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive")
	}
	if len(c.Security.Pepper) < 16 {
		return fmt.Errorf("IP_HASH_PEPPER is required and must be at least 16 bytes")
	}
	if len(c.Security.AliasSalt) < 16 {
		return fmt.Errorf("ALIAS_SALT is required and must be at least 16 bytes")
	}
	switch c.Moderation.PublishMode {
	case PublishAlways, PublishManual, PublishEnvironment:
	default:
		return fmt.Errorf("PUBLISH_MODE must be one of: always, manual, environment")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.PerHour < 0 || c.RateLimit.PerDay < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	if c.RateLimit.SimilarityThreshold <= 0 || c.RateLimit.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.Moderation.ReportThreshold < 1 {
		return fmt.Errorf("REPORT_THRESHOLD must be at least 1")
	}
	if _, err := time.LoadLocation(c.Moderation.AliasTimezone); err != nil {
		return fmt.Errorf("ALIAS_TIMEZONE: %w", err)
	}
	return nil
}

// AutoPublish reports whether comments passing strict moderation start published
func (m *ModerationConfig) AutoPublish() bool {
	switch m.PublishMode {
	case PublishAlways:
		return true
	case PublishEnvironment:
		for _, env := range m.ManualReviewEnvironments {
			if strings.EqualFold(env, m.Environment) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Location returns the time zone used to roll pseudonyms over each day
func (m *ModerationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.AliasTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getTermsEnv reads a term list. Unset keeps the built-in list (nil) and
// "none" turns term matching off.
func getTermsEnv(key string) []string {
	terms := getListEnv(key, nil)
	if len(terms) == 1 && strings.EqualFold(terms[0], "none") {
		return []string{}
	}
	return terms
}

// getListEnv splits a comma separated value, dropping blank entries
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
