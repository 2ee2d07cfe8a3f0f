package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	SessionSecret       string        `mapstructure:"SESSION_SECRET"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure        bool          `mapstructure:"COOKIE_SECURE"`
	PendingStore        string        `mapstructure:"PENDING_STORE"`
	PendingTTL          time.Duration `mapstructure:"PENDING_TTL"`
	PendingSQLitePath   string        `mapstructure:"PENDING_SQLITE_PATH"`
	PHIEncryptionKey    string        `mapstructure:"PHI_ENCRYPTION_KEY"`
	LoginRateLimitRPS   float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	MetricsEnabled      bool          `mapstructure:"METRICS_ENABLED"`
	TLSEnabled          bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile         string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile          string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SESSION_SECRET", "SESSION_TTL", "COOKIE_SECURE",
	"PENDING_STORE", "PENDING_TTL", "PENDING_SQLITE_PATH",
	"PHI_ENCRYPTION_KEY", "LOGIN_RATE_LIMIT_RPS", "LOGIN_RATE_LIMIT_BURST",
	"METRICS_ENABLED", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("PENDING_STORE", "postgres")
	v.SetDefault("PENDING_TTL", "30m")
	v.SetDefault("PENDING_SQLITE_PATH", "data/pending.db")
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 10)
	v.SetDefault("METRICS_ENABLED", true)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: a random SESSION_SECRET is generated when unset; sessions will not survive restarts.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks settings that depend on each other. In production the
// session secret and PHI key are mandatory and cookies must be Secure.
func (c *Config) Validate() error {
	switch c.PendingStore {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("PENDING_STORE must be \"memory\", \"postgres\", or \"sqlite\", got %q", c.PendingStore)
	}
	if c.PendingStore == "sqlite" && c.PendingSQLitePath == "" {
		return fmt.Errorf("PENDING_SQLITE_PATH is required when PENDING_STORE is \"sqlite\"")
	}
	if c.PendingTTL <= 0 {
		return fmt.Errorf("PENDING_TTL must be positive, got %s", c.PendingTTL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}

	if c.IsProduction() {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		if c.PHIEncryptionKey == "" {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is required in production")
		}
		if !c.CookieSecure {
			return fmt.Errorf("COOKIE_SECURE must be true in production")
		}
	}

	if c.SessionSecret != "" {
		secret, err := hex.DecodeString(c.SessionSecret)
		if err != nil {
			return fmt.Errorf("SESSION_SECRET is not valid hex: %w", err)
		}
		if len(secret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes (64 hex chars), got %d bytes", len(secret))
		}
	}

	if c.PHIEncryptionKey != "" {
		keyBytes, err := hex.DecodeString(c.PHIEncryptionKey)
		if err != nil {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
