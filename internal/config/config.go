// Package config loads process configuration via godotenv for local .env
// files and viper for layered defaults/file/env overrides, trimmed to the
// sections this platform actually has.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for both the edge and scoring services.
// Each binary loads the whole struct and reads only the sections it needs.
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Security    SecurityConfig `mapstructure:"security"`
	Scoring     ScoringConfig  `mapstructure:"scoring"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// JWTConfig carries the signing secret and the two default lifetimes named
// in the token issuance contract: 15 minutes for access tokens, 7 days for
// refresh tokens, neither rotated on use.
type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	AccessTTL  int    `mapstructure:"access_token_ttl"`  // seconds
	RefreshTTL int    `mapstructure:"refresh_token_ttl"` // seconds
	Issuer     string `mapstructure:"issuer"`
}

type SecurityConfig struct {
	MaxLoginAttempts  int `mapstructure:"max_login_attempts"`
	LockoutDuration   int `mapstructure:"lockout_duration"` // seconds
	PasswordMinLength int `mapstructure:"password_min_length"`
}

// ScoringConfig carries the edge service's view of the scoring service: the
// base URL it proxies invoice validation to and the pre-shared key both
// sides authenticate the internal hop with.
type ScoringConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// Load loads configuration from environment variables, an optional .env
// file, and an optional config file, in that descending order of precedence.
func Load() (*Config, error) {
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrideFromEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
			cfg.Database.SSLMode,
		)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "fraud_platform")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 30)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", 300)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 30)

	viper.SetDefault("jwt.access_token_ttl", 900)     // 15 minutes
	viper.SetDefault("jwt.refresh_token_ttl", 604800) // 7 days
	viper.SetDefault("jwt.issuer", "fraud-platform")

	viper.SetDefault("security.max_login_attempts", 5)
	viper.SetDefault("security.lockout_duration", 900) // 15 minutes
	viper.SetDefault("security.password_min_length", 8)

	viper.SetDefault("scoring.base_url", "http://localhost:8081")
	viper.SetDefault("scoring.timeout", 1) // seconds — well above the 150ms rule deadline
}

func overrideFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}
	// JWT_*_EXPIRATION are given in milliseconds; the TTL fields hold seconds.
	if accessTTL := os.Getenv("JWT_ACCESS_EXPIRATION"); accessTTL != "" {
		if v, err := strconv.Atoi(accessTTL); err == nil {
			viper.Set("jwt.access_token_ttl", v/1000)
		}
	}
	if refreshTTL := os.Getenv("JWT_REFRESH_EXPIRATION"); refreshTTL != "" {
		if v, err := strconv.Atoi(refreshTTL); err == nil {
			viper.Set("jwt.refresh_token_ttl", v/1000)
		}
	}

	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("redis.host", redisHost)
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			viper.Set("redis.port", p)
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		viper.Set("redis.password", redisPassword)
	}

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		viper.Set("scoring.api_key", apiKey)
	}
	if scoringBaseURL := os.Getenv("SCORING_BASE_URL"); scoringBaseURL != "" {
		viper.Set("scoring.base_url", scoringBaseURL)
	}
}

func validate(cfg *Config) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(cfg.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}

	if cfg.Database.URL == "" && (cfg.Database.Host == "" || cfg.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	if cfg.Scoring.APIKey == "" {
		return fmt.Errorf("scoring API key is required")
	}

	return nil
}
