package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	OpenRouter OpenRouterConfig
	RateLimit  RateLimitConfig
	Cost       CostConfig
	Cookie     CookieConfig
	Demo       DemoConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	AllowedOrigin string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type JWTConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
}

// RateLimitConfig holds per-route-class token bucket budgets. A class refills
// its full capacity once per refill interval.
type RateLimitConfig struct {
	Enabled bool

	DefaultCapacity int
	DefaultRefill   time.Duration

	AuthCapacity int
	AuthRefill   time.Duration

	DemoCapacity int
	DemoRefill   time.Duration

	MeCapacity int
	MeRefill   time.Duration

	// Buckets untouched for this long are evicted.
	IdleEviction time.Duration
}

type CostConfig struct {
	// MonthlyLimitUSD caps per-user AI spend per calendar month.
	MonthlyLimitUSD float64
}

type CookieConfig struct {
	Secure bool
}

type DemoConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:   time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:  time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT", 90)) * time.Second,
			AllowedOrigin: getEnv("SERVER_ALLOWED_ORIGIN", "https://app.dagbok.cloud"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "dagbok"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-me-in-production-please"),
			AccessTTL:  time.Duration(getEnvAsInt("JWT_ACCESS_TTL_MINUTES", 5)) * time.Minute,
			RefreshTTL: time.Duration(getEnvAsInt("JWT_REFRESH_TTL_HOURS", 7*24)) * time.Hour,
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  getEnv("OPENROUTER_API_KEY", ""),
			BaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Referer: getEnv("OPENROUTER_REFERER", "https://app.dagbok.cloud"),
			Title:   getEnv("OPENROUTER_TITLE", "dagbok-backend"),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", true),
			DefaultCapacity: getEnvAsInt("RATE_LIMIT_DEFAULT_CAPACITY", 100),
			DefaultRefill:   time.Duration(getEnvAsInt("RATE_LIMIT_DEFAULT_REFILL_MINUTES", 1)) * time.Minute,
			AuthCapacity:    getEnvAsInt("RATE_LIMIT_AUTH_CAPACITY", 1),
			AuthRefill:      time.Duration(getEnvAsInt("RATE_LIMIT_AUTH_REFILL_MINUTES", 5)) * time.Minute,
			DemoCapacity:    getEnvAsInt("RATE_LIMIT_DEMO_CAPACITY", 1),
			DemoRefill:      time.Duration(getEnvAsInt("RATE_LIMIT_DEMO_REFILL_MINUTES", 10)) * time.Minute,
			MeCapacity:      getEnvAsInt("RATE_LIMIT_ME_CAPACITY", 200),
			MeRefill:        time.Duration(getEnvAsInt("RATE_LIMIT_ME_REFILL_MINUTES", 1)) * time.Minute,
			IdleEviction:    time.Duration(getEnvAsInt("RATE_LIMIT_IDLE_EVICTION_MINUTES", 60)) * time.Minute,
		},
		Cost: CostConfig{
			MonthlyLimitUSD: getEnvAsFloat("COST_MONTHLY_LIMIT_USD", 0.10),
		},
		Cookie: CookieConfig{
			Secure: getEnvAsBool("COOKIE_SECURE", true),
		},
		Demo: DemoConfig{
			TTL:           time.Duration(getEnvAsInt("DEMO_TTL_MINUTES", 5)) * time.Minute,
			SweepInterval: time.Duration(getEnvAsInt("DEMO_SWEEP_INTERVAL_MINUTES", 1)) * time.Minute,
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
