package initializers

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PushRelay/ratelimit"
	"github.com/joho/godotenv"
)

const (
	GatewayAPNS = "apns"
	GatewayFCM  = "fcm"

	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds relay configuration loaded from the environment.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	AppIDPrefix string

	PushGateway                string
	APNSKeyPath                string
	APNSKeyID                  string
	APNSTeamID                 string
	APNSProduction             bool
	APNSHost                   string
	FirebaseServiceAccountPath string

	RateLimitStore     string
	RedisURL           string
	DatabaseURL        string
	RateLimitKeyPrefix string
	PushDailyMaximum   int64
	RateLimitTimeout   time.Duration

	RelaySecret  string
	InboundRate  float64
	InboundBurst int
}

// LoadConfig reads .env when present, then the environment, and validates the result.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AppIDPrefix: getEnv("APP_ID_PREFIX", "io.robbie.HomeAssistant"),

		PushGateway:                strings.ToLower(getEnv("PUSH_GATEWAY", GatewayAPNS)),
		APNSKeyPath:                getEnv("APNS_KEY_PATH", ""),
		APNSKeyID:                  getEnv("APNS_KEY_ID", ""),
		APNSTeamID:                 getEnv("APNS_TEAM_ID", ""),
		APNSProduction:             getEnvAsBool("APNS_PRODUCTION", true),
		APNSHost:                   getEnv("APNS_HOST", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		RateLimitStore:     strings.ToLower(getEnv("RATE_LIMIT_STORE", StoreRedis)),
		RedisURL:           getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
		DatabaseURL:        getEnv("DB_URL", ""),
		RateLimitKeyPrefix: getEnv("RATE_LIMIT_KEY_PREFIX", "push:ratelimit:"),
		PushDailyMaximum:   int64(getEnvAsInt("PUSH_DAILY_MAXIMUM", int(ratelimit.DefaultDailyMaximum))),
		RateLimitTimeout:   getEnvAsDuration("RATE_LIMIT_TIMEOUT", 2*time.Second),

		RelaySecret:  getEnv("RELAY_SECRET", ""),
		InboundRate:  getEnvAsFloat("INBOUND_RATE", 20),
		InboundBurst: getEnvAsInt("INBOUND_BURST", 40),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	if c.AppIDPrefix == "" {
		problems = append(problems, "APP_ID_PREFIX must not be empty")
	}

	switch c.PushGateway {
	case GatewayAPNS:
		var missing []string
		if c.APNSKeyPath == "" {
			missing = append(missing, "APNS_KEY_PATH")
		}
		if c.APNSKeyID == "" {
			missing = append(missing, "APNS_KEY_ID")
		}
		if c.APNSTeamID == "" {
			missing = append(missing, "APNS_TEAM_ID")
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("missing required environment variables: %v", missing))
		}
	case GatewayFCM:
	default:
		problems = append(problems, fmt.Sprintf("PUSH_GATEWAY must be %q or %q, got %q", GatewayAPNS, GatewayFCM, c.PushGateway))
	}

	switch c.RateLimitStore {
	case StoreRedis:
		if c.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required for the redis store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DB_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("RATE_LIMIT_STORE must be one of redis, postgres, memory, got %q", c.RateLimitStore))
	}

	if c.PushDailyMaximum <= 0 {
		problems = append(problems, "PUSH_DAILY_MAXIMUM must be positive")
	}
	if c.InboundRate <= 0 || c.InboundBurst <= 0 {
		problems = append(problems, "INBOUND_RATE and INBOUND_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid int for %s, using default %d: %v", key, def, err)
			return def
		}
		return i
	}
	return def
}

func getEnvAsFloat(key string, def float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.Printf("invalid float for %s, using default %g: %v", key, def, err)
			return def
		}
		return f
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid bool for %s, using default %t: %v", key, def, err)
			return def
		}
		return b
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err != nil {
			log.Printf("invalid duration for %s, using default %s: %v", key, def, err)
			return def
		}
		return d
	}
	return def
}
