package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration read from the environment.
type Server struct {
	Addr           string
	JWTSigningKey  string
	LogLevel       string
	LogFormat      string
	AuditFile      string
	TeamsFile      string
	AllowedOrigins []string

	// AuditRateLimit caps audit runs per client within AuditRateWindow. Zero
	// disables the limit.
	AuditRateLimit  int
	AuditRateWindow time.Duration

	Directory Directory
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
}

// Directory configures the people-directory HTTP client.
type Directory struct {
	BaseURL       string
	AppID         string
	Secret        string
	RPS           float64
	Timeout       time.Duration
	PerPage       int
	CacheTTL      time.Duration
	CachePassword string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the server config so main stays lean. Unset values fall back
// to development defaults.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("LOCUS_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:            envOr("LOCUS_ADDR", ":8080"),
		JWTSigningKey:   jwtSigningKey,
		LogLevel:        envOr("LOCUS_LOG_LEVEL", "info"),
		LogFormat:       envOr("LOCUS_LOG_FORMAT", "json"),
		AuditFile:       os.Getenv("LOCUS_AUDIT_CONFIG"),
		TeamsFile:       os.Getenv("LOCUS_TEAMS_FILE"),
		AllowedOrigins:  splitList(envOr("LOCUS_ALLOWED_ORIGINS", "http://localhost:5173")),
		AuditRateLimit:  envCount("LOCUS_AUDIT_RATE_LIMIT", 10),
		AuditRateWindow: envDuration("LOCUS_AUDIT_RATE_WINDOW", time.Minute),
		Directory: Directory{
			BaseURL:       envOr("LOCUS_DIRECTORY_URL", "http://localhost:4010"),
			AppID:         os.Getenv("LOCUS_DIRECTORY_APP_ID"),
			Secret:        os.Getenv("LOCUS_DIRECTORY_SECRET"),
			RPS:           envFloat("LOCUS_DIRECTORY_RPS", 10),
			Timeout:       envDuration("LOCUS_DIRECTORY_TIMEOUT", 15*time.Second),
			PerPage:       envInt("LOCUS_DIRECTORY_PER_PAGE", 100),
			CacheTTL:      envDuration("LOCUS_ROSTER_CACHE_TTL", 5*time.Minute),
			CachePassword: os.Getenv("LOCUS_ROSTER_CACHE_KEY"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LOCUS_REDIS_URL"),
			PoolSize:     envInt("LOCUS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LOCUS_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("LOCUS_DATABASE_URL"),
			MaxOpenConns: envInt("LOCUS_DATABASE_MAX_OPEN", 10),
			MaxIdleConns: envInt("LOCUS_DATABASE_MAX_IDLE", 5),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("LOCUS_KAFKA_BROKERS")),
			Topic:   envOr("LOCUS_KAFKA_TOPIC", "locus.corrections"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// envCount accepts zero, unlike envInt.
func envCount(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v >= 0 {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
