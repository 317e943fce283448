package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tourcraft/tourcraft/internal/relance"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	Search    SearchConfig
	Relance   relance.Config
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// MongoDBConfig: an empty URI selects the in-memory store.
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	AllowInsecure  bool
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type SearchConfig struct {
	Debounce   time.Duration
	MaxResults int
	MinLength  int
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MONGODB_DATABASE", "tourcraft")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("JWT_ISSUER", "tourcraft")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 60)
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("MINIO_BUCKET", "tourcraft-contrats")
	v.SetDefault("SEARCH_DEBOUNCE_MS", 300)
	v.SetDefault("SEARCH_MAX_RESULTS", 10)
	v.SetDefault("SEARCH_MIN_LENGTH", 1)
	rd := relance.DefaultConfig()
	v.SetDefault("RELANCE_ENABLED", rd.Enabled)
	v.SetDefault("RELANCE_WATCHER_ENABLED", rd.WatcherEnabled)
	v.SetDefault("RELANCE_EVALUATION_COOLDOWN_MS", rd.EvaluationCooldown.Milliseconds())
	v.SetDefault("RELANCE_MAX_PER_CONCERT", rd.MaxRelancesPerConcert)
	v.SetDefault("RELANCE_IGNORED_UPDATE_TYPES", strings.Join(rd.IgnoredUpdateTypes, ","))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			Issuer:         v.GetString("JWT_ISSUER"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			AllowInsecure:  v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Search: SearchConfig{
			Debounce:   time.Duration(v.GetInt("SEARCH_DEBOUNCE_MS")) * time.Millisecond,
			MaxResults: v.GetInt("SEARCH_MAX_RESULTS"),
			MinLength:  v.GetInt("SEARCH_MIN_LENGTH"),
		},
		Relance: relance.Config{
			Enabled:               v.GetBool("RELANCE_ENABLED"),
			WatcherEnabled:        v.GetBool("RELANCE_WATCHER_ENABLED"),
			EvaluationCooldown:    time.Duration(v.GetInt64("RELANCE_EVALUATION_COOLDOWN_MS")) * time.Millisecond,
			MaxRelancesPerConcert: v.GetInt("RELANCE_MAX_PER_CONCERT"),
			IgnoredUpdateTypes:    splitList(v.GetString("RELANCE_IGNORED_UPDATE_TYPES")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.JWT.Secret == "" && cfg.Keycloak.URL == "" {
		logger.Warn("WARNING: neither JWT_SECRET nor KEYCLOAK_URL is set; API requests cannot be authenticated")
	}
	if cfg.MongoDB.URI == "" {
		logger.Warn("MONGODB_URI not set; using the in-memory store")
	}

	return cfg, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
