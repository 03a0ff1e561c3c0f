package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"todo-backend/internal/utils"
)

// Config holds the full application configuration, loaded once at startup
// from environment variables (optionally seeded from a .env file).
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	AI        AIConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RequestsPerMin     int
	BurstSize          int
	AuthRequestsPerMin int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type AIConfig struct {
	OpenAIAPIKey   string
	Model          string
	RequestTimeout time.Duration
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment variables
// always win over .env entries.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         utils.GetEnv("SERVER_HOST", "0.0.0.0"),
			Port:         utils.GetEnvAsInt("SERVER_PORT", 8000),
			Environment:  utils.GetEnv("APP_ENV", "development"),
			ReadTimeout:  utils.GetEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: utils.GetEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  utils.GetEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:             utils.GetEnv("DATABASE_URL", ""),
			MaxOpenConns:    utils.GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    utils.GetEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: utils.GetEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: utils.GetEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     utils.GetEnv("REDIS_ADDR", ""),
			Password: utils.GetEnv("REDIS_PASSWORD", ""),
			DB:       utils.GetEnvAsInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMin:     utils.GetEnvAsInt("RATE_LIMIT_PER_MIN", 100),
			BurstSize:          utils.GetEnvAsInt("RATE_LIMIT_BURST", 20),
			AuthRequestsPerMin: utils.GetEnvAsInt("AUTH_RATE_LIMIT_PER_MIN", 5),
		},
		Auth: AuthConfig{
			JWTSecret: utils.GetEnv("SECRET_KEY", "CHANGE_ME"),
			TokenTTL:  time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		},
		AI: AIConfig{
			OpenAIAPIKey:   utils.GetEnv("OPENAI_API_KEY", ""),
			Model:          utils.GetEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			RequestTimeout: utils.GetEnvAsDuration("AI_REQUEST_TIMEOUT", 30*time.Second),
		},
	}

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetRedisAddr() string {
	return c.Redis.Addr
}

// RedisEnabled reports whether a Redis address was configured. The service
// runs fine without Redis: rate limiting falls back to in-process limiters
// and the todo list cache falls back to memory.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
