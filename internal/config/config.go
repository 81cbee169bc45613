package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// Token signing
	JWTSecret string
	TokenTTL  time.Duration

	// Password hashing
	BcryptCost      int
	MaxHashInFlight int

	// Optional infra
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	OTLPEndpoint  string

	CORSOrigins []string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 3002)
	dbURL := buildDBURL()

	return Config{
		Env:             env,
		Port:            port,
		DBURL:           dbURL,
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:        getEnvDuration("TOKEN_TTL", time.Hour),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		MaxHashInFlight: getEnvInt("MAX_HASH_IN_FLIGHT", 4),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authhub")
	pass := getEnv("DB_PASSWORD", "authhub")
	name := getEnv("DB_NAME", "authhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}
