package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port                  string
	MongoURI              string
	MongoDB               string
	JWTSecret             string
	JWTRefreshSecret      string
	JWTExpire             time.Duration // access token lifetime
	JWTRefreshExpire      time.Duration // refresh token lifetime
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	BcryptRounds          int
	RateLimitWindow       time.Duration
	RateLimitMax          int
	RedisAddr             string
	RedisPass             string
	RedisDB               int
	IsProd                bool
}

// Load reads configuration from the environment, loading .env first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		MongoURI:              os.Getenv("MONGODB_URI"),
		MongoDB:               getEnv("MONGODB_DB", "finplaydb"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTRefreshSecret:      os.Getenv("JWT_REFRESH_SECRET"),
		JWTExpire:             getDuration("JWT_EXPIRE", 7*24*time.Hour),
		JWTRefreshExpire:      getDuration("JWT_REFRESH_EXPIRE", 30*24*time.Hour),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		BcryptRounds:          getInt("BCRYPT_ROUNDS", 10),
		RateLimitWindow:       time.Duration(getInt("RATE_LIMIT_WINDOW_MS", 60000)) * time.Millisecond,
		RateLimitMax:          getInt("RATE_LIMIT_MAX_REQUESTS", 100),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:             os.Getenv("REDIS_PASS"),
		RedisDB:               getInt("REDIS_DB", 0),
		IsProd:                os.Getenv("IS_PROD") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
