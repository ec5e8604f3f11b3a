package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	Env        string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	// DatabaseURL wins over the DB* parts when set.
	DatabaseURL string
	// Storage selects the repository backend: "postgres" or "memory".
	Storage     string
	RedisURL    string
	JWTSecret   string
	// MessageKey is the secret message content is sealed with at rest.
	MessageKey string

	SignalingURL string
	MediaURL     string
	APIURL       string

	TypingIdle        time.Duration
	NotificationDwell time.Duration
	// EmitRate and EmitBurst bound client emits per connection.
	EmitRate  float64
	EmitBurst int

	// AllowedOrigins are the browser origins accepted by CORS and the
	// WebSocket handshake. Development defaults to any origin.
	AllowedOrigins []string
}

// Load reads configuration from the environment, after loading .env if one
// is present.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnv("SERVER_PORT", "8080")
	env := getEnv("ENV", "development")
	origins := ""
	if env == "development" {
		origins = "*"
	}
	return &Config{
		ServerPort:        port,
		Env:               env,
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "chord"),
		DBPassword:        getEnv("DB_PASSWORD", "chord_dev_password"),
		DBName:            getEnv("DB_NAME", "chord"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Storage:           getEnv("STORAGE", "postgres"),
		RedisURL:          getEnv("REDIS_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
		MessageKey:        getEnv("MESSAGE_KEY", "dev-message-key-change-me"),
		SignalingURL:      getEnv("SIGNALING_URL", "ws://localhost:"+port+"/ws"),
		MediaURL:          getEnv("MEDIA_URL", "http://localhost:7880"),
		APIURL:            getEnv("API_URL", "http://localhost:"+port),
		TypingIdle:        getDuration("TYPING_IDLE", 4*time.Second),
		NotificationDwell: getDuration("NOTIFICATION_DWELL", 6*time.Second),
		EmitRate:          getFloat("EMIT_RATE", 10),
		EmitBurst:         getInt("EMIT_BURST", 20),
		AllowedOrigins:    getList("ALLOWED_ORIGINS", origins),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

// getList splits a comma-separated variable, skipping blanks.
func getList(key, fallback string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, fallback), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return fallback
}
