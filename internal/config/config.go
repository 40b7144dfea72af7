package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        string
	DatabaseURL string
	MaxRoomSize int
	SendBuffer  int // outbound messages queued per connection
	StaticDir   string
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		MaxRoomSize: getEnvInt("MAX_ROOM_SIZE", 10),
		SendBuffer:  getEnvInt("SEND_BUFFER", 16),
		StaticDir:   getEnv("STATIC_DIR", "web"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt falls back on unset, unparsable or non-positive values.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}
