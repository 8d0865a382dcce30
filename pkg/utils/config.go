package utils

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	SourceBaseURL string
	RedisAddr     string
	FetchTimeout  time.Duration
	ImageTimeout  time.Duration
}

func LoadConfig() Config {
	addr := os.Getenv("COMIXIE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	base := os.Getenv("COMIXIE_SOURCE_URL")
	if base == "" {
		base = "https://readallcomics.com"
	}

	redisAddr := os.Getenv("COMIXIE_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return Config{
		Addr:          addr,
		SourceBaseURL: base,
		RedisAddr:     redisAddr,
		FetchTimeout:  envSeconds("COMIXIE_FETCH_TIMEOUT_SECONDS", 10*time.Second),
		ImageTimeout:  envSeconds("COMIXIE_IMAGE_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// envSeconds reads a whole-second duration, falling back on any parse failure.
func envSeconds(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
