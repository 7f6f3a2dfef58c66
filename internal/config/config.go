package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	LockTTL            time.Duration
	LockAcquireTimeout time.Duration

	TableTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:           ":8080",
		LockTTL:            10 * time.Second,
		LockAcquireTimeout: 5 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.TableTemplateDir = strings.TrimSpace(os.Getenv("TABLE_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("LOCK_TTL")); v != "" { // duration like 10s, or plain seconds
		cfg.LockTTL = parseDuration(v, cfg.LockTTL)
	}
	if v := strings.TrimSpace(os.Getenv("LOCK_ACQUIRE_TIMEOUT")); v != "" {
		cfg.LockAcquireTimeout = parseDuration(v, cfg.LockAcquireTimeout)
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func parseDuration(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
