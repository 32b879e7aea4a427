// Package config loads the host process's configuration, generalizing
// the teacher's inline Config struct (env vars only) to also accept
// cobra/pflag command-line overrides, following
// original_source's cli/Options.h precedence: flag > env > default.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds every setting the sloked-server binary needs.
type Config struct {
	Addr                string
	ExpiryDays          int
	SQLiteURI           string
	CleanupInterval     time.Duration
	MaxDocumentSize     int
	WSReadTimeout       time.Duration
	WSWriteTimeout      time.Duration
	BroadcastBufferSize int
	Encoding            string
	LogLevel            string
}

// Default returns a Config populated entirely from defaults, as if no
// environment variables or flags were set.
func Default() Config {
	return Config{
		Addr:                ":3030",
		ExpiryDays:          7,
		CleanupInterval:     time.Hour,
		MaxDocumentSize:     256 * 1024,
		WSReadTimeout:       30 * time.Minute,
		WSWriteTimeout:      10 * time.Second,
		BroadcastBufferSize: 16,
		Encoding:            "utf-8",
		LogLevel:            "info",
	}
}

// FromEnv layers environment variables over Default.
func FromEnv() Config {
	c := Default()
	c.Addr = getEnv("SLOKED_ADDR", c.Addr)
	c.ExpiryDays = getEnvInt("SLOKED_EXPIRY_DAYS", c.ExpiryDays)
	c.SQLiteURI = os.Getenv("SLOKED_SQLITE_URI")
	c.CleanupInterval = time.Duration(getEnvInt("SLOKED_CLEANUP_INTERVAL_HOURS", 1)) * time.Hour
	c.MaxDocumentSize = getEnvInt("SLOKED_MAX_DOCUMENT_SIZE_KB", 256) * 1024
	c.WSReadTimeout = time.Duration(getEnvInt("SLOKED_WS_READ_TIMEOUT_MINUTES", 30)) * time.Minute
	c.WSWriteTimeout = time.Duration(getEnvInt("SLOKED_WS_WRITE_TIMEOUT_SECONDS", 10)) * time.Second
	c.BroadcastBufferSize = getEnvInt("SLOKED_BROADCAST_BUFFER_SIZE", 16)
	c.Encoding = getEnv("SLOKED_ENCODING", c.Encoding)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	return c
}

// BindFlags registers pflag flags on fs that override c's fields when
// set explicitly, the highest-precedence layer.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.IntVar(&c.ExpiryDays, "expiry-days", c.ExpiryDays, "document expiry in days")
	fs.StringVar(&c.SQLiteURI, "sqlite-uri", c.SQLiteURI, "SQLite DSN (empty disables persistence)")
	fs.DurationVar(&c.CleanupInterval, "cleanup-interval", c.CleanupInterval, "expired-document sweep interval")
	fs.IntVar(&c.MaxDocumentSize, "max-document-size", c.MaxDocumentSize, "maximum document size in bytes")
	fs.DurationVar(&c.WSReadTimeout, "ws-read-timeout", c.WSReadTimeout, "websocket read timeout")
	fs.DurationVar(&c.WSWriteTimeout, "ws-write-timeout", c.WSWriteTimeout, "websocket write timeout")
	fs.IntVar(&c.BroadcastBufferSize, "broadcast-buffer-size", c.BroadcastBufferSize, "per-subscriber notification buffer size")
	fs.StringVar(&c.Encoding, "encoding", c.Encoding, "default document encoding (utf-8, utf-32le)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, error)")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
