// Package config loads runtime settings from the environment, with an
// optional .env file for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerHost string
	ServerPort int
	WSPath     string

	PingInterval      time.Duration
	ReconnectInterval time.Duration
	ResyncInterval    time.Duration
}

// Load reads the .env file when present, then the environment. Unset
// or unparsable values fall back to defaults that match the lab
// backend.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		ServerHost:        envStr("SERVER_HOST", "192.168.1.7"),
		ServerPort:        envInt("SERVER_PORT", 8080),
		WSPath:            envStr("WS_PATH", "/ws"),
		PingInterval:      envDuration("PING_INTERVAL", 30*time.Second),
		ReconnectInterval: envDuration("RECONNECT_INTERVAL", 5*time.Second),
		ResyncInterval:    envDuration("RESYNC_INTERVAL", 3*time.Second),
	}
}

// BaseURL is the REST endpoint root.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.ServerHost, c.ServerPort)
}

// WSURL is the websocket endpoint.
func (c Config) WSURL() string {
	return fmt.Sprintf("ws://%s:%d%s", c.ServerHost, c.ServerPort, c.WSPath)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
