package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies GRAFEMA_* environment variables to cfg.
// Unparsable values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	setEnvBool(&cfg.Strict, "GRAFEMA_STRICT")
	setEnvInt(&cfg.Workers, "GRAFEMA_WORKERS")
	setEnvString(&cfg.Database, "GRAFEMA_DATABASE")
	setEnvDuration(&cfg.Watch.Debounce, "GRAFEMA_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Info("config.env_override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Info("config.env_override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Info("config.env_override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Info("config.env_override", "key", key, "value", val)
			*target = d
		}
	}
}
