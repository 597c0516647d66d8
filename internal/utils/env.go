package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SafeEnv returns the environment variable value for key, or fallback if empty.
func SafeEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvInt reads an integer variable; unset or malformed values give fallback.
func EnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

// EnvDuration reads a time.Duration such as "720h".
func EnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

// EnvList splits a comma-separated variable, dropping empty entries.
func EnvList(key string, fallback []string) []string {
	raw := SafeEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EnvBool reads a boolean such as "true" or "0".
func EnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(SafeEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}
