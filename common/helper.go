// Package common holds the env accessors used by the small companion binaries.
// The harvester itself is configured through internal/config.
package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env returns the trimmed value of key, or fallback when it is unset or blank.
func Env(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// EnvDuration reads key as a Go duration. Unparsable values yield fallback.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(Env(key, "")); err == nil {
		return d
	}
	return fallback
}

// EnvInt reads key as a base-10 int. Unparsable values yield fallback.
func EnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(Env(key, "")); err == nil {
		return n
	}
	return fallback
}

// EnvBool accepts 1/true/yes/on and 0/false/no/off in any case.
func EnvBool(key string, fallback bool) bool {
	switch strings.ToLower(Env(key, "")) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// EnvList splits a comma-separated key, dropping blank parts.
// An unset key yields fallback.
func EnvList(key string, fallback ...string) []string {
	raw := Env(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
