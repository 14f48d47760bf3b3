package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvMaxAge      = "MOCKS_MAX_AGE"
	EnvStale       = "MOCKS_STALE"
	EnvNoMatch     = "MOCKS_NO_MATCH"
	EnvUseTimings  = "MOCKS_USE_TIMINGS"
	EnvIncludeKeys = "MOCKS_INCLUDE_KEYS"
	EnvStore       = "MOCKS_STORE"
	EnvDir         = "MOCKS_DIR"
)

// LoadEnv reads options from the process environment. A .env file in the
// working directory is loaded first; it never overrides variables that are
// already set.
func LoadEnv() (Options, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds options from environment lookups. Only variables that are
// present and non-empty are applied. Malformed numbers and booleans are
// errors; strategy names are checked later by Validate.
func FromEnv(lookup func(string) (string, bool)) (Options, error) {
	var o Options

	if v, ok := nonEmpty(lookup, EnvMaxAge); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Options{}, fmt.Errorf("%w: %s=%q is not a number of milliseconds", ErrInvalidMaxAge, EnvMaxAge, v)
		}
		o.MaxAge = Duration(time.Duration(ms) * time.Millisecond)
	}
	if v, ok := nonEmpty(lookup, EnvStale); ok {
		o.Stale = StaleStrategy(v)
	}
	if v, ok := nonEmpty(lookup, EnvNoMatch); ok {
		o.NoMatch = NoMatchStrategy(v)
	}
	if v, ok := nonEmpty(lookup, EnvUseTimings); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Options{}, fmt.Errorf("invalid %s=%q: %w", EnvUseTimings, v, err)
		}
		o.UseTimings = Bool(b)
	}
	if v, ok := nonEmpty(lookup, EnvIncludeKeys); ok {
		o.IncludeKeys = SplitList(v)
	}
	if v, ok := nonEmpty(lookup, EnvStore); ok {
		o.Store = v
	} else if v, ok := nonEmpty(lookup, EnvDir); ok {
		o.Store = "file:" + v
	}

	return o, nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	out := []string{}
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
