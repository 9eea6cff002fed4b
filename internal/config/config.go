// Package config loads server configuration from an optional CUE (or JSON)
// file plus environment overrides, validated against an embedded schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalid wraps every schema or override failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables read by Load.
const (
	EnvPort           = "PORT"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvDataFile       = "FOOTPRINT_DATA_FILE"
	EnvSearchDebounce = "FOOTPRINT_SEARCH_DEBOUNCE"
	EnvAllowedOrigins = "FOOTPRINT_ALLOWED_ORIGINS"
	EnvLogLevel       = "FOOTPRINT_LOG_LEVEL"
)

// Config is the validated server configuration.
type Config struct {
	Port                 int      `json:"port"`
	DatabaseURL          string   `json:"database_url"`
	DataFile             string   `json:"data_file"`
	SearchDebounceMS     int      `json:"search_debounce_ms"`
	SessionMaxAgeMinutes int      `json:"session_max_age_minutes"`
	SessionIdleMinutes   int      `json:"session_idle_minutes"`
	AllowedOrigins       []string `json:"allowed_origins"`
	LogLevel             string   `json:"log_level"`
}

// SearchDebounce is the keystroke quiet period.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// SessionMaxAge is the hard lifetime of a dashboard session.
func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeMinutes) * time.Minute
}

// SessionIdle is how long a session may go untouched before it expires.
func (c Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// Load reads path (if non-empty) and the process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.Getenv)
}

// Default returns the schema defaults.
func Default() Config {
	c, err := LoadWith("", func(string) string { return "" })
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is broken: %v", err))
	}
	return c
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(path string, getenv func(string) string) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compiling schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	// File values and env overrides are merged as plain data first so an
	// override replaces a file value instead of conflicting with it.
	fields := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		file := ctx.CompileBytes(data, cue.Filename(path))
		if err := file.Err(); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
		if err := file.Decode(&fields); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	}
	if err := applyEnv(fields, getenv); err != nil {
		return Config{}, err
	}

	v := def.Unify(ctx.Encode(fields))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var c Config
	if err := v.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("%w: decoding: %v", ErrInvalid, err)
	}
	return c, nil
}

// applyEnv overwrites fields with any environment overrides.
func applyEnv(fields map[string]any, getenv func(string) string) error {
	if raw := strings.TrimSpace(getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, EnvPort, raw)
		}
		fields["port"] = port
	}
	if raw := strings.TrimSpace(getenv(EnvDatabaseURL)); raw != "" {
		fields["database_url"] = raw
	}
	if raw := strings.TrimSpace(getenv(EnvDataFile)); raw != "" {
		fields["data_file"] = raw
	}
	if raw := strings.TrimSpace(getenv(EnvSearchDebounce)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvSearchDebounce, raw, err)
		}
		fields["search_debounce_ms"] = int(d / time.Millisecond)
	}
	if origins := parseList(getenv(EnvAllowedOrigins)); len(origins) > 0 {
		fields["allowed_origins"] = origins
	}
	if raw := strings.TrimSpace(getenv(EnvLogLevel)); raw != "" {
		fields["log_level"] = strings.ToLower(raw)
	}
	return nil
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
