package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "file:footprint.db?_pragma=foreign_keys(1)", c.DatabaseURL)
	assert.Equal(t, 350*time.Millisecond, c.SearchDebounce())
	assert.Equal(t, 24*time.Hour, c.SessionMaxAge())
	assert.Equal(t, 30*time.Minute, c.SessionIdle())
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.DataFile)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "footprint.cue", `
port: 9000
search_debounce_ms: 200
allowed_origins: ["https://a.example"]
`)
	c, err := LoadWith(path, env(map[string]string{
		EnvPort:           "9100",
		EnvAllowedOrigins: "https://b.example, https://c.example",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9100, c.Port, "env wins over the file")
	assert.Equal(t, 200*time.Millisecond, c.SearchDebounce())
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, c.AllowedOrigins)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "footprint.json", `{"data_file": "stores.json", "log_level": "debug"}`)
	c, err := LoadWith(path, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "stores.json", c.DataFile)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]struct {
		file string
		env  map[string]string
	}{
		"port out of range":    {file: `port: 70000`},
		"debounce too short":   {env: map[string]string{EnvSearchDebounce: "10ms"}},
		"debounce unparseable": {env: map[string]string{EnvSearchDebounce: "soon"}},
		"port not a number":    {env: map[string]string{EnvPort: "http"}},
		"unknown log level":    {env: map[string]string{EnvLogLevel: "trace"}},
		"empty database url":   {file: `database_url: ""`},
		"syntax error":         {file: `port: `},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := ""
			if tc.file != "" {
				path = writeFile(t, "c.cue", tc.file)
			}
			_, err := LoadWith(path, env(tc.env))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWith(filepath.Join(t.TempDir(), "nope.cue"), env(nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
