package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recordkeeper/internal/jsonbody"
)

func envFrom(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, int64(2<<20), cfg.Body.Limit)
	assert.True(t, cfg.Body.ContentTypeRequired)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
port: 9000
log_level: debug
db:
  driver: pgx
  dsn: postgres://localhost/records
body:
  limit: 1024
  extra_content_types:
    - text/plain
`), 0o600))

	cfg, err := load(envFrom(map[string]string{
		FileEnv:                 path,
		"PORT":                  "9100",
		"CONTENT_TYPE_REQUIRED": "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port, "env overrides the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DB{Driver: "pgx", DSN: "postgres://localhost/records"}, cfg.DB)
	assert.Equal(t, int64(1024), cfg.Body.Limit)
	assert.False(t, cfg.Body.ContentTypeRequired)
	assert.Equal(t, []string{"text/plain"}, cfg.Body.ExtraContentTypes)
}

func TestParse_KeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Parse([]byte("version: 1\nport: 7000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "data/records.db", cfg.DB.DSN)
	assert.True(t, cfg.Body.ContentTypeRequired)
}

func TestParse_RequiresVersion(t *testing.T) {
	_, err := Parse([]byte("port: 7000\n"))
	assert.EqualError(t, err, "config: unsupported version")

	_, err = Parse([]byte("version: 2\n"))
	assert.EqualError(t, err, "config: unsupported version")

	_, err = Parse([]byte("version: [\n"))
	assert.ErrorContains(t, err, "config: parsing yaml")
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"limit not a number", map[string]string{"BODY_LIMIT": "lots"}},
		{"limit zero", map[string]string{"BODY_LIMIT": "0"}},
		{"bad bool", map[string]string{"CONTENT_TYPE_REQUIRED": "maybe"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"missing file", map[string]string{FileEnv: "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLevel(t *testing.T) {
	level, err := Config{LogLevel: "WARN"}.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestClassifier(t *testing.T) {
	cfg := Default()
	cfg.Body.ExtraContentTypes = []string{"text/csv"}

	cc := cfg.Classifier()
	assert.Equal(t, jsonbody.DefaultLimit, cc.Limit)
	assert.True(t, cc.ContentTypeRequired)
	require.NotNil(t, cc.AcceptContentType)
	assert.True(t, cc.AcceptContentType("text/csv"))
	assert.False(t, cc.AcceptContentType("text/html"))

	assert.Nil(t, Default().Classifier().AcceptContentType)
}
