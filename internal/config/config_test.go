package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, SourceFixture, cfg.Source.Kind)
	assert.Equal(t, SessionFile, cfg.Session.Kind)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL.Std())
	assert.Len(t, cfg.Auth.JWTSecret, 64)
	assert.NoError(t, cfg.Validate())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
}

func TestSaveLoad_PreservesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Source.Kind = SourceSQL
	cfg.Source.Seed = true
	cfg.SearchDebounce = Duration(300 * time.Millisecond)
	cfg.Events.PreserveFiltersOnRefresh = true
	cfg.Auth.JWTSecret = "s3cret"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceSQL, got.Source.Kind)
	assert.Equal(t, "sqlite3", got.Source.Driver)
	assert.True(t, got.Source.Seed)
	assert.Equal(t, 300*time.Millisecond, got.SearchDebounce.Std())
	assert.True(t, got.Events.PreserveFiltersOnRefresh)
	assert.Equal(t, "s3cret", got.Auth.JWTSecret)
}

func TestLoad_PartialFileIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\nsource:\n  kind: bogus\nsearch_debounce: 250ms\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, SourceFixture, cfg.Source.Kind)
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce.Std())
}

func TestLoad_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_debounce: soon\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(envMap(map[string]string{
		"PORSCHEVENTS_LISTEN":              ":7000",
		"PORSCHEVENTS_SOURCE_KIND":         "sql",
		"PORSCHEVENTS_SOURCE_SEED":         "true",
		"PORSCHEVENTS_JWT_SECRET":          "from-env",
		"PORSCHEVENTS_PRESERVE_FILTERS":    "1",
		"PORSCHEVENTS_CORS_ORIGINS":        "http://a.test, http://b.test,",
		"PORSCHEVENTS_BASIC_AUTH_USER":     "admin",
		"PORSCHEVENTS_BASIC_AUTH_PASSWORD": "pw",
		"PORSCHEVENTS_LOG_LEVEL":           "",
	}))
	cfg.Normalize()

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, SourceSQL, cfg.Source.Kind)
	assert.True(t, cfg.Source.Seed)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Events.PreserveFiltersOnRefresh)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "empty jwt secret")

	cfg.Auth.JWTSecret = "x"
	assert.NoError(t, cfg.Validate())

	cfg.Source.Kind = SourceICS
	assert.Error(t, cfg.Validate(), "ics without feeds")

	cfg.Source.Kind = SourceFixture
	cfg.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadDotEnv_MissingFilesIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORSCHEVENTS_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PORSCHEVENTS_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("PORSCHEVENTS_TEST_DOTENV"))
}
