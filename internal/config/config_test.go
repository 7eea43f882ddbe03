package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytes(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		cfg, err := LoadBytes(nil)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, "bookd.db", cfg.Database.Path)
		assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
		assert.Equal(t, 3, cfg.Generation.MaxRetries)
		assert.Equal(t, []string{"txt", "markdown", "html"}, cfg.Export.Formats)
		assert.Equal(t, "bookd.events", cfg.Notify.SubjectPrefix)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		cfg, err := LoadBytes([]byte(`
server:
  port: 9000
database:
  path: /tmp/books.db
generation:
  model: gpt-4o
  max_retries: 5
export:
  formats: ["txt"]
logging:
  level: debug
`))
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "/tmp/books.db", cfg.Database.Path)
		assert.Equal(t, "gpt-4o", cfg.Generation.Model)
		assert.Equal(t, 5, cfg.Generation.MaxRetries)
		assert.Equal(t, []string{"txt"}, cfg.Export.Formats)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("env overrides yaml", func(t *testing.T) {
		t.Setenv("BOOKD_SERVER_PORT", "7070")
		t.Setenv("BOOKD_GENERATION_MODEL", "local-model")
		cfg, err := LoadBytes([]byte("server:\n  port: 9000\n"))
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "local-model", cfg.Generation.Model)
	})

	t.Run("api key flows into generation config", func(t *testing.T) {
		t.Setenv("BOOKD_API_KEY", "sk-test-123")
		cfg, err := LoadBytes(nil)
		require.NoError(t, err)
		assert.Equal(t, "sk-test-123", cfg.Generation.APIKey)
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		_, err := LoadBytes([]byte("server:\n  port: 99999\n"))
		assert.ErrorContains(t, err, "invalid server port")
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		_, err := LoadBytes([]byte("logging:\n  level: shouting\n"))
		assert.Error(t, err)
	})
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("sk-live-abcdef")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "sk-live-abcdef", s.Value())
	assert.True(t, s.IsSet())

	encoded, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(encoded))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}
