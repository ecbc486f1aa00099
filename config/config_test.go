package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("DISPLAY_PERCENT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.False(t, cfg.DisplayPercent)
	assert.False(t, cfg.PostgresEnabled())
	assert.Equal(t, 3, cfg.MaxConcurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DISPLAY_PERCENT", "true")
	t.Setenv("MAX_CONCURRENCY", "oops")
	t.Setenv("POSTGRES_HOST", "db")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.DisplayPercent)
	assert.Equal(t, 3, cfg.MaxConcurrency, "bad ints fall back")
	assert.True(t, cfg.PostgresEnabled())
	assert.Contains(t, cfg.DSN(), "host=db")
}

func TestParseVocabulary(t *testing.T) {
	vocab, err := ParseVocabulary([]byte(`
time_axis_patterns:
  - "(?i)^jahr$"
  - "(?i)period"
year_max: 2050
`))
	require.NoError(t, err)

	require.Len(t, vocab.TimeAxisPatterns, 2)
	assert.True(t, vocab.TimeAxisPatterns[0].MatchString("Jahr"))
	assert.Equal(t, 1900, vocab.YearMin)
	assert.Equal(t, 2050, vocab.YearMax)
}

func TestParseVocabularyErrors(t *testing.T) {
	_, err := ParseVocabulary([]byte(`time_axis_patterns: ["(unclosed"]`))
	assert.Error(t, err)

	_, err = ParseVocabulary([]byte(`{year_min: 2100, year_max: 1900}`))
	assert.Error(t, err)

	_, err = ParseVocabulary([]byte(`time_axis_patterns: {`))
	assert.Error(t, err)
}

func TestLoadVocabularyFile(t *testing.T) {
	vocab, err := LoadVocabulary("")
	require.NoError(t, err)
	assert.True(t, vocab.TimeAxisPatterns[0].MatchString("조사연도"))

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("year_min: 1950\n"), 0o644))
	vocab, err = LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 1950, vocab.YearMin)

	_, err = LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
