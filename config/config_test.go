package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vars = []string{
	"INTERVIEWER_BACKEND_URL", "INTERVIEWER_LANGUAGE", "INTERVIEWER_VOICE",
	"INTERVIEWER_BOOTSTRAP_DELAY", "INTERVIEWER_KAFKA_BROKERS", "INTERVIEWER_TOPIC",
	"DEEPGRAM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS",
	"INTERVIEWER_REQUEST_TIMEOUT",
}

// clearEnv blanks every variable the tests touch; t.Setenv restores
// them afterwards.
func clearEnv(t *testing.T) {
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, "en-IN", cfg.Language)
	assert.Equal(t, "alloy", cfg.Voice)
	assert.Equal(t, 2*time.Second, cfg.BootstrapDelay)
	assert.Equal(t, 3*time.Second, cfg.LoaderDelay)
	assert.Equal(t, time.Second, cfg.ClockPeriod)
	assert.Equal(t, "Thank you for interviewing with EduPath AI", cfg.Sentinel)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"INTERVIEWER_BACKEND_URL=http://example.test\n"+
			"DEEPGRAM_API_KEY=dg\n"+
			"INTERVIEWER_KAFKA_BROKERS=a:9092, b:9092,\n"+
			"INTERVIEWER_BOOTSTRAP_DELAY=500ms\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.test", cfg.BackendURL)
	assert.Equal(t, "dg", cfg.Keys.Deepgram)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.BootstrapDelay)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("INTERVIEWER_VOICE=nova\n"), 0o600))
	t.Setenv("INTERVIEWER_VOICE", "onyx")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "onyx", cfg.Voice)
}

func TestBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("INTERVIEWER_REQUEST_TIMEOUT", "soon")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}
