// Package config loads settings from .env and the environment. Command
// line flags in main override them.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"interviewer/transcriber"
)

type Config struct {
	BackendURL     string
	Language       string
	Voice          string
	TTSModel       string
	OpenAIKey      string
	STTProvider    string
	Keys           transcriber.Keys
	AudioFormat    string
	Sentinel       string
	BootstrapDelay time.Duration
	LoaderDelay    time.Duration
	ClockPeriod    time.Duration
	RequestTimeout time.Duration
	MetricsAddr    string
	KafkaBrokers   []string
	KafkaTopic     string
	Topic          string
	Difficulty     string
}

// Load reads envFile (".env" when empty; a missing file is fine) and
// then the process environment. Variables already set in the
// environment win over the file. The returned Config is usable even when
// an error is reported; bad values fall back to defaults.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	var errs []error
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}

	dur := func(key string, def time.Duration) time.Duration {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, errors.New(key+": "+err.Error()))
			return def
		}
		return d
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	cfg := Config{
		BackendURL:  envOrDefault("INTERVIEWER_BACKEND_URL", "http://localhost:3000"),
		Language:    envOrDefault("INTERVIEWER_LANGUAGE", "en-IN"),
		Voice:       envOrDefault("INTERVIEWER_VOICE", "alloy"),
		TTSModel:    envOrDefault("INTERVIEWER_TTS_MODEL", "tts-1"),
		OpenAIKey:   openAIKey,
		STTProvider: os.Getenv("INTERVIEWER_STT_PROVIDER"),
		Keys: transcriber.Keys{
			Deepgram:          os.Getenv("DEEPGRAM_API_KEY"),
			Groq:              os.Getenv("GROQ_API_KEY"),
			OpenAI:            openAIKey,
			GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		AudioFormat:    envOrDefault("INTERVIEWER_AUDIO_FORMAT", "flac"),
		Sentinel:       envOrDefault("INTERVIEWER_SENTINEL", "Thank you for interviewing with EduPath AI"),
		BootstrapDelay: dur("INTERVIEWER_BOOTSTRAP_DELAY", 2*time.Second),
		LoaderDelay:    dur("INTERVIEWER_LOADER_DELAY", 3*time.Second),
		ClockPeriod:    dur("INTERVIEWER_CLOCK_PERIOD", time.Second),
		RequestTimeout: dur("INTERVIEWER_REQUEST_TIMEOUT", 60*time.Second),
		MetricsAddr:    os.Getenv("INTERVIEWER_METRICS_ADDR"),
		KafkaBrokers:   splitList(os.Getenv("INTERVIEWER_KAFKA_BROKERS")),
		KafkaTopic:     envOrDefault("INTERVIEWER_KAFKA_TOPIC", "interview.sessions"),
		Topic:          os.Getenv("INTERVIEWER_TOPIC"),
		Difficulty:     os.Getenv("INTERVIEWER_DIFFICULTY"),
	}
	return cfg, errors.Join(errs...)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
