package transcriber

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"interviewer/internal/nettrace"
)

// ErrNoProvider means no speech-to-text credentials were configured.
var ErrNoProvider = errors.New("no transcription provider configured")

type Result struct {
	Text      string
	Metrics   *nettrace.Metrics
	RateLimit string
	Duration  float64
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	// Streaming reports whether sessions deliver text while audio is fed.
	Streaming() bool
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

type baseTranscriber struct {
	lang string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

// Keys carries provider credentials, usually from the environment.
type Keys struct {
	Deepgram          string
	Groq              string
	OpenAI            string
	GoogleCredentials string
}

// New builds the transcriber for provider. An empty provider picks the
// first configured one, preferring streaming backends.
func New(ctx context.Context, provider string, keys Keys) (Transcriber, error) {
	if provider == "" {
		switch {
		case keys.Deepgram != "":
			provider = "deepgram"
		case keys.GoogleCredentials != "":
			provider = "google"
		case keys.Groq != "":
			provider = "groq"
		case keys.OpenAI != "":
			provider = "openai"
		default:
			return nil, fmt.Errorf("%w: set DEEPGRAM_API_KEY, GOOGLE_APPLICATION_CREDENTIALS, GROQ_API_KEY or OPENAI_API_KEY", ErrNoProvider)
		}
	}

	switch provider {
	case "deepgram":
		if keys.Deepgram == "" {
			return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is empty", ErrNoProvider)
		}
		return NewDeepgram(keys.Deepgram), nil
	case "google":
		return NewGoogle(ctx, keys.GoogleCredentials)
	case "groq":
		if keys.Groq == "" {
			return nil, fmt.Errorf("%w: GROQ_API_KEY is empty", ErrNoProvider)
		}
		return NewGroq(keys.Groq), nil
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is empty", ErrNoProvider)
		}
		return NewOpenAI(keys.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", provider)
	}
}

// baseLanguage strips the region from a BCP-47 tag ("en-IN" -> "en").
func baseLanguage(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		return lang[:i]
	}
	return lang
}
