// Package synth turns interviewer text into PCM audio.
package synth

import (
	"context"
	"errors"
	"io"
)

// Output format of every Synthesizer: signed 16-bit little-endian mono.
const (
	SampleRate = 24000
	Channels   = 1
)

var (
	ErrEmptyText   = errors.New("synth: empty text")
	ErrRateLimited = errors.New("synth: rate limited")
)

// Config is fixed for a session; voice and locale never change per turn.
type Config struct {
	Voice    string
	Model    string
	Language string
	Speed    float64
}

type Synthesizer interface {
	Name() string
	// Synthesize returns raw PCM. The caller closes the reader.
	Synthesize(ctx context.Context, text string, cfg Config) (io.ReadCloser, error)
}

// Error carries the provider's failure detail.
type Error struct {
	Provider  string
	Status    int
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Provider + " tts"
	if e.Status != 0 {
		msg += " " + httpStatus(e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }
