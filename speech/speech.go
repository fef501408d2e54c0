// Package speech adapts microphone capture and voice playback to the
// narrow interfaces the interview controller drives.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrCapabilityUnavailable means the host cannot recognize speech at all.
	ErrCapabilityUnavailable = errors.New("speech recognition unavailable")
	// ErrCanceled is reported to an utterance's done callback when it was
	// cut short by Cancel or a newer Speak.
	ErrCanceled = errors.New("utterance canceled")
	// ErrAlreadyListening is returned by Start while a window is open.
	ErrAlreadyListening = errors.New("already listening")
)

type CaptureOptions struct {
	Continuous     bool
	Language       string
	InterimResults bool
}

// DefaultCaptureOptions are the options every interview listens with.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{Continuous: true, Language: "en-IN", InterimResults: true}
}

// CaptureEvents are invoked from capture goroutines. Any field may be nil.
type CaptureEvents struct {
	// OnTranscript receives the whole buffer so far, not a delta.
	OnTranscript func(snapshot string)
	// OnFinal fires exactly once per successful Start, after Stop.
	OnFinal func(text string, err error)
	// OnLevel receives the normalized RMS of each audio block.
	OnLevel func(rms float64)
	// OnSilence reports true once the candidate has been quiet for a
	// while, and false when speech resumes.
	OnSilence func(silent bool)
}

type Capture interface {
	Available() error
	Start(ctx context.Context, opts CaptureOptions, ev CaptureEvents) error
	// Stop ends the listening window. Safe when idle.
	Stop()
	Transcript() string
	Reset()
}

type Playback interface {
	// Speak cancels any active utterance, then speaks text. done is
	// called exactly once.
	Speak(text string, done func(error))
	// Cancel stops the active utterance. Safe when idle.
	Cancel()
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
