package transcriber

import (
	"time"

	"interviewer/encoder"
	"interviewer/internal/nettrace"
)

type SessionConfig struct {
	Stream   bool
	Format   string // upload container for batch sessions, "flac" by default
	Language string
	// Interim asks streaming sessions to publish unfinalized text too.
	Interim bool
}

// SessionResult is the outcome of one listening window.
type SessionResult struct {
	Text     string
	Provider string
	// Audio is how much captured speech reached the provider.
	Audio     time.Duration
	RateLimit string            // "remaining/limit" when the API reports it
	Network   *nettrace.Metrics // batch uploads only
}

// Empty reports whether the provider heard nothing.
func (r SessionResult) Empty() bool { return r.Text == "" }

// Session is one listening window. Feed may be called from the audio
// callback goroutine; Close finalizes and must be called exactly once.
type Session interface {
	Feed(pcm []byte)
	// Updates carries the aggregated transcript so far, not deltas.
	Updates() <-chan string
	Close() (SessionResult, error)
}

func audioDuration(nbytes int) time.Duration {
	return time.Duration(encoder.Duration(nbytes) * float64(time.Second))
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
