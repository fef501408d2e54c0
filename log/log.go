package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// EnvPath overrides the default log directory when no flag is given.
const EnvPath = "INTERVIEWER_LOG_PATH"

type NetworkMetrics struct {
	DNSTimeMs   float64
	TLSTimeMs   float64
	TTFBMs      float64
	TotalTimeMs float64
	ConnReused  bool
	TLSProto    string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: INTERVIEWER_LOG_PATH environment variable
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return defaultDir()
}

// defaultDir follows each platform's convention for per-user logs.
func defaultDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "interviewer", "logs"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", "interviewer"), nil
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "interviewer", "logs"), nil
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

// Logger returns the diagnostics logger, or a disabled one before Init.
func Logger() zerolog.Logger {
	if !logReady {
		return zerolog.Nop()
	}
	return diagLog
}

// event starts an entry at level. Before Init it returns nil, which
// zerolog treats as a disabled event.
func event(level zerolog.Level) *zerolog.Event {
	if !logReady {
		return nil
	}
	return diagLog.WithLevel(level)
}

// outcome picks the level for an operation that may have failed.
func outcome(err error) *zerolog.Event {
	if err != nil {
		return event(zerolog.WarnLevel).Err(err)
	}
	return event(zerolog.InfoLevel)
}

func Info(msg string) { event(zerolog.InfoLevel).Msg(msg) }

func Error(msg string) { event(zerolog.ErrorLevel).Msg(msg) }

func Errorf(format string, args ...any) { event(zerolog.ErrorLevel).Msgf(format, args...) }

func Warn(msg string) { event(zerolog.WarnLevel).Msg(msg) }

func Warnf(format string, args ...any) { event(zerolog.WarnLevel).Msgf(format, args...) }

func SessionStart(id, backend, stt, tts string) {
	event(zerolog.InfoLevel).
		Str("session", id).
		Str("backend", backend).
		Str("stt", stt).
		Str("tts", tts).
		Msg("session_start")
}

func SessionEnd(id, reason string, elapsed time.Duration, turns int) {
	event(zerolog.InfoLevel).
		Str("session", id).
		Str("reason", reason).
		Dur("elapsed", elapsed).
		Int("turns", turns).
		Msg("session_end")
}

func Transition(from, to string) {
	event(zerolog.InfoLevel).Str("from", from).Str("to", to).Msg("state")
}

// network appends request timings when m is set.
func network(ev *zerolog.Event, m *NetworkMetrics) *zerolog.Event {
	if m == nil {
		return ev
	}
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	ev = ev.Str("conn", conn)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	return ev.Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs)
}

// Exchange records one conversation request. m may be nil when the
// request never reached the network.
func Exchange(kind string, m *NetworkMetrics, err error) {
	network(outcome(err).Str("kind", kind), m).Msg("exchange")
}

func Playback(chars int, d time.Duration, err error) {
	outcome(err).Int("chars", chars).Dur("took", d).Msg("playback")
}

// TranscriptionStats summarizes one closed listening window.
type TranscriptionStats struct {
	Provider  string
	Mode      string // "batch" or "stream"
	Audio     time.Duration
	SentKB    float64
	Encode    time.Duration
	Connect   time.Duration
	Finalize  time.Duration
	Finals    int
	RateLimit string
	Network   *NetworkMetrics
	Err       error
}

func Transcription(st TranscriptionStats) {
	ev := outcome(st.Err).
		Str("provider", st.Provider).
		Str("mode", st.Mode).
		Dur("audio", st.Audio).
		Float64("sent_kb", st.SentKB)
	switch st.Mode {
	case "batch":
		ev = ev.Dur("encode", st.Encode)
	case "stream":
		ev = ev.Dur("connect", st.Connect).
			Dur("finalize", st.Finalize).
			Int("finals", st.Finals)
	}
	if st.RateLimit != "" {
		ev = ev.Str("rate_limit", st.RateLimit)
	}
	network(ev, st.Network).Msg("transcription")
}
