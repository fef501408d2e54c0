// Package session runs one mock interview: it decides who may speak,
// forwards candidate answers to the backend, plays the interviewer's
// replies and hands off to the feedback flow exactly once.
package session

import (
	"context"
	"errors"
	"time"

	"interviewer/chat"
)

var (
	// ErrActionNotAllowed is returned for candidate actions the current
	// state does not permit.
	ErrActionNotAllowed = errors.New("action not allowed now")
	// ErrBusy means a backend request is already in flight.
	ErrBusy = errors.New("a request is already in flight")
	// ErrDisposed is returned once the controller has shut down.
	ErrDisposed = errors.New("session is over")
)

type Speaker int

const (
	Interviewer Speaker = iota
	Candidate
)

func (s Speaker) String() string {
	if s == Candidate {
		return "candidate"
	}
	return "interviewer"
}

type Status int

const (
	Active Status = iota
	Finished
)

func (s Status) String() string {
	if s == Finished {
		return "completed"
	}
	return "active"
}

type Turn struct {
	Index      int
	Speaker    Speaker
	Text       string
	ProducedAt time.Time
}

type Session struct {
	ID        string
	StartedAt time.Time
	Elapsed   int // seconds
	Status    Status
	Turns     []Turn
}

func (s Session) clone() Session {
	s.Turns = append([]Turn(nil), s.Turns...)
	return s
}

// Summary is handed to the Navigator when the interview ends.
type Summary struct {
	Session
	// Reason is "completed" when the interviewer closed the interview
	// and "ended" when the candidate did.
	Reason string
}

// Conversation produces the interviewer's next utterance.
type Conversation interface {
	RequestNextTurn(ctx context.Context, transcript string) (chat.Reply, error)
}

// Sink receives everything the UI renders. Methods are called from the
// controller goroutine and must not block on the controller.
type Sink interface {
	StateChanged(from, to State)
	Tick(elapsed int)
	Question(text string)
	Transcript(text string)
	// Notice shows msg to the candidate. An empty msg clears it.
	Notice(msg string)
	Degraded(msg string)
	AudioLevel(rms float64)
}

// Navigator moves to the feedback flow. Called at most once.
type Navigator interface {
	Navigate(Summary)
}

type NavigatorFunc func(Summary)

func (f NavigatorFunc) Navigate(s Summary) { f(s) }

// Observer gets a copy of controller activity for metrics.
type Observer interface {
	StateChanged(from, to State)
	TurnAppended(Turn)
	RequestFinished(kind string, d time.Duration, err error)
	PlaybackFinished(err error)
	ActionRejected(a Action, s State)
	SessionEnded(reason string, elapsed int, turns int)
}

type nopSink struct{}

func (nopSink) StateChanged(State, State) {}
func (nopSink) Tick(int)                  {}
func (nopSink) Question(string)           {}
func (nopSink) Transcript(string)         {}
func (nopSink) Notice(string)             {}
func (nopSink) Degraded(string)           {}
func (nopSink) AudioLevel(float64)        {}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State)                    {}
func (nopObserver) TurnAppended(Turn)                            {}
func (nopObserver) RequestFinished(string, time.Duration, error) {}
func (nopObserver) PlaybackFinished(error)                       {}
func (nopObserver) ActionRejected(Action, State)                 {}
func (nopObserver) SessionEnded(string, int, int)                {}
