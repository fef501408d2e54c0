package session

import "fmt"

type State int

const (
	Bootstrapping State = iota
	AISpeaking
	AwaitingCandidate
	Listening
	Thinking
	Completed
	Degraded
)

var stateNames = [...]string{
	Bootstrapping:     "bootstrapping",
	AISpeaking:        "ai_speaking",
	AwaitingCandidate: "awaiting_candidate",
	Listening:         "listening",
	Thinking:          "thinking",
	Completed:         "completed",
	Degraded:          "degraded",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of String.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

func (s State) Terminal() bool { return s == Completed || s == Degraded }

// Flags is the pair of speech indicators the UI shows. It is derived
// from State only, so both can never be set.
type Flags struct {
	Listening bool
	Speaking  bool
}

func (s State) Flags() Flags {
	return Flags{Listening: s == Listening, Speaking: s == AISpeaking}
}

type event int

const (
	evBootstrapOK event = iota
	evBootstrapFailed
	evReplyOK
	evReplyEmpty
	evRequestFailed
	evNothingHeard
	evPlaybackDone
	evSentinelSpoken
	evStartListening
	evStopListening
	evEndInterview
)

var eventNames = [...]string{
	evBootstrapOK:     "bootstrap_ok",
	evBootstrapFailed: "bootstrap_failed",
	evReplyOK:         "reply_ok",
	evReplyEmpty:      "reply_empty",
	evRequestFailed:   "request_failed",
	evNothingHeard:    "nothing_heard",
	evPlaybackDone:    "playback_done",
	evSentinelSpoken:  "sentinel_spoken",
	evStartListening:  "start_listening",
	evStopListening:   "stop_listening",
	evEndInterview:    "end_interview",
}

func (e event) String() string { return eventNames[e] }

var transitions = map[State]map[event]State{
	Bootstrapping: {
		evBootstrapOK:     AISpeaking,
		evBootstrapFailed: AwaitingCandidate,
		evReplyEmpty:      AwaitingCandidate,
	},
	AISpeaking: {
		evPlaybackDone:   AwaitingCandidate,
		evSentinelSpoken: Completed,
	},
	AwaitingCandidate: {
		evStartListening: Listening,
	},
	Listening: {
		evStopListening: Thinking,
	},
	Thinking: {
		evReplyOK:       AISpeaking,
		evReplyEmpty:    AwaitingCandidate,
		evRequestFailed: AwaitingCandidate,
		evNothingHeard:  AwaitingCandidate,
	},
}

func init() {
	for s, row := range transitions {
		if !s.Terminal() {
			row[evEndInterview] = Completed
		}
	}
}

func next(from State, ev event) (State, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// Action is something the candidate asks for from the UI.
type Action int

const (
	StartListening Action = iota
	StopListening
	EndInterview
	OpenEditor
)

func (a Action) String() string {
	switch a {
	case StartListening:
		return "start_listening"
	case StopListening:
		return "stop_listening"
	case EndInterview:
		return "end_interview"
	case OpenEditor:
		return "open_editor"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Allows reports whether the candidate may perform a in state s.
func (s State) Allows(a Action) bool {
	if s.Terminal() {
		return false
	}
	switch a {
	case StartListening:
		return s == AwaitingCandidate
	case StopListening:
		return s == Listening
	case EndInterview:
		return true
	case OpenEditor:
		return s != AISpeaking
	}
	return false
}
