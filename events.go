package main

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"interviewer/beep"
	"interviewer/session"
)

// Messages delivered to the TUI by programSink.
type stateMsg struct{ From, To session.State }
type clockMsg struct{ Elapsed int }
type questionMsg struct{ Text string }
type transcriptMsg struct{ Text string }
type noticeMsg struct{ Text string }
type degradedMsg struct{ Text string }
type levelMsg struct{ Level float64 }
type feedbackMsg struct{ Summary session.Summary }

// programSink forwards controller output to the Bubble Tea program and
// plays the listening cues.
type programSink struct {
	send func(tea.Msg)
	cues *beep.Player
}

func (s *programSink) StateChanged(from, to session.State) {
	switch {
	case to == session.Listening:
		s.cues.Play(beep.Start)
	case from == session.Listening:
		s.cues.Play(beep.End)
	}
	s.send(stateMsg{From: from, To: to})
}

func (s *programSink) Tick(elapsed int)       { s.send(clockMsg{Elapsed: elapsed}) }
func (s *programSink) Question(text string)   { s.send(questionMsg{Text: text}) }
func (s *programSink) Transcript(text string) { s.send(transcriptMsg{Text: text}) }
func (s *programSink) AudioLevel(rms float64) { s.send(levelMsg{Level: rms}) }
func (s *programSink) Degraded(msg string)    { s.send(degradedMsg{Text: msg}) }

func (s *programSink) Notice(msg string) {
	if msg != "" {
		s.cues.Play(beep.Error)
	}
	s.send(noticeMsg{Text: msg})
}

// lineSink prints controller output one event per line for the headless
// test mode.
type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *lineSink) StateChanged(from, to session.State) { s.printf("STATE %s %s", from, to) }
func (s *lineSink) Tick(elapsed int)                    { s.printf("TICK %s", session.FormatElapsed(elapsed)) }
func (s *lineSink) Question(text string)                { s.printf("QUESTION %s", text) }
func (s *lineSink) Transcript(text string)              { s.printf("TRANSCRIPT %s", text) }
func (s *lineSink) Notice(msg string)                   { s.printf("NOTICE %s", msg) }
func (s *lineSink) Degraded(msg string)                 { s.printf("DEGRADED %s", msg) }
func (s *lineSink) AudioLevel(float64)                  {}

func (s *lineSink) Navigate(sum session.Summary) {
	s.printf("FEEDBACK id=%s reason=%s status=%s elapsed=%d turns=%d",
		sum.ID, sum.Reason, sum.Status, sum.Elapsed, len(sum.Turns))
}

// navigators fans a hand-off out to several navigators.
type navigators []session.Navigator

func (ns navigators) Navigate(s session.Summary) {
	for _, n := range ns {
		n.Navigate(s)
	}
}
