package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"interviewer/session"
)

type countingActions struct {
	ends int
}

func (a *countingActions) StartListening() error { return nil }
func (a *countingActions) StopListening() error  { return nil }
func (a *countingActions) OpenEditor() error     { return nil }

func (a *countingActions) EndInterview() error {
	a.ends++
	return nil
}

func TestEndKeyReachesInterviewFromEditor(t *testing.T) {
	actions := &countingActions{}
	m := newTUIModel(actions, 0, "")
	e := newEditor(80, 24)
	m.editor = &e

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if actions.ends != 0 {
		t.Fatal("typing q in the editor ended the interview")
	}
	m = next.(tuiModel)
	if m.editor == nil {
		t.Fatal("editor closed by a typed key")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	if cmd == nil {
		t.Fatal("ctrl+q produced no command")
	}
	msg, ok := cmd().(actionMsg)
	if !ok || msg.Action != session.EndInterview || msg.Err != nil {
		t.Fatalf("ctrl+q = %#v, want EndInterview action", msg)
	}
	if actions.ends != 1 {
		t.Errorf("EndInterview called %d times, want 1", actions.ends)
	}
}
