package main

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"interviewer/clipboard"
)

type editorLanguage struct {
	Name     string
	Template string
}

var editorLanguages = []editorLanguage{
	{"JavaScript", "function solution(input) {\n    // your code here\n}\n"},
	{"Python", "def solution(data):\n    # your code here\n    pass\n"},
	{"Java", "public class Solution {\n    public static void main(String[] args) {\n        // your code here\n    }\n}\n"},
	{"C++", "#include <iostream>\n\nint main() {\n    // your code here\n    return 0;\n}\n"},
	{"HTML", "<!DOCTYPE html>\n<html>\n<head>\n    <title>Solution</title>\n</head>\n<body>\n</body>\n</html>\n"},
	{"CSS", "body {\n    margin: 0;\n}\n"},
	{"SQL", "SELECT *\nFROM table_name\nWHERE condition;\n"},
	{"TypeScript", "function solution(input: string): string {\n    // your code here\n    return input;\n}\n"},
}

const editorIndent = "    "

type editorClosedMsg struct{}
type editorCopiedMsg struct{ err error }

// editorModel is a scratch pad for code answers. It never talks to the
// interview; save copies the buffer to the clipboard.
type editorModel struct {
	area       textarea.Model
	lang       int
	fullscreen bool
	status     string
	width      int
	height     int
}

func newEditor(width, height int) editorModel {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.Placeholder = "Write your code here"
	e := editorModel{area: ta}
	e.setLanguage(0)
	e.resize(width, height)
	e.area.Focus()
	return e
}

func (e *editorModel) setLanguage(i int) {
	e.lang = i % len(editorLanguages)
	e.area.SetValue(editorLanguages[e.lang].Template)
	e.status = ""
}

func (e *editorModel) resize(width, height int) {
	e.width, e.height = width, height
	w, h := width*2/3, height/2
	if e.fullscreen {
		w, h = width-4, height-6
	}
	e.area.SetWidth(max(w, 20))
	e.area.SetHeight(max(h, 5))
}

func (e editorModel) Update(msg tea.Msg) (editorModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return e, func() tea.Msg { return editorClosedMsg{} }
		case "tab":
			e.area.InsertString(editorIndent)
			return e, nil
		case "ctrl+l":
			e.setLanguage(e.lang + 1)
			return e, nil
		case "ctrl+f":
			e.fullscreen = !e.fullscreen
			e.resize(e.width, e.height)
			return e, nil
		case "ctrl+s":
			text := e.area.Value()
			return e, func() tea.Msg { return editorCopiedMsg{err: clipboard.Copy(text)} }
		}
	case editorCopiedMsg:
		if msg.err != nil {
			e.status = "copy failed: " + msg.err.Error()
		} else {
			e.status = "copied to clipboard"
		}
		return e, nil
	}
	var cmd tea.Cmd
	e.area, cmd = e.area.Update(msg)
	return e, cmd
}

func (e editorModel) View() string {
	title := titleStyle.Render("Code editor") + "  " +
		subtitleStyle.Render(editorLanguages[e.lang].Name)
	help := helpStyle.Render("ctrl+l language • ctrl+s copy • ctrl+f fullscreen • esc close • " + endKey + " end interview")
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", e.area.View(), "", help)
	if e.status != "" {
		body += "\n" + activeStyle.Render(e.status)
	}
	if e.fullscreen {
		return body
	}
	return boxStyle.Render(body)
}
