package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"interviewer/clipboard"
	"interviewer/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(1, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444"))

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Bold(true)
)

// interviewActions is the part of the controller the TUI drives.
type interviewActions interface {
	StartListening() error
	StopListening() error
	EndInterview() error
	OpenEditor() error
}

// endKey ends the interview from any screen, including the editor.
const endKey = "ctrl+q"

type loaderDoneMsg struct{}
type actionMsg struct {
	Action session.Action
	Err    error
}
type copiedMsg struct{ err error }

type tuiModel struct {
	actions     interviewActions
	loaderDelay time.Duration
	setup       string

	state      session.State
	elapsed    int
	question   string
	transcript string
	notice     string
	degraded   string
	copied     string
	level      float64
	summary    *session.Summary
	loading    bool

	spinner spinner.Model
	editor  *editorModel
	width   int
	height  int
}

func newTUIModel(actions interviewActions, loaderDelay time.Duration, setup string) tuiModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	return tuiModel{
		actions:     actions,
		loaderDelay: loaderDelay,
		setup:       setup,
		loading:     loaderDelay > 0,
		spinner:     s,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.loading {
		cmds = append(cmds, tea.Tick(m.loaderDelay, func(time.Time) tea.Msg { return loaderDoneMsg{} }))
	}
	return tea.Batch(cmds...)
}

// act runs a controller action off the Update goroutine; the controller
// may be busy delivering messages to this program.
func (m tuiModel) act(a session.Action, f func() error) tea.Cmd {
	return func() tea.Msg { return actionMsg{Action: a, Err: f()} }
}

func (m tuiModel) finished() bool {
	return m.summary != nil || m.state == session.Degraded
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.editor != nil {
			m.editor.resize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.editor != nil && msg.String() != endKey {
			e, cmd := m.editor.Update(msg)
			m.editor = &e
			return m, cmd
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loaderDoneMsg:
		m.loading = false

	case stateMsg:
		m.state = msg.To
		if msg.To == session.Listening {
			m.level = 0
			m.notice = ""
		}
		if msg.To != session.Bootstrapping {
			m.loading = false
		}

	case clockMsg:
		m.elapsed = msg.Elapsed

	case questionMsg:
		m.question = msg.Text
		m.copied = ""

	case transcriptMsg:
		m.transcript = msg.Text

	case levelMsg:
		if m.state == session.Listening {
			m.level = m.level*0.6 + msg.Level*0.4
		}

	case noticeMsg:
		m.notice = msg.Text

	case degradedMsg:
		m.state = session.Degraded
		m.degraded = msg.Text
		m.loading = false

	case feedbackMsg:
		s := msg.Summary
		m.summary = &s
		m.editor = nil
		m.loading = false

	case actionMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Cannot %s now.", strings.ReplaceAll(msg.Action.String(), "_", " "))
			return m, nil
		}
		if msg.Action == session.OpenEditor && !m.finished() {
			e := newEditor(m.width, m.height)
			m.editor = &e
		}

	case editorClosedMsg:
		m.editor = nil

	case editorCopiedMsg:
		if m.editor != nil {
			e, cmd := m.editor.Update(msg)
			m.editor = &e
			return m, cmd
		}

	case copiedMsg:
		if msg.err != nil {
			m.copied = "copy failed"
		} else {
			m.copied = "copied"
		}

	default:
		if m.editor != nil {
			e, cmd := m.editor.Update(msg)
			m.editor = &e
			return m, cmd
		}
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.finished() {
		switch msg.String() {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
		return m, nil
	}
	switch msg.String() {
	case "s", " ":
		return m, m.act(session.StartListening, m.actions.StartListening)
	case "x", "enter":
		return m, m.act(session.StopListening, m.actions.StopListening)
	case "e":
		return m, m.act(session.OpenEditor, m.actions.OpenEditor)
	case "q", endKey:
		return m, m.act(session.EndInterview, m.actions.EndInterview)
	case "ctrl+y":
		if m.question == "" {
			return m, nil
		}
		q := m.question
		return m, func() tea.Msg { return copiedMsg{err: clipboard.Copy(q)} }
	}
	return m, nil
}

func (m tuiModel) View() string {
	switch {
	case m.state == session.Degraded:
		return m.renderDegraded()
	case m.summary != nil:
		return m.renderFeedback()
	case m.loading:
		return m.renderLoader()
	case m.editor != nil:
		return m.editor.View()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Mock Interview"))
	b.WriteString("  ")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	width := m.wrapWidth()
	if m.question != "" {
		q := questionStyle.Render(strings.Join(wrapText(m.question, width), "\n"))
		if m.copied != "" {
			q += "\n" + activeStyle.Render("["+m.copied+"]")
		}
		b.WriteString(boxStyle.Render(q))
		b.WriteString("\n\n")
	}

	if m.state == session.Listening {
		b.WriteString(m.renderLevel())
		b.WriteString("\n")
	}
	if m.transcript != "" {
		b.WriteString(subtitleStyle.Render("Your answer"))
		b.WriteString("\n")
		b.WriteString(transcriptStyle.Render(strings.Join(wrapText(m.transcript, width), "\n")))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderControls())
	return b.String()
}

func (m tuiModel) wrapWidth() int {
	if m.width == 0 {
		return 80
	}
	return max(m.width-8, 20)
}

func (m tuiModel) renderStatus() string {
	var label string
	switch m.state {
	case session.Bootstrapping:
		label = m.spinner.View() + " preparing the first question"
	case session.AISpeaking:
		label = activeStyle.Render("● interviewer speaking")
	case session.AwaitingCandidate:
		label = statusStyle.Render("○ your turn")
	case session.Listening:
		label = errorStyle.Render("● listening")
	case session.Thinking:
		label = m.spinner.View() + " thinking"
	default:
		label = statusStyle.Render(m.state.String())
	}
	return label + statusStyle.Render("  │  "+session.FormatElapsed(m.elapsed))
}

func (m tuiModel) renderLevel() string {
	const barWidth = 30
	filled := min(int(m.level*float64(barWidth)*5), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return statusStyle.Render("mic [" + bar + "]")
}

func (m tuiModel) renderControls() string {
	type control struct {
		key, label string
		action     session.Action
	}
	controls := []control{
		{"s", "answer", session.StartListening},
		{"x", "done", session.StopListening},
		{"e", "code editor", session.OpenEditor},
		{"q", "end interview", session.EndInterview},
	}
	var parts []string
	for _, c := range controls {
		if m.state.Allows(c.action) {
			parts = append(parts, keyStyle.Render(c.key)+helpStyle.Render(" "+c.label))
		}
	}
	if m.question != "" {
		parts = append(parts, keyStyle.Render("ctrl+y")+helpStyle.Render(" copy question"))
	}
	return strings.Join(parts, helpStyle.Render(" • "))
}

func (m tuiModel) renderLoader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mock Interview"))
	b.WriteString("\n\n")
	b.WriteString(m.spinner.View() + " Generating your conversation...")
	if m.setup != "" {
		b.WriteString("\n\n")
		b.WriteString(subtitleStyle.Render(m.setup))
	}
	return b.String()
}

func (m tuiModel) renderDegraded() string {
	return titleStyle.Render("Mock Interview") + "\n\n" +
		errorStyle.Render(strings.Join(wrapText(m.degraded, m.wrapWidth()), "\n")) + "\n\n" +
		helpStyle.Render("Press q to quit")
}

func (m tuiModel) renderFeedback() string {
	s := m.summary
	var b strings.Builder
	b.WriteString(titleStyle.Render("Interview feedback"))
	b.WriteString("\n\n")
	how := "The interviewer closed the interview."
	if s.Reason == "ended" {
		how = "You ended the interview."
	}
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s Duration %s, %d turns.", how, session.FormatElapsed(s.Elapsed), len(s.Turns))))
	b.WriteString("\n\n")

	width := m.wrapWidth() - 4
	for _, t := range s.Turns {
		who, style := "Interviewer", questionStyle
		if t.Speaker == session.Candidate {
			who, style = "You", transcriptStyle
		}
		b.WriteString(keyStyle.Render(who + ":"))
		b.WriteString("\n")
		for _, line := range wrapText(t.Text, width) {
			b.WriteString("  " + style.Render(line) + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press q to quit"))
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
