package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"dictate/hotkey"
	"dictate/log"
	"dictate/session"
)

// TUI message types
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type CancelledMsg struct{}
type TranscriptionMsg struct {
	Text   string
	Target string
	Err    error
}
type ErrorMsg struct{ Err error }
type TargetMsg struct{ Name string }
type tickMsg time.Time

// tuiSink forwards session events to the running program.
type tuiSink struct{ p *tea.Program }

func (s tuiSink) RecordingStart() { s.p.Send(RecordingStartMsg{}) }
func (s tuiSink) RecordingStop()  { s.p.Send(RecordingStopMsg{}) }
func (s tuiSink) Cancelled()      { s.p.Send(CancelledMsg{}) }
func (s tuiSink) Failed(err error) {
	s.p.Send(ErrorMsg{Err: err})
}
func (s tuiSink) Transcription(text, target string, err error) {
	s.p.Send(TranscriptionMsg{Text: text, Target: target, Err: err})
}

type tuiModel struct {
	run     *running
	targets *targetSwitch
	hotkey  bool

	state         session.State
	started       time.Time
	elapsed       time.Duration
	target        string
	lastText      string
	lastTarget    string
	lastErr       error
	note          string
	msgCount      int
	width, height int
}

var (
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// toggleCmd and cancelCmd call into the coordinator off the update loop.
func (m tuiModel) toggleCmd() tea.Cmd {
	r, t := m.run, m.targets.Get()
	return func() tea.Msg {
		if err := r.Toggle(t); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

func (m tuiModel) cancelCmd() tea.Cmd {
	r := m.run
	return func() tea.Msg {
		if err := r.Cancel(); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

func (m tuiModel) nextTargetCmd() tea.Cmd {
	ts := m.targets
	return func() tea.Msg {
		name, err := ts.Next()
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return TargetMsg{Name: name}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "enter":
			return m, m.toggleCmd()
		case "esc", "c":
			return m, m.cancelCmd()
		case "tab":
			return m, m.nextTargetCmd()
		}

	case tickMsg:
		m.state = m.run.State()
		if m.state == session.Recording {
			m.elapsed = time.Since(m.started)
		}
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = session.Recording
		m.started = time.Now()
		m.elapsed = 0
		m.note = ""
		m.lastErr = nil

	case RecordingStopMsg:
		m.state = session.StopRequested

	case CancelledMsg:
		m.state = session.Idle
		m.note = "cancelled"

	case TranscriptionMsg:
		m.state = session.Idle
		m.msgCount++
		m.lastText = msg.Text
		m.lastTarget = msg.Target
		m.lastErr = msg.Err

	case ErrorMsg:
		if errors.Is(msg.Err, session.ErrNoSpeech) {
			m.note = "no speech detected"
			m.lastErr = nil
		} else {
			m.lastErr = msg.Err
		}

	case TargetMsg:
		m.target = msg.Name
	}
	return m, nil
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case session.Recording:
		return recStyle.Render(fmt.Sprintf("● REC %.1fs", m.elapsed.Seconds()))
	case session.StopRequested, session.Uploading:
		return busyStyle.Render("◌ TRANSCRIBING")
	default:
		return idleStyle.Render("○ STANDBY")
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	var b strings.Builder
	b.WriteString(m.statusLine() + "\n")
	b.WriteString(infoStyle.Render("target: "+m.target) + "\n\n")

	if m.lastText != "" {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)) + "\n\n")
		lines := wrapText(m.lastText, wrapWidth)
		for i, line := range lines {
			b.WriteString(textStyle.Render(line))
			if i == len(lines)-1 && m.lastErr == nil && m.lastTarget != "" {
				b.WriteString(" " + okStyle.Render("[✓ "+m.lastTarget+"]"))
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(idleStyle.Render("No transcriptions yet") + "\n")
	}

	if m.lastErr != nil {
		b.WriteString("\n")
		for _, line := range wrapText(m.lastErr.Error(), wrapWidth) {
			b.WriteString(errStyle.Render(line) + "\n")
		}
	} else if m.note != "" {
		b.WriteString("\n" + errStyle.Render(m.note) + "\n")
	}

	b.WriteString("\n")
	help := helpKeyStyle.Render("space") + helpStyle.Render(" record/stop  ") +
		helpKeyStyle.Render("esc") + helpStyle.Render(" cancel  ") +
		helpKeyStyle.Render("tab") + helpStyle.Render(" target  ") +
		helpKeyStyle.Render("q") + helpStyle.Render(" quit")
	b.WriteString(help + "\n")
	if m.hotkey {
		b.WriteString(helpKeyStyle.Render("Ctrl+Shift+Space") + helpStyle.Render(" record anywhere, ") +
			helpKeyStyle.Render("Ctrl+Shift+Esc") + helpStyle.Render(" cancel") + "\n")
	}
	b.WriteString(helpStyle.Render("dictate " + version))

	return lipgloss.NewStyle().Width(m.width).MaxHeight(m.height).Render(b.String())
}

func runTUI(cmd *cobra.Command, opts *options) error {
	setupLogging(opts)
	defer log.Close()

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	sink := &tuiSink{}
	h := a.host(sink)
	r := a.start(cmd.Context(), h)
	defer func() {
		r.Close()
		log.SessionEnd(h.Count())
	}()

	m := tuiModel{
		run:     r,
		targets: a.targets,
		hotkey:  opts.hotkey,
		target:  a.targets.Get().String(),
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(r.ctx))
	sink.p = p

	if opts.hotkey {
		if err := listenHotkey(r.ctx, hotkey.New(), opts.longPress, r, a.targets); err != nil {
			return fmt.Errorf("hotkey: %w", err)
		}
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
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
