// Package display renders the cooking session in the terminal: a status
// bar and an input line pinned to the bottom, with everything else
// printed into the scrollback above them through the Bubble Tea program.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/timer"
)

// ── Palette ──────────────────────────────────────────────────────

var (
	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#292524")).
			Foreground(lipgloss.Color("#a8a29e"))

	phaseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fdba74")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a8a29e"))
	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#57534e"))
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fcd34d"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#78716c")).Italic(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d6d3d1"))

	// BannerStyle colors the startup banner.
	BannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#fdba74"))
)

// Tone selects how a printed line is styled.
type Tone int

const (
	ToneHeading Tone = iota
	ToneBody
	ToneHint
	ToneUrgent
)

var toneStyles = map[Tone]lipgloss.Style{
	ToneHeading: lipgloss.NewStyle().Foreground(lipgloss.Color("#fdba74")),
	ToneBody:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e7e5e4")),
	ToneHint:    lipgloss.NewStyle().Foreground(lipgloss.Color("#78716c")),
	ToneUrgent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true),
}

const prompt = "cook> "

// Status is what the bar shows.
type Status struct {
	Title  string
	Phase  domain.Phase
	Header string // "Step 2 of 5", or an ingredient count in preparation
	Timer  domain.TimerState
	Stage  domain.CompletionStage
}

// StatusFunc reports the current status. It is polled once a second.
type StatusFunc func() Status

// UI owns the terminal while a session runs. [UI.Run] blocks; the app
// goroutine prints and reads [UI.InputChan] once [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	status  StatusFunc
	inputCh chan string
	readyCh chan struct{}
	done    atomic.Bool
}

// NewUI creates a UI that polls status for its bar.
func NewUI(status StatusFunc) *UI {
	return &UI{
		status:  status,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Falls back to
// fmt.Println before the program starts and after it ends.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt on its own line.
// Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan delivers each submitted line.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// ── Styled output ────────────────────────────────────────────────

// Print writes an indented line in the given tone.
func (u *UI) Print(tone Tone, text string) {
	u.Println(toneStyles[tone].Render("  " + text))
}

// PrintIngredient prints one checklist line.
func (u *UI) PrintIngredient(n int, checked bool, text string) {
	u.Println(checklistLine(n, checked, text))
}

func checklistLine(n int, checked bool, text string) string {
	if checked {
		return toneStyles[ToneHint].Render(fmt.Sprintf("  [x] %d. %s", n, text))
	}
	return toneStyles[ToneBody].Render(fmt.Sprintf("  [ ] %d. %s", n, text))
}

// echo repeats the typed command into the scrollback.
func (u *UI) echo(text string) {
	u.Println(promptStyle.Render(strings.TrimSpace(prompt)) + " " + dimStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit stops the event loop. Safe to call more than once.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	ti := textinput.New()
	// A plain-text prompt keeps the textinput width math correct; styled
	// prompts add ANSI bytes the offset calculation counts.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = promptStyle
	ti.Cursor.Style = phaseStyle
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60 // updated on first WindowSizeMsg

	m := model{
		status:  u.status,
		input:   ti,
		inputCh: u.inputCh,
		readyCh: u.readyCh,
		echoFn:  u.echo,
	}
	m.refresh()

	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	status  StatusFunc
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	current Status
	width   int
}

type tickMsg time.Time

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			// Route through the app loop so the session is torn down.
			m.inputCh <- "quit"
			return m, nil
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo from a Cmd so it runs outside Update.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) refresh() {
	if m.status != nil {
		m.current = m.status()
	}
}

func (m model) titleStr() string {
	t := m.current.Timer
	if t.RemainingSeconds > 0 {
		return m.current.Title + " | " + timer.FormatRemaining(t.RemainingSeconds)
	}
	if m.current.Title == "" {
		return "GuidedCook"
	}
	return m.current.Title
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	s := m.current
	parts := []string{phaseStyle.Render(s.Phase.String())}
	if s.Header != "" {
		parts = append(parts, dimStyle.Render(s.Header))
	}
	switch {
	case s.Timer.Running:
		parts = append(parts, dimStyle.Render("timer: ")+hotStyle.Render(timer.FormatRemaining(s.Timer.RemainingSeconds)))
	case s.Timer.RemainingSeconds > 0:
		parts = append(parts, pausedStyle.Render("paused "+timer.FormatRemaining(s.Timer.RemainingSeconds)))
	}
	if s.Stage != domain.StageIdle && s.Stage != domain.StageDone {
		parts = append(parts, dimStyle.Render("finish: ")+hotStyle.Render(s.Stage.String()))
	}

	content := " " + strings.Join(parts, ruleStyle.Render(" · ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barStyle.Width(w).Render(content)
}
