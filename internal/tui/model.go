// Package tui provides the Bubble Tea trial interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/sound"
	"github.com/verte-zerg/keytrial/internal/trial"
)

const (
	progressOK  = "#52C41A"
	progressBad = "#FF4D4F"

	instructions = "Type the text above. Listen carefully to the keystrokes!"
	tickInterval = 100 * time.Millisecond
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(progressOK)).Bold(true)
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(progressBad)).Bold(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Copy().Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	modeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#69B1FF"))
)

// Trial is the part of the trial controller the interface drives.
type Trial interface {
	Start() error
	Abort()
	Snapshot() trial.Snapshot
}

// Options tunes what the interface shows.
type Options struct {
	// ShowMode displays the sound-mode description above the text.
	ShowMode bool
	// Timeout, when positive, is shown as a countdown.
	Timeout time.Duration
}

type doneMsg struct {
	result model.TrialResult
}

type tickMsg time.Time

// Model implements the Bubble Tea trial UI.
type Model struct {
	trial   Trial
	source  *Source
	results <-chan model.TrialResult
	opts    Options
	bar     progress.Model

	width  int
	height int

	result *model.TrialResult
	err    error
}

// NewModel constructs a trial UI. results must receive the trial's single
// result; the program quits once it arrives.
func NewModel(t Trial, src *Source, results <-chan model.TrialResult, opts Options) *Model {
	return &Model{
		trial:   t,
		source:  src,
		results: results,
		opts:    opts,
		bar:     progress.New(progress.WithSolidFill(progressOK), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model. It starts the trial.
func (m *Model) Init() tea.Cmd {
	if err := m.trial.Start(); err != nil {
		m.err = err
		return tea.Quit
	}
	return tea.Batch(waitForResult(m.results), tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.contentWidth()
		return m, nil
	case tea.KeyMsg:
		if msg.Paste {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.trial.Abort()
		case tea.KeySpace:
			m.source.Key(' ')
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				m.source.Key(r)
			}
		}
		return m, nil
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			m.source.Interact()
		}
		return m, nil
	case doneMsg:
		res := msg.result
		m.result = &res
		return m, tea.Quit
	case tickMsg:
		if m.result != nil {
			return m, nil
		}
		return m, tick()
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.result != nil || m.err != nil {
		return ""
	}
	snap := m.trial.Snapshot()
	if snap.Target == "" {
		return ""
	}
	targetRunes := []rune(snap.Target)
	inputRunes := []rune(snap.Input)
	cursorIndex := -1
	if len(inputRunes) < len(targetRunes) {
		cursorIndex = len(inputRunes)
	}
	width := m.contentWidth()
	text := wrapStyledRunes(buildStyledRunes(targetRunes, inputRunes, cursorIndex), width)
	typed := wrapStyledRunes(buildTypedRunes(targetRunes, inputRunes), width)

	lines := make([]string, 0, 9)
	if m.opts.ShowMode {
		lines = append(lines, modeStyle.Render(sound.Describe(snap.SoundMode)), "")
	}
	lines = append(lines, text, "", typed, "", m.renderProgress(snap), "", m.renderFooter(snap))
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// Result returns the trial result once the program has quit.
func (m *Model) Result() (model.TrialResult, bool) {
	if m.result == nil {
		return model.TrialResult{}, false
	}
	return *m.result, true
}

// Err returns the error that prevented the trial from starting.
func (m *Model) Err() error { return m.err }

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderProgress(snap trial.Snapshot) string {
	bar := m.bar
	if bar.Width <= 0 {
		bar.Width = 40
	}
	if !snap.Correct {
		bar.FullColor = progressBad
	}
	return bar.ViewAs(progressRatio(snap))
}

func (m *Model) renderFooter(snap trial.Snapshot) string {
	segments := []string{instructions}
	if m.opts.Timeout > 0 {
		left := m.opts.Timeout - snap.Elapsed
		if left < 0 {
			left = 0
		}
		segments = append(segments, fmt.Sprintf("%.1fs left", left.Seconds()))
	}
	segments = append(segments, "Esc to quit")
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func progressRatio(snap trial.Snapshot) float64 {
	total := len([]rune(snap.Target))
	if total == 0 {
		return 0
	}
	ratio := float64(len([]rune(snap.Input))) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

func waitForResult(results <-chan model.TrialResult) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{result: <-results}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
