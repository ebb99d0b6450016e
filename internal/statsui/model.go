// Package statsui provides the Bubble Tea browser for recorded trials.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keytrial/internal/config"
	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/stats"
)

const (
	tabTrials = iota
	tabDetail
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Lister reads recorded trials.
type Lister interface {
	ListTrials(ctx context.Context, limit int) ([]model.TrialSummary, error)
	ListKeystrokes(ctx context.Context, id int64) ([]model.KeystrokeEvent, error)
}

// Filter narrows the listed trials.
type Filter struct {
	// Limit of zero lists every trial.
	Limit int
	// SoundMode is nil to list every mode.
	SoundMode *model.SoundMode
}

// Model implements the Bubble Tea results browser.
type Model struct {
	store  Lister
	filter Filter

	trials   []model.TrialSummary
	selected int64
	errMsg   string

	tabs      []string
	activeTab int
	table     table.Model
	detail    viewport.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a results browser and loads the first page of trials.
func NewModel(st Lister, filter Filter) *Model {
	m := &Model{
		store:  st,
		filter: filter,
		tabs:   []string{"Trials", "Keystrokes"},
		detail: viewport.New(0, 0),
	}
	m.initInputs()
	m.table = table.New(
		table.WithColumns(trialColumns()),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	m.table.SetStyles(trialTableStyles())
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabTrials {
				m.openSelected()
			}
			return m, nil
		case "esc":
			m.activeTab = tabTrials
			m.table.Focus()
			return m, nil
		case "g", "home":
			if m.activeTab == tabTrials {
				m.table.GotoTop()
			} else {
				m.detail.GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabTrials {
				m.table.GotoBottom()
			} else {
				m.detail.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabTrials {
			m.table, cmd = m.table.Update(msg)
		} else {
			m.detail, cmd = m.detail.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Trials returns the currently listed trials.
func (m *Model) Trials() []model.TrialSummary {
	return m.trials
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Last: "),
		newFilterInput("Sound mode: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	if m.filter.Limit > 0 {
		m.filterInputs[0].SetValue(strconv.Itoa(m.filter.Limit))
	} else {
		m.filterInputs[0].SetValue("")
	}
	if m.filter.SoundMode != nil {
		m.filterInputs[1].SetValue(m.filter.SoundMode.String())
	} else {
		m.filterInputs[1].SetValue("")
	}
}

func (m *Model) refresh() {
	all, err := m.store.ListTrials(context.Background(), m.filter.Limit)
	if err != nil {
		m.errMsg = err.Error()
		m.trials = nil
		m.table.SetRows(nil)
		return
	}
	m.errMsg = ""
	m.trials = m.trials[:0]
	for _, t := range all {
		if m.filter.SoundMode != nil && t.SoundMode != *m.filter.SoundMode {
			continue
		}
		m.trials = append(m.trials, t)
	}
	m.table.SetRows(trialRows(m.trials))
	m.table.GotoTop()
}

func (m *Model) openSelected() {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.trials) {
		return
	}
	t := m.trials[idx]
	keys, err := m.store.ListKeystrokes(context.Background(), t.ID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.selected = t.ID
	m.detail.SetContent(renderDetail(t, keys))
	m.detail.GotoTop()
	m.activeTab = tabDetail
	m.table.Blur()
}

func renderDetail(t model.TrialSummary, keys []model.KeystrokeEvent) string {
	res := model.TrialResult{
		TrialID:        t.TrialID,
		StartedAt:      t.StartedAt,
		TargetText:     t.TargetText,
		UserInput:      t.UserInput,
		Accuracy:       t.Accuracy,
		ReactionTimeMs: t.ReactionTimeMs,
		Keystrokes:     keys,
		SoundMode:      t.SoundMode,
		MatchPolicy:    t.MatchPolicy,
		EndReason:      t.EndReason,
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Trial %d  %s\n\n", t.ID, t.TrialID)
	if err := stats.RenderTrialSummary(&buf, res); err != nil {
		return fmt.Sprintf("Failed to render trial: %v", err)
	}
	buf.WriteString("\n")
	if err := stats.RenderKeystrokes(&buf, keys); err != nil {
		return fmt.Sprintf("Failed to render keystrokes: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.detail.Width = m.width
	m.detail.Height = bodyHeight
	m.table.SetWidth(m.width)
	// One line for the header row and one for its border.
	m.table.SetHeight(maxInt(1, bodyHeight-2))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabTrials {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	last := "all"
	if m.filter.Limit > 0 {
		last = strconv.Itoa(m.filter.Limit)
	}
	mode := "any"
	if m.filter.SoundMode != nil {
		mode = m.filter.SoundMode.String()
	}
	summary := fmt.Sprintf("Filter: last=%s  sound-mode=%s  shown=%d", last, mode, len(m.trials))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := "Nav: left/right  Move: up/down  Open: enter  Filter: /  Quit: q"
	if m.activeTab == tabDetail {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Back: esc  Quit: q"
	}
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filter (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabDetail {
		if m.selected == 0 {
			return "No trial selected. Press Enter on a trial."
		}
		return m.detail.View()
	}
	if len(m.trials) == 0 {
		return "No trials found."
	}
	return tableMutedStyle.Render(m.table.View())
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refresh()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	lastInput := strings.TrimSpace(m.filterInputs[0].Value())
	last := 0
	if lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}
	mode, err := config.ParseSoundMode(m.filterInputs[1].Value())
	if err != nil {
		return fmt.Errorf("invalid sound mode (use aligned, variable, mostly-aligned or empty)")
	}
	m.filter = Filter{Limit: last, SoundMode: mode}
	return nil
}

func trialColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Started", Width: 19},
		{Title: "Result", Width: 12},
		{Title: "Mode", Width: 14},
		{Title: "Keys", Width: 5},
		{Title: "RT (ms)", Width: 8},
		{Title: "Accurate", Width: 8},
		{Title: "Target", Width: 32},
	}
}

func trialRows(trials []model.TrialSummary) []table.Row {
	rows := make([]table.Row, 0, len(trials))
	for _, t := range trials {
		rt := "-"
		if t.ReactionTimeMs != nil {
			rt = fmt.Sprintf("%.0f", *t.ReactionTimeMs)
		}
		accurate := "no"
		if t.Accuracy {
			accurate = "yes"
		}
		rows = append(rows, table.Row{
			strconv.FormatInt(t.ID, 10),
			t.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(t.EndReason),
			t.SoundMode.String(),
			strconv.Itoa(t.Keystrokes),
			rt,
			accurate,
			t.TargetText,
		})
	}
	return rows
}

func trialTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
