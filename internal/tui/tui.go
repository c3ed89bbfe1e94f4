// Package tui is an interactive browser for the findings of one analysis.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xab-mack/smartaudit/internal/model"
	"github.com/xab-mack/smartaudit/internal/util"
)

// snippetRadius is the number of source lines shown around a finding.
const snippetRadius = 3

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5F5FD7"))

	detailStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)

	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000")),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8700")),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
	}
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Detail key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Detail: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "toggle detail"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Detail, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Detail, k.Quit}}
}

type browser struct {
	result   *model.AnalysisResult
	findings []model.Finding
	source   []string
	cursor   int
	detail   bool
	help     help.Model
	keys     keyMap
}

func newBrowser(res *model.AnalysisResult, source []string) browser {
	fs := append(append([]model.Finding{}, res.Findings...), res.Vulnerabilities...)
	fs = append(fs, res.GasOptimizations...)
	return browser{result: res, findings: fs, source: source, help: help.New(), keys: keys}
}

func (m browser) Init() tea.Cmd { return nil }

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(m.findings)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Detail):
		m.detail = !m.detail
	}
	return m, nil
}

func (m browser) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  score %d/100  risk %s",
		m.result.ContractName, m.result.SecurityScore, severityStyles[m.result.RiskLevel].Render(string(m.result.RiskLevel)))))
	b.WriteString("\n\n")
	if len(m.findings) == 0 {
		b.WriteString("  No findings.\n")
	}
	for i, f := range m.findings {
		line := fmt.Sprintf("%-8s %-4d %s", f.Severity, f.LineNumber(), f.Kind)
		if i == m.cursor {
			b.WriteString("> " + selectedStyle.Render(line) + "\n")
			continue
		}
		b.WriteString("  " + severityStyles[f.Severity].Render(line) + "\n")
	}
	if m.detail && len(m.findings) > 0 {
		b.WriteString("\n" + detailStyle.Render(m.detailView(m.findings[m.cursor])) + "\n")
	}
	b.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}

func (m browser) detailView(f model.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n%s\n\nImpact: %s\nFix: %s", f.Kind, f.Severity, f.Description, f.Impact, f.Recommendation)
	if s := util.Snippet(m.source, f.LineNumber(), snippetRadius); s != "" {
		b.WriteString("\n\n" + s)
	}
	return b.String()
}

// Run shows the findings of res; source is the analyzed text split into lines.
func Run(res *model.AnalysisResult, source []string) error {
	_, err := tea.NewProgram(newBrowser(res, source)).Run()
	return err
}
