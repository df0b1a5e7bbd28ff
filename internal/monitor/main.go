// Copyright (c) 2024 Neomantra Corp
//
// Terminal dashboard over the relay buses: a flow page of counters/rates
// and an instruments page backed by the schema cache the collectors keep
// warm.

package monitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// tickMsg drives the once-per-second refresh of every page.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the collectors and blocks in the TUI until quit.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	stats := &Stats{}
	cache := schema.New()

	mdCollector := NewCollector(cfg.MarketDataSocket(), wire.RelayDomain_MarketData, cfg.Checksums, stats, cache, logger)
	sigCollector := NewCollector(cfg.SignalsSocket(), wire.RelayDomain_Signals, cfg.Checksums, stats, cache, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go mdCollector.Run(ctx)
	go sigCollector.Run(ctx)

	model := NewAppModel(stats, cache)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// AppModel is the tabbed top-level model.
type AppModel struct {
	pages       []tea.Model
	pageNames   []string
	currentPage int

	width  int
	height int
	help   help.Model
	keyMap AppKeyMap

	headerStyle      lipgloss.Style
	inactiveTabStyle lipgloss.Style
	activeTabStyle   lipgloss.Style
}

// NewAppModel builds the dashboard model.
func NewAppModel(stats *Stats, cache *schema.Cache) AppModel {
	return AppModel{
		pageNames:   []string{"1-Flow", "2-Instruments"},
		pages:       []tea.Model{NewFlowPage(stats), NewInstrumentsPage(cache)},
		currentPage: 0,
		width:       20,
		height:      10,
		help:        help.New(),
		keyMap:      DefaultAppKeyMap(),
		headerStyle: lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorDarkPurple),
		inactiveTabStyle: lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorDarkPurple),
		activeTabStyle: lipgloss.NewStyle().
			Foreground(colorYellow).
			Background(colorGrue),
	}
}

// AppKeyMap is all the [key.Binding] for the AppModel.
type AppKeyMap struct {
	Quit             key.Binding
	FocusFlow        key.Binding
	FocusInstruments key.Binding
}

// DefaultAppKeyMap returns a default set of key bindings for AppModel.
func DefaultAppKeyMap() AppKeyMap {
	return AppKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc", "q"),
			key.WithHelp("q", "quit"),
		),
		FocusFlow: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "flow"),
		),
		FocusInstruments: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "instruments"),
		),
	}
}

// FullHelp implements bubble's [help.KeyMap] interface.
func (m *AppKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Quit, m.FocusFlow, m.FocusInstruments}}
}

// ShortHelp implements bubble's [help.KeyMap] interface.
func (m AppKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Quit, m.FocusFlow, m.FocusInstruments}
}

// Init starts every page plus the refresh ticker.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	for _, page := range m.pages {
		cmds = append(cmds, page.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles BubbleTea messages.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, tickCmd())
		for i := range m.pages {
			pageModel, cmd := m.pages[i].Update(msg)
			m.pages[i] = pageModel
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.FocusFlow):
			m.currentPage = 0
		case key.Matches(msg, m.keyMap.FocusInstruments):
			m.currentPage = 1
		}

		// only the active page gets key events
		pageModel, cmd := m.pages[m.currentPage].Update(msg)
		m.pages[m.currentPage] = pageModel
		return m, cmd
	}

	var cmds []tea.Cmd
	for i := range m.pages {
		pageModel, cmd := m.pages[i].Update(msg)
		m.pages[i] = pageModel
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the header, current page, and footer.
func (m AppModel) View() string {
	viewStr := m.headerView() + "\n"
	if m.currentPage < 0 || m.currentPage >= len(m.pages) {
		viewStr += "Error: bad page\n"
	} else {
		viewStr += m.pages[m.currentPage].View() + "\n"
	}
	viewStr += m.help.View(&m.keyMap)
	return viewStr
}

func (m *AppModel) headerView() string {
	header := m.headerStyle.Render(" alphapulse-monitor   ")
	for i, name := range m.pageNames {
		if i == m.currentPage {
			header += m.activeTabStyle.Render("[ " + name + " ]")
		} else {
			header += m.inactiveTabStyle.Render("| " + name + " |")
		}
		header += m.headerStyle.Render(" ")
	}
	restOfLine := m.width - lipgloss.Width(header)
	if restOfLine > 0 {
		header += m.headerStyle.Render(strings.Repeat(" ", restOfLine))
	}
	return header
}
