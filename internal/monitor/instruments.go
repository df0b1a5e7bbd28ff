// Copyright (c) 2024 Neomantra Corp

package monitor

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dawsh2/alphapulse/internal/schema"
)

// InstrumentsPage lists every instrument the collectors have discovered.
type InstrumentsPage struct {
	cache *schema.Cache
	table table.Model
}

// NewInstrumentsPage creates the instruments page.
func NewInstrumentsPage(cache *schema.Cache) *InstrumentsPage {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Venue", Width: 14},
			{Title: "Type", Width: 10},
			{Title: "Symbol", Width: 24},
			{Title: "Decimals", Width: 8},
			{Title: "AssetId", Width: 20},
		}),
		table.WithFocused(true),
	)
	t.SetStyles(monitorTableStyles)
	return &InstrumentsPage{cache: cache, table: t}
}

// Init implements tea.Model.
func (p *InstrumentsPage) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (p *InstrumentsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.table.SetWidth(msg.Width)
		p.table.SetHeight(msg.Height - 4)

	case tickMsg:
		p.refresh()
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return p, cmd
}

func (p *InstrumentsPage) refresh() {
	records := p.cache.Snapshot()
	sort.Slice(records, func(i, j int) bool {
		if records[i].Id.Venue != records[j].Id.Venue {
			return records[i].Id.Venue < records[j].Id.Venue
		}
		return records[i].Symbol < records[j].Symbol
	})

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			rec.Id.Venue.String(),
			rec.Id.AssetType.String(),
			rec.Symbol,
			fmt.Sprintf("%d", rec.Decimals),
			fmt.Sprintf("%d", rec.Id.AssetId),
		})
	}
	p.table.SetRows(rows)
}

// View implements tea.Model.
func (p *InstrumentsPage) View() string {
	return p.table.View()
}
