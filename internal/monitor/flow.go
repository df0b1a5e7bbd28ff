// Copyright (c) 2024 Neomantra Corp

package monitor

import (
	"fmt"
	"time"

	"github.com/76creates/stickers/flexbox"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// FlowPage renders the message-flow counters as a grid of stat tiles.
type FlowPage struct {
	stats *Stats

	prev   Snapshot
	prevAt time.Time

	fb    *flexbox.FlexBox
	cells map[string]*flexbox.Cell
}

// tile order drives the grid layout: three tiles per row.
var tileLayout = [][]string{
	{"frames", "bytes", "rate"},
	{"trades", "quotes", "signals"},
	{"swaps", "pool_updates", "discoveries"},
	{"gaps", "checksum_failures", "reconnects"},
}

var tileTitles = map[string]string{
	"frames":            "Frames",
	"bytes":             "Bytes",
	"rate":              "Msg/s",
	"trades":            "Trades",
	"quotes":            "Quotes",
	"signals":           "Signals",
	"swaps":             "Swaps",
	"pool_updates":      "Pool Updates",
	"discoveries":       "Discoveries",
	"gaps":              "Sequence Gaps",
	"checksum_failures": "Checksum Fails",
	"reconnects":        "Reconnects",
}

// tiles whose non-zero value indicates trouble.
var alertTiles = map[string]bool{
	"gaps":              true,
	"checksum_failures": true,
	"reconnects":        true,
}

// NewFlowPage creates the flow page.
func NewFlowPage(stats *Stats) *FlowPage {
	p := &FlowPage{
		stats:  stats,
		prevAt: time.Now(),
		fb:     flexbox.New(0, 0),
		cells:  make(map[string]*flexbox.Cell),
	}

	var rows []*flexbox.Row
	for _, rowNames := range tileLayout {
		row := p.fb.NewRow()
		for _, name := range rowNames {
			cell := flexbox.NewCell(1, 1).SetStyle(tileBorderStyle)
			p.cells[name] = cell
			row.AddCells(cell)
		}
		rows = append(rows, row)
	}
	p.fb.AddRows(rows)
	return p
}

// Init implements tea.Model.
func (p *FlowPage) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (p *FlowPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.fb.SetWidth(msg.Width)
		p.fb.SetHeight(msg.Height - 3)

	case tickMsg:
		p.refresh()
	}
	return p, nil
}

func (p *FlowPage) refresh() {
	snap := p.stats.Snapshot()
	now := time.Now()
	elapsed := now.Sub(p.prevAt).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(snap.Frames-p.prev.Frames) / elapsed
	}
	p.prev, p.prevAt = snap, now

	values := map[string]string{
		"frames":            humanize.Comma(int64(snap.Frames)),
		"bytes":             humanize.Bytes(snap.Bytes),
		"rate":              humanize.CommafWithDigits(rate, 1),
		"trades":            humanize.Comma(int64(snap.Trades)),
		"quotes":            humanize.Comma(int64(snap.Quotes)),
		"signals":           humanize.Comma(int64(snap.Signals)),
		"swaps":             humanize.Comma(int64(snap.Swaps)),
		"pool_updates":      humanize.Comma(int64(snap.PoolUpdates)),
		"discoveries":       humanize.Comma(int64(snap.Discoveries)),
		"gaps":              humanize.Comma(int64(snap.SequenceGaps)),
		"checksum_failures": humanize.Comma(int64(snap.ChecksumFailures)),
		"reconnects":        humanize.Comma(int64(snap.Reconnects)),
	}

	for name, cell := range p.cells {
		title := tileTitleStyle.Render(tileTitles[name])
		if alertTiles[name] && values[name] != "0" {
			title = tileAlertStyle.Render(tileTitles[name])
		}
		cell.SetContent(fmt.Sprintf("%s\n%s", title, values[name]))
	}
}

// View implements tea.Model.
func (p *FlowPage) View() string {
	return p.fb.Render()
}
