package statsui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/stats"
)

var runColumns = []table.Column{
	{Title: "ID", Width: 5},
	{Title: "Ended", Width: 16},
	{Title: "Kind", Width: 8},
	{Title: "Code", Width: 16},
	{Title: "Result", Width: 8},
	{Title: "Bits", Width: 5},
	{Title: "FPS", Width: 6},
	{Title: "Duration", Width: 10},
}

func newRunTable() table.Model {
	t := table.New(
		table.WithColumns(runColumns),
		table.WithHeight(1),
	)
	t.SetStyles(runTableStyles())
	return t
}

// runRows lists runs newest first.
func runRows(runs []model.Run) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		rows = append(rows, table.Row(stats.RunRow(runs[i])))
	}
	return rows
}

func (m *Model) applyRunTable(width, height int) {
	rows := runRows(m.report.Runs)
	m.runTable.SetRows(rows)
	m.runTable.GotoTop()
	m.runLayout.rowCount = len(rows)
	m.runLayout.width = 0
	m.setRunTableSize(width, height)
}

func (m *Model) setRunTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.runLayout.width == width && m.runLayout.height == viewportHeight {
		return
	}
	m.runLayout.width = width
	m.runLayout.height = viewportHeight
	m.runTable.SetWidth(width)
	m.runTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustRunTableHeight(height)
	if m.runLayout.height != viewportHeight {
		m.runLayout.height = viewportHeight
		m.runTable.SetHeight(viewportHeight)
	}
}

// adjustRunTableHeight corrects the table height for its header and border
// so the rendered view fills exactly bodyHeight lines.
func (m *Model) adjustRunTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.runTable.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(m.runTable.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		m.runTable.SetHeight(height)
	}
	return height
}

func runTableStyles() table.Styles {
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
