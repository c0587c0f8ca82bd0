package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxCellWidth caps a column so long codes do not push the table off screen.
const maxCellWidth = 24

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	cells := make([][]string, 0, len(rows)+1)
	if len(headers) > 0 {
		cells = append(cells, headers)
	}
	cells = append(cells, rows...)

	widths := make([]int, colCount)
	for r, row := range cells {
		clipped := make([]string, colCount)
		for i := range clipped {
			if i < len(row) {
				clipped[i] = clipCell(row[i])
			}
			if w := displayWidth(clipped[i]); w > widths[i] {
				widths[i] = w
			}
		}
		cells[r] = clipped
	}

	lines := make([]string, 0, len(cells))
	for _, row := range cells {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = padCell(row[i], width, rightAlignCols[i])
	}
	return strings.TrimRight(strings.Join(parts, " "), " ")
}

func clipCell(value string) string {
	if displayWidth(value) <= maxCellWidth {
		return value
	}
	return runewidth.Truncate(value, maxCellWidth, "…")
}

func padCell(value string, width int, rightAlign bool) string {
	if rightAlign {
		return runewidth.FillLeft(value, width)
	}
	return runewidth.FillRight(value, width)
}

func displayWidth(value string) int {
	return runewidth.StringWidth(value)
}
