package stats

import (
	"strings"
	"testing"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Code", "Success", "Runs"}
	rows := [][]string{
		{"1100", "97.50%", "12"},
		{"10110011", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Code     Success Runs" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "1100      97.50%   12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "10110011   8.00%    3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableClipsLongCells(t *testing.T) {
	long := strings.Repeat("10", 20)
	lines := formatTable([]string{"Code"}, [][]string{{long}}, nil)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Fatalf("expected clipped cell, got %q", lines[1])
	}
	if w := displayWidth(lines[1]); w > maxCellWidth {
		t.Fatalf("expected width <= %d, got %d", maxCellWidth, w)
	}
}
