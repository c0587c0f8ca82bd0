package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// bitGroup is how many bits are shown between separating spaces.
const bitGroup = 8

var (
	oneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	zeroStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledBits styles a bitstream in groups of bitGroup. The last
// occurrence of code is highlighted and the newest bit is underlined.
func buildStyledBits(bitstream, code string) []styledRune {
	matchStart, matchEnd := -1, -1
	if code != "" {
		if i := strings.LastIndex(bitstream, code); i >= 0 {
			matchStart, matchEnd = i, i+len(code)
		}
	}
	out := make([]styledRune, 0, len(bitstream)+len(bitstream)/bitGroup)
	for i := 0; i < len(bitstream); i++ {
		if i > 0 && i%bitGroup == 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		style := zeroStyle
		if bitstream[i] == '1' {
			style = oneStyle
		}
		if i >= matchStart && i < matchEnd {
			style = matchStyle
		}
		if i == len(bitstream)-1 {
			style = style.Underline(true)
		}
		r := rune(bitstream[i])
		out = append(out, styledRune{
			s:     style.Render(string(r)),
			width: runewidth.RuneWidth(r),
		})
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits, or mid-group when
// a group is wider than width.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
