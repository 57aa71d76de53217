package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/airtop/model"
)

const (
	cellWidth = 8 // columns per cell, gap included
	sepWidth  = 3 // " │ " before each section
	barWidth  = 4
	barHeight = 6
)

// Sub-block characters for fractional fill within a bar row.
var subBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// stripLayout is the flattened key order declared by an update.
type stripLayout struct {
	keys   []model.ItemKey
	starts map[int]string // index of a section's first key -> section id
	index  map[model.ItemKey]int
}

func newStripLayout(decls []model.SectionDecl) stripLayout {
	l := stripLayout{
		starts: make(map[int]string),
		index:  make(map[model.ItemKey]int),
	}
	for _, d := range decls {
		if len(d.Keys) == 0 {
			continue
		}
		l.starts[len(l.keys)] = d.ID
		for _, k := range d.Keys {
			l.index[k] = len(l.keys)
			l.keys = append(l.keys, k)
		}
	}
	return l
}

func (l stripLayout) Len() int { return len(l.keys) }

// hasSep reports whether cell i is preceded by a separator when the window
// starts at first.
func (l stripLayout) hasSep(i, first int) bool {
	_, start := l.starts[i]
	return start || i == first
}

// window returns the [offset, end) range of cells that fit in width.
// At least one cell is always shown when any exist.
func (l stripLayout) window(offset, width int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(l.keys) {
		return len(l.keys), len(l.keys)
	}
	used := 0
	end := offset
	for end < len(l.keys) {
		w := cellWidth
		if l.hasSep(end, offset) {
			w += sepWidth
		}
		if used+w > width && end > offset {
			break
		}
		used += w
		end++
	}
	return offset, end
}

// tailOffset returns the largest offset whose window still ends at the last cell
// and shows as many cells as possible.
func (l stripLayout) tailOffset(width int) int {
	best := len(l.keys) - 1
	if best < 0 {
		return 0
	}
	for off := best; off >= 0; off-- {
		if _, end := l.window(off, width); end != len(l.keys) {
			break
		}
		best = off
	}
	return best
}

// clampOffset keeps offset within [0, tailOffset].
func (l stripLayout) clampOffset(offset, width int) int {
	if limit := l.tailOffset(width); offset > limit {
		offset = limit
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// renderStrip draws cells [first, end) of the layout using the payloads
// bound to them.
func renderStrip(l stripLayout, cells map[model.ItemKey]model.DisplayItem, first, end int) string {
	rows := make([]strings.Builder, barHeight+3)
	for i := first; i < end; i++ {
		key := l.keys[i]
		if l.hasSep(i, first) {
			id := key.SectionID
			rows[0].WriteString(headerStyle.Render(padRight(id, sepWidth+cellWidth)))
			for r := 1; r < len(rows); r++ {
				rows[r].WriteString(dimStyle.Render(" │ "))
			}
		} else {
			rows[0].WriteString(strings.Repeat(" ", cellWidth))
		}
		item, ok := cells[key]
		if !ok {
			for r := 1; r < len(rows); r++ {
				rows[r].WriteString(strings.Repeat(" ", cellWidth))
			}
			continue
		}
		col := renderCell(item)
		for r, line := range col {
			rows[r+1].WriteString(line)
		}
	}
	out := make([]string, len(rows))
	for i := range rows {
		out[i] = strings.TrimRight(rows[i].String(), " ")
	}
	return strings.Join(out, "\n")
}

// renderCell returns barHeight+2 lines, each cellWidth columns wide:
// the bar, the value and the label.
func renderCell(item model.DisplayItem) []string {
	style := stateStyle(item.State)
	maxV := item.MaxValue
	if maxV <= 0 {
		maxV = 10
	}
	frac := float64(item.Value) / float64(maxV)
	if frac > 1 {
		frac = 1
	}
	if frac < 0 {
		frac = 0
	}
	filled := frac * barHeight
	if item.Value > 0 && filled < 1.0/8 {
		filled = 1.0 / 8 // keep any non-zero reading visible
	}

	lines := make([]string, 0, barHeight+2)
	for row := barHeight - 1; row >= 0; row-- {
		var ch rune
		switch {
		case filled >= float64(row+1):
			ch = '█'
		case filled <= float64(row):
			ch = ' '
		default:
			idx := int((filled - float64(row)) * 8)
			if idx >= len(subBlocks) {
				idx = len(subBlocks) - 1
			}
			if idx < 1 {
				idx = 1
			}
			ch = subBlocks[idx]
		}
		bar := strings.Repeat(string(ch), barWidth)
		if ch != ' ' {
			bar = style.Render(bar)
		}
		lines = append(lines, " "+bar+strings.Repeat(" ", cellWidth-barWidth-1))
	}

	val := fmt.Sprintf("%d", item.Value)
	if item.State == model.StateOff && item.Value == 0 {
		val = "⊘" // sensor off / no data
	}
	lines = append(lines, padRight(" "+style.Render(val), cellWidth))
	lines = append(lines, padRight(" "+dimStyle.Render(item.Label()), cellWidth))
	return lines
}

// padRight pads a (possibly styled) string to width visible columns,
// truncating plain strings that are too long.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		r := []rune(s)
		if len(r) > width {
			return string(r[:width])
		}
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
