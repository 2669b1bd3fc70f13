package terminal

import (
	"strconv"
	"strings"
)

// execEscape decodes a terminated Linux console sequence. Only CSI sequences
// are understood; everything else is dropped. It reports whether the grid
// shape changed.
func (it *Interpreter) execEscape(seq []rune) bool {
	if len(seq) < 3 || seq[1] != '[' {
		return false
	}
	final := seq[len(seq)-1]
	body := string(seq[2 : len(seq)-1])

	// DEC private modes (cursor visibility, autowrap, ...) have no effect
	// on an append-only grid.
	if strings.HasPrefix(body, "?") {
		return false
	}
	params := parseParams(body)

	switch final {
	case 'm': // SGR
		it.applySGR(params)
	case 'C': // CUF
		_, last := it.rowBounds()
		it.cursor.Char = max(it.cursor.Char, min(it.cursor.Char+param(params, 0, 1), last))
	case 'D': // CUB
		it.cursor.Char = max(it.cursor.Char-param(params, 0, 1), 0)
	case 'G': // CHA
		start, last := it.rowBounds()
		it.cursor.Char = min(max(start, start+param(params, 0, 1)-1), last)
	case 'K': // EL
		return it.eraseInLine(param(params, 0, 0))
	}
	return false
}

// rowBounds returns the first and last column of the visual row holding the
// cursor. Horizontal movement stays inside it, so a sequence can never make
// the next write pad a line past the viewport.
func (it *Interpreter) rowBounds() (start, last int) {
	cols := it.columns
	if cols <= 0 {
		cols = DefaultColumns
	}
	start = it.cursor.Char - it.cursor.Char%cols
	return start, start + cols - 1
}

// parseParams splits a CSI parameter string. Empty or malformed fields are 0.
func parseParams(body string) []int {
	if body == "" {
		return nil
	}
	parts := strings.Split(body, ";")
	params := make([]int, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil {
			params[i] = n
		}
	}
	return params
}

// param returns params[i], or def when it is missing or zero.
func param(params []int, i, def int) int {
	if i >= len(params) || params[i] <= 0 {
		return def
	}
	return params[i]
}

func (it *Interpreter) eraseInLine(mode int) bool {
	line := it.grid[it.cursor.Line]
	switch mode {
	case 0: // cursor to end
		if it.cursor.Char < len(line) {
			it.grid[it.cursor.Line] = line[:it.cursor.Char]
			return true
		}
	case 1: // start to cursor
		blank := blankCell(&it.palette)
		for i := 0; i <= it.cursor.Char && i < len(line); i++ {
			line[i] = blank
		}
	case 2: // whole line
		if len(line) > 0 {
			it.grid[it.cursor.Line] = line[:0]
			return true
		}
	}
	return false
}

func (it *Interpreter) applySGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}

	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			it.pen = it.defaultPen()
		case p == 1:
			it.pen.Bold = true
		case p == 3:
			it.pen.Italic = true
		case p == 4:
			it.pen.Underline = true
		case p == 22:
			it.pen.Bold = false
		case p == 23:
			it.pen.Italic = false
		case p == 24:
			it.pen.Underline = false
		case p >= 30 && p <= 37:
			it.pen.Foreground = it.palette.ANSI[p-30]
		case p == 38:
			if c, n, ok := it.extendedColor(params[i+1:]); ok {
				it.pen.Foreground = c
				i += n
			}
		case p == 39:
			it.pen.Foreground = it.palette.Foreground
		case p >= 40 && p <= 47:
			it.pen.Background = it.palette.ANSI[p-40]
		case p == 48:
			if c, n, ok := it.extendedColor(params[i+1:]); ok {
				it.pen.Background = c
				i += n
			}
		case p == 49:
			it.pen.Background = it.palette.Background
		case p >= 90 && p <= 97:
			it.pen.Foreground = it.palette.ANSI[p-90+8]
		case p >= 100 && p <= 107:
			it.pen.Background = it.palette.ANSI[p-100+8]
		}
	}
}

// extendedColor decodes the tail of a 38/48 parameter: "5;n" or "2;r;g;b".
// It returns the colour and how many parameters were used.
func (it *Interpreter) extendedColor(rest []int) (Color, int, bool) {
	if len(rest) == 0 {
		return Color{}, 0, false
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return Color{}, 0, false
		}
		return it.palette.Indexed(rest[1]), 2, true
	case 2:
		if len(rest) < 4 {
			return Color{}, 0, false
		}
		return Color{clamp8(rest[1]), clamp8(rest[2]), clamp8(rest[3])}, 4, true
	}
	return Color{}, 0, false
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
