package terminal

import "fmt"

// Color is a 24-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Style is the set of rendering attributes applied to a cell.
type Style struct {
	Foreground Color
	Background Color
	Bold       bool
	Italic     bool
	Underline  bool
}

// Cell is one visual character slot.
type Cell struct {
	Rune rune
	Style
}

// Line is one row of cells. Index i is screen column i. A line is never
// pre-padded to the viewport width; trailing cells are implicit blanks.
type Line []Cell

// String returns the runes of the line without styling.
func (l Line) String() string {
	runes := make([]rune, len(l))
	for i, c := range l {
		runes[i] = c.Rune
	}
	return string(runes)
}

// Grid is the append-only history of lines, oldest first.
type Grid []Line

// Cursor is the position where the next printable character lands.
type Cursor struct {
	Line int // row index into the grid
	Char int // column index into the active line
}

// blankCell returns the padding cell used when a write lands past the end of
// a line. It always carries the palette defaults, never the current pen.
func blankCell(p *Palette) Cell {
	return Cell{
		Rune: ' ',
		Style: Style{
			Foreground: p.Foreground,
			Background: p.Background,
		},
	}
}
