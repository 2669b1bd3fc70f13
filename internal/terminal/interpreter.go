package terminal

// DefaultColumns is the viewport width assumed until Reflow is called.
const DefaultColumns = 80

const (
	esc = 0x1B

	// maxEscapeLen bounds the accumulator so an unterminated sequence cannot
	// grow without limit. Longer sequences are discarded.
	maxEscapeLen = 64

	tabWidth = 8
)

// Interpreter consumes decoded text and maintains the Grid and Cursor.
type Interpreter struct {
	variant  Variant
	palette  Palette
	grid     Grid
	cursor   Cursor
	pen      Style
	escape   []rune
	columns  int
	rowCount int

	onNewText         func()
	onRowCountChanged func(int)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithColumns sets the initial viewport width.
func WithColumns(columns int) Option {
	return func(it *Interpreter) {
		if columns > 0 {
			it.columns = columns
		}
	}
}

// WithPalette selects the colour palette used for defaults and indexed colours.
func WithPalette(p Palette) Option {
	return func(it *Interpreter) { it.palette = p }
}

// WithOnNewText registers the callback fired after every Consume call.
func WithOnNewText(fn func()) Option {
	return func(it *Interpreter) { it.onNewText = fn }
}

// WithOnRowCountChanged registers the callback fired when the visual row
// count changes.
func WithOnRowCountChanged(fn func(rows int)) Option {
	return func(it *Interpreter) { it.onRowCountChanged = fn }
}

// New creates an Interpreter with an empty grid of one line and the cursor
// at (0, 0).
func New(variant Variant, opts ...Option) *Interpreter {
	it := &Interpreter{
		variant: variant,
		palette: XTermPalette,
		grid:    Grid{Line{}},
		columns: DefaultColumns,
	}
	for _, opt := range opts {
		opt(it)
	}
	it.pen = it.defaultPen()
	it.rowCount = VisualRows(it.grid, it.columns)
	return it
}

// Variant returns the variant fixed at construction.
func (it *Interpreter) Variant() Variant { return it.variant }

// ReportedName returns the TERM string for this interpreter.
func (it *Interpreter) ReportedName() string { return it.variant.ReportedName() }

// RowCount returns the cached wrap-aware row count.
func (it *Interpreter) RowCount() int { return it.rowCount }

// Columns returns the viewport width used for reflow.
func (it *Interpreter) Columns() int { return it.columns }

// Cursor returns the current cursor position.
func (it *Interpreter) Cursor() Cursor { return it.cursor }

// Pen returns the style applied to newly written cells.
func (it *Interpreter) Pen() Style { return it.pen }

// Palette returns the active palette.
func (it *Interpreter) Palette() Palette { return it.palette }

// SetPalette swaps the palette. Cells already written keep their colours;
// a pen still on the old defaults moves to the new ones.
func (it *Interpreter) SetPalette(p Palette) {
	wasDefault := it.pen == it.defaultPen()
	it.palette = p
	if wasDefault {
		it.pen = it.defaultPen()
	}
}

// Len returns the number of logical lines in the grid.
func (it *Interpreter) Len() int { return len(it.grid) }

// Rows returns a deep copy of the grid.
func (it *Interpreter) Rows() []Line {
	rows := make([]Line, len(it.grid))
	for i, line := range it.grid {
		rows[i] = append(Line(nil), line...)
	}
	return rows
}

// VisitRows calls fn for every line starting at index from, until fn returns
// false. The line passed to fn is borrowed: it must not be retained or
// modified after fn returns.
func (it *Interpreter) VisitRows(from int, fn func(index int, line Line) bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(it.grid); i++ {
		if !fn(i, it.grid[i]) {
			return
		}
	}
}

// Consume feeds decoded text into the interpreter.
func (it *Interpreter) Consume(text string) {
	switch it.variant {
	case VariantNull:
		return
	case VariantDumb, VariantLinux:
	}

	linesAdded := false
	for _, c := range text {
		if it.consumeRune(c) {
			linesAdded = true
		}
	}
	if linesAdded {
		it.recompute()
	}
	if it.onNewText != nil {
		it.onNewText()
	}
}

// Reflow sets the viewport width and recomputes the row count. A
// non-positive width keeps the current one.
func (it *Interpreter) Reflow(columns int) {
	if columns > 0 {
		it.columns = columns
	}
	it.recompute()
}

func (it *Interpreter) recompute() {
	rows := VisualRows(it.grid, it.columns)
	if rows == it.rowCount {
		return
	}
	it.rowCount = rows
	if it.onRowCountChanged != nil {
		it.onRowCountChanged(rows)
	}
}

// consumeRune applies one code point and reports whether the grid shape
// may have changed.
func (it *Interpreter) consumeRune(c rune) bool {
	if it.variant == VariantLinux {
		if len(it.escape) > 0 {
			it.escape = append(it.escape, c)
			if isASCIILetter(c) {
				changed := it.execEscape(it.escape)
				it.escape = it.escape[:0]
				return changed
			}
			if len(it.escape) > maxEscapeLen {
				it.escape = it.escape[:0]
			}
			return false
		}
		if c == esc {
			it.escape = append(it.escape, c)
			return false
		}
	}

	switch c {
	case '\n':
		it.grid = append(it.grid, Line{})
		it.cursor.Line++
		it.cursor.Char = 0
		return true
	case '\r':
		it.cursor.Char = 0
	case '\b':
		if it.cursor.Char > 0 {
			it.cursor.Char--
			if it.columns > 0 && it.cursor.Char%it.columns == 0 {
				return true
			}
		}
	case '\t':
		it.cursor.Char = (it.cursor.Char/tabWidth + 1) * tabWidth
	default:
		if c < 0x20 || c == 0x7F {
			return false
		}
		it.put(c)
	}
	return false
}

// put writes a printable rune at the cursor and advances it.
func (it *Interpreter) put(c rune) {
	line := it.grid[it.cursor.Line]
	cell := Cell{Rune: c, Style: it.pen}

	switch {
	case it.cursor.Char == len(line):
		line = append(line, cell)
	case it.cursor.Char < len(line):
		line[it.cursor.Char] = cell
	default:
		blank := blankCell(&it.palette)
		for len(line) < it.cursor.Char {
			line = append(line, blank)
		}
		line = append(line, cell)
	}

	it.grid[it.cursor.Line] = line
	it.cursor.Char++
}

func (it *Interpreter) defaultPen() Style {
	return Style{
		Foreground: it.palette.Foreground,
		Background: it.palette.Background,
	}
}

func isASCIILetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
