package terminal

// VisualRows returns the number of screen rows the grid occupies when lines
// wrap at the given width: one row per logical line plus one for every time
// a line's running cell count would exceed the width. A non-positive width
// disables wrapping.
func VisualRows(grid Grid, columns int) int {
	rows := len(grid)
	if columns <= 0 {
		return rows
	}
	for _, line := range grid {
		count := 0
		for range line {
			if count == columns {
				rows++
				count = 0
			}
			count++
		}
	}
	return rows
}

// WrappedRows returns how many screen rows a single line occupies.
func WrappedRows(line Line, columns int) int {
	if columns <= 0 || len(line) == 0 {
		return 1
	}
	return (len(line) + columns - 1) / columns
}
