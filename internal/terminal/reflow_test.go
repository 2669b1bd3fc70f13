package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisualRows(t *testing.T) {
	mk := func(n int) Line { return make(Line, n) }

	tests := []struct {
		name    string
		grid    Grid
		columns int
		want    int
	}{
		{"empty line", Grid{mk(0)}, 80, 1},
		{"exact width", Grid{mk(80)}, 80, 1},
		{"one over", Grid{mk(81)}, 80, 2},
		{"twelve at five", Grid{mk(12)}, 5, 3},
		{"eleven at five", Grid{mk(11)}, 5, 3},
		{"sixteen at five", Grid{mk(16)}, 5, 4},
		{"several lines", Grid{mk(3), mk(0), mk(10)}, 4, 5},
		{"no wrapping", Grid{mk(500)}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VisualRows(tt.grid, tt.columns))
		})
	}
}

func TestWrappedRows(t *testing.T) {
	assert.Equal(t, 1, WrappedRows(nil, 10))
	assert.Equal(t, 1, WrappedRows(make(Line, 10), 10))
	assert.Equal(t, 2, WrappedRows(make(Line, 11), 10))
}
