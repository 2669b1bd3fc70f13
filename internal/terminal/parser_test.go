package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGRColors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantFG Color
		wantBG Color
	}{
		{"basic fg", "\x1b[31mX", XTermPalette.ANSI[1], XTermPalette.Background},
		{"basic bg", "\x1b[44mX", XTermPalette.Foreground, XTermPalette.ANSI[4]},
		{"bright fg", "\x1b[92mX", XTermPalette.ANSI[10], XTermPalette.Background},
		{"bright bg", "\x1b[103mX", XTermPalette.Foreground, XTermPalette.ANSI[11]},
		{"256 cube", "\x1b[38;5;196mX", Color{255, 0, 0}, XTermPalette.Background},
		{"256 grey", "\x1b[48;5;232mX", XTermPalette.Foreground, Color{8, 8, 8}},
		{"truecolor", "\x1b[38;2;1;2;3;48;2;4;5;6mX", Color{1, 2, 3}, Color{4, 5, 6}},
		{"default fg", "\x1b[31;39mX", XTermPalette.Foreground, XTermPalette.Background},
		{"reset", "\x1b[31;44m\x1b[0mX", XTermPalette.Foreground, XTermPalette.Background},
		{"empty reset", "\x1b[31m\x1b[mX", XTermPalette.Foreground, XTermPalette.Background},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := New(VariantLinux)
			it.Consume(tt.input)

			line := it.Rows()[0]
			require.Len(t, line, 1)
			assert.Equal(t, 'X', line[0].Rune)
			assert.Equal(t, tt.wantFG, line[0].Foreground)
			assert.Equal(t, tt.wantBG, line[0].Background)
		})
	}
}

func TestSGRAttributes(t *testing.T) {
	it := New(VariantLinux)
	it.Consume("\x1b[1;3;4ma\x1b[22mb\x1b[23;24mc")

	line := it.Rows()[0]
	require.Len(t, line, 3)
	assert.True(t, line[0].Bold && line[0].Italic && line[0].Underline)
	assert.False(t, line[1].Bold)
	assert.True(t, line[1].Italic)
	assert.False(t, line[2].Italic || line[2].Underline)
}

func TestCursorMovement(t *testing.T) {
	it := New(VariantLinux)
	it.Consume("abcdef")

	it.Consume("\x1b[4D")
	assert.Equal(t, 2, it.Cursor().Char)

	it.Consume("\x1b[99D")
	assert.Equal(t, 0, it.Cursor().Char)

	it.Consume("\x1b[5G")
	assert.Equal(t, 4, it.Cursor().Char)

	it.Consume("\x1b[C")
	assert.Equal(t, 5, it.Cursor().Char)
}

func TestCursorMovementStaysInViewport(t *testing.T) {
	it := New(VariantLinux, WithColumns(80))
	it.Consume("\x1b[20000000Cx")
	require.Len(t, it.Rows()[0], 80)
	assert.Equal(t, 80, it.Cursor().Char)

	it.Consume("\r\x1b[999999999Gy")
	assert.Len(t, it.Rows()[0], 80)
	assert.Equal(t, 'y', it.Rows()[0][79].Rune)

	// On a wrapped line, movement is relative to the visual row.
	it = New(VariantLinux, WithColumns(5))
	it.Consume("abcdefg")
	it.Consume("\x1b[99C")
	assert.Equal(t, 9, it.Cursor().Char)
	it.Consume("\x1b[1G")
	assert.Equal(t, 5, it.Cursor().Char)
	it.Consume("\x1b[3G")
	assert.Equal(t, 7, it.Cursor().Char)
}

func TestEraseInLine(t *testing.T) {
	t.Run("to end", func(t *testing.T) {
		it := New(VariantLinux)
		it.Consume("hello\x1b[3D\x1b[K")
		assert.Equal(t, "he", it.Rows()[0].String())
	})

	t.Run("to start", func(t *testing.T) {
		it := New(VariantLinux)
		it.Consume("hello\x1b[3D\x1b[1K")
		assert.Equal(t, "   lo", it.Rows()[0].String())
	})

	t.Run("whole line", func(t *testing.T) {
		it := New(VariantLinux)
		it.Consume("hello\x1b[2K")
		assert.Empty(t, it.Rows()[0])
		assert.Equal(t, 5, it.Cursor().Char)

		it.Consume("!")
		assert.Equal(t, "     !", it.Rows()[0].String())
	})
}

func TestEscapeSplitAcrossConsumeCalls(t *testing.T) {
	it := New(VariantLinux)
	it.Consume("\x1b[3")
	it.Consume("2mG")

	line := it.Rows()[0]
	require.Len(t, line, 1)
	assert.Equal(t, XTermPalette.ANSI[2], line[0].Foreground)
}

func TestUnknownAndPrivateSequencesAreDropped(t *testing.T) {
	it := New(VariantLinux)
	it.Consume("\x1b[?25la\x1b[2Jb\x1b(Bc")

	assert.Equal(t, "abc", it.Rows()[0].String())
}

func TestOverlongEscapeIsDiscarded(t *testing.T) {
	it := New(VariantLinux)
	it.Consume("\x1b[" + strings.Repeat("1;", 40) + "x")

	// Once the accumulator overflows, the rest prints as text.
	line := it.Rows()[0].String()
	assert.NotContains(t, line, "\x1b")
	assert.True(t, strings.HasSuffix(line, "x"))
}

func TestPaletteIndexed(t *testing.T) {
	p := XTermPalette
	assert.Equal(t, p.ANSI[9], p.Indexed(9))
	assert.Equal(t, Color{0, 0, 0}, p.Indexed(16))
	assert.Equal(t, Color{95, 135, 175}, p.Indexed(16+36*1+6*2+3))
	assert.Equal(t, Color{238, 238, 238}, p.Indexed(255))
	assert.Equal(t, p.Foreground, p.Indexed(300))
}

func TestPaletteByName(t *testing.T) {
	p, err := PaletteByName("VGA")
	require.NoError(t, err)
	assert.Equal(t, VGAPalette.Name, p.Name)

	_, err = PaletteByName("solarized")
	assert.ErrorIs(t, err, ErrUnknownPalette)
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "#ff0080", Color{255, 0, 128}.Hex())
}
