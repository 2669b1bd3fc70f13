package terminal

import (
	"fmt"
	"strings"
)

// Palette maps the 16 ANSI colour indices (plus defaults) to RGB values.
type Palette struct {
	Name       string
	Foreground Color
	Background Color
	ANSI       [16]Color
}

// XTermPalette is the default xterm colour set.
var XTermPalette = Palette{
	Name:       "xterm",
	Foreground: Color{229, 229, 229},
	Background: Color{0, 0, 0},
	ANSI: [16]Color{
		{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
		{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
		{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
		{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
	},
}

// VGAPalette is the classic DOS/BBS text-mode colour set.
var VGAPalette = Palette{
	Name:       "vga",
	Foreground: Color{170, 170, 170},
	Background: Color{0, 0, 0},
	ANSI: [16]Color{
		{0, 0, 0}, {170, 0, 0}, {0, 170, 0}, {170, 85, 0},
		{0, 0, 170}, {170, 0, 170}, {0, 170, 170}, {170, 170, 170},
		{85, 85, 85}, {255, 85, 85}, {85, 255, 85}, {255, 255, 85},
		{85, 85, 255}, {255, 85, 255}, {85, 255, 255}, {255, 255, 255},
	},
}

// PaletteByName looks up one of the built-in palettes.
func PaletteByName(name string) (Palette, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "xterm":
		return XTermPalette, nil
	case "vga", "dos", "cp437":
		return VGAPalette, nil
	}
	return Palette{}, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
}

// Indexed resolves a 256-colour index. 0-15 come from the palette, 16-231 are
// the 6x6x6 cube and 232-255 the grey ramp.
func (p *Palette) Indexed(index int) Color {
	switch {
	case index < 0 || index > 255:
		return p.Foreground
	case index < 16:
		return p.ANSI[index]
	case index < 232:
		index -= 16
		level := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + v*40)
		}
		return Color{level(index / 36), level((index / 6) % 6), level(index % 6)}
	default:
		gray := uint8((index-232)*10 + 8)
		return Color{gray, gray, gray}
	}
}
