package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrUnknownVariant is returned when a terminal variant name is not recognised.
	ErrUnknownVariant = errors.New("unknown terminal variant")

	// ErrUnknownCharset is returned when a charset name is not recognised.
	ErrUnknownCharset = errors.New("unknown charset")

	// ErrUnknownPalette is returned when a palette name is not recognised.
	ErrUnknownPalette = errors.New("unknown palette")
)
