// Package terminal turns the decoded text stream of a remote shell into a
// grid of styled cells.
//
// An Interpreter is created for one of three variants and owns its Grid and
// Cursor. It is not safe for concurrent use: the owner (usually the display
// event loop) is the only caller of Consume, Reflow and the read accessors.
package terminal

import (
	"fmt"
	"strings"
)

// Variant selects the text-consumption algorithm and the TERM name reported
// to the remote side.
type Variant int

const (
	VariantNull  Variant = iota // Discards everything
	VariantDumb                 // Plain text, control characters only
	VariantLinux                // Plain text plus Linux console escape sequences
)

// String returns the configuration name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantNull:
		return "null"
	case VariantDumb:
		return "dumb"
	case VariantLinux:
		return "linux"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ReportedName returns the TERM value announced in the pty request.
func (v Variant) ReportedName() string {
	switch v {
	case VariantLinux:
		return "linux"
	default:
		return "dumb"
	}
}

// ParseVariant maps a configuration name to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "null", "none":
		return VariantNull, nil
	case "dumb":
		return VariantDumb, nil
	case "", "linux":
		return VariantLinux, nil
	}
	return VariantNull, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}
