package terminal

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset is the byte encoding of the remote stream.
type Charset int

const (
	CharsetUTF8     Charset = iota // UTF-8 Unicode
	CharsetCP437                   // IBM Code Page 437 (DOS)
	CharsetISO88591                // ISO 8859-1 (Latin-1)
	CharsetKOI8R                   // KOI8-R (Russian)
)

// ParseCharset maps a configuration name to a Charset.
func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return CharsetUTF8, nil
	case "cp437", "ibm437", "dos":
		return CharsetCP437, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return CharsetISO88591, nil
	case "koi8-r", "koi8r":
		return CharsetKOI8R, nil
	}
	return CharsetUTF8, fmt.Errorf("%w: %q", ErrUnknownCharset, name)
}

// String returns the canonical name of the charset.
func (c Charset) String() string {
	switch c {
	case CharsetUTF8:
		return "utf-8"
	case CharsetCP437:
		return "cp437"
	case CharsetISO88591:
		return "iso-8859-1"
	case CharsetKOI8R:
		return "koi8-r"
	}
	return fmt.Sprintf("Charset(%d)", int(c))
}

func (c Charset) encoding() encoding.Encoding {
	switch c {
	case CharsetCP437:
		return charmap.CodePage437
	case CharsetISO88591:
		return charmap.ISO8859_1
	case CharsetKOI8R:
		return charmap.KOI8R
	default:
		return unicode.UTF8
	}
}

// NewDecoder returns a stateful decoder for this charset.
func (c Charset) NewDecoder() *Decoder {
	return &Decoder{t: c.encoding().NewDecoder()}
}

// Encode converts outgoing text to the charset. Runes the charset cannot
// represent are replaced.
func (c Charset) Encode(text string) []byte {
	if c == CharsetUTF8 {
		return []byte(text)
	}
	enc := encoding.ReplaceUnsupported(c.encoding().NewEncoder())
	out, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}

// Decoder turns raw chunks into text. A multi-byte sequence split across
// chunks is held back until the rest arrives; invalid bytes become U+FFFD.
type Decoder struct {
	t       transform.Transformer
	pending []byte
}

// Decode converts the next chunk.
func (d *Decoder) Decode(p []byte) string {
	if len(p) == 0 && len(d.pending) == 0 {
		return ""
	}
	d.pending = append(d.pending, p...)
	return d.run(false)
}

// Flush decodes whatever is still held back, treating it as complete.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	return d.run(true)
}

func (d *Decoder) run(atEOF bool) string {
	src := d.pending
	// Every source byte expands to at most three bytes of UTF-8.
	dst := make([]byte, len(src)*3+4)
	nDst, nSrc, _ := d.t.Transform(dst, src, atEOF)
	d.pending = append(d.pending[:0], src[nSrc:]...)
	if atEOF {
		d.pending = d.pending[:0]
		d.t.Reset()
	}
	return string(dst[:nDst])
}
