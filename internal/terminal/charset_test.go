package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderHoldsSplitUTF8(t *testing.T) {
	d := CharsetUTF8.NewDecoder()
	snowman := []byte("☃") // e2 98 83

	assert.Equal(t, "a", d.Decode(append([]byte("a"), snowman[:2]...)))
	assert.Equal(t, "☃b", d.Decode(append(snowman[2:], 'b')))
	assert.Empty(t, d.Flush())
}

func TestDecoderInvalidBytesBecomeReplacement(t *testing.T) {
	d := CharsetUTF8.NewDecoder()

	got := d.Decode([]byte{'a', 0xff, 'b'})

	assert.Equal(t, "a�b", got)
}

func TestDecoderFlushTruncatedSequence(t *testing.T) {
	d := CharsetUTF8.NewDecoder()
	assert.Equal(t, "x", d.Decode([]byte{'x', 0xe2, 0x98}))

	flushed := d.Flush()
	assert.NotEmpty(t, flushed)
	assert.NotContains(t, flushed, "x")
	assert.Contains(t, flushed, "�")
	assert.Equal(t, "ok", d.Decode([]byte("ok")))
}

func TestDecoderSingleByteCharsets(t *testing.T) {
	tests := []struct {
		charset Charset
		in      []byte
		want    string
	}{
		{CharsetCP437, []byte{0xc9, 0xcd, 0xbb}, "╔═╗"},
		{CharsetCP437, []byte{0xdb, 0xb0}, "█░"},
		{CharsetISO88591, []byte{0xe9, 0xfc}, "éü"},
		{CharsetKOI8R, []byte{0xd0, 0xd2, 0xc9}, "при"},
	}
	for _, tt := range tests {
		t.Run(tt.charset.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.charset.NewDecoder().Decode(tt.in))
		})
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, []byte("ls -l\r"), CharsetUTF8.Encode("ls -l\r"))
	assert.Equal(t, []byte{0xc9, 0xcd}, CharsetCP437.Encode("╔═"))
	assert.Equal(t, []byte{0xe9}, CharsetISO88591.Encode("é"))

	// Unrepresentable runes are replaced rather than dropped.
	out := CharsetISO88591.Encode("a☃b")
	require.Len(t, out, 3)
	assert.Equal(t, byte('a'), out[0])
	assert.Equal(t, byte('b'), out[2])
}

func TestParseCharset(t *testing.T) {
	for _, name := range []string{"utf-8", "cp437", "iso-8859-1", "koi8-r"} {
		c, err := ParseCharset(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}

	c, err := ParseCharset("Latin1")
	require.NoError(t, err)
	assert.Equal(t, CharsetISO88591, c)

	_, err = ParseCharset("ebcdic")
	assert.ErrorIs(t, err, ErrUnknownCharset)
}
