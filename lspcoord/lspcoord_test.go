package lspcoord_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aledsdavies/perl-lsp-core/lspcoord"
	"github.com/aledsdavies/perl-lsp-core/span"
)

func TestToPositionASCII(t *testing.T) {
	src := []byte("my $x = 1;\nprint $x;\n")
	c := lspcoord.NewConverter(src)

	pos := c.ToPosition(11) // start of line 2
	assert.Equal(t, lspcoord.Position{Line: 1, Character: 0}, pos)

	pos = c.ToPosition(17) // "print $" -> points at "$"
	assert.Equal(t, 1, pos.Line)
}

func TestToPositionSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) is 4 bytes in UTF-8 and 2 UTF-16 code
	// units; a byte offset after it must count as +2 characters, not +1.
	src := []byte("my $x = \"\U0001F600\";\n")
	c := lspcoord.NewConverter(src)

	afterEmoji := uint32(len("my $x = \"" + "\U0001F600"))
	pos := c.ToPosition(afterEmoji)
	assert.Equal(t, 0, pos.Line)
	assert.Equal(t, len("my $x = \"")+2, pos.Character)
}

func TestToOffsetRoundTrips(t *testing.T) {
	src := []byte("my $x = 1;\nprint $x;\n")
	c := lspcoord.NewConverter(src)

	offset := uint32(15)
	pos := c.ToPosition(offset)
	back := c.ToOffset(pos)
	assert.Equal(t, offset, back)
}

func TestToRangeCoversSpan(t *testing.T) {
	src := []byte("my $x = 1;\nprint $x;\n")
	c := lspcoord.NewConverter(src)

	r := c.ToRange(span.Span{Start: 11, End: 21})
	assert.Equal(t, 1, r.Start.Line)
	assert.Equal(t, 1, r.End.Line)
}
