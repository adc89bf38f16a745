// Package lspcoord is the sole adapter between the core's byte-offset
// coordinate system and LSP's {line, character} protocol coordinates,
// counted in UTF-16 code units (spec §6). No other package in this
// module speaks protocol coordinates.
package lspcoord

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/aledsdavies/perl-lsp-core/span"
)

// Position is an LSP {line, character} pair: 0-based line, 0-based
// UTF-16 code-unit column.
type Position struct {
	Line      int
	Character int
}

// Range is an LSP {start, end} position pair.
type Range struct {
	Start Position
	End   Position
}

// Converter builds and caches the UTF-16 code-unit layout of one
// source buffer's lines, so repeated ToPosition/ToOffset calls for the
// same document version don't rescan the source each time.
type Converter struct {
	lines *span.LineIndex
	src   []byte
}

// NewConverter builds a Converter over src. Callers rebuild one per
// document version (spec §6: "a line index built from the source").
func NewConverter(src []byte) *Converter {
	return &Converter{lines: span.NewLineIndex(src), src: src}
}

// ToPosition converts a byte offset to a UTF-16-counted LSP position.
func (c *Converter) ToPosition(offset uint32) Position {
	line, _ := c.lines.LineCol(offset)
	lineSpan := c.lines.LineSpan(line)
	startByte := lineSpan.Start
	if offset < startByte {
		offset = startByte
	}
	end := offset
	if end > uint32(len(c.src)) {
		end = uint32(len(c.src))
	}
	units := utf16.Encode([]rune(string(c.src[startByte:end])))
	return Position{Line: line - 1, Character: len(units)}
}

// ToOffset converts an LSP position back to a byte offset, walking the
// target line's UTF-16 code units until character is reached (or the
// line ends).
func (c *Converter) ToOffset(pos Position) uint32 {
	line := pos.Line + 1
	lineSpan := c.lines.LineSpan(line)
	text := c.src[lineSpan.Start:lineSpan.End]

	units := 0
	for i := 0; i < len(text); {
		if units >= pos.Character {
			return lineSpan.Start + uint32(i)
		}
		r, size := utf8.DecodeRune(text[i:])
		if r > 0xFFFF {
			units += 2 // encoded as a UTF-16 surrogate pair
		} else {
			units++
		}
		i += size
	}
	return lineSpan.End
}

// ToRange converts a byte span to an LSP range.
func (c *Converter) ToRange(sp span.Span) Range {
	return Range{Start: c.ToPosition(sp.Start), End: c.ToPosition(sp.End)}
}
