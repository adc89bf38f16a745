// Package span holds the byte-offset primitives shared by every layer of
// the parser core. Internal logic is byte-based throughout; the only
// place protocol ({line, character}) coordinates are spoken is lspcoord.
package span

import "fmt"

// Span is a half-open byte range [Start, End) into a source buffer.
type Span struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether offset falls within [Start, End).
func (s Span) Contains(offset uint32) bool {
	return offset >= s.Start && offset < s.End
}

// Overlaps reports whether s and o share any byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Covers reports whether s fully contains o (invariant 1/2 of spec §3).
func (s Span) Covers(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// Shift translates a span by delta bytes (used after an edit, spec §3
// invariant 3). delta may be negative.
func (s Span) Shift(delta int64) Span {
	return Span{
		Start: uint32(int64(s.Start) + delta),
		End:   uint32(int64(s.End) + delta),
	}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// LineIndex maps byte offsets to 1-based (line, column) pairs using byte
// counting (not UTF-16 code units — see lspcoord for the protocol-facing
// adapter). Built lazily and cached per document version by callers that
// need human-readable diagnostics.
type LineIndex struct {
	// lineStarts[i] is the byte offset of the first byte of line i+1.
	lineStarts []uint32
	length     uint32
}

// NewLineIndex scans src once to build the line-start table.
func NewLineIndex(src []byte) *LineIndex {
	starts := make([]uint32, 1, 64)
	starts[0] = 0
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, uint32(i+1))
		}
	}
	return &LineIndex{lineStarts: starts, length: uint32(len(src))}
}

// LineCol returns the 1-based line and 1-based byte column for offset.
func (li *LineIndex) LineCol(offset uint32) (line, col int) {
	if offset > li.length {
		offset = li.length
	}
	// Binary search for the last line start <= offset.
	lo, hi := 0, len(li.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, int(offset-li.lineStarts[lo]) + 1
}

// LineCount returns the number of lines represented.
func (li *LineIndex) LineCount() int {
	return len(li.lineStarts)
}

// LineSpan returns the byte span of the given 1-based line, excluding the
// trailing newline.
func (li *LineIndex) LineSpan(line int) Span {
	if line < 1 || line > len(li.lineStarts) {
		return Span{}
	}
	start := li.lineStarts[line-1]
	end := li.length
	if line < len(li.lineStarts) {
		end = li.lineStarts[line] - 1 // exclude '\n'
		if end < start {
			end = start
		}
	}
	return Span{Start: start, End: end}
}
