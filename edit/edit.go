// Package edit holds the byte-range edit primitives consumed by
// document.ApplyEdit/ApplyEdits (spec §4.3). It knows nothing about the
// AST; it only shuffles bytes safely.
package edit

import (
	"log/slog"
	"sort"
	"unicode/utf8"
)

// Edit is a single replacement: bytes in [StartByte, OldEndByte) of the
// prior source are replaced by NewText.
type Edit struct {
	StartByte  uint32
	OldEndByte uint32
	NewText    string
}

// Delta is the byte-shift this edit imposes on everything after it:
// len(NewText) - (OldEndByte - StartByte). Positive for insertions/
// growth, negative for shrinking replacements.
func (e Edit) Delta() int64 {
	return int64(len(e.NewText)) - int64(e.OldEndByte-e.StartByte)
}

// Set is an ordered batch of edits as received from a single LSP change
// notification.
type Set []Edit

// Apply splices a single edit into src, following spec §4.3:
//  1. clamp start/end into [0, len(src)]
//  2. reject (return src unchanged) if either endpoint isn't a UTF-8
//     boundary
//  3. splice
//
// The boundary-reject case is logged at Warn via logger (nil-safe,
// defaults to slog.Default()) rather than returned as a Go error — this
// mirrors spec §7's EditBoundaryError, which the document layer treats
// as a logged warning with the source left unchanged, not a propagated
// failure.
func Apply(src []byte, e Edit, logger *slog.Logger) []byte {
	if logger == nil {
		logger = slog.Default()
	}
	start, end := clamp(e.StartByte, len(src)), clamp(e.OldEndByte, len(src))
	if start > end {
		start, end = end, start
	}
	if !onBoundary(src, int(start)) || !onBoundary(src, int(end)) {
		logger.Warn("edit: boundary violation, source left unchanged",
			"start", start, "end", end, "len", len(src))
		return src
	}
	out := make([]byte, 0, len(src)-int(end-start)+len(e.NewText))
	out = append(out, src[:start]...)
	out = append(out, e.NewText...)
	out = append(out, src[end:]...)
	return out
}

// ApplyBatch applies every edit in s to src in descending start-offset
// order (spec §4.3's multi-edit rule), so earlier edits' offsets never
// need adjusting for later ones. The returned affected range is the
// union of every individual edit's [StartByte, OldEndByte) range in the
// ORIGINAL source, which document.ApplyEdits uses to decide fast-path
// eligibility and cache invalidation.
func ApplyBatch(src []byte, s Set, logger *slog.Logger) (out []byte, affectedStart, affectedEnd uint32) {
	if len(s) == 0 {
		return src, 0, 0
	}
	sorted := make(Set, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartByte > sorted[j].StartByte })

	affectedStart = sorted[0].StartByte
	affectedEnd = sorted[0].OldEndByte
	for _, e := range sorted[1:] {
		if e.StartByte < affectedStart {
			affectedStart = e.StartByte
		}
		if e.OldEndByte > affectedEnd {
			affectedEnd = e.OldEndByte
		}
	}

	out = src
	for _, e := range sorted {
		out = Apply(out, e, logger)
	}
	return out, affectedStart, affectedEnd
}

func clamp(v uint32, max int) uint32 {
	if int(v) > max {
		return uint32(max)
	}
	return v
}

func onBoundary(src []byte, at int) bool {
	if at == 0 || at == len(src) {
		return true
	}
	return utf8.RuneStart(src[at])
}
