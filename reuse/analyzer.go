package reuse

import (
	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// Kind tags why a candidate was judged reusable (spec §4.5).
type Kind int

const (
	Direct Kind = iota
	PositionShift
	ContentUpdate
	StructuralEquivalent
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "Direct"
	case PositionShift:
		return "PositionShift"
	case ContentUpdate:
		return "ContentUpdate"
	case StructuralEquivalent:
		return "StructuralEquivalent"
	default:
		return "Unknown"
	}
}

// Match is one old-tree-position -> new-tree-position reuse candidate.
type Match struct {
	Old        ast.Node
	New        ast.Node
	Kind       Kind
	Confidence float64
}

// Strategy is the full set of matches the analyzer proposes for a
// single edit cycle, in discovery order (direct, then position-shift,
// then content-update, then structural-equivalent).
type Strategy struct {
	Matches []Match
}

// Config tunes the analyzer per spec §4.5 / §6 ("configuration struct
// fields with defaults").
type Config struct {
	MaxPositionShift              uint32
	StructuralSimilarityThreshold float64
	AggressiveStructural          bool
	AggressiveThreshold           float64
}

// DefaultConfig matches the thresholds implied by spec §4.5's examples.
func DefaultConfig() Config {
	return Config{
		MaxPositionShift:              64,
		StructuralSimilarityThreshold: 0.75,
		AggressiveStructural:          false,
		AggressiveThreshold:           0.5,
	}
}

// EditContext describes the single contiguous affected range and net
// byte shift of the edit cycle being analyzed (the union range and
// summed delta edit.ApplyBatch returns for a whole batch — spec §4.6
// step 4 treats a batch as one affected region for reuse purposes).
type EditContext struct {
	AffectedStart uint32
	AffectedEnd   uint32
	Delta         int64
}

type indexed struct {
	node       ast.Node
	depth      int
	structural uint64
	content    uint64
}

// Analyze walks oldRoot and newRoot and proposes a Strategy mapping old
// subtrees onto their counterparts in the new tree, following the
// four-pass order of spec §4.5 / SPEC_FULL.md §3 (direct, position-
// shifted, content-updated, then aggressive structural-equivalent):
// each pass only considers old nodes unclaimed by an earlier pass, and
// candidates are rejected by Validate before being added to the result.
func Analyze(oldRoot, newRoot ast.Node, ec EditContext, cfg Config) Strategy {
	oldNodes := index(oldRoot)
	newNodes := index(newRoot)

	newByRange := make(map[rangeKey]*indexed)
	newByStructural := make(map[uint64][]*indexed)
	for _, n := range newNodes {
		newByRange[rangeKey{n.node.Span(), n.node.Kind()}] = n
		newByStructural[n.structural] = append(newByStructural[n.structural], n)
	}

	claimed := make(map[*indexed]bool)
	var matches []Match

	editRange := span.Span{Start: ec.AffectedStart, End: ec.AffectedEnd}

	// Pass 1: Direct — unedited old nodes whose expected (possibly
	// shifted) position exists verbatim in the new tree with an
	// identical structural hash.
	for _, o := range oldNodes {
		if o.node.Span().Overlaps(editRange) {
			continue
		}
		expected := expectedSpan(o.node.Span(), ec)
		cand, ok := newByRange[rangeKey{expected, o.node.Kind()}]
		if !ok || claimed[cand] || cand.structural != o.structural {
			continue
		}
		m := Match{Old: o.node, New: cand.node, Kind: Direct, Confidence: confidence(o, cand, cand.structural == o.structural)}
		if Validate(m, newRoot, editRange) {
			matches = append(matches, m)
			claimed[cand] = true
		}
	}

	// Pass 2: PositionShift — same structural+content hash elsewhere in
	// the new tree, within MaxPositionShift bytes of the expected
	// position.
	for _, o := range oldNodes {
		if o.node.Span().Overlaps(editRange) || alreadyMatched(matches, o.node) {
			continue
		}
		expected := expectedSpan(o.node.Span(), ec)
		var best *indexed
		for _, cand := range newByStructural[o.structural] {
			if claimed[cand] || cand.content != o.content {
				continue
			}
			if absDelta(cand.node.Span().Start, expected.Start) > cfg.MaxPositionShift {
				continue
			}
			if best == nil || absDelta(cand.node.Span().Start, expected.Start) < absDelta(best.node.Span().Start, expected.Start) {
				best = cand
			}
		}
		if best == nil {
			continue
		}
		m := Match{Old: o.node, New: best.node, Kind: PositionShift, Confidence: confidence(o, best, true) * 0.9}
		if Validate(m, newRoot, editRange) {
			matches = append(matches, m)
			claimed[best] = true
		}
	}

	// Pass 3: ContentUpdate — old nodes overlapping the edit that are
	// themselves leaves (Number/String/Identifier/Variable): same shape,
	// different value. These aren't spliced verbatim (the value
	// changed) but are reported so callers can use them as a hint for a
	// cheap leaf rewrite instead of a full reparse.
	for _, o := range oldNodes {
		if !isLeafKind(o.node.Kind()) || !o.node.Span().Overlaps(editRange) {
			continue
		}
		var best *indexed
		for _, cand := range newByStructural[o.structural] {
			if claimed[cand] || cand.node.Kind() != o.node.Kind() {
				continue
			}
			if best == nil || absDelta(cand.node.Span().Start, o.node.Span().Start) < absDelta(best.node.Span().Start, o.node.Span().Start) {
				best = cand
			}
		}
		if best == nil {
			continue
		}
		m := Match{Old: o.node, New: best.node, Kind: ContentUpdate, Confidence: 0.8}
		if Validate(m, newRoot, editRange) {
			matches = append(matches, m)
			claimed[best] = true
		}
	}

	// Pass 4: StructuralEquivalent — only when aggressive matching is
	// enabled; same kind, high shape similarity, no exact hash match.
	if cfg.AggressiveStructural {
		for _, o := range oldNodes {
			if o.node.Span().Overlaps(editRange) || alreadyMatched(matches, o.node) {
				continue
			}
			var best *indexed
			var bestScore float64
			for _, cand := range newNodes {
				if claimed[cand] || cand.node.Kind() != o.node.Kind() {
					continue
				}
				score := similarity(o, cand)
				if score >= cfg.AggressiveThreshold && score > bestScore {
					best, bestScore = cand, score
				}
			}
			if best == nil {
				continue
			}
			m := Match{Old: o.node, New: best.node, Kind: StructuralEquivalent, Confidence: bestScore}
			if Validate(m, newRoot, editRange) {
				matches = append(matches, m)
				claimed[best] = true
			}
		}
	}

	return Strategy{Matches: matches}
}

func expectedSpan(old span.Span, ec EditContext) span.Span {
	if old.End <= ec.AffectedStart {
		return old
	}
	return old.Shift(ec.Delta)
}

func alreadyMatched(matches []Match, n ast.Node) bool {
	for _, m := range matches {
		if m.Old == n {
			return true
		}
	}
	return false
}

func absDelta(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

func isLeafKind(k ast.Kind) bool {
	switch k {
	case ast.KindNumber, ast.KindString, ast.KindIdentifier, ast.KindVariable:
		return true
	default:
		return false
	}
}

// confidence implements spec §4.5's scoring formula: 0.4 structural,
// 0.3 content, 0.2 child-count, 0.1 equal depth, 0.05 |depth diff|<=2,
// clamped to 1.0.
func confidence(o, n *indexed, contentMatch bool) float64 {
	var score float64
	if o.structural == n.structural {
		score += 0.4
	}
	if contentMatch && o.content == n.content {
		score += 0.3
	}
	if len(o.node.Children()) == len(n.node.Children()) {
		score += 0.2
	}
	if o.depth == n.depth {
		score += 0.1
	}
	dd := o.depth - n.depth
	if dd < 0 {
		dd = -dd
	}
	if dd <= 2 {
		score += 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// similarity is a coarse 0..1 shape-similarity score used only by the
// aggressive structural-equivalent pass: same kind is a prerequisite
// (checked by the caller), then child-count and depth closeness.
func similarity(o, n *indexed) float64 {
	score := 0.5 // same Kind already guaranteed by caller
	oc, nc := len(o.node.Children()), len(n.node.Children())
	if oc == nc {
		score += 0.3
	} else if absDelta(uint32(oc), uint32(nc)) <= 1 {
		score += 0.15
	}
	dd := o.depth - n.depth
	if dd < 0 {
		dd = -dd
	}
	if dd == 0 {
		score += 0.2
	} else if dd <= 2 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

type rangeKey struct {
	span span.Span
	kind ast.Kind
}

func index(root ast.Node) []*indexed {
	var out []*indexed
	var walk func(n ast.Node, depth int)
	walk = func(n ast.Node, depth int) {
		if n == nil {
			return
		}
		out = append(out, &indexed{node: n, depth: depth, structural: StructuralHash(n), content: ContentHash(n)})
		for _, c := range n.Children() {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return out
}
