// Package cache implements the subtree cache described in spec §4.4: a
// by-range map and a by-content map over priority-tagged entries, with
// LRU eviction that preserves at least one entry of each Critical kind.
package cache

import (
	"container/list"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// Priority mirrors spec §4.4's four-tier node-kind classification.
type Priority int

const (
	Low Priority = iota
	Medium
	High
	Critical
)

// PriorityOf classifies a node kind per spec §4.4's table.
func PriorityOf(k ast.Kind) Priority {
	switch k {
	case ast.KindPackage, ast.KindUse, ast.KindNo, ast.KindSubroutine:
		return Critical
	case ast.KindVariable, ast.KindVariableDeclaration, ast.KindFunctionCall:
		return High
	case ast.KindBlock, ast.KindIf, ast.KindWhile, ast.KindFor, ast.KindAssignment:
		return Medium
	case ast.KindNumber, ast.KindString, ast.KindBinary, ast.KindUnary:
		return Low
	default:
		return Medium
	}
}

// rangeKey is the by-range map key: exact (start,end) plus the node's
// kind, so a position whose node kind changed across an edit never
// collides with a stale entry of a different shape.
type rangeKey struct {
	span span.Span
	kind ast.Kind
}

// entry is the payload shared by both maps and the LRU list; el points
// at this entry's container/list.Element for O(1) touch/removal.
type entry struct {
	node     ast.Node
	priority Priority
	rk       rangeKey
	ch       uint64 // content hash, 0 if not indexed by content
	el       *list.Element
}

// Cache holds the by-range and by-content maps plus the priority-LRU
// eviction queue described in spec §4.4. Not safe for concurrent use —
// document.Document owns one Cache exclusively per spec §5 ("subtree
// cache: single-owner per document; not shared across documents").
type Cache struct {
	maxSize int
	byRange map[rangeKey]*entry
	byContent map[uint64]*entry
	lru     *list.List // front = most recently inserted/touched
}

// New constructs an empty Cache bounded at maxSize by-content entries
// (spec §8 testable property 7: |by_content| <= max_size at all times).
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		maxSize:   maxSize,
		byRange:   make(map[rangeKey]*entry),
		byContent: make(map[uint64]*entry),
		lru:       list.New(),
	}
}

// Put inserts node (identified by its span+kind) with an optional
// content hash contentHash (0 means "not content-indexed"). Insertion
// past maxSize triggers eviction of the lowest-priority, then
// least-recently-inserted entry, unless doing so would remove the last
// remaining entry of some Critical kind still present in the cache.
func (c *Cache) Put(node ast.Node, contentHash uint64) {
	rk := rangeKey{span: node.Span(), kind: node.Kind()}
	if old, ok := c.byRange[rk]; ok {
		c.remove(old)
	}
	e := &entry{node: node, priority: PriorityOf(node.Kind()), rk: rk, ch: contentHash}
	e.el = c.lru.PushFront(e)
	c.byRange[rk] = e
	if contentHash != 0 {
		if old, ok := c.byContent[contentHash]; ok && old != e {
			c.remove(old)
		}
		c.byContent[contentHash] = e
	}
	c.evictIfNeeded()
}

// GetByRange looks up a cached subtree at an exact (start,end,kind).
func (c *Cache) GetByRange(sp span.Span, k ast.Kind) (ast.Node, bool) {
	e, ok := c.byRange[rangeKey{span: sp, kind: k}]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// GetByContent looks up a cached subtree by position-independent content
// hash, for the reuse analyzer's PositionShift/ContentUpdate passes.
func (c *Cache) GetByContent(hash uint64) (ast.Node, bool) {
	e, ok := c.byContent[hash]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// Len returns the number of by-content entries currently cached.
func (c *Cache) Len() int { return len(c.byContent) }

// Clear empties both maps and the LRU queue (spec §4.4 clear()
// invariant).
func (c *Cache) Clear() {
	c.byRange = make(map[rangeKey]*entry)
	c.byContent = make(map[uint64]*entry)
	c.lru = list.New()
}

func (c *Cache) remove(e *entry) {
	if e.el != nil {
		c.lru.Remove(e.el)
	}
	delete(c.byRange, e.rk)
	if e.ch != 0 {
		delete(c.byContent, e.ch)
	}
}

// evictIfNeeded enforces maxSize on the by-content population, since
// that's the map spec §8 invariant 7 bounds. by-range entries (which
// include every node visited during a walk, not just content-indexed
// leaves/critical nodes) are left alone; only content-indexed entries
// count against the budget and are eligible for eviction.
func (c *Cache) evictIfNeeded() {
	for len(c.byContent) > c.maxSize {
		victim := c.lowestPriorityContentEntry()
		if victim == nil {
			return
		}
		c.remove(victim)
	}
}

// lowestPriorityContentEntry finds the lowest priority among eligible
// content entries, then scans from the back of the LRU (least recently
// inserted) toward the front and picks the first eligible entry at that
// priority. It never picks the sole surviving entry of a Critical kind
// (spec §4.4 "always preserve at least one entry of each Critical kind
// if available").
func (c *Cache) lowestPriorityContentEntry() *entry {
	criticalKindCounts := make(map[ast.Kind]int)
	for _, e := range c.byContent {
		if e.priority == Critical {
			criticalKindCounts[e.rk.kind]++
		}
	}
	eligible := func(e *entry) bool {
		return e.ch != 0 && !(e.priority == Critical && criticalKindCounts[e.rk.kind] <= 1)
	}

	minPriority := Critical + 1
	for _, e := range c.byContent {
		if eligible(e) && e.priority < minPriority {
			minPriority = e.priority
		}
	}
	if minPriority > Critical {
		return nil // nothing evictable
	}

	// Walk oldest-to-newest (Back = least recently inserted) so ties
	// within the minimum priority evict the oldest entry first.
	for el := c.lru.Back(); el != nil; el = el.Prev() {
		e, ok := el.Value.(*entry)
		if !ok {
			continue
		}
		if eligible(e) && e.priority == minPriority {
			return e
		}
	}
	return nil
}
