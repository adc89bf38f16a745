package cache_test

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/cache"
	"github.com/aledsdavies/perl-lsp-core/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(start, end uint32) *ast.Number {
	return &ast.Number{Base: ast.NewBase(ast.KindNumber, span.Span{Start: start, End: end}), Text: "1"}
}

func sub(start, end uint32, name string) *ast.Subroutine {
	return &ast.Subroutine{Base: ast.NewBase(ast.KindSubroutine, span.Span{Start: start, End: end}), Name: name}
}

func TestGetByRangeRoundTrip(t *testing.T) {
	c := cache.New(10)
	n := num(0, 2)
	c.Put(n, 0)
	got, ok := c.GetByRange(n.Span(), ast.KindNumber)
	require.True(t, ok)
	assert.Same(t, ast.Node(n), got)
}

func TestGetByContentRoundTrip(t *testing.T) {
	c := cache.New(10)
	n := num(0, 2)
	c.Put(n, 42)
	got, ok := c.GetByContent(42)
	require.True(t, ok)
	assert.Same(t, ast.Node(n), got)
}

func TestClearEmptiesBothMaps(t *testing.T) {
	c := cache.New(10)
	c.Put(num(0, 2), 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.GetByContent(1)
	assert.False(t, ok)
}

func TestEvictionRespectsMaxSize(t *testing.T) {
	c := cache.New(2)
	c.Put(num(0, 1), 1)
	c.Put(num(2, 3), 2)
	c.Put(num(4, 5), 3)
	assert.LessOrEqual(t, c.Len(), 2)
}

func TestCriticalSurvivesAggressiveEviction(t *testing.T) {
	c := cache.New(1)
	crit := sub(0, 10, "hello")
	c.Put(crit, 100)
	// Insert several Low-priority entries; the lone Critical must remain.
	for i := uint32(0); i < 5; i++ {
		c.Put(num(10+i, 11+i), uint64(200+i))
	}
	_, ok := c.GetByContent(100)
	assert.True(t, ok, "the sole Critical entry must survive aggressive eviction")
}

func TestLowPriorityEvictedBeforeCritical(t *testing.T) {
	c := cache.New(1)
	critical := sub(0, 5, "keep")
	c.Put(critical, 1)
	low := num(6, 8)
	c.Put(low, 2)
	_, stillCritical := c.GetByContent(1)
	_, stillLow := c.GetByContent(2)
	assert.True(t, stillCritical)
	assert.False(t, stillLow)
}
