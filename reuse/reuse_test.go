package reuse_test

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/reuse"
	"github.com/aledsdavies/perl-lsp-core/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuralHashIgnoresLeafValue(t *testing.T) {
	a := &ast.Number{Base: ast.NewBase(ast.KindNumber, span.Span{}), Text: "42"}
	b := &ast.Number{Base: ast.NewBase(ast.KindNumber, span.Span{}), Text: "43"}
	assert.Equal(t, reuse.StructuralHash(a), reuse.StructuralHash(b))
	assert.NotEqual(t, reuse.ContentHash(a), reuse.ContentHash(b))
}

func TestStructuralHashDistinguishesOperators(t *testing.T) {
	a := &ast.Binary{Base: ast.NewBase(ast.KindBinary, span.Span{}), Op: "+"}
	b := &ast.Binary{Base: ast.NewBase(ast.KindBinary, span.Span{}), Op: "-"}
	assert.NotEqual(t, reuse.StructuralHash(a), reuse.StructuralHash(b))
}

func TestAnalyzeDirectReuseOnUnrelatedEdit(t *testing.T) {
	oldSrc := []byte("my $x = 42;\nmy $y = 100;\nprint $x + $y;\n")
	oldTree, _ := parser.Parse(oldSrc)

	newSrc := []byte("my $x = 43;\nmy $y = 100;\nprint $x + $y;\n")
	newTree, _ := parser.Parse(newSrc)

	ec := reuse.EditContext{AffectedStart: 9, AffectedEnd: 10, Delta: 0}
	strat := reuse.Analyze(oldTree, newTree, ec, reuse.DefaultConfig())

	var directCount int
	for _, m := range strat.Matches {
		if m.Kind == reuse.Direct {
			directCount++
		}
	}
	assert.Greater(t, directCount, 0, "unrelated subtrees (the second declaration, the print) should reuse directly")
}

func TestAnalyzeShiftedReuseOnInsertion(t *testing.T) {
	oldSrc := []byte("my $x = 1; my $y = 2; my $z = 3;")
	oldTree, _ := parser.Parse(oldSrc)

	inserted := "my $w = 4; "
	newSrc := []byte(inserted + string(oldSrc))
	newTree, _ := parser.Parse(newSrc)

	ec := reuse.EditContext{AffectedStart: 0, AffectedEnd: 0, Delta: int64(len(inserted))}
	strat := reuse.Analyze(oldTree, newTree, ec, reuse.DefaultConfig())
	require.NotEmpty(t, strat.Matches)

	for _, m := range strat.Matches {
		assert.True(t, m.New.Span().Start >= uint32(len(inserted)) || m.Kind != reuse.Direct)
	}
}

func TestValidateRejectsEditOverlap(t *testing.T) {
	src := []byte("my $x = 42;")
	tree, _ := parser.Parse(src)
	n := tree.Statements[0]
	m := reuse.Match{Old: n, New: n, Kind: reuse.Direct}
	ok := reuse.Validate(m, tree, n.Span())
	assert.False(t, ok, "a candidate overlapping the edit range must never validate")
}
