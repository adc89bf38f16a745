package document_test

import (
	"strings"
	"testing"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/document"
	"github.com/aledsdavies/perl-lsp-core/edit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 1 (spec §8): single-token edit reuse.
func TestScenario1SingleTokenEditReuse(t *testing.T) {
	src := "my $x = 42;\nmy $y = 100;\nprint $x + $y;\n"
	doc := document.Open([]byte(src), document.DefaultConfig(), nil)

	offset := uint32(strings.Index(src, "42"))
	doc.ApplyEdit(edit.Edit{StartByte: offset, OldEndByte: offset + 1, NewText: "4"})

	m := doc.Metrics()
	assert.Greater(t, m.NodesReused, 0)
	assert.Less(t, m.NodesReparsed, 5)

	var found *ast.Number
	ast.Walk(doc.Tree(), func(n ast.Node) bool {
		if num, ok := n.(*ast.Number); ok && strings.HasPrefix(num.Text, "4") {
			found = num
		}
		return true
	})
	require.NotNil(t, found)
}

// Scenario 2 (spec §8): batch edit preserves critical cache.
func TestScenario2BatchEditPreservesCriticalCache(t *testing.T) {
	src := "sub calculate { my $a = 10; my $b = 20; return $a + $b; }"
	doc := document.Open([]byte(src), document.DefaultConfig(), nil)

	a := uint32(strings.Index(src, "10"))
	b := uint32(strings.Index(src, "20"))
	doc.ApplyEdits(edit.Set{
		{StartByte: a, OldEndByte: a + 2, NewText: "15"},
		{StartByte: b, OldEndByte: b + 2, NewText: "25"},
	})

	var foundSub bool
	ast.Walk(doc.Tree(), func(n ast.Node) bool {
		if _, ok := n.(*ast.Subroutine); ok {
			foundSub = true
		}
		return true
	})
	assert.True(t, foundSub)
}

func TestOpenParsesAndPopulatesCache(t *testing.T) {
	doc := document.Open([]byte("my $x = 1;"), document.DefaultConfig(), nil)
	assert.Equal(t, uint64(0), doc.Version())
	assert.NotNil(t, doc.Tree())
}

func TestApplyEditIncrementsVersion(t *testing.T) {
	doc := document.Open([]byte("my $x = 1;"), document.DefaultConfig(), nil)
	doc.ApplyEdit(edit.Edit{StartByte: 9, OldEndByte: 10, NewText: "2"})
	assert.Equal(t, uint64(1), doc.Version())
}

func TestCheckVersionRejectsStale(t *testing.T) {
	doc := document.Open([]byte("my $x = 1;"), document.DefaultConfig(), nil)
	doc.ApplyEdit(edit.Edit{StartByte: 9, OldEndByte: 10, NewText: "2"})
	err := doc.CheckVersion(0)
	assert.ErrorIs(t, err, document.ErrStaleVersion)
	assert.NoError(t, doc.CheckVersion(1))
}

// Scenario 6 (spec §8): reuse across insertion.
func TestScenario6ReuseAcrossInsertion(t *testing.T) {
	src := "my $x = 1; my $y = 2; my $z = 3;"
	doc := document.Open([]byte(src), document.DefaultConfig(), nil)

	doc.ApplyEdit(edit.Edit{StartByte: 0, OldEndByte: 0, NewText: "my $w = 4; "})

	var decls int
	ast.Walk(doc.Tree(), func(n ast.Node) bool {
		if _, ok := n.(*ast.VariableDeclaration); ok {
			decls++
		}
		return true
	})
	assert.Equal(t, 4, decls)
}
