package semantic_test

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/semantic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeclaresLexicalVariables(t *testing.T) {
	prog, _ := parser.Parse([]byte("my $count = 42;\nmy $counter = 0;\n"))
	m := semantic.Build(prog)
	d := m.Resolve(m.Root, '$', "count")
	require.NotNil(t, d)
	assert.Equal(t, "my", d.Declarator)
}

func TestScopeNotVisibleBeforeDeclaration(t *testing.T) {
	prog, _ := parser.Parse([]byte("{ print $x; my $x = 1; }"))
	m := semantic.Build(prog)
	// The declaration lands in the block's scope regardless of position
	// within it (a flat per-scope table, not a position-ordered one).
	// Scope.Lookup/Model.Resolve are themselves position-unaware; callers
	// resolving a reference at a known offset (query.HoverAt,
	// query.Definition) use Scope.LookupAt/Model.ResolveAt instead, which
	// reject a declaration whose span starts after the reference's offset
	// (spec §8 invariant 9); query.GetCompletions applies its own offset
	// check.
	require.Len(t, m.Root.Children, 1)
	scope := m.Root.Children[0]
	d := scope.Decls["$x"]
	require.NotNil(t, d)
	assert.Greater(t, d.Span.Start, uint32(0))

	before := d.Span.Start - 1
	assert.Nil(t, m.ResolveAt(scope, '$', "x", before))
	assert.NotNil(t, m.ResolveAt(scope, '$', "x", d.Span.Start+10))
}

func TestPackageOurVisibleAcrossSubs(t *testing.T) {
	prog, _ := parser.Parse([]byte("package Foo; our $VERSION = 1; sub bar { return $VERSION; }"))
	m := semantic.Build(prog)
	pkg, ok := m.Packages["Foo"]
	require.True(t, ok)
	_, ok = pkg["$VERSION"]
	assert.True(t, ok)
}

func TestUseParentPopulatesISA(t *testing.T) {
	prog, _ := parser.Parse([]byte("package Dog; use parent qw(Animal);\n"))
	m := semantic.Build(prog)
	assert.Equal(t, []string{"Animal"}, m.ISA["Dog"])
}

func TestResolveMethodWalksISA(t *testing.T) {
	prog, _ := parser.Parse([]byte(
		"package Animal; sub speak { return 'generic'; }\n" +
			"package Dog; use parent qw(Animal);\n"))
	m := semantic.Build(prog)
	d := m.ResolveMethod("Dog", "speak")
	require.NotNil(t, d)
	assert.Equal(t, "Animal", d.Package)
}

func TestResolveMethodUnresolvedWithoutStaticClass(t *testing.T) {
	prog, _ := parser.Parse([]byte("package Dog; sub bark {}"))
	m := semantic.Build(prog)
	assert.Nil(t, m.ResolveMethod("", "bark"))
	assert.Nil(t, m.ResolveMethod("Cat", "bark"))
}

func TestHasAttributeSynthesizesAccessor(t *testing.T) {
	prog, _ := parser.Parse([]byte("package Point; has 'x' => (is => 'rw');\n"))
	m := semantic.Build(prog)
	pkg, ok := m.Packages["Point"]
	require.True(t, ok)
	_, ok = pkg["&x"]
	assert.True(t, ok, "has 'x' => (...) should synthesize a sub named x")
}

func TestNormalizeVersionDecimalAndVString(t *testing.T) {
	assert.Equal(t, "v1.6.0", semantic.NormalizeVersion("1.6"))
	assert.Equal(t, "v1.2.3", semantic.NormalizeVersion("v1.2.3"))
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, semantic.CompareVersions("1.06", "1.10"))
	assert.Equal(t, 0, semantic.CompareVersions("1.06", "1.06"))
}
