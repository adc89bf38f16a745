package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/query"
	"github.com/aledsdavies/perl-lsp-core/semantic"
)

func buildContext(t *testing.T, src string) query.Context {
	t.Helper()
	prog, _ := parser.Parse([]byte(src))
	model := semantic.Build(prog)
	return query.Context{Program: prog, Model: model, URI: "file:///buf.pl"}
}

func hasLabel(items []query.Item, label string) bool {
	for _, it := range items {
		if it.Label == label {
			return true
		}
	}
	return false
}

// Scenario 3 (spec §8): prefix completion in a buffer with declared
// scalars, expecting $count and $counter but not @items.
func TestScenario3PrefixCompletion(t *testing.T) {
	src := "my $count = 0; my $counter = 1; my @items = (); $c"
	ctx := buildContext(t, src)
	offset := uint32(len(src))

	res := query.GetCompletions(ctx, []byte(src), offset, "", nil, query.DefaultCompletionConfig())
	assert.True(t, hasLabel(res.Items, "$count"))
	assert.True(t, hasLabel(res.Items, "$counter"))
	assert.False(t, hasLabel(res.Items, "@items"))
}

func TestCompletionRespectsCancellation(t *testing.T) {
	src := "my $x = 1; $"
	ctx := buildContext(t, src)
	res := query.GetCompletions(ctx, []byte(src), uint32(len(src)), "", func() bool { return true }, query.DefaultCompletionConfig())
	assert.Empty(t, res.Items)
}

func TestCompletionMaxItemsTruncates(t *testing.T) {
	src := "p"
	ctx := buildContext(t, src)
	cfg := query.CompletionConfig{MaxItems: 1, CancelCheckInterval: 10}
	res := query.GetCompletions(ctx, []byte(src), 1, "", nil, cfg)
	require.Len(t, res.Items, 1)
	assert.True(t, res.IsIncomplete)
}

func TestArrowTriggersMethodCompletion(t *testing.T) {
	src := "package Foo; sub bar {} package main; Foo->"
	ctx := buildContext(t, src)
	res := query.GetCompletions(ctx, []byte(src), uint32(len(src)), "", nil, query.DefaultCompletionConfig())
	assert.True(t, hasLabel(res.Items, "bar"))
}

func TestHasAttributeKeyCompletion(t *testing.T) {
	src := "package Foo; has 'name' => (is"
	ctx := buildContext(t, src)
	res := query.GetCompletions(ctx, []byte(src), uint32(len(src)), "", nil, query.DefaultCompletionConfig())
	assert.True(t, hasLabel(res.Items, "is"))
}

func TestDefinitionResolvesLexicalVariable(t *testing.T) {
	src := "my $x = 1; print $x;"
	ctx := buildContext(t, src)
	offset := uint32(strings.LastIndex(src, "$x") + 1)

	targets, _, ok := query.Definition(ctx, offset)
	require.True(t, ok)
	require.Len(t, targets, 1)
	assert.Less(t, targets[0].Span.Start, offset)
}

// A my $x declaration is not visible before its declaration site in the
// same scope (spec §8 invariant 9); go-to-definition on a use-site that
// precedes the declaration must not resolve to it.
func TestDefinitionUnresolvedBeforeDeclarationSite(t *testing.T) {
	src := "{ print $x; my $x = 1; }"
	ctx := buildContext(t, src)
	offset := uint32(strings.Index(src, "$x") + 1)

	_, _, ok := query.Definition(ctx, offset)
	assert.False(t, ok)
}

// Same invariant, exercised through HoverAt.
func TestHoverUnresolvedBeforeDeclarationSite(t *testing.T) {
	src := "{ print $x; my $x = 1; }"
	ctx := buildContext(t, src)
	offset := uint32(strings.Index(src, "$x") + 1)

	_, ok := query.HoverAt(ctx, offset)
	assert.False(t, ok)
}

func TestReferencesFindsAllUses(t *testing.T) {
	src := "my $x = 1; print $x; print $x;"
	ctx := buildContext(t, src)
	offset := uint32(strings.Index(src, "$x"))

	refs := query.References(ctx, offset)
	assert.GreaterOrEqual(t, len(refs), 2)
}

func TestHoverOnBuiltin(t *testing.T) {
	src := "push @a, 1;"
	ctx := buildContext(t, src)
	h, ok := query.HoverAt(ctx, 1)
	require.True(t, ok)
	assert.Contains(t, h.Contents, "push")
}

func TestOutlineListsPackagesAndSubs(t *testing.T) {
	src := "package Foo; sub bar {} sub baz {}"
	prog, _ := parser.Parse([]byte(src))
	entries := query.Outline(prog)
	require.Len(t, entries, 1)
	assert.Equal(t, "Foo", entries[0].Name)
	assert.Equal(t, query.OutlinePackage, entries[0].Kind)
}

func TestRenameRefusesUnresolvedSymbol(t *testing.T) {
	src := "print $undeclared;"
	ctx := buildContext(t, src)
	offset := uint32(strings.Index(src, "$undeclared"))
	_, ok := query.Rename(ctx, offset, "$renamed")
	assert.False(t, ok)
}

func TestRenameCollectsAllReferences(t *testing.T) {
	src := "my $x = 1; print $x;"
	ctx := buildContext(t, src)
	offset := uint32(strings.Index(src, "my $x") + 3)
	edits, ok := query.Rename(ctx, offset, "$y")
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(edits), 2)
}

// Scenario 5 (spec §8): file-path completion rejects traversal.
func TestScenario5FilePathCompletionRejectsTraversal(t *testing.T) {
	src := `my $p = "../secret/`
	ctx := buildContext(t, src)
	res := query.GetCompletions(ctx, []byte(src), uint32(len(src)), "/workspace/main.pl", nil, query.DefaultCompletionConfig())
	assert.Empty(t, res.Items)
}
