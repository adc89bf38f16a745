package workspace_test

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario 4 (spec §8): cross-file go-to-definition.
func TestScenario4CrossFileDefinition(t *testing.T) {
	ix := workspace.New()
	ix.IndexFile("file:///MyModule.pm", []byte("package MyModule; sub hello {}"))
	ix.IndexFile("file:///main.pl", []byte("use MyModule; MyModule::hello();"))

	loc, ok := ix.FindDefinition("MyModule::hello", '&', workspace.KindSub)
	require.True(t, ok)
	assert.Equal(t, "file:///MyModule.pm", loc.URI)
}

func TestRemoveFileDropsDefs(t *testing.T) {
	ix := workspace.New()
	ix.IndexFile("file:///a.pm", []byte("package A; sub foo {}"))
	_, ok := ix.FindDefinition("A::foo", '&', workspace.KindSub)
	require.True(t, ok)

	ix.RemoveFile("file:///a.pm")
	_, ok = ix.FindDefinition("A::foo", '&', workspace.KindSub)
	assert.False(t, ok)
}

func TestReindexReplacesAtomically(t *testing.T) {
	ix := workspace.New()
	ix.IndexFile("file:///a.pm", []byte("package A; sub foo {}"))
	ix.IndexFile("file:///a.pm", []byte("package A; sub bar {}"))

	_, ok := ix.FindDefinition("A::foo", '&', workspace.KindSub)
	assert.False(t, ok, "re-indexing a.pm must drop its old defs")
	_, ok = ix.FindDefinition("A::bar", '&', workspace.KindSub)
	assert.True(t, ok)
}

func TestFindSymbolsPrefixAndFuzzy(t *testing.T) {
	ix := workspace.New()
	ix.IndexFile("file:///a.pm", []byte("package A; sub calculate_total {}"))

	syms := ix.FindSymbols("calculate")
	require.NotEmpty(t, syms)
	assert.Equal(t, "calculate_total", syms[0].Key.Name)
}
