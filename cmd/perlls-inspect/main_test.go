package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/query"
)

func TestPrintOutlineNestsSubsUnderPackage(t *testing.T) {
	src := []byte("package Foo; sub bar {} sub baz {}")
	prog, _ := parser.Parse(src)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printOutline(cmd, query.Outline(prog), 0)

	out := buf.String()
	assert.Contains(t, out, "package Foo")
	assert.Contains(t, out, "sub bar")
	assert.Contains(t, out, "sub baz")
}

func TestPrintTokensEmitsEOF(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printTokens(cmd, []byte("my $x = 1;"))
	assert.Contains(t, buf.String(), "EOF")
}

func TestPrintErrorsRunsOnMalformedInput(t *testing.T) {
	src := []byte("my $x = ;")
	prog, _ := parser.Parse(src)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printErrors(cmd, prog)
	_ = buf // may or may not contain an Error node depending on recovery strategy
	require.NotNil(t, prog)
}
