// Command perlls-inspect is a non-protocol debug CLI over the core: it
// parses a file and prints its token stream or document outline,
// useful for inspecting lexer/parser/semantic behavior without wiring
// up a full LSP host.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/lexer"
	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/query"
)

func main() {
	var (
		showTokens bool
		showErrors bool
	)

	rootCmd := &cobra.Command{
		Use:   "perlls-inspect <file>",
		Short: "Inspect a Perl file's tokens, outline, and parse errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			if showTokens {
				printTokens(cmd, source)
				return nil
			}

			prog, _ := parser.Parse(source)

			if showErrors {
				printErrors(cmd, prog)
			}

			printOutline(cmd, query.Outline(prog), 0)
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showTokens, "tokens", false, "Print the raw token stream instead of the outline")
	rootCmd.Flags().BoolVar(&showErrors, "errors", false, "Print parse-error nodes before the outline")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printTokens(cmd *cobra.Command, source []byte) {
	l := lexer.New(source)
	for {
		tok := l.Next()
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-12s %q\n", tok.Span, tok.Kind, tok.Text)
		if tok.Kind == lexer.EOF {
			break
		}
	}
}

func printErrors(cmd *cobra.Command, prog *ast.Program) {
	ast.Walk(prog, func(n ast.Node) bool {
		if e, ok := n.(*ast.Error); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "error %s: %s\n", e.Span(), e.Message)
		}
		return true
	})
}

func printOutline(cmd *cobra.Command, entries []query.OutlineEntry, depth int) {
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%*s%s %s %s\n", depth*2, "", outlineKindLabel(e.Kind), e.Name, e.Span)
		printOutline(cmd, e.Children, depth+1)
	}
}

func outlineKindLabel(k query.OutlineKind) string {
	switch k {
	case query.OutlinePackage:
		return "package"
	case query.OutlineSub:
		return "sub"
	case query.OutlineMethod:
		return "method"
	case query.OutlineClass:
		return "class"
	case query.OutlinePhaseBlock:
		return "phase"
	default:
		return "?"
	}
}
