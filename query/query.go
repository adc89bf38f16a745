// Package query implements the stateless query services of spec §4.9:
// completion, declaration/definition, references, hover, document
// outline, and rename, each given an AST, a semantic model, and an
// optional workspace index.
package query

import (
	"errors"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/semantic"
	"github.com/aledsdavies/perl-lsp-core/span"
	"github.com/aledsdavies/perl-lsp-core/workspace"
)

// ErrCancelled is returned by any query whose Cancel callback fired
// mid-request (spec §7).
var ErrCancelled = errors.New("query: cancelled")

// ErrBudgetExceeded is the budget-exceeded outcome of spec §7; unlike
// Cancelled, a budget-exceeded result still carries a partial answer
// flagged Incomplete rather than an empty one.
var ErrBudgetExceeded = errors.New("query: budget exceeded")

// Cancel is the cooperative cancellation token contract of spec §5/§9:
// called periodically, returns true to abort. A nil Cancel is treated
// as "never cancelled".
type Cancel func() bool

func cancelled(c Cancel) bool { return c != nil && c() }

// Location is a byte-span reference into a URI-identified file (mirrors
// workspace.Location; duplicated here so query doesn't force every
// caller to import workspace just to read a result).
type Location struct {
	URI  string
	Span span.Span
}

func fromWorkspaceLoc(l workspace.Location) Location {
	return Location{URI: l.URI, Span: l.Span}
}

// Context bundles the read-only inputs every query service needs: the
// parsed tree, its semantic model, and an optional cross-file index
// (nil for single-file-only hosts).
type Context struct {
	Program *ast.Program
	Model   *semantic.Model
	Index   *workspace.Index
	URI     string
}

// findNodeAt returns the innermost node whose span contains offset,
// preferring the most specific (smallest-span) match — the "token
// under cursor" spec §4.9 Declaration/Definition and Hover need.
func findNodeAt(root ast.Node, offset uint32) ast.Node {
	var best ast.Node
	var bestLen uint32 = ^uint32(0)
	ast.Walk(root, func(n ast.Node) bool {
		sp := n.Span()
		if sp.Contains(offset) && sp.Len() <= bestLen {
			best, bestLen = n, sp.Len()
		}
		return true
	})
	return best
}

func currentPackage(model *semantic.Model, offset uint32) string {
	scope := model.ScopeAt(offset)
	if scope == nil {
		return "main"
	}
	return scope.Package
}
