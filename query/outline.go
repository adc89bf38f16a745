package query

import (
	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// OutlineKind classifies one outline entry.
type OutlineKind int

const (
	OutlinePackage OutlineKind = iota
	OutlineSub
	OutlineMethod
	OutlineClass
	OutlinePhaseBlock
)

// OutlineEntry is one node of the document outline tree (spec §4.9
// Document outline).
type OutlineEntry struct {
	Name     string
	Kind     OutlineKind
	Span     span.Span
	Children []OutlineEntry
}

// Outline builds the pre-order outline tree for a parsed program:
// packages, subs, methods, classes, and phase blocks, nested under
// whichever of those encloses them (spec §4.9).
func Outline(prog *ast.Program) []OutlineEntry {
	return outlineStatements(prog.Statements)
}

// outlineStatements walks a statement list in order, nesting each
// statement-form `package Name;` and whatever follows it (up to the
// next package statement) as that package's children — mirroring
// Perl's "rest of the enclosing scope" package-statement semantics,
// which the AST itself doesn't nest.
func outlineStatements(stmts []ast.Node) []OutlineEntry {
	var out []OutlineEntry
	var openPkg *OutlineEntry

	flush := func() {
		if openPkg != nil {
			out = append(out, *openPkg)
			openPkg = nil
		}
	}

	for _, s := range stmts {
		if pkg, ok := s.(*ast.Package); ok && pkg.Body == nil {
			flush()
			entry := OutlineEntry{Name: pkg.Name, Kind: OutlinePackage, Span: pkg.Span()}
			openPkg = &entry
			continue
		}
		e, ok := outlineOf(s)
		if !ok {
			continue
		}
		if openPkg != nil {
			openPkg.Children = append(openPkg.Children, e)
		} else {
			out = append(out, e)
		}
	}
	flush()
	return out
}

func outlineOf(n ast.Node) (OutlineEntry, bool) {
	switch v := n.(type) {
	case *ast.Package:
		var children []OutlineEntry
		if v.Body != nil {
			children = outlineStatements(v.Body.Statements)
		}
		return OutlineEntry{Name: v.Name, Kind: OutlinePackage, Span: v.Span(), Children: children}, true
	case *ast.Class:
		var children []OutlineEntry
		if v.Body != nil {
			children = outlineStatements(v.Body.Statements)
		}
		return OutlineEntry{Name: v.Name, Kind: OutlineClass, Span: v.Span(), Children: children}, true
	case *ast.Subroutine:
		return OutlineEntry{Name: v.Name, Kind: OutlineSub, Span: v.Span()}, true
	case *ast.Method:
		return OutlineEntry{Name: v.Name, Kind: OutlineMethod, Span: v.Span()}, true
	case *ast.PhaseBlock:
		var children []OutlineEntry
		if v.Body != nil {
			children = outlineStatements(v.Body.Statements)
		}
		return OutlineEntry{Name: v.Phase, Kind: OutlinePhaseBlock, Span: v.Span(), Children: children}, true
	case *ast.Block:
		// A bare block isn't itself an outline node. When its statements
		// yield exactly one outline entry (e.g. a `package Name { ... }`
		// nested deeper than top level), that entry surfaces in its
		// place; a block yielding several entries contributes none.
		nested := outlineStatements(v.Statements)
		if len(nested) == 1 {
			return nested[0], true
		}
	}
	return OutlineEntry{}, false
}
