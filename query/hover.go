package query

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// Hover is the formatted result of a hover request (spec §4.9
// Hover/SignatureHelp).
type Hover struct {
	Contents string
	Span     span.Span // the span the hover applies to
}

// builtinDocs is a small built-in documentation table for common Perl
// built-ins, keyed by name (spec §4.9: "formatted via a built-in
// documentation table for Perl built-ins").
var builtinDocs = map[string]string{
	"print":   "print LIST — outputs LIST to the currently selected filehandle.",
	"push":    "push ARRAY, LIST — appends LIST to the end of ARRAY.",
	"pop":     "pop ARRAY — removes and returns the last element of ARRAY.",
	"shift":   "shift ARRAY — removes and returns the first element of ARRAY.",
	"unshift": "unshift ARRAY, LIST — prepends LIST to the front of ARRAY.",
	"map":     "map BLOCK LIST — evaluates BLOCK for each element, returning the list of results.",
	"grep":    "grep BLOCK LIST — evaluates BLOCK for each element, returning the elements for which it was true.",
	"sort":    "sort SUBNAME LIST — sorts LIST, optionally with a custom comparator.",
	"bless":   "bless REF, CLASSNAME — associates REF with CLASSNAME for method dispatch.",
	"ref":     "ref EXPR — returns the reference type of EXPR, or empty string if not a reference.",
	"die":     "die LIST — raises an exception, propagated via $@ unless caught.",
	"wantarray": "wantarray — returns true in list context, false in scalar context, undef in void context.",
}

// HoverAt returns hover content for the token under offset, per spec
// §4.9: a built-in doc table entry for Perl built-ins, or the name and
// parsed signature for a user sub/method. Documentation from a leading
// POD block or comment is not included.
func HoverAt(ctx Context, offset uint32) (Hover, bool) {
	node := findNodeAt(ctx.Program, offset)
	if node == nil {
		return Hover{}, false
	}

	switch n := node.(type) {
	case *ast.FunctionCall:
		if doc, ok := builtinDocs[n.Name]; ok {
			return Hover{Contents: doc, Span: n.Span()}, true
		}
		if d, ok := findSubDecl(ctx, offset, n.Name); ok {
			return Hover{Contents: formatSubHover(d.name, d.sig), Span: n.Span()}, true
		}
	case *ast.Identifier:
		if doc, ok := builtinDocs[n.Name]; ok {
			return Hover{Contents: doc, Span: n.Span()}, true
		}
	case *ast.Variable:
		if ctx.Model != nil {
			if d := ctx.Model.ResolveAt(ctx.Model.ScopeAt(offset), n.Sigil, n.Name, offset); d != nil {
				return Hover{
					Contents: fmt.Sprintf("%s %c%s", d.Declarator, n.Sigil, n.Name),
					Span:     n.Span(),
				}, true
			}
		}
	case *ast.Subroutine:
		return Hover{Contents: formatSubHover(n.Name, n.Signature), Span: n.Span()}, true
	case *ast.Method:
		return Hover{Contents: formatSubHover(n.Name, n.Signature), Span: n.Span()}, true
	}
	return Hover{}, false
}

type subDecl struct {
	name string
	sig  *ast.Signature
}

func findSubDecl(ctx Context, offset uint32, name string) (subDecl, bool) {
	var found *ast.Subroutine
	ast.Walk(ctx.Program, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		if s, ok := n.(*ast.Subroutine); ok && s.Name == name {
			found = s
		}
		return true
	})
	if found == nil {
		return subDecl{}, false
	}
	return subDecl{name: found.Name, sig: found.Signature}, true
}

func formatSubHover(name string, sig *ast.Signature) string {
	if sig == nil {
		return fmt.Sprintf("sub %s", name)
	}
	var params []string
	for _, p := range sig.Params {
		params = append(params, signatureParamText(p))
	}
	return fmt.Sprintf("sub %s(%s)", name, strings.Join(params, ", "))
}

func signatureParamText(p ast.Node) string {
	switch n := p.(type) {
	case *ast.MandatoryParameter:
		return string(n.Var.Sigil) + n.Var.Name
	case *ast.OptionalParameter:
		return string(n.Var.Sigil) + n.Var.Name + " = ..."
	case *ast.SlurpyParameter:
		return string(n.Var.Sigil) + n.Var.Name
	case *ast.NamedParameter:
		return n.Name
	default:
		return "?"
	}
}
