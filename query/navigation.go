package query

import (
	"strings"

	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
	"github.com/aledsdavies/perl-lsp-core/workspace"
)

// Definition resolves the token under cursor via the semantic model
// (same-file) and falls back to the workspace index (cross-file), per
// spec §4.9 Declaration/Definition. originSelection is the span of the
// token the request was made on.
func Definition(ctx Context, offset uint32) (targets []Location, originSelection span.Span, ok bool) {
	node := findNodeAt(ctx.Program, offset)
	if node == nil {
		return nil, span.Span{}, false
	}
	originSelection = node.Span()

	switch n := node.(type) {
	case *ast.Variable:
		if ctx.Model != nil {
			if d := ctx.Model.ResolveAt(ctx.Model.ScopeAt(offset), n.Sigil, n.Name, offset); d != nil {
				return []Location{{URI: ctx.URI, Span: d.Span}}, originSelection, true
			}
		}
	case *ast.FunctionCall:
		if loc, found := resolveCallable(ctx, offset, n.Name); found {
			return []Location{loc}, originSelection, true
		}
	case *ast.MethodCall:
		if ctx.Model != nil {
			if d := ctx.Model.ResolveMethod(invocantClassOf(n.Invocant), n.Method); d != nil {
				return []Location{{URI: ctx.URI, Span: d.Span}}, originSelection, true
			}
		}
	case *ast.Use:
		// `use Foo::Bar;` resolves the module name itself to the
		// defining file's start (spec §4.9).
		if ctx.Index != nil {
			if loc, found := ctx.Index.FindDefinition(n.Module, 0, workspace.KindPack); found {
				loc.Span = span.Span{Start: 0, End: 0}
				return []Location{fromWorkspaceLoc(loc)}, originSelection, true
			}
		}
	case *ast.Identifier:
		if loc, found := resolveCallable(ctx, offset, n.Name); found {
			return []Location{loc}, originSelection, true
		}
	}
	return nil, originSelection, false
}

func resolveCallable(ctx Context, offset uint32, name string) (Location, bool) {
	pkg := name
	local := name
	if i := strings.LastIndex(name, "::"); i >= 0 {
		pkg, local = name[:i], name[i+2:]
	} else if ctx.Model != nil {
		pkg = currentPackage(ctx.Model, offset)
	}
	if ctx.Model != nil {
		if d, ok := ctx.Model.Packages[pkg]["&"+local]; ok {
			return Location{URI: ctx.URI, Span: d.Span}, true
		}
	}
	if ctx.Index != nil {
		if loc, found := ctx.Index.FindDefinition(pkg+"::"+local, '&', workspace.KindSub); found {
			return fromWorkspaceLoc(loc), true
		}
	}
	return Location{}, false
}

// invocantClassOf returns the invocant's static class when it's a
// bareword class name (`Foo->new`); for a lexical variable the class
// can't be inferred textually, so it returns "" and the caller treats
// the method as unresolved (spec §4.7/§9's conservative mandate).
func invocantClassOf(invocant ast.Node) string {
	switch n := invocant.(type) {
	case *ast.Identifier:
		return n.Name
	default:
		return ""
	}
}

// References returns every same-file and cross-file use of the symbol
// at offset, per spec §4.9 References.
func References(ctx Context, offset uint32) []Location {
	node := findNodeAt(ctx.Program, offset)
	if node == nil {
		return nil
	}

	var sigil byte
	var name string
	switch n := node.(type) {
	case *ast.Variable:
		sigil, name = n.Sigil, n.Name
	case *ast.FunctionCall:
		name = n.Name
	case *ast.Identifier:
		name = n.Name
	default:
		return nil
	}

	var out []Location
	if ctx.Model != nil {
		for _, r := range ctx.Model.References {
			if r.Sigil == sigil && r.Name == name {
				out = append(out, Location{URI: ctx.URI, Span: r.Span})
			}
		}
	}
	if ctx.Index != nil {
		for _, sym := range ctx.Index.FindSymbols(name) {
			if sym.Key.Name != name || sym.Key.Sigil != sigil {
				continue
			}
			out = append(out, fromWorkspaceLoc(sym.Def))
		}
	}
	return out
}
