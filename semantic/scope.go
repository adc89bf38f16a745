// Package semantic builds the per-file scope tree, declaration table,
// and reference list described in spec §4.7, and resolves names under
// Perl's scoping rules (lexical my/state, package our, use/no imports,
// @ISA/use parent/use base).
package semantic

import (
	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// DeclKind classifies a declaration by Perl sigil-family/flavor.
type DeclKind int

const (
	DeclScalar DeclKind = iota
	DeclArray
	DeclHash
	DeclSub
	DeclPackage
)

// Declaration is one name binding in a scope.
type Declaration struct {
	Name       string
	Kind       DeclKind
	Declarator string // "my" | "our" | "local" | "state" | "sub" | "method" | "has" | "signature" | "catch" | "implicit"
	Span       span.Span
	Package    string // enclosing package at the declaration site
}

// Reference is one use-site of a name, resolved (or not) to a
// Declaration.
type Reference struct {
	Name    string
	Sigil   byte // 0 for bareword/sub-call references
	Span    span.Span
	Decl    *Declaration // not set by Build; resolve via Model.Resolve/ResolveAt
	Package string       // enclosing package at the use site
}

// Scope is one lexical scope: the Program root, or a child scope per
// Block, subroutine/method body, or control-flow body (spec §4.7).
type Scope struct {
	Parent   *Scope
	Children []*Scope
	Span     span.Span
	Package  string // the package this scope executes in
	Decls    map[string]*Declaration
}

func newScope(parent *Scope, sp span.Span, pkg string) *Scope {
	return &Scope{Parent: parent, Span: sp, Package: pkg, Decls: make(map[string]*Declaration)}
}

func declKey(sigil byte, name string) string {
	return string(sigil) + name
}

// Lookup walks this scope and its ancestors outward, returning the
// first declaration found for sigil+name (spec §4.7 resolution step 1:
// "enclosing lexical scopes").
func (s *Scope) Lookup(sigil byte, name string) *Declaration {
	for sc := s; sc != nil; sc = sc.Parent {
		if d, ok := sc.Decls[declKey(sigil, name)]; ok {
			return d
		}
	}
	return nil
}

// LookupAt is like Lookup but excludes declarations not yet in scope at
// offset: a my/state binding is not visible before its declaration site
// in the same scope (spec §8 invariant 9). Ancestor scopes are always
// fully declared by the time a child scope's body runs, so the offset
// check only matters for the innermost (starting) scope and, by the
// same reasoning, any scope whose Decls entry was set after offset.
func (s *Scope) LookupAt(sigil byte, name string, offset uint32) *Declaration {
	for sc := s; sc != nil; sc = sc.Parent {
		if d, ok := sc.Decls[declKey(sigil, name)]; ok && d.Span.Start <= offset {
			return d
		}
	}
	return nil
}

// ScopeAt returns the innermost scope whose span covers offset.
func (m *Model) ScopeAt(offset uint32) *Scope {
	best := m.Root
	var walk func(s *Scope)
	walk = func(s *Scope) {
		for _, c := range s.Children {
			if c.Span.Contains(offset) {
				if c.Span.Len() < best.Span.Len() || best == m.Root {
					best = c
				}
				walk(c)
			}
		}
	}
	walk(m.Root)
	return best
}

// Model is the complete semantic view of a single file built lazily
// from an AST snapshot (spec §4.7).
type Model struct {
	Root       *Scope
	References []*Reference
	// Packages maps a package name to the set of its `our`/`sub`
	// declarations, for step 2 of the resolution order and for
	// cross-file export resolution feeding workspace.Index.
	Packages map[string]map[string]*Declaration
	// Imports maps a package name to the ordered list of packages it
	// `use`s (spec §4.7 resolution step 3), each with the explicit
	// import list captured from a qw(...) form when present (empty
	// means "import the module's default @EXPORT list").
	Imports map[string][]Import
	// ISA maps a package to its declared superclasses, from `use
	// parent`/`use base` and `class ... :isa(...)` (resolution step 4).
	// Assignments to @ISA are not recorded.
	ISA map[string][]string
}

// Import is one `use Module LIST;` clause's effect on the importing
// package.
type Import struct {
	Module  string
	Version string
	Symbols []string // explicit qw(...) list; empty means default import
}
