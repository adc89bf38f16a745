package reuse

import (
	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// Validate implements spec §9 Open Question 1's real validator (the
// reference implementation's validate_reuse_strategy is a stub that
// accepts everything — see DESIGN.md). A candidate is rejected when:
//
//   - it is not a ContentUpdate and its OLD span intersects the edited
//     range (an edited subtree is never reusable as-is);
//   - adopting it at m.New's position would violate span nesting
//     (invariant 1/2 of spec §3) against m.New's parent in newRoot;
//   - it is a ContentUpdate whose leaf kind, sigil, or interpolation
//     flag don't match exactly (only the literal value may differ).
//
// Any doubt discards the candidate rather than risking a malformed
// tree, per spec §4.5's "the full policy is intentionally
// conservative" directive.
func Validate(m Match, newRoot ast.Node, editRange span.Span) bool {
	if m.Kind != ContentUpdate && m.Old.Span().Overlaps(editRange) {
		return false
	}
	if parent := findParent(newRoot, m.New); parent != nil {
		if !parent.Span().Covers(m.New.Span()) {
			return false
		}
	}
	if m.Kind == ContentUpdate {
		if m.Old.Kind() != m.New.Kind() {
			return false
		}
		if ov, ok := m.Old.(*ast.Variable); ok {
			nv, ok2 := m.New.(*ast.Variable)
			if !ok2 || ov.Sigil != nv.Sigil {
				return false
			}
		}
		if os, ok := m.Old.(*ast.String); ok {
			ns, ok2 := m.New.(*ast.String)
			if !ok2 || os.Interpolates != ns.Interpolates {
				return false
			}
		}
	}
	return true
}

// findParent locates the immediate parent of target within root by a
// single traversal (spec §3: "a parent map... is built on demand"). nil
// if target is root itself or not found.
func findParent(root, target ast.Node) ast.Node {
	if root == nil || root == target {
		return nil
	}
	var found ast.Node
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		if found != nil {
			return
		}
		for _, c := range n.Children() {
			if c == target {
				found = n
				return
			}
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(root)
	return found
}
