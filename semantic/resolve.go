package semantic

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Resolve implements spec §4.7's four-step resolution order for a bare
// name at a given scope:
//  1. enclosing lexical scopes (my/state)
//  2. current package symbol table (our and sub)
//  3. symbols imported via use/no
//  4. @ISA / use parent / use base chain (method resolution only)
//
// sigil is 0 for a sub/method-name lookup. Returns nil if nothing
// resolves; the caller (query.Definition et al.) treats that as
// "unresolved" rather than guessing, per spec §4.7's conservative
// method-resolution mandate.
func (m *Model) Resolve(scope *Scope, sigil byte, name string) *Declaration {
	if d := scope.Lookup(sigil, name); d != nil {
		return d
	}
	if pkg, ok := m.Packages[scope.Package]; ok {
		if d, ok := pkg[declKey(sigil, name)]; ok {
			return d
		}
	}
	if d := m.resolveImported(scope.Package, sigil, name); d != nil {
		return d
	}
	return nil
}

// ResolveAt is like Resolve but respects declaration-site visibility for
// lexical (my/state) bindings, per spec §8 invariant 9: a my $x is not
// visible before its declaration site in the same scope. Callers that
// resolve a reference at a known source offset (hover, go-to-definition)
// should use this instead of Resolve; package symbols (our/sub) and
// imports are hoisted and stay visible regardless of offset.
func (m *Model) ResolveAt(scope *Scope, sigil byte, name string, offset uint32) *Declaration {
	if d := scope.LookupAt(sigil, name, offset); d != nil {
		return d
	}
	if pkg, ok := m.Packages[scope.Package]; ok {
		if d, ok := pkg[declKey(sigil, name)]; ok {
			return d
		}
	}
	if d := m.resolveImported(scope.Package, sigil, name); d != nil {
		return d
	}
	return nil
}

func (m *Model) resolveImported(pkg string, sigil byte, name string) *Declaration {
	for _, imp := range m.Imports[pkg] {
		if len(imp.Symbols) > 0 && !containsString(imp.Symbols, name) {
			continue
		}
		if target, ok := m.Packages[imp.Module]; ok {
			if d, ok := target[declKey(sigil, name)]; ok {
				return d
			}
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// ResolveMethod resolves `invocantClass->method` by walking the
// invocant's static @ISA/use-parent/use-base chain depth-first (spec
// §4.7 step 4). Returns nil ("unresolved") rather than guessing if
// invocantClass is empty (the caller couldn't infer the invocant's
// static class) or no ancestor defines the method — spec §9's explicit
// "never widen the result set with speculative targets" mandate.
func (m *Model) ResolveMethod(invocantClass, method string) *Declaration {
	if invocantClass == "" {
		return nil
	}
	seen := make(map[string]bool)
	return m.resolveMethodChain(invocantClass, method, seen)
}

func (m *Model) resolveMethodChain(class, method string, seen map[string]bool) *Declaration {
	if seen[class] {
		return nil
	}
	seen[class] = true
	if pkg, ok := m.Packages[class]; ok {
		if d, ok := pkg[declKey('&', method)]; ok {
			return d
		}
	}
	for _, parent := range m.ISA[class] {
		if d := m.resolveMethodChain(parent, method, seen); d != nil {
			return d
		}
	}
	return nil
}

// NormalizeVersion converts a Perl version string (decimal "1.6" or
// v-string "v1.2.3") into a semver-comparable "vMAJOR.MINOR.PATCH" form
// using golang.org/x/mod/semver, falling back to the original text
// unchanged when semver can't parse it (spec §4.2's `use Module
// VERSION` clause accepts both forms; SPEC_FULL.md's DOMAIN STACK entry
// wires x/mod/semver for this).
func NormalizeVersion(raw string) string {
	v := raw
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	// Perl's decimal form ("1.06") has at most two dot-separated
	// components; semver requires MAJOR.MINOR.PATCH, so pad a missing
	// patch with .0.
	if strings.Count(v, ".") == 1 {
		v += ".0"
	}
	if semver.IsValid(v) {
		return v
	}
	return raw
}

// CompareVersions compares two Perl version strings after normalizing
// them, returning -1/0/1 per semver.Compare. If either fails to
// normalize to a valid semver string, falls back to a plain string
// comparison (some Perl version forms, e.g. "5", aren't semver-parsable
// even after padding).
func CompareVersions(a, b string) int {
	na, nb := NormalizeVersion(a), NormalizeVersion(b)
	if semver.IsValid(na) && semver.IsValid(nb) {
		return semver.Compare(na, nb)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
