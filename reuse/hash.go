// Package reuse implements the structural/content hashing and
// candidate-matching described in spec §4.5: given an old AST, a new
// AST, and the edit set that produced it, it proposes a ReuseStrategy
// mapping old-tree positions to new-tree positions so document.Document
// can splice cached subtrees into the reparsed tree instead of
// rebuilding everything.
package reuse

import (
	"github.com/aledsdavies/perl-lsp-core/ast"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// canonicalShape is the CBOR-encoded payload hashed for a node's
// structural identity — shape only, never leaf values. Mirrors the
// teacher's planfmt.CanonicalNode technique (core/planfmt/canonical.go):
// canonicalize first, then hash the canonical bytes, so hashes are
// deterministic regardless of any map ordering inside the node.
type canonicalShape struct {
	Kind        uint16
	NumChildren int
	// Shape fields, populated only for the kinds that need them to
	// disambiguate otherwise-identical shapes (spec §4.5): operator
	// string, sigil, interpolation flag, call arity.
	Op           string `cbor:",omitempty"`
	Sigil        byte   `cbor:",omitempty"`
	Interpolates bool   `cbor:",omitempty"`
	Arity        int    `cbor:",omitempty"`
}

// canonicalContent extends canonicalShape with the leaf value itself,
// for ContentHash. Non-leaf nodes hash identically to their
// canonicalShape (spec §4.5: "for non-leaves it falls back to the
// structural hash").
type canonicalContent struct {
	canonicalShape
	Value string `cbor:",omitempty"`
}

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err) // CanonicalEncOptions() is a constant, fixed option set
	}
	return m
}()

func shapeOf(n ast.Node) canonicalShape {
	s := canonicalShape{Kind: uint16(n.Kind()), NumChildren: len(n.Children())}
	switch v := n.(type) {
	case *ast.Binary:
		s.Op = v.Op
	case *ast.Unary:
		s.Op = v.Op
	case *ast.Assignment:
		s.Op = v.Op
	case *ast.Variable:
		s.Sigil = v.Sigil
	case *ast.String:
		s.Interpolates = v.Interpolates
	case *ast.FunctionCall:
		s.Arity = len(v.Args)
	case *ast.MethodCall:
		s.Arity = len(v.Args)
	}
	return s
}

func leafValue(n ast.Node) (string, bool) {
	switch v := n.(type) {
	case *ast.Number:
		return v.Text, true
	case *ast.String:
		return v.Raw, true
	case *ast.Identifier:
		return v.Name, true
	case *ast.Variable:
		return v.Name, true
	default:
		return "", false
	}
}

// StructuralHash mixes the node's kind discriminant with its
// kind-specific shape invariants, deliberately excluding leaf values so
// same-shape edits collide (spec §4.5).
func StructuralHash(n ast.Node) uint64 {
	return hashCanonical(shapeOf(n))
}

// ContentHash hashes leaf values for leaf kinds (Number, String,
// Identifier, Variable); for non-leaves it equals StructuralHash.
func ContentHash(n ast.Node) uint64 {
	val, isLeaf := leafValue(n)
	if !isLeaf {
		return StructuralHash(n)
	}
	return hashCanonical(canonicalContent{canonicalShape: shapeOf(n), Value: val})
}

func hashCanonical(v any) uint64 {
	b, err := encMode.Marshal(v)
	if err != nil {
		panic(err) // canonicalShape/canonicalContent are always CBOR-encodable
	}
	// Native 8-byte BLAKE2b digest (blake2b.New's size parameter, not a
	// truncated Sum256) so the hash width matches the uint64 return type
	// exactly rather than discarding 24 bytes of a 256-bit sum.
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic(err) // size=8 is within BLAKE2b's valid 1..64 byte range
	}
	h.Write(b)
	sum := h.Sum(nil)
	var out uint64
	for _, b := range sum {
		out = out<<8 | uint64(b)
	}
	return out
}
