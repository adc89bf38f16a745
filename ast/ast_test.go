package ast

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/span"
)

func TestBaseKindAndSpan(t *testing.T) {
	sp := span.Span{Start: 3, End: 9}
	b := NewBase(KindNumber, sp)
	if b.Kind() != KindNumber {
		t.Errorf("Kind() = %v, want %v", b.Kind(), KindNumber)
	}
	if b.Span() != sp {
		t.Errorf("Span() = %v, want %v", b.Span(), sp)
	}
}

func TestProgramBlockExpressionStatementConstructors(t *testing.T) {
	sp := span.Span{Start: 0, End: 10}
	expr := &Number{Base: NewBase(KindNumber, span.Span{Start: 0, End: 1}), Text: "1"}
	stmt := NewExpressionStatement(span.Span{Start: 0, End: 2}, expr)

	block := NewBlock(sp, []Node{stmt})
	if block.Kind() != KindBlock {
		t.Errorf("block.Kind() = %v, want KindBlock", block.Kind())
	}
	if len(block.Children()) != 1 || block.Children()[0] != Node(stmt) {
		t.Errorf("block.Children() = %v, want [stmt]", block.Children())
	}

	prog := NewProgram(sp, []Node{block})
	if prog.Kind() != KindProgram {
		t.Errorf("prog.Kind() = %v, want KindProgram", prog.Kind())
	}
	if len(prog.Children()) != 1 || prog.Children()[0] != Node(block) {
		t.Errorf("prog.Children() = %v, want [block]", prog.Children())
	}
	if stmt.Children()[0] != Node(expr) {
		t.Errorf("stmt.Children() = %v, want [expr]", stmt.Children())
	}
}

func TestWalkVisitsInCanonicalOrder(t *testing.T) {
	leaf1 := &Number{Base: NewBase(KindNumber, span.Span{Start: 0, End: 1}), Text: "1"}
	leaf2 := &Number{Base: NewBase(KindNumber, span.Span{Start: 2, End: 3}), Text: "2"}
	block := NewBlock(span.Span{Start: 0, End: 3}, []Node{
		NewExpressionStatement(leaf1.Span(), leaf1),
		NewExpressionStatement(leaf2.Span(), leaf2),
	})
	prog := NewProgram(block.Span(), []Node{block})

	var visited []Kind
	Walk(prog, func(n Node) bool {
		visited = append(visited, n.Kind())
		return true
	})

	want := []Kind{KindProgram, KindBlock, KindExpressionStatement, KindNumber, KindExpressionStatement, KindNumber}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %v, want %v", i, visited[i], want[i])
		}
	}
}

func TestWalkShortCircuitsOnFalse(t *testing.T) {
	leaf := &Number{Base: NewBase(KindNumber, span.Span{Start: 0, End: 1}), Text: "1"}
	block := NewBlock(span.Span{Start: 0, End: 1}, []Node{leaf})

	var visited []Kind
	Walk(block, func(n Node) bool {
		visited = append(visited, n.Kind())
		return n.Kind() != KindBlock // stop descending once we see the block
	})
	if len(visited) != 1 || visited[0] != KindBlock {
		t.Errorf("visited = %v, want [KindBlock] (children skipped)", visited)
	}
}

func TestWalkNilIsNoop(t *testing.T) {
	called := false
	Walk(nil, func(n Node) bool {
		called = true
		return true
	})
	if called {
		t.Errorf("Walk(nil, ...) should never invoke visit")
	}
}

func TestSubroutineChildrenOmitsNilFields(t *testing.T) {
	forwardDecl := &Subroutine{Base: NewBase(KindSubroutine, span.Span{}), Name: "foo"}
	if got := forwardDecl.Children(); len(got) != 0 {
		t.Errorf("forward-declared sub Children() = %v, want empty", got)
	}

	body := NewBlock(span.Span{}, nil)
	withBody := &Subroutine{Base: NewBase(KindSubroutine, span.Span{}), Name: "foo", Body: body}
	if got := withBody.Children(); len(got) != 1 || got[0] != Node(body) {
		t.Errorf("sub-with-body Children() = %v, want [body]", got)
	}

	sig := &Signature{Base: NewBase(KindSignature, span.Span{})}
	withBoth := &Subroutine{Base: NewBase(KindSubroutine, span.Span{}), Name: "foo", Signature: sig, Body: body}
	if got := withBoth.Children(); len(got) != 2 {
		t.Errorf("sub-with-sig-and-body Children() = %v, want 2 children", got)
	}
}

func TestPackageChildrenStatementVsBlockForm(t *testing.T) {
	stmtForm := &Package{Base: NewBase(KindPackage, span.Span{}), Name: "Foo::Bar"}
	if got := stmtForm.Children(); got != nil {
		t.Errorf("statement-form Package.Children() = %v, want nil", got)
	}

	body := NewBlock(span.Span{}, nil)
	blockForm := &Package{Base: NewBase(KindPackage, span.Span{}), Name: "Foo::Bar", Body: body}
	if got := blockForm.Children(); len(got) != 1 || got[0] != Node(body) {
		t.Errorf("block-form Package.Children() = %v, want [body]", got)
	}
}

func TestKindBoundaryValuesRoundTripThroughBase(t *testing.T) {
	// Every Kind in the enum must be a valid Node.Kind() value; this is a
	// smoke test that the boundary values survive a round trip through
	// NewBase.
	for _, k := range []Kind{KindProgram, KindError, KindUnknownRest} {
		b := NewBase(k, span.Span{})
		if got := b.Kind(); got != k {
			t.Errorf("NewBase(%d, ...).Kind() = %d, want %d", k, got, k)
		}
	}
}
