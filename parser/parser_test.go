package parser

import (
	"testing"

	"github.com/aledsdavies/perl-lsp-core/ast"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, _ := Parse([]byte(src))
	if prog == nil {
		t.Fatalf("Parse(%q) returned nil Program", src)
	}
	return prog
}

func TestParseVariableDeclaration(t *testing.T) {
	prog := parseProgram(t, `my $x = 42;`)
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("statement = %T, want *ast.VariableDeclaration", prog.Statements[0])
	}
	if decl.Declarator != "my" {
		t.Errorf("Declarator = %q, want \"my\"", decl.Declarator)
	}
	if decl.Var == nil || decl.Var.Name != "x" || decl.Var.Sigil != '$' {
		t.Errorf("Var = %+v, want sigil $ name x", decl.Var)
	}
	num, ok := decl.Init.(*ast.Number)
	if !ok || num.Text != "42" {
		t.Errorf("Init = %+v, want Number(42)", decl.Init)
	}
}

func TestParseVariableListDeclaration(t *testing.T) {
	prog := parseProgram(t, `my ($a, $b) = (1, 2);`)
	decl, ok := prog.Statements[0].(*ast.VariableListDeclaration)
	if !ok {
		t.Fatalf("statement = %T, want *ast.VariableListDeclaration", prog.Statements[0])
	}
	if len(decl.Vars) != 2 {
		t.Fatalf("got %d vars, want 2", len(decl.Vars))
	}
	if decl.Init == nil {
		t.Errorf("expected an Init expression")
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	// 1 + 2 * 3 should bind as 1 + (2 * 3), not (1 + 2) * 3.
	prog := parseProgram(t, `1 + 2 * 3;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	bin, ok := stmt.Expr.(*ast.Binary)
	if !ok || bin.Op != "+" {
		t.Fatalf("top expr = %+v, want Binary(+)", stmt.Expr)
	}
	right, ok := bin.Right.(*ast.Binary)
	if !ok || right.Op != "*" {
		t.Fatalf("bin.Right = %+v, want Binary(*)", bin.Right)
	}
	left, ok := bin.Left.(*ast.Number)
	if !ok || left.Text != "1" {
		t.Fatalf("bin.Left = %+v, want Number(1)", bin.Left)
	}
}

func TestParseStarStarIsRightAssociative(t *testing.T) {
	// 2 ** 3 ** 2 == 2 ** (3 ** 2), not (2 ** 3) ** 2.
	prog := parseProgram(t, `2 ** 3 ** 2;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	top, ok := stmt.Expr.(*ast.Binary)
	if !ok || top.Op != "**" {
		t.Fatalf("top = %+v, want Binary(**)", stmt.Expr)
	}
	if _, ok := top.Left.(*ast.Number); !ok {
		t.Errorf("top.Left = %+v, want Number (leaf)", top.Left)
	}
	if _, ok := top.Right.(*ast.Binary); !ok {
		t.Errorf("top.Right = %+v, want nested Binary", top.Right)
	}
}

func TestParseIf(t *testing.T) {
	prog := parseProgram(t, `if ($x) { 1; } elsif ($y) { 2; } else { 3; }`)
	ifNode, ok := prog.Statements[0].(*ast.If)
	if !ok {
		t.Fatalf("statement = %T, want *ast.If", prog.Statements[0])
	}
	if len(ifNode.Conds) != 2 || len(ifNode.Thens) != 2 {
		t.Fatalf("Conds=%d Thens=%d, want 2/2", len(ifNode.Conds), len(ifNode.Thens))
	}
	if ifNode.Else == nil {
		t.Errorf("expected an else block")
	}
}

func TestParseWhileAndUntil(t *testing.T) {
	prog := parseProgram(t, `while ($x) { last; } until ($y) { next; }`)
	w1, ok := prog.Statements[0].(*ast.While)
	if !ok || w1.Until {
		t.Fatalf("statement[0] = %+v, want While{Until:false}", prog.Statements[0])
	}
	w2, ok := prog.Statements[1].(*ast.While)
	if !ok || !w2.Until {
		t.Fatalf("statement[1] = %+v, want While{Until:true}", prog.Statements[1])
	}
}

func TestParseStatementModifier(t *testing.T) {
	prog := parseProgram(t, `print "hi" if $x;`)
	mod, ok := prog.Statements[0].(*ast.StatementModifier)
	if !ok {
		t.Fatalf("statement = %T, want *ast.StatementModifier", prog.Statements[0])
	}
	if mod.Modifier != "if" {
		t.Errorf("Modifier = %q, want \"if\"", mod.Modifier)
	}
	if mod.Stmt == nil || mod.Cond == nil {
		t.Errorf("expected Stmt and Cond to be set")
	}
}

func TestParseSubroutine(t *testing.T) {
	prog := parseProgram(t, `sub greet { my ($name) = @_; return "hi $name"; }`)
	sub, ok := prog.Statements[0].(*ast.Subroutine)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Subroutine", prog.Statements[0])
	}
	if sub.Name != "greet" {
		t.Errorf("Name = %q, want greet", sub.Name)
	}
	if sub.Body == nil || len(sub.Body.Statements) != 2 {
		t.Fatalf("Body = %+v, want 2 statements", sub.Body)
	}
}

func TestParseForwardDeclaration(t *testing.T) {
	prog := parseProgram(t, `sub greet;`)
	sub, ok := prog.Statements[0].(*ast.Subroutine)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Subroutine", prog.Statements[0])
	}
	if sub.Body != nil {
		t.Errorf("forward declaration should have nil Body, got %+v", sub.Body)
	}
}

func TestParsePackageWithVersionAndBlock(t *testing.T) {
	prog := parseProgram(t, `package Foo::Bar 1.0 { my $x = 1; }`)
	pkg, ok := prog.Statements[0].(*ast.Package)
	if !ok {
		t.Fatalf("statement = %T, want *ast.Package", prog.Statements[0])
	}
	if pkg.Name != "Foo::Bar" {
		t.Errorf("Name = %q, want Foo::Bar", pkg.Name)
	}
	if pkg.Body == nil {
		t.Errorf("expected block-form package to set Body")
	}
}

func TestParseUse(t *testing.T) {
	prog := parseProgram(t, `use strict; use warnings; use feature 'say';`)
	if len(prog.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(prog.Statements))
	}
	for i, mod := range []string{"strict", "warnings", "feature"} {
		u, ok := prog.Statements[i].(*ast.Use)
		if !ok || u.Module != mod {
			t.Errorf("statement[%d] = %+v, want Use{Module:%q}", i, prog.Statements[i], mod)
		}
	}
}

func TestParseRegexLiteralAndMatchBind(t *testing.T) {
	prog := parseProgram(t, `$x =~ m/foo/gi;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	match, ok := stmt.Expr.(*ast.Match)
	if !ok {
		t.Fatalf("Expr = %T, want *ast.Match", stmt.Expr)
	}
	if match.Pattern != "foo" || match.Flags != "gi" {
		t.Errorf("Pattern/Flags = %q/%q, want foo/gi", match.Pattern, match.Flags)
	}
	if match.Negated {
		t.Errorf("expected Negated = false for =~")
	}
	if match.Target == nil {
		t.Errorf("expected Target to be set")
	}
}

func TestParseSubstitutionBind(t *testing.T) {
	prog := parseProgram(t, `$x !~ s/foo/bar/g;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	subst, ok := stmt.Expr.(*ast.Substitution)
	if !ok {
		t.Fatalf("Expr = %T, want *ast.Substitution", stmt.Expr)
	}
	if subst.Pattern != "foo" || subst.Replacement != "bar" || subst.Flags != "g" {
		t.Errorf("got Pattern=%q Replacement=%q Flags=%q", subst.Pattern, subst.Replacement, subst.Flags)
	}
	if !subst.Negated {
		t.Errorf("expected Negated = true for !~")
	}
}

func TestParseBareRegexLiteral(t *testing.T) {
	// A regex literal used standalone (not via =~) keeps its own Regex node.
	prog := parseProgram(t, `m/foo/;`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	re, ok := stmt.Expr.(*ast.Regex)
	if !ok || re.Pattern != "foo" {
		t.Fatalf("Expr = %+v, want Regex{Pattern:foo}", stmt.Expr)
	}
}

func TestParseHeredocBody(t *testing.T) {
	src := "my $x = <<EOF;\nline one\nline two\nEOF\n"
	prog := parseProgram(t, src)
	decl, ok := prog.Statements[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("statement = %T, want *ast.VariableDeclaration", prog.Statements[0])
	}
	hd, ok := decl.Init.(*ast.Heredoc)
	if !ok {
		t.Fatalf("Init = %T, want *ast.Heredoc", decl.Init)
	}
	if hd.Tag != "EOF" {
		t.Errorf("Tag = %q, want EOF", hd.Tag)
	}
	if hd.Body != "line one\nline two\n" {
		t.Errorf("Body = %q", hd.Body)
	}
}

func TestParseFunctionCall(t *testing.T) {
	prog := parseProgram(t, `print("hello", "world");`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expr.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("Expr = %T, want *ast.FunctionCall", stmt.Expr)
	}
	if call.Name != "print" || len(call.Args) != 2 {
		t.Fatalf("got Name=%q Args=%d, want print/2", call.Name, len(call.Args))
	}
}

func TestParseNeverPanicsOnMalformedInput(t *testing.T) {
	inputs := []string{
		``,
		`sub`,
		`my $x =`,
		`if (`,
		`{{{`,
		`package`,
		`use`,
		`s/foo`,
		`$x =~`,
		`1 + `,
		`"unterminated`,
	}
	for _, src := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Parse(%q) panicked: %v", src, r)
				}
			}()
			prog, _ := Parse([]byte(src))
			if prog == nil {
				t.Errorf("Parse(%q) returned nil Program", src)
			}
		}()
	}
}

func TestParseAlwaysCoversFullSpan(t *testing.T) {
	src := `my $x = 1; print $x;`
	prog := parseProgram(t, src)
	if prog.Span().Start != 0 || int(prog.Span().End) != len(src) {
		t.Errorf("Program span = %v, want [0, %d]", prog.Span(), len(src))
	}
}

func TestTelemetryOffYieldsZeroValue(t *testing.T) {
	_, tm := Parse([]byte(`my $x = 1;`))
	if tm != (ParseTelemetry{}) {
		t.Errorf("telemetry with no opts = %+v, want zero value", tm)
	}
}

func TestTelemetryBasicCountsWithoutTiming(t *testing.T) {
	_, tm := Parse([]byte(`my $x = 1; my $y = 2;`), WithTelemetryBasic())
	if tm.TokenCount == 0 {
		t.Errorf("TokenCount = 0, want > 0 under TelemetryBasic")
	}
	if tm.TotalTime != 0 || tm.LexTime != 0 || tm.ParseTime != 0 {
		t.Errorf("timing fields = %+v, want zero under TelemetryBasic", tm)
	}
}

func TestTelemetryTimingRecordsDurations(t *testing.T) {
	_, tm := Parse([]byte(`my $x = 1; my $y = 2;`), WithTelemetryTiming())
	if tm.TotalTime == 0 {
		t.Errorf("TotalTime = 0, want > 0 under TelemetryTiming")
	}
}

func TestDebugPathsTracesStatementRules(t *testing.T) {
	p, _ := parse([]byte(`my $x = 1;`), WithDebugPaths())
	found := false
	for _, ev := range p.debugEvents {
		if ev.Event == "variable_declaration" {
			found = true
		}
	}
	if !found {
		t.Errorf("debugEvents = %+v, want a variable_declaration entry under DebugPaths", p.debugEvents)
	}
}
