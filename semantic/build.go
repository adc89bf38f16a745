package semantic

import (
	"strings"

	"github.com/aledsdavies/perl-lsp-core/ast"
)

// Build walks program once and produces the Model described in spec
// §4.7: a scope tree, per-scope declaration tables, and an unresolved
// reference list (resolution happens lazily via Resolve/ResolveAt so a
// caller that only wants the outline, say, never pays for it).
func Build(program *ast.Program) *Model {
	m := &Model{
		Root:     newScope(nil, program.Span(), "main"),
		Packages: make(map[string]map[string]*Declaration),
		Imports:  make(map[string][]Import),
		ISA:      make(map[string][]string),
	}
	b := &builder{model: m}
	b.pkg = "main"
	b.walkStmts(program.Statements, m.Root)
	return m
}

type builder struct {
	model *Model
	pkg   string
}

func (b *builder) declarePackage(name string) *map[string]*Declaration {
	if _, ok := b.model.Packages[name]; !ok {
		b.model.Packages[name] = make(map[string]*Declaration)
	}
	t := b.model.Packages[name]
	return &t
}

func (b *builder) addPackageDecl(pkg string, d *Declaration) {
	if _, ok := b.model.Packages[pkg]; !ok {
		b.model.Packages[pkg] = make(map[string]*Declaration)
	}
	b.model.Packages[pkg][declKey(sigilFor(d.Kind), d.Name)] = d
}

func sigilFor(k DeclKind) byte {
	switch k {
	case DeclScalar:
		return '$'
	case DeclArray:
		return '@'
	case DeclHash:
		return '%'
	case DeclSub:
		return '&'
	default:
		return 0
	}
}

func (b *builder) walkStmts(stmts []ast.Node, scope *Scope) {
	for _, s := range stmts {
		b.walkStmt(s, scope)
	}
}

func (b *builder) walkStmt(n ast.Node, scope *Scope) {
	switch v := n.(type) {
	case *ast.Package:
		b.pkg = v.Name
		if v.Body != nil {
			child := newScope(scope, v.Body.Span(), v.Name)
			scope.Children = append(scope.Children, child)
			savedPkg := b.pkg
			b.walkStmts(v.Body.Statements, child)
			b.pkg = savedPkg
		}
	case *ast.Use:
		b.handleUse(v, scope)
	case *ast.VariableDeclaration:
		b.declareVar(v, scope)
		if v.Init != nil {
			b.walkExpr(v.Init, scope)
		}
	case *ast.VariableListDeclaration:
		for _, vv := range v.Vars {
			b.declareVarListItem(v.Declarator, vv, scope)
		}
		if v.Init != nil {
			b.walkExpr(v.Init, scope)
		}
	case *ast.Subroutine:
		d := &Declaration{Name: v.Name, Kind: DeclSub, Declarator: "sub", Span: v.Span(), Package: b.pkg}
		if v.Name != "" {
			scope.Decls[declKey('&', v.Name)] = d
			b.addPackageDecl(b.pkg, d)
		}
		if v.Body != nil {
			child := newScope(scope, v.Body.Span(), b.pkg)
			scope.Children = append(scope.Children, child)
			if v.Signature != nil {
				b.declareSignature(v.Signature, child)
			}
			b.walkStmts(v.Body.Statements, child)
		}
	case *ast.Method:
		d := &Declaration{Name: v.Name, Kind: DeclSub, Declarator: "method", Span: v.Span(), Package: b.pkg}
		if v.Name != "" {
			scope.Decls[declKey('&', v.Name)] = d
			b.addPackageDecl(b.pkg, d)
		}
		if v.Body != nil {
			child := newScope(scope, v.Body.Span(), b.pkg)
			scope.Children = append(scope.Children, child)
			child.Decls[declKey('$', "self")] = &Declaration{Name: "self", Kind: DeclScalar, Declarator: "implicit", Span: v.Span(), Package: b.pkg}
			if v.Signature != nil {
				b.declareSignature(v.Signature, child)
			}
			b.walkStmts(v.Body.Statements, child)
		}
	case *ast.Class:
		savedPkg := b.pkg
		b.pkg = v.Name
		if v.ISA != "" {
			b.model.ISA[v.Name] = append(b.model.ISA[v.Name], v.ISA)
		}
		if v.Body != nil {
			child := newScope(scope, v.Body.Span(), v.Name)
			scope.Children = append(scope.Children, child)
			b.walkStmts(v.Body.Statements, child)
		}
		b.pkg = savedPkg
	case *ast.Block:
		child := newScope(scope, v.Span(), b.pkg)
		scope.Children = append(scope.Children, child)
		b.walkStmts(v.Statements, child)
	case *ast.If:
		for i := range v.Conds {
			b.walkExpr(v.Conds[i], scope)
			child := newScope(scope, v.Thens[i].Span(), b.pkg)
			scope.Children = append(scope.Children, child)
			b.walkStmts(v.Thens[i].Statements, child)
		}
		if v.Else != nil {
			child := newScope(scope, v.Else.Span(), b.pkg)
			scope.Children = append(scope.Children, child)
			b.walkStmts(v.Else.Statements, child)
		}
	case *ast.While:
		b.walkExpr(v.Cond, scope)
		if v.Body != nil {
			child := newScope(scope, v.Body.Span(), b.pkg)
			scope.Children = append(scope.Children, child)
			b.walkStmts(v.Body.Statements, child)
		}
	case *ast.For:
		child := newScope(scope, v.Span(), b.pkg)
		scope.Children = append(scope.Children, child)
		if v.Init != nil {
			b.walkStmt(exprStmt(v.Init), child)
		}
		if v.Cond != nil {
			b.walkExpr(v.Cond, child)
		}
		if v.Body != nil {
			b.walkStmts(v.Body.Statements, child)
		}
	case *ast.Foreach:
		child := newScope(scope, v.Span(), b.pkg)
		scope.Children = append(scope.Children, child)
		b.walkExpr(v.List, scope)
		if v.Var != nil && v.Declarator == "my" {
			child.Decls[declKey(v.Var.Sigil, v.Var.Name)] = &Declaration{Name: v.Var.Name, Kind: sigilDeclKind(v.Var.Sigil), Declarator: "my", Span: v.Var.Span(), Package: b.pkg}
		}
		if v.Body != nil {
			b.walkStmts(v.Body.Statements, child)
		}
	case *ast.Try:
		child := newScope(scope, v.Span(), b.pkg)
		scope.Children = append(scope.Children, child)
		if v.Body != nil {
			b.walkStmts(v.Body.Statements, child)
		}
		if v.Catch != nil {
			catchScope := newScope(scope, v.Catch.Span(), b.pkg)
			scope.Children = append(scope.Children, catchScope)
			if v.CatchVar != nil {
				catchScope.Decls[declKey(v.CatchVar.Sigil, v.CatchVar.Name)] = &Declaration{Name: v.CatchVar.Name, Kind: DeclScalar, Declarator: "catch", Span: v.CatchVar.Span(), Package: b.pkg}
			}
			b.walkStmts(v.Catch.Statements, catchScope)
		}
		if v.Finally != nil {
			finScope := newScope(scope, v.Finally.Span(), b.pkg)
			scope.Children = append(scope.Children, finScope)
			b.walkStmts(v.Finally.Statements, finScope)
		}
	case *ast.ExpressionStatement:
		b.walkExpr(v.Expr, scope)
		b.handleHasAttribute(v.Expr, scope)
	case *ast.StatementModifier:
		b.walkStmt(v.Stmt, scope)
		b.walkExpr(v.Cond, scope)
	case *ast.Return:
		if v.Value != nil {
			b.walkExpr(v.Value, scope)
		}
	default:
		for _, c := range n.Children() {
			b.walkStmt(c, scope)
		}
	}
}

func exprStmt(n ast.Node) ast.Node {
	return n
}

func sigilDeclKind(sigil byte) DeclKind {
	switch sigil {
	case '@':
		return DeclArray
	case '%':
		return DeclHash
	default:
		return DeclScalar
	}
}

func (b *builder) declareVar(v *ast.VariableDeclaration, scope *Scope) {
	if v.Var == nil {
		return
	}
	d := &Declaration{Name: v.Var.Name, Kind: sigilDeclKind(v.Var.Sigil), Declarator: v.Declarator, Span: v.Var.Span(), Package: b.pkg}
	scope.Decls[declKey(v.Var.Sigil, v.Var.Name)] = d
	if v.Declarator == "our" {
		b.addPackageDecl(b.pkg, d)
	}
}

func (b *builder) declareVarListItem(declarator string, n ast.Node, scope *Scope) {
	var va *ast.Variable
	switch x := n.(type) {
	case *ast.Variable:
		va = x
	case *ast.VariableWithAttributes:
		va = x.Var
	}
	if va == nil {
		return
	}
	d := &Declaration{Name: va.Name, Kind: sigilDeclKind(va.Sigil), Declarator: declarator, Span: va.Span(), Package: b.pkg}
	scope.Decls[declKey(va.Sigil, va.Name)] = d
	if declarator == "our" {
		b.addPackageDecl(b.pkg, d)
	}
}

func (b *builder) declareSignature(sig *ast.Signature, scope *Scope) {
	for _, p := range sig.Params {
		var va *ast.Variable
		switch x := p.(type) {
		case *ast.MandatoryParameter:
			va = x.Var
		case *ast.OptionalParameter:
			va = x.Var
			if x.Default != nil {
				b.walkExpr(x.Default, scope)
			}
		case *ast.SlurpyParameter:
			va = x.Var
		}
		if va != nil {
			scope.Decls[declKey(va.Sigil, va.Name)] = &Declaration{Name: va.Name, Kind: sigilDeclKind(va.Sigil), Declarator: "signature", Span: va.Span(), Package: b.pkg}
		}
	}
}

// handleUse records the import (spec §4.7 resolution step 3) and
// handles `use parent`/`use base` for @ISA (step 4).
func (b *builder) handleUse(u *ast.Use, scope *Scope) {
	imp := Import{Module: u.Module, Version: u.Version, Symbols: qwSymbols(u.Args)}
	b.model.Imports[b.pkg] = append(b.model.Imports[b.pkg], imp)

	if u.Module == "parent" || u.Module == "base" {
		for _, name := range qwSymbols(u.Args) {
			if name != "-norequire" {
				b.model.ISA[b.pkg] = append(b.model.ISA[b.pkg], name)
			}
		}
		for _, a := range u.Args {
			if s, ok := a.(*ast.String); ok {
				b.model.ISA[b.pkg] = append(b.model.ISA[b.pkg], strings.Trim(s.Raw, `"'`))
			}
		}
	}
	for _, a := range u.Args {
		b.walkExpr(a, scope)
	}
}

// qwSymbols extracts the flattened symbol list out of a qw(...) import
// list, which the parser represents as a single ArrayLiteral argument
// whose Elements are String literals (see parser's quoteWordsElements).
func qwSymbols(args []ast.Node) []string {
	var out []string
	for _, a := range args {
		al, ok := a.(*ast.ArrayLiteral)
		if !ok {
			continue
		}
		for _, el := range al.Elements {
			if s, ok := el.(*ast.String); ok {
				out = append(out, s.Raw)
			}
		}
	}
	return out
}

// handleHasAttribute implements spec §4.7's Moo/Moose synthesis: a bare
// `has 'name' => (...)` expression statement synthesizes a subroutine
// named `name` in the enclosing package, so method completion and
// navigation work without understanding Moo/Moose's actual runtime
// attribute machinery.
func (b *builder) handleHasAttribute(n ast.Node, scope *Scope) {
	call, ok := n.(*ast.FunctionCall)
	if !ok || call.Name != "has" || len(call.Args) == 0 {
		return
	}
	var attrName string
	switch a := call.Args[0].(type) {
	case *ast.String:
		attrName = strings.Trim(a.Raw, `"'`)
	case *ast.Identifier:
		attrName = a.Name
	}
	if attrName == "" {
		return
	}
	d := &Declaration{Name: attrName, Kind: DeclSub, Declarator: "has", Span: call.Span(), Package: b.pkg}
	scope.Decls[declKey('&', attrName)] = d
	b.addPackageDecl(b.pkg, d)
}

// walkExpr collects references (spec §4.7's reference list) for every
// name use inside an expression tree, without descending into
// statement-introducing forms (those are handled by walkStmt).
func (b *builder) walkExpr(n ast.Node, scope *Scope) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.Variable:
		b.model.References = append(b.model.References, &Reference{Name: v.Name, Sigil: v.Sigil, Span: v.Span(), Package: b.pkg})
	case *ast.FunctionCall:
		b.model.References = append(b.model.References, &Reference{Name: v.Name, Span: v.Span(), Package: b.pkg})
		for _, a := range v.Args {
			b.walkExpr(a, scope)
		}
	case *ast.MethodCall:
		b.walkExpr(v.Invocant, scope)
		b.model.References = append(b.model.References, &Reference{Name: v.Method, Span: v.Span(), Package: b.pkg})
		for _, a := range v.Args {
			b.walkExpr(a, scope)
		}
	default:
		for _, c := range n.Children() {
			b.walkExpr(c, scope)
		}
	}
}
