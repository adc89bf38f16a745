package query

import (
	"sort"
	"strings"

	"github.com/aledsdavies/perl-lsp-core/semantic"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// ItemKind classifies a completion item (LSP CompletionItemKind names,
// loosely).
type ItemKind int

const (
	ItemVariable ItemKind = iota
	ItemFunction
	ItemMethod
	ItemKeyword
	ItemModule
	ItemFile
	ItemProperty
)

// Item is one completion candidate (spec §4.9).
type Item struct {
	Label           string
	Kind            ItemKind
	Detail          string
	InsertText      string
	SortText        string
	FilterText      string
	Documentation   string
	AdditionalEdits []TextEdit
	TextEditRange   *span.Span
}

// TextEdit is a single replacement a completion item may carry
// alongside its primary insert (e.g. auto-importing a module).
type TextEdit struct {
	URI     string
	Range   span.Span
	NewText string
}

// CompletionConfig tunes per-request limits (spec §5/§6: "the core
// exposes all of these as configuration struct fields with defaults").
type CompletionConfig struct {
	MaxItems            int
	CancelCheckInterval int // not read by GetCompletions, which checks Cancel once before classification and once after building the items
}

func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{MaxItems: 200, CancelCheckInterval: 250}
}

// Result is GetCompletions' return value: the item list plus whether it
// was truncated by MaxItems (spec §7: surfaces as LSP isIncomplete).
type Result struct {
	Items        []Item
	IsIncomplete bool
}

// GetCompletions classifies the text immediately preceding offset and
// returns completion items for that context, per spec §4.9's ordered
// context list. filepath, if non-empty, is the workspace-relative path
// of the buffer (used to resolve file-path completion targets).
func GetCompletions(ctx Context, source []byte, offset uint32, filepath string, cancel Cancel, cfg CompletionConfig) Result {
	if cancelled(cancel) {
		return Result{}
	}
	if cfg.MaxItems <= 0 {
		cfg = DefaultCompletionConfig()
	}

	cctx := classify(source, offset)

	var items []Item
	switch cctx.kind {
	case ctxFilePath:
		items = filePathCompletions(filepath, cctx.prefix)
	case ctxSigil:
		items = sigilCompletions(ctx, offset, cctx.sigil, cctx.prefix)
	case ctxArrow:
		items = methodCompletions(ctx, cctx.invocantClass, cctx.prefix)
	case ctxPackageMember:
		items = packageMemberCompletions(ctx, cctx.pkgName, cctx.prefix)
	case ctxHasAttr:
		items = hasAttributeKeyCompletions(cctx.prefix)
	default:
		items = defaultCompletions(ctx, offset, cctx.prefix)
	}

	if cancelled(cancel) {
		return Result{}
	}

	items = dedupe(items)
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := items[i].SortText, items[j].SortText
		if si == "" {
			si = items[i].Label
		}
		if sj == "" {
			sj = items[j].Label
		}
		return si < sj
	})

	incomplete := false
	if len(items) > cfg.MaxItems {
		items = items[:cfg.MaxItems]
		incomplete = true
	}
	return Result{Items: items, IsIncomplete: incomplete}
}

func dedupe(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		key := it.Label + "\x00" + itemKindString(it.Kind)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

func itemKindString(k ItemKind) string {
	switch k {
	case ItemVariable:
		return "var"
	case ItemFunction:
		return "func"
	case ItemMethod:
		return "method"
	case ItemKeyword:
		return "kw"
	case ItemModule:
		return "mod"
	case ItemFile:
		return "file"
	case ItemProperty:
		return "prop"
	default:
		return "?"
	}
}

// --- context classification -------------------------------------------

type classifiedKind int

const (
	ctxDefault classifiedKind = iota
	ctxFilePath
	ctxSigil
	ctxArrow
	ctxPackageMember
	ctxHasAttr
)

type classified struct {
	kind          classifiedKind
	prefix        string
	sigil         byte
	invocantClass string
	pkgName       string
}

// classify implements spec §4.9's context list by inspecting the bytes
// immediately before offset: which trigger (string, sigil, "->", "::",
// Moo/Moose has()) the cursor sits after determines which completion
// set is built.
func classify(source []byte, offset uint32) classified {
	if int(offset) > len(source) {
		offset = uint32(len(source))
	}
	before := string(source[:offset])

	if inString, prefix := stringPrefix(before); inString && looksPathLike(prefix) {
		return classified{kind: ctxFilePath, prefix: prefix}
	}

	if strings.HasSuffix(trimIdentTail(before), "->") {
		invocant, _ := splitTrailingIdent(before)
		return classified{kind: ctxArrow, invocantClass: inferInvocantClass(invocant), prefix: identTail(before)}
	}

	if idx := strings.LastIndex(before, "::"); idx >= 0 && !strings.ContainsAny(before[idx+2:], " \t\n(){};") {
		pkg := identBefore(before[:idx])
		return classified{kind: ctxPackageMember, pkgName: pkg, prefix: before[idx+2:]}
	}

	if sig, prefix, ok := sigilPrefix(before); ok {
		return classified{kind: ctxSigil, sigil: sig, prefix: prefix}
	}

	if insideHasAttrList(before) {
		return classified{kind: ctxHasAttr, prefix: identTail(before)}
	}

	return classified{kind: ctxDefault, prefix: identTail(before)}
}

func identTail(s string) string {
	i := len(s)
	for i > 0 && isIdentByte(s[i-1]) {
		i--
	}
	return s[i:]
}

func trimIdentTail(s string) string {
	return s[:len(s)-len(identTail(s))]
}

func splitTrailingIdent(s string) (invocant, partial string) {
	partial = identTail(s)
	rest := s[:len(s)-len(partial)]
	rest = strings.TrimSuffix(rest, "->")
	return identTail(rest), partial
}

func identBefore(s string) string {
	return identTail(s)
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func sigilPrefix(before string) (byte, string, bool) {
	tail := identTail(before)
	if len(before) == len(tail) {
		return 0, "", false
	}
	sigilByte := before[len(before)-len(tail)-1]
	switch sigilByte {
	case '$', '@', '%', '&':
		return sigilByte, tail, true
	default:
		return 0, "", false
	}
}

func stringPrefix(before string) (bool, string) {
	// Count unescaped quotes; an odd number means we're inside a string.
	inS, inD := false, false
	start := -1
	for i := 0; i < len(before); i++ {
		c := before[i]
		if c == '\\' {
			i++
			continue
		}
		switch {
		case c == '\'' && !inD:
			inS = !inS
			if inS {
				start = i + 1
			}
		case c == '"' && !inS:
			inD = !inD
			if inD {
				start = i + 1
			}
		}
	}
	if (inS || inD) && start >= 0 && start <= len(before) {
		return true, before[start:]
	}
	return false, ""
}

func looksPathLike(prefix string) bool {
	if strings.ContainsAny(prefix, "/\\") {
		return true
	}
	for _, r := range prefix {
		if !(r == '.' || r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return prefix != ""
}

func insideHasAttrList(before string) bool {
	idx := strings.LastIndex(before, "has")
	if idx < 0 {
		return false
	}
	rest := before[idx+3:]
	parenIdx := strings.LastIndex(rest, "(")
	if parenIdx < 0 {
		return false
	}
	if strings.Count(rest, "(") <= strings.Count(rest, ")") {
		return false
	}
	inner := rest[parenIdx+1:]
	return !strings.Contains(inner, "=>")
}

func inferInvocantClass(invocant string) string {
	if invocant == "" {
		return ""
	}
	if invocant[0] >= 'A' && invocant[0] <= 'Z' {
		return invocant // bareword class name, e.g. Foo->new
	}
	return "" // a lexical var's class can't be inferred textually; conservative per spec §4.7/§9
}

// --- per-context item builders -----------------------------------------

var perlSpecialVars = map[byte][]string{
	'$': {"$_", "$0", "$@", "$!", "$$", "$/", "$\\", "$,", "$;"},
	'@': {"@_", "@ARGV", "@INC"},
	'%': {"%ENV", "%INC", "%SIG"},
}

func sigilCompletions(ctx Context, offset uint32, sigil byte, prefix string) []Item {
	var items []Item
	if ctx.Model != nil {
		scope := ctx.Model.ScopeAt(offset)
		for sc := scope; sc != nil; sc = sc.Parent {
			for _, d := range sc.Decls {
				if semanticSigil(d.Kind) != sigil {
					continue
				}
				if d.Span.Start >= offset {
					continue // not visible before its declaration site (spec §8 invariant 9)
				}
				if !strings.HasPrefix(d.Name, strings.TrimPrefix(prefix, string(sigil))) {
					continue
				}
				items = append(items, Item{Label: string(sigil) + d.Name, Kind: ItemVariable, Detail: d.Declarator})
			}
		}
	}
	for _, v := range perlSpecialVars[sigil] {
		if strings.HasPrefix(v, prefix) {
			items = append(items, Item{Label: v, Kind: ItemVariable, Detail: "special variable", SortText: "~" + v})
		}
	}
	if ctx.Index != nil {
		for _, sym := range ctx.Index.FindSymbols(strings.TrimPrefix(prefix, string(sigil))) {
			if sym.Key.Sigil != sigil {
				continue
			}
			items = append(items, Item{Label: string(sigil) + sym.Key.Name, Kind: ItemVariable, Detail: sym.Key.Package})
		}
	}
	return items
}

func semanticSigil(k semantic.DeclKind) byte {
	switch k {
	case semantic.DeclScalar:
		return '$'
	case semantic.DeclArray:
		return '@'
	case semantic.DeclHash:
		return '%'
	case semantic.DeclSub:
		return '&'
	default:
		return 0
	}
}

func methodCompletions(ctx Context, invocantClass, prefix string) []Item {
	var items []Item
	if invocantClass != "" && ctx.Model != nil {
		for pkg, decls := range ctx.Model.Packages {
			if pkg != invocantClass {
				continue
			}
			for _, d := range decls {
				if d.Kind != semantic.DeclSub {
					continue
				}
				if strings.HasPrefix(d.Name, prefix) {
					items = append(items, Item{Label: d.Name, Kind: ItemMethod, Detail: pkg})
				}
			}
		}
	}
	if len(items) == 0 {
		// Unresolved invocant: fall back to a built-in method-name
		// heuristic list (spec §4.9 "-> trigger... fall back to a
		// built-in method-name heuristic list when unresolved").
		for _, m := range commonMethodHeuristics {
			if strings.HasPrefix(m, prefix) {
				items = append(items, Item{Label: m, Kind: ItemMethod, Detail: "heuristic", SortText: "~" + m})
			}
		}
	}
	return items
}

var commonMethodHeuristics = []string{"new", "clone", "DESTROY", "BUILD", "can", "isa", "DOES"}

func packageMemberCompletions(ctx Context, pkgName, prefix string) []Item {
	var items []Item
	if ctx.Index == nil {
		return items
	}
	for _, sym := range ctx.Index.FindSymbols(prefix) {
		if sym.Key.Package != pkgName {
			continue
		}
		items = append(items, Item{Label: sym.Key.Name, Kind: ItemFunction, Detail: pkgName})
	}
	return items
}

var mooMooseAttrKeys = []string{
	"is", "isa", "default", "required", "lazy", "builder", "reader",
	"writer", "accessor", "predicate", "clearer", "handles",
}

func hasAttributeKeyCompletions(prefix string) []Item {
	var items []Item
	for _, k := range mooMooseAttrKeys {
		if strings.HasPrefix(k, prefix) {
			items = append(items, Item{Label: k, Kind: ItemProperty})
		}
	}
	return items
}

var perlKeywords = []string{
	"my", "our", "local", "state", "sub", "package", "use", "no", "if",
	"elsif", "else", "unless", "while", "until", "for", "foreach", "do",
	"return", "last", "next", "redo", "eval", "given", "when", "default",
	"try", "catch", "finally", "undef", "format", "class", "method",
}

var perlBuiltins = []string{
	"print", "printf", "sprintf", "push", "pop", "shift", "unshift",
	"splice", "keys", "values", "each", "exists", "delete", "defined",
	"scalar", "wantarray", "ref", "bless", "die", "warn", "join", "split",
	"map", "grep", "sort", "reverse", "length", "substr", "index", "lc",
	"uc", "lcfirst", "ucfirst", "chomp", "chop", "open", "close", "read",
}

func defaultCompletions(ctx Context, offset uint32, prefix string) []Item {
	var items []Item
	for _, k := range perlKeywords {
		if strings.HasPrefix(k, prefix) {
			items = append(items, Item{Label: k, Kind: ItemKeyword, SortText: "0" + k})
		}
	}
	for _, b := range perlBuiltins {
		if strings.HasPrefix(b, prefix) {
			items = append(items, Item{Label: b, Kind: ItemFunction, SortText: "1" + b})
		}
	}
	if ctx.Model != nil {
		scope := ctx.Model.ScopeAt(offset)
		for sc := scope; sc != nil; sc = sc.Parent {
			for _, d := range sc.Decls {
				if d.Span.Start >= offset {
					continue
				}
				if !strings.HasPrefix(d.Name, prefix) {
					continue
				}
				items = append(items, Item{Label: d.Name, Kind: ItemVariable, SortText: "2" + d.Name})
			}
		}
	}
	if ctx.Index != nil {
		for _, sym := range ctx.Index.FindSymbols(prefix) {
			items = append(items, Item{Label: sym.Key.Name, Kind: ItemFunction, Detail: sym.Key.Package, SortText: "3" + sym.Key.Name})
		}
	}
	return items
}
