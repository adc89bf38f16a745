// Package workspace implements the cross-file symbol index of spec
// §4.8: a {pkg,name,sigil,kind}-keyed table of definitions and
// references, updated per file and consulted by the query layer
// alongside the per-file semantic model.
package workspace

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/perl-lsp-core/parser"
	"github.com/aledsdavies/perl-lsp-core/semantic"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// SymbolKind classifies an indexed symbol.
type SymbolKind int

const (
	KindSub SymbolKind = iota
	KindVar
	KindPack
)

// Key identifies a symbol in the workspace index, spec §4.8: {pkg,
// name, sigil, kind}. Sigil is 0 for subs/packages.
type Key struct {
	Package string
	Name    string
	Sigil   byte
	Kind    SymbolKind
}

// Location is a byte-span reference into a URI-identified file.
type Location struct {
	URI  string
	Span span.Span
}

// Symbol is one entry returned by FindSymbols, enough for a completion
// item or an outline row.
type Symbol struct {
	Key Key
	Def Location
}

type fileEntry struct {
	defs []entryDef
	refs []entryRef
}

type entryDef struct {
	key Key
	loc Location
}

type entryRef struct {
	key Key
	loc Location
}

// Index is the in-memory, per-workspace cross-file symbol table (spec
// §4.8 / §6: "no on-disk format is produced by the core"). Safe for
// concurrent use: a reader-writer lock guards the maps, and updates
// replace one file's slice atomically (spec §5).
type Index struct {
	mu       sync.RWMutex
	files    map[string]*fileEntry         // uri -> this file's defs/refs
	defs     map[Key][]Location            // key -> every def site across files
	bySigilN map[byte]map[string][]Key     // sigil -> name -> keys, for FindSymbols prefix/fuzzy search
}

// New constructs an empty Index.
func New() *Index {
	return &Index{
		files:    make(map[string]*fileEntry),
		defs:     make(map[Key][]Location),
		bySigilN: make(map[byte]map[string][]Key),
	}
}

// IndexFile parses text, builds its semantic model, and upserts the
// file's definitions and references atomically, replacing whatever was
// previously indexed for uri (spec §4.8 index_file).
func (ix *Index) IndexFile(uri string, text []byte) {
	prog, _ := parser.Parse(text)
	model := semantic.Build(prog)

	fe := &fileEntry{}
	for pkgName, decls := range model.Packages {
		for _, d := range decls {
			k := Key{Package: pkgName, Name: d.Name, Sigil: sigilOf(d.Kind), Kind: toSymbolKind(d.Kind)}
			fe.defs = append(fe.defs, entryDef{key: k, loc: Location{URI: uri, Span: d.Span}})
		}
	}
	for _, r := range model.References {
		k := Key{Package: r.Package, Name: r.Name, Sigil: r.Sigil, Kind: KindSub}
		if r.Sigil != 0 {
			k.Kind = KindVar
		}
		fe.refs = append(fe.refs, entryRef{key: k, loc: Location{URI: uri, Span: r.Span}})
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeFileLocked(uri)
	ix.files[uri] = fe
	for _, d := range fe.defs {
		ix.defs[d.key] = append(ix.defs[d.key], d.loc)
		if ix.bySigilN[d.key.Sigil] == nil {
			ix.bySigilN[d.key.Sigil] = make(map[string][]Key)
		}
		ix.bySigilN[d.key.Sigil][d.key.Name] = append(ix.bySigilN[d.key.Sigil][d.key.Name], d.key)
	}
}

// RemoveFile drops a file's contribution to the index (spec §3
// Lifecycles: "Workspace index entries ... removed on file delete").
func (ix *Index) RemoveFile(uri string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeFileLocked(uri)
	delete(ix.files, uri)
}

func (ix *Index) removeFileLocked(uri string) {
	old, ok := ix.files[uri]
	if !ok {
		return
	}
	for _, d := range old.defs {
		ix.defs[d.key] = removeLocation(ix.defs[d.key], uri)
		if len(ix.defs[d.key]) == 0 {
			delete(ix.defs, d.key)
		}
		if names, ok := ix.bySigilN[d.key.Sigil]; ok {
			names[d.key.Name] = removeKey(names[d.key.Name], d.key)
		}
	}
}

func removeLocation(locs []Location, uri string) []Location {
	out := locs[:0]
	for _, l := range locs {
		if l.URI != uri {
			out = append(out, l)
		}
	}
	return out
}

func removeKey(keys []Key, k Key) []Key {
	out := keys[:0]
	for _, x := range keys {
		if x != k {
			out = append(out, x)
		}
	}
	return out
}

func sigilOf(k semantic.DeclKind) byte {
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

func toSymbolKind(k semantic.DeclKind) SymbolKind {
	switch k {
	case semantic.DeclSub:
		return KindSub
	case semantic.DeclPackage:
		return KindPack
	default:
		return KindVar
	}
}

// FindDef returns the first definition location for an exact key,
// preferring the package-qualified match (spec §4.8: "exact key match,
// pkg-qualified first" — since Key already carries Package, this is
// simply "the key's own package", with no further fallback needed).
func (ix *Index) FindDef(key Key) (Location, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	locs, ok := ix.defs[key]
	if !ok || len(locs) == 0 {
		return Location{}, false
	}
	return locs[0], true
}

// FindDefinition is the convenience form taking a fully-qualified
// "Package::name" string and a sigil/kind.
func (ix *Index) FindDefinition(qualifiedName string, sigil byte, kind SymbolKind) (Location, bool) {
	pkg, name := splitQualified(qualifiedName)
	return ix.FindDef(Key{Package: pkg, Name: name, Sigil: sigil, Kind: kind})
}

func splitQualified(s string) (pkg, name string) {
	i := strings.LastIndex(s, "::")
	if i < 0 {
		return "main", s
	}
	return s[:i], s[i+2:]
}

// FindSymbols returns symbols whose name matches prefix, exact-prefix
// matches first (sorted), then fuzzy-ranked matches as a fallback for
// typo tolerance (SPEC_FULL.md DOMAIN STACK: github.com/lithammer/
// fuzzysearch, the same library the teacher's planner.go uses for
// "did you mean" suggestions).
func (ix *Index) FindSymbols(prefix string) []Symbol {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var exact []Symbol
	var fuzzyMatches []Symbol
	seen := make(map[Key]bool)

	for _, names := range ix.bySigilN {
		for name, keys := range names {
			for _, k := range keys {
				if seen[k] {
					continue
				}
				loc, ok := ix.defs[k]
				if !ok || len(loc) == 0 {
					continue
				}
				sym := Symbol{Key: k, Def: loc[0]}
				if strings.HasPrefix(name, prefix) {
					exact = append(exact, sym)
					seen[k] = true
				} else if prefix != "" && fuzzy.MatchFold(prefix, name) {
					fuzzyMatches = append(fuzzyMatches, sym)
					seen[k] = true
				}
			}
		}
	}

	sort.Slice(exact, func(i, j int) bool { return exact[i].Key.Name < exact[j].Key.Name })
	sort.Slice(fuzzyMatches, func(i, j int) bool { return fuzzyMatches[i].Key.Name < fuzzyMatches[j].Key.Name })
	return append(exact, fuzzyMatches...)
}
