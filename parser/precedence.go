package parser

import "github.com/aledsdavies/perl-lsp-core/lexer"

// precedence is the standard Perl operator precedence table (source:
// perlop's "Operator Precedence and Associativity" table), from lowest
// to highest. Not every tier is reachable from every expression
// position (e.g. the word operators `and`/`or` bind looser than `=`;
// they are not in this table and an expression stops at them, while
// `not` is parsed as a prefix operator), but the numeric ordering below matches
// perlop exactly so future additions slot into the right tier.
type assoc int

const (
	assocLeft assoc = iota
	assocRight
	assocNone
	assocChain // non-associative comparison chains (==, eq, etc. do not chain in Perl, but named for clarity)
)

type opInfo struct {
	prec  int
	assoc assoc
}

// binaryOps holds the precedence/associativity for a binary operator
// token encountered inside parseExpression's core climb (the tiers
// above "not"/"and"/"or" in perlop — those low-precedence word
// operators are not in this table).
var binaryOps = map[string]opInfo{
	"**":  {14, assocRight},
	"=~":  {13, assocLeft},
	"!~":  {13, assocLeft},
	"*":   {11, assocLeft},
	"/":   {11, assocLeft},
	"%":   {11, assocLeft},
	"x":   {11, assocLeft},
	"+":   {10, assocLeft},
	"-":   {10, assocLeft},
	".":   {10, assocLeft},
	"<<":  {9, assocLeft},
	">>":  {9, assocLeft},
	"<":   {7, assocChain},
	">":   {7, assocChain},
	"<=":  {7, assocChain},
	">=":  {7, assocChain},
	"lt":  {7, assocChain},
	"gt":  {7, assocChain},
	"le":  {7, assocChain},
	"ge":  {7, assocChain},
	"==":  {6, assocChain},
	"!=":  {6, assocChain},
	"<=>": {6, assocChain},
	"eq":  {6, assocChain},
	"ne":  {6, assocChain},
	"cmp": {6, assocChain},
	"&":   {5, assocLeft},
	"|":   {4, assocLeft},
	"^":   {4, assocLeft},
	"&&":  {3, assocLeft},
	"||":  {2, assocLeft},
	"//":  {2, assocLeft},
	"..":  {1, assocNone},
	"...": {1, assocNone},
}

// assignmentOps is every token text that forms a (possibly compound)
// assignment; these are right-associative and sit just below "?:" in
// perlop's table.
var assignmentOps = map[lexer.Kind]bool{
	lexer.Assign: true, lexer.PlusAssign: true, lexer.MinusAssign: true,
	lexer.StarAssign: true, lexer.SlashAssign: true, lexer.PercentAssign: true,
	lexer.DotAssign: true, lexer.OrAssign: true, lexer.AndAssign: true,
	lexer.DotDotOrAssign: true,
}
