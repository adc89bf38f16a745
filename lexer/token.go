package lexer

import "github.com/aledsdavies/perl-lsp-core/span"

// Kind identifies the lexical class of a Token. Grouped the way the
// teacher's TokenType iota block is grouped (structure, then literals,
// then operators), generalized to Perl's surface lexicon (spec §4.1).
type Kind int

const (
	EOF Kind = iota
	Illegal

	// Trivia
	Newline
	Comment
	Pod // not emitted: =pod ... =cut blocks are skipped as trivia

	// Structure
	Semicolon
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	FatArrow   // =>
	Arrow      // ->
	DoubleColon
	Colon
	Question
	Dollar
	At
	Percent
	Amp
	Star // also the typeglob sigil
	Backslash

	// Identifiers & keywords
	Identifier
	Keyword

	// Literals
	Number
	String          // simple '...'/"..." literal, materialized text in Token.Text
	Heredoc         // <<TAG ... TAG, materialized body in Token.Text
	QuoteWords      // qw(...)
	RegexBody       // m/.../, qr/.../ body text between delimiters
	MatchBody       // match operand of =~ m//
	SubstBody       // s/// body (pattern + replacement, delimiter-joined)
	TranslitBody    // tr/// (y///) body
	FormatBody      // format NAME = ... . body
	DataBody        // __DATA__/__END__ trailing body

	// Operators (multi-char handled explicitly; single-char operators
	// reuse Plus/Minus/etc. below)
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	DotAssign
	OrAssign
	AndAssign
	DotDotOrAssign // //=
	Plus
	Minus
	Slash
	Dot
	DotDot
	DotDotDot
	StarStar
	Bang
	Tilde
	Pipe
	Caret
	ShiftLeft
	ShiftRight
	Eq
	Ne
	Lt
	Gt
	Le
	Ge
	Spaceship // <=>
	AndAnd
	OrOr
	DotDotOr // //
	MatchBind    // =~
	NotMatchBind // !~
	Increment
	Decrement
	Diamond // <>  or <FH> / <$fh>

	// Unknown bytes
	Unknown
)

// Token is {kind, text, start, end} per spec §3/§4.1: byte spans only,
// no line/column — those are derived on demand via span.LineIndex or,
// for protocol coordinates, lspcoord.
type Token struct {
	Kind Kind
	Text string
	Span span.Span
	// HasSpaceBefore is a parsing hint (not semantic data), same role as
	// the teacher's Token.HasSpaceBefore: lets the parser distinguish
	// "$x ++$y" from "$x++ $y" and similar adjacency-sensitive forms
	// without re-scanning source.
	HasSpaceBefore bool
	// HeredocInterpolates/HeredocIndented are only meaningful on a
	// Heredoc-kind token: whether the body interpolates ($x, @a) and
	// whether it was introduced with <<~TAG (common leading whitespace
	// stripped).
	HeredocInterpolates bool
	HeredocIndented     bool
}

func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}

var kindNames = map[Kind]string{
	EOF: "EOF", Illegal: "ILLEGAL", Newline: "NEWLINE", Comment: "COMMENT",
	Pod: "POD", Semicolon: "SEMICOLON", LParen: "LPAREN", RParen: "RPAREN",
	LBrace: "LBRACE", RBrace: "RBRACE", LBracket: "LBRACKET", RBracket: "RBRACKET",
	Comma: "COMMA", FatArrow: "FATARROW", Arrow: "ARROW", DoubleColon: "DOUBLECOLON",
	Colon: "COLON", Question: "QUESTION", Dollar: "DOLLAR", At: "AT", Percent: "PERCENT",
	Amp: "AMP", Star: "STAR", Backslash: "BACKSLASH", Identifier: "IDENTIFIER",
	Keyword: "KEYWORD", Number: "NUMBER", String: "STRING", Heredoc: "HEREDOC",
	QuoteWords: "QUOTEWORDS", RegexBody: "REGEXBODY", MatchBody: "MATCHBODY",
	SubstBody: "SUBSTBODY", TranslitBody: "TRANSLITBODY", FormatBody: "FORMATBODY",
	DataBody: "DATABODY", Assign: "ASSIGN", PlusAssign: "PLUSASSIGN",
	MinusAssign: "MINUSASSIGN", StarAssign: "STARASSIGN", SlashAssign: "SLASHASSIGN",
	PercentAssign: "PERCENTASSIGN", DotAssign: "DOTASSIGN", OrAssign: "ORASSIGN",
	AndAssign: "ANDASSIGN", DotDotOrAssign: "DEFORASSIGN", Plus: "PLUS", Minus: "MINUS",
	Slash: "SLASH", Dot: "DOT", DotDot: "DOTDOT", DotDotDot: "DOTDOTDOT",
	StarStar: "STARSTAR", Bang: "BANG", Tilde: "TILDE", Pipe: "PIPE", Caret: "CARET",
	ShiftLeft: "SHIFTLEFT", ShiftRight: "SHIFTRIGHT", Eq: "EQ", Ne: "NE", Lt: "LT",
	Gt: "GT", Le: "LE", Ge: "GE", Spaceship: "SPACESHIP", AndAnd: "ANDAND", OrOr: "OROR",
	DotDotOr: "DEFOR", MatchBind: "MATCHBIND", NotMatchBind: "NOTMATCHBIND",
	Increment: "INCREMENT", Decrement: "DECREMENT", Diamond: "DIAMOND", Unknown: "UNKNOWN",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN_KIND"
}

// Keywords maps reserved words to Kind Keyword; the specific word is
// still available via Token.Text, so the parser switches on Text for
// keyword-specific behavior. Word operators (eq, ne, lt, gt, le, ge,
// cmp, and, or, not, xor, x) are lexed as Keyword too — Perl treats them
// as low-precedence operators spelled as words.
var Keywords = map[string]bool{
	"my": true, "our": true, "local": true, "state": true,
	"sub": true, "package": true, "use": true, "no": true,
	"if": true, "elsif": true, "else": true, "unless": true,
	"while": true, "until": true, "for": true, "foreach": true,
	"do": true, "return": true, "last": true, "next": true, "redo": true,
	"BEGIN": true, "END": true, "CHECK": true, "INIT": true, "UNITCHECK": true,
	"eval": true, "given": true, "when": true, "default": true,
	"try": true, "catch": true, "finally": true,
	"undef": true, "qw": true, "format": true, "class": true, "method": true,
	"tie": true, "untie": true,
	"eq": true, "ne": true, "lt": true, "gt": true, "le": true, "ge": true,
	"cmp": true, "and": true, "or": true, "not": true, "xor": true, "x": true,
}

// SingleCharTokens maps a single ASCII byte to its Kind when it forms a
// complete token on its own (subject to two-char lookahead upgrades
// performed by the lexer, mirroring the teacher's SingleCharTokens +
// TwoCharTokens split).
var SingleCharTokens = map[byte]Kind{
	';': Semicolon, '(': LParen, ')': RParen, '{': LBrace, '}': RBrace,
	'[': LBracket, ']': RBracket, ',': Comma, ':': Colon, '?': Question,
	'$': Dollar, '@': At, '%': Percent, '&': Amp, '*': Star, '\\': Backslash,
	'+': Plus, '-': Minus, '/': Slash, '.': Dot, '!': Bang, '~': Tilde,
	'|': Pipe, '^': Caret, '=': Assign, '<': Lt, '>': Gt, '\n': Newline,
}
