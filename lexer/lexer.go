package lexer

import (
	"log/slog"
	"os"
	"strings"

	"github.com/aledsdavies/perl-lsp-core/span"
)

// ASCII classification tables, built once at init time the way the
// teacher's runtime/lexer/lexer.go builds its isWhitespace/isLetter/
// isDigit tables — a flat [128]bool array is faster than a switch for
// the hot classification path.
var (
	isWhitespace [128]bool
	isLetter     [128]bool
	isDigit      [128]bool
	isIdentStart [128]bool
	isIdentPart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f'
		isLetter[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = isLetter[i]
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}
}

// Mode is the lexer's current scanning mode. Perl's grammar is not
// context-free at the lexical level (heredocs, format bodies, the data
// section, and regex/quote-like operators all change what "the next
// token" means), so like the teacher's three-mode system the lexer
// tracks an explicit mode and switches on delimiters rather than trying
// to express all of this in a single regular grammar.
type Mode int

const (
	DefaultMode Mode = iota
	HeredocBodyMode
	FormatBodyMode
	DataSectionMode
	RegexBodyMode
	QwBodyMode
)

// pendingHeredoc records a heredoc whose terminator has been seen on the
// current logical line but whose body starts on the following line —
// the classic "heredoc is scheduled, not lexed in place" behavior.
type pendingHeredoc struct {
	tag         string
	interpolate bool
	indented    bool // <<~TAG
}

// Lexer is a byte-offset, mode-switching scanner over a single Perl
// source buffer. It never fails: unrecognized bytes become Unknown
// tokens rather than scanner errors, matching the "parser never throws"
// contract the rest of this module follows.
type Lexer struct {
	src []byte
	pos int // next unread byte
	ch  byte

	mode Mode

	logger *slog.Logger

	// heredocs scheduled on the current line, materialized the next
	// time the lexer crosses a newline in DefaultMode.
	scheduled []pendingHeredoc

	// queue holds tokens already scanned but not yet returned by Next —
	// used for heredoc bodies, which are materialized in a batch once
	// their introducing newline is crossed, same role as the teacher's
	// tokenQueue for multi-token scenarios.
	queue []Token

	// dataSection becomes true once __DATA__ or __END__ has been seen;
	// from that point the remainder of the file is a single DataBody
	// token (spec §4.1).
	dataSection bool
}

// New creates a Lexer over src. src is not copied; callers must not
// mutate it while tokens still reference its bytes.
func New(src []byte) *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("PERLLS_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	l := &Lexer{src: src, mode: DefaultMode, logger: logger}
	l.readByte()
	return l
}

func (l *Lexer) readByte() {
	if l.pos >= len(l.src) {
		l.ch = 0
		return
	}
	l.ch = l.src[l.pos]
	l.pos++
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) offset() uint32 {
	if l.pos == 0 {
		return 0
	}
	if l.atEOF() {
		return uint32(len(l.src))
	}
	return uint32(l.pos - 1)
}

func (l *Lexer) atEOF() bool {
	return l.ch == 0 && l.pos >= len(l.src)
}

// Next scans and returns the next token, advancing the lexer.
func (l *Lexer) Next() Token {
	if len(l.queue) > 0 {
		t := l.queue[0]
		l.queue = l.queue[1:]
		return t
	}

	if l.mode == DataSectionMode && !l.atEOF() {
		return l.lexDataBody()
	}

	hadSpace := l.skipWhitespaceAndComments()

	if l.atEOF() {
		return Token{Kind: EOF, Span: span.Span{Start: l.offset(), End: l.offset()}, HasSpaceBefore: hadSpace}
	}

	start := l.offset()

	var tok Token
	switch {
	case l.ch == '\n':
		l.readByte()
		tok = Token{Kind: Newline, Span: span.Span{Start: start, End: l.offset()}}
		l.materializeScheduledHeredocs()
	case isIdentStart[l.ch]:
		tok = l.lexIdentOrKeyword(start)
	case isDigit[l.ch]:
		tok = l.lexNumber(start)
	case l.ch == '$' || l.ch == '@' || l.ch == '%' || l.ch == '&' || l.ch == '*':
		tok = l.lexSigilOrOperator(start)
	case l.ch == '\'' || l.ch == '"' || l.ch == '`':
		tok = l.lexQuoted(start, l.ch)
	case l.ch == '<':
		tok = l.lexLessThan(start)
	default:
		tok = l.lexOperatorOrPunct(start)
	}

	tok.HasSpaceBefore = hadSpace
	return tok
}

// skipWhitespaceAndComments advances past spaces/tabs and '#' comments
// (but not newlines, which are significant for statement modifiers and
// heredoc scheduling and are returned as Newline tokens). POD blocks
// (=word ... =cut) are swallowed here too rather than surfaced as
// separate tokens — spec treats POD as trivia attached to whichever node
// follows.
func (l *Lexer) skipWhitespaceAndComments() (hadSpace bool) {
	for {
		switch {
		case l.ch < 128 && isWhitespace[l.ch]:
			hadSpace = true
			l.readByte()
		case l.ch == '#':
			hadSpace = true
			for l.ch != '\n' && !l.atEOF() {
				l.readByte()
			}
		case l.ch == '=' && l.atLineStart() && isLetter[l.peekByte()]:
			hadSpace = true
			l.skipPodBlock()
		default:
			return hadSpace
		}
	}
}

func (l *Lexer) atLineStart() bool {
	if l.pos <= 1 {
		return true
	}
	return l.src[l.pos-2] == '\n'
}

func (l *Lexer) skipPodBlock() {
	for !l.atEOF() {
		lineStart := l.pos - 1
		for !l.atEOF() && l.ch != '\n' {
			l.readByte()
		}
		line := string(l.src[lineStart : l.pos-1])
		if strings.HasPrefix(line, "=cut") {
			l.readByte()
			return
		}
		if !l.atEOF() {
			l.readByte()
		}
	}
}

func (l *Lexer) lexIdentOrKeyword(start uint32) Token {
	for (l.ch < 128 && isIdentPart[l.ch]) || (l.ch == ':' && l.peekByte() == ':') {
		if l.ch == ':' {
			l.readByte()
			l.readByte()
			continue
		}
		l.readByte()
	}
	text := string(l.src[start:l.offset()])

	if text == "__DATA__" || text == "__END__" {
		l.dataSection = true
		l.mode = DataSectionMode
	}
	if isQuoteDelimiter(l.ch) {
		switch text {
		case "qw":
			return l.lexQuoteWords(start)
		case "q", "qq", "qx":
			return l.lexSingleQuoteLike(start)
		case "m", "qr":
			return l.lexRegexLike(start)
		case "s":
			return l.lexTwoPartQuoteLike(start, SubstBody)
		case "tr", "y":
			return l.lexTwoPartQuoteLike(start, TranslitBody)
		}
	}

	kind := Identifier
	if Keywords[text] {
		kind = Keyword
	}
	return Token{Kind: kind, Text: text, Span: span.Span{Start: start, End: l.offset()}}
}

func (l *Lexer) lexNumber(start uint32) Token {
	if l.ch == '0' && (l.peekByte() == 'x' || l.peekByte() == 'X') {
		l.readByte()
		l.readByte()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readByte()
		}
		return Token{Kind: Number, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
	}
	for isDigit[l.ch] || l.ch == '_' {
		l.readByte()
	}
	if l.ch == '.' && isDigit[l.peekByte()] {
		l.readByte()
		for isDigit[l.ch] || l.ch == '_' {
			l.readByte()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.pos
		saveCh := l.ch
		l.readByte()
		if l.ch == '+' || l.ch == '-' {
			l.readByte()
		}
		if isDigit[l.ch] {
			for isDigit[l.ch] {
				l.readByte()
			}
		} else {
			l.pos = save
			l.ch = saveCh
		}
	}
	return Token{Kind: Number, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

func isHexDigit(ch byte) bool {
	return isDigit[ch] || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// lexSigilOrOperator handles $, @, %, &, * which are either variable
// sigils (followed by an identifier/brace/sigil) or, in operator
// position, the arithmetic/modulo/bitwise-and/glob operators. $ and @
// always come out as the single sigil token; %, & and * do too unless
// the next bytes form %=, &&, &&=, ** or *=, which are emitted as one
// operator token. The parser disambiguates using grammatical position.
func (l *Lexer) lexSigilOrOperator(start uint32) Token {
	ch := l.ch
	l.readByte()

	switch ch {
	case '$', '@':
		kind := Dollar
		if ch == '@' {
			kind = At
		}
		return Token{Kind: kind, Text: string(ch), Span: span.Span{Start: start, End: l.offset()}}
	case '%':
		if l.ch == '=' {
			l.readByte()
			return Token{Kind: PercentAssign, Text: "%=", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Percent, Text: "%", Span: span.Span{Start: start, End: l.offset()}}
	case '&':
		if l.ch == '&' {
			l.readByte()
			if l.ch == '=' {
				l.readByte()
				return Token{Kind: AndAssign, Text: "&&=", Span: span.Span{Start: start, End: l.offset()}}
			}
			return Token{Kind: AndAnd, Text: "&&", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Amp, Text: "&", Span: span.Span{Start: start, End: l.offset()}}
	case '*':
		if l.ch == '*' {
			l.readByte()
			return Token{Kind: StarStar, Text: "**", Span: span.Span{Start: start, End: l.offset()}}
		}
		if l.ch == '=' {
			l.readByte()
			return Token{Kind: StarAssign, Text: "*=", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Star, Text: "*", Span: span.Span{Start: start, End: l.offset()}}
	}
	return Token{Kind: Unknown, Text: string(ch), Span: span.Span{Start: start, End: l.offset()}}
}

// lexQuoted scans a '...'/"..."/`...` literal. Interpolation is not
// expanded here — the parser walks the raw text for $/@ sigils when it
// needs StringPart structure, deferring interpolation analysis the same
// way the teacher's lexer defers decorator-string interpolation.
func (l *Lexer) lexQuoted(start uint32, quote byte) Token {
	l.readByte() // consume opening quote
	for !l.atEOF() && l.ch != quote {
		if l.ch == '\\' && !l.atEOF() {
			l.readByte()
		}
		l.readByte()
	}
	if l.ch == quote {
		l.readByte()
	}
	return Token{Kind: String, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

// lexQuoteWords scans qw<delim> ... <delim-close> into a single
// QuoteWords token; the parser splits Text on whitespace to build the
// element list. Supports the four paired delimiters plus any
// punctuation delimiter used unpaired (spec §4.1).
func (l *Lexer) lexQuoteWords(start uint32) Token {
	open := l.ch
	closeCh := pairedDelimiter(open)
	depth := 1
	l.readByte()
	for !l.atEOF() {
		if l.ch == open && open != closeCh {
			depth++
		} else if l.ch == closeCh {
			depth--
			if depth == 0 {
				l.readByte()
				break
			}
		}
		l.readByte()
	}
	return Token{Kind: QuoteWords, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

func pairedDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	default:
		return open
	}
}

// isQuoteDelimiter reports whether ch can open a quote-like operator's
// delimited part (q, qq, qx, m, qr, s, tr, y). Word characters and the
// punctuation that would make common code ambiguous (e.g. "s = foo")
// are excluded.
func isQuoteDelimiter(ch byte) bool {
	if ch == 0 || ch >= 128 {
		return false
	}
	if isIdentPart[ch] {
		return false
	}
	switch ch {
	case ' ', '\t', '\r', '\n', ';', ',', ')', ']', '}', '=':
		return false
	}
	return true
}

// skipDelimitedPart consumes one delimited chunk starting at the
// opening delimiter (l.ch == open), honoring backslash escapes and
// nesting for the four paired bracket delimiters.
func (l *Lexer) skipDelimitedPart(open byte) {
	closeCh := pairedDelimiter(open)
	depth := 1
	l.readByte()
	for !l.atEOF() {
		if l.ch == '\\' {
			l.readByte()
			if !l.atEOF() {
				l.readByte()
			}
			continue
		}
		if open != closeCh && l.ch == open {
			depth++
		} else if l.ch == closeCh {
			depth--
			if depth == 0 {
				l.readByte()
				return
			}
		}
		l.readByte()
	}
}

// skipUntilDelimiter consumes bytes up to and including closeCh, for the
// second part of a same-delimiter two-part operator (s/.../.../) whose
// opening delimiter is the first part's closing delimiter and so is
// already consumed by the time this is called.
func (l *Lexer) skipUntilDelimiter(closeCh byte) {
	for !l.atEOF() {
		if l.ch == '\\' {
			l.readByte()
			if !l.atEOF() {
				l.readByte()
			}
			continue
		}
		if l.ch == closeCh {
			l.readByte()
			return
		}
		l.readByte()
	}
}

func (l *Lexer) skipFlags() {
	for l.ch < 128 && isLetter[l.ch] {
		l.readByte()
	}
}

// lexSingleQuoteLike scans q/qq/qx<delim>...<delim>. Whether the body
// interpolates depends on which operator name introduced it (q: no,
// qq/qx: yes); that distinction is read from Token.Text's prefix by
// whatever consumes the token rather than tracked separately here.
func (l *Lexer) lexSingleQuoteLike(start uint32) Token {
	l.skipDelimitedPart(l.ch)
	return Token{Kind: String, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

// lexRegexLike scans m/qr<delim>...<delim><flags>.
func (l *Lexer) lexRegexLike(start uint32) Token {
	l.skipDelimitedPart(l.ch)
	l.skipFlags()
	return Token{Kind: RegexBody, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

// lexTwoPartQuoteLike scans s/tr/y's two delimited parts plus trailing
// flags. Bracket delimiters (s{...}{...}) give the second part its own
// opening delimiter, possibly after whitespace; any other delimiter
// (s/.../.../)  is reused, so the first part's close doubles as the
// second part's open.
func (l *Lexer) lexTwoPartQuoteLike(start uint32, kind Kind) Token {
	open := l.ch
	closeCh := pairedDelimiter(open)
	l.skipDelimitedPart(open)
	if open != closeCh {
		for !l.atEOF() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\n') {
			l.readByte()
		}
		if !l.atEOF() {
			l.skipDelimitedPart(l.ch)
		}
	} else {
		l.skipUntilDelimiter(closeCh)
	}
	l.skipFlags()
	return Token{Kind: kind, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

// lexLessThan disambiguates <, <<, <=, <=>, the diamond operator <>/<FH>,
// and heredoc introducers <<TAG / <<"TAG" / <<'TAG' / <<~TAG.
func (l *Lexer) lexLessThan(start uint32) Token {
	l.readByte() // consume '<'

	if l.ch == '<' && (isIdentStart[l.peekByte()] || l.peekByte() == '"' || l.peekByte() == '\'' || l.peekByte() == '~') {
		return l.lexHeredocIntroducer(start)
	}
	if l.ch == '>' {
		l.readByte()
		return Token{Kind: Diamond, Text: "<>", Span: span.Span{Start: start, End: l.offset()}}
	}
	if l.ch == '=' {
		l.readByte()
		if l.ch == '>' {
			l.readByte()
			return Token{Kind: Spaceship, Text: "<=>", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Le, Text: "<=", Span: span.Span{Start: start, End: l.offset()}}
	}
	if l.ch == '<' {
		l.readByte()
		return Token{Kind: ShiftLeft, Text: "<<", Span: span.Span{Start: start, End: l.offset()}}
	}
	return Token{Kind: Lt, Text: "<", Span: span.Span{Start: start, End: l.offset()}}
}

func (l *Lexer) lexHeredocIntroducer(start uint32) Token {
	l.readByte() // consume second '<'
	indented := false
	if l.ch == '~' {
		indented = true
		l.readByte()
	}
	interpolate := true
	var tag strings.Builder
	switch l.ch {
	case '"':
		l.readByte()
		for l.ch != '"' && !l.atEOF() {
			tag.WriteByte(l.ch)
			l.readByte()
		}
		l.readByte()
	case '\'':
		interpolate = false
		l.readByte()
		for l.ch != '\'' && !l.atEOF() {
			tag.WriteByte(l.ch)
			l.readByte()
		}
		l.readByte()
	default:
		for isIdentPart[l.ch] {
			tag.WriteByte(l.ch)
			l.readByte()
		}
	}
	l.scheduled = append(l.scheduled, pendingHeredoc{tag: tag.String(), interpolate: interpolate, indented: indented})
	return Token{Kind: Heredoc, Text: "<<" + tag.String(), Span: span.Span{Start: start, End: l.offset()}}
}

// materializeScheduledHeredocs consumes the bodies of any heredocs
// scheduled on the line just ended, in the order they were introduced,
// terminating each at a line equal to (or, if indented, equal after
// leading-whitespace-strip of) its tag.
func (l *Lexer) materializeScheduledHeredocs() {
	for len(l.scheduled) > 0 {
		h := l.scheduled[0]
		l.scheduled = l.scheduled[1:]
		bodyStart := l.offset()
		bodyEnd := bodyStart
		for !l.atEOF() {
			lineStart := l.pos - 1
			for !l.atEOF() && l.ch != '\n' {
				l.readByte()
			}
			line := string(l.src[lineStart : l.pos-1])
			terminator := line
			if h.indented {
				terminator = strings.TrimLeft(line, " \t")
			}
			if terminator == h.tag {
				bodyEnd = uint32(lineStart)
				if !l.atEOF() {
					l.readByte()
				}
				break
			}
			if !l.atEOF() {
				l.readByte()
			}
			bodyEnd = l.offset()
		}
		body := string(l.src[bodyStart:bodyEnd])
		l.queue = append(l.queue, Token{
			Kind:                Heredoc,
			Text:                body,
			Span:                span.Span{Start: bodyStart, End: bodyEnd},
			HeredocInterpolates: h.interpolate,
			HeredocIndented:     h.indented,
		})
	}
}

// lexDataBody consumes the remainder of the file as a single DataBody
// token once __DATA__/__END__ has been seen. __DATA__/__END__ must be
// alone on its line, so the rest of that line (just the terminating
// newline, ordinarily) is skipped before the body proper starts.
func (l *Lexer) lexDataBody() Token {
	for !l.atEOF() && l.ch != '\n' {
		l.readByte()
	}
	if !l.atEOF() {
		l.readByte()
	}
	start := l.offset()
	for !l.atEOF() {
		l.readByte()
	}
	return Token{Kind: DataBody, Text: string(l.src[start:l.offset()]), Span: span.Span{Start: start, End: l.offset()}}
}

func (l *Lexer) lexOperatorOrPunct(start uint32) Token {
	ch := l.ch
	l.readByte()

	two := func(next byte, kind Kind, text string) (Token, bool) {
		if l.ch == next {
			l.readByte()
			return Token{Kind: kind, Text: text, Span: span.Span{Start: start, End: l.offset()}}, true
		}
		return Token{}, false
	}

	switch ch {
	case '=':
		if l.ch == '=' {
			l.readByte()
			return Token{Kind: Eq, Text: "==", Span: span.Span{Start: start, End: l.offset()}}
		}
		if l.ch == '~' {
			l.readByte()
			return Token{Kind: MatchBind, Text: "=~", Span: span.Span{Start: start, End: l.offset()}}
		}
		if l.ch == '>' {
			l.readByte()
			return Token{Kind: FatArrow, Text: "=>", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Assign, Text: "=", Span: span.Span{Start: start, End: l.offset()}}
	case '!':
		if l.ch == '=' {
			l.readByte()
			return Token{Kind: Ne, Text: "!=", Span: span.Span{Start: start, End: l.offset()}}
		}
		if l.ch == '~' {
			l.readByte()
			return Token{Kind: NotMatchBind, Text: "!~", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Bang, Text: "!", Span: span.Span{Start: start, End: l.offset()}}
	case '>':
		if l.ch == '=' {
			l.readByte()
			return Token{Kind: Ge, Text: ">=", Span: span.Span{Start: start, End: l.offset()}}
		}
		if l.ch == '>' {
			l.readByte()
			return Token{Kind: ShiftRight, Text: ">>", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Gt, Text: ">", Span: span.Span{Start: start, End: l.offset()}}
	case '-':
		if t, ok := two('>', Arrow, "->"); ok {
			return t
		}
		if t, ok := two('=', MinusAssign, "-="); ok {
			return t
		}
		if t, ok := two('-', Decrement, "--"); ok {
			return t
		}
		return Token{Kind: Minus, Text: "-", Span: span.Span{Start: start, End: l.offset()}}
	case '+':
		if t, ok := two('=', PlusAssign, "+="); ok {
			return t
		}
		if t, ok := two('+', Increment, "++"); ok {
			return t
		}
		return Token{Kind: Plus, Text: "+", Span: span.Span{Start: start, End: l.offset()}}
	case '/':
		if l.ch == '/' {
			l.readByte()
			if l.ch == '=' {
				l.readByte()
				return Token{Kind: DotDotOrAssign, Text: "//=", Span: span.Span{Start: start, End: l.offset()}}
			}
			return Token{Kind: DotDotOr, Text: "//", Span: span.Span{Start: start, End: l.offset()}}
		}
		if t, ok := two('=', SlashAssign, "/="); ok {
			return t
		}
		return Token{Kind: Slash, Text: "/", Span: span.Span{Start: start, End: l.offset()}}
	case '.':
		if l.ch == '.' {
			l.readByte()
			if l.ch == '.' {
				l.readByte()
				return Token{Kind: DotDotDot, Text: "...", Span: span.Span{Start: start, End: l.offset()}}
			}
			return Token{Kind: DotDot, Text: "..", Span: span.Span{Start: start, End: l.offset()}}
		}
		if t, ok := two('=', DotAssign, ".="); ok {
			return t
		}
		return Token{Kind: Dot, Text: ".", Span: span.Span{Start: start, End: l.offset()}}
	case ':':
		if t, ok := two(':', DoubleColon, "::"); ok {
			return t
		}
		return Token{Kind: Colon, Text: ":", Span: span.Span{Start: start, End: l.offset()}}
	case '|':
		if l.ch == '|' {
			l.readByte()
			if l.ch == '=' {
				l.readByte()
				return Token{Kind: OrAssign, Text: "||=", Span: span.Span{Start: start, End: l.offset()}}
			}
			return Token{Kind: OrOr, Text: "||", Span: span.Span{Start: start, End: l.offset()}}
		}
		return Token{Kind: Pipe, Text: "|", Span: span.Span{Start: start, End: l.offset()}}
	}

	if kind, ok := SingleCharTokens[ch]; ok {
		return Token{Kind: kind, Text: string(ch), Span: span.Span{Start: start, End: l.offset()}}
	}
	return Token{Kind: Unknown, Text: string(ch), Span: span.Span{Start: start, End: l.offset()}}
}

// SetMode forces the lexer into mode m, for a caller that knows from
// grammatical context that the next bytes are a regex body (e.g. after
// split, grep, or a bare / in operand position) rather than the
// division operator. The parser in this module does not call it.
func (l *Lexer) SetMode(m Mode) {
	l.mode = m
}

// CurrentMode reports the lexer's current mode.
func (l *Lexer) CurrentMode() Mode {
	return l.mode
}
