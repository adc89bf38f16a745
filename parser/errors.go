package parser

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/perl-lsp-core/lexer"
	"github.com/aledsdavies/perl-lsp-core/span"
)

// ParseError represents a parsing error with location and context
// information. The parser never returns these to a caller mid-parse —
// they're collected and reified as ast.Error nodes (spec §7: "parser
// never propagates") but remain independently useful for tooling (e.g.
// cmd/perlls-inspect) that wants a Rust/Clang-style rendering.
type ParseError struct {
	Type        ErrorType
	Message     string
	Token       lexer.Token
	Input       []byte
	Context     string
	OpenedAt    *lexer.Token // for bracket mismatch errors
	Suggestions []string
}

// BracketTracker tracks opening brackets and their context for error
// reporting, generalized to Perl's three bracket pairs.
type BracketTracker struct {
	stack []BracketInfo
}

type BracketInfo struct {
	Kind    lexer.Kind
	Token   lexer.Token
	Context string // "block", "signature", "subscript", etc.
}

func (bt *BracketTracker) Push(kind lexer.Kind, token lexer.Token, context string) {
	bt.stack = append(bt.stack, BracketInfo{Kind: kind, Token: token, Context: context})
}

func (bt *BracketTracker) Pop(expected lexer.Kind, closing lexer.Token) error {
	if len(bt.stack) == 0 {
		return fmt.Errorf("unexpected %q at byte %d - no matching opening bracket",
			closing.Text, closing.Span.Start)
	}
	top := bt.stack[len(bt.stack)-1]
	bt.stack = bt.stack[:len(bt.stack)-1]

	if !isMatchingBracket(top.Kind, expected) {
		return fmt.Errorf("mismatched brackets: %q opened at byte %d but %q found at byte %d",
			top.Token.Text, top.Token.Span.Start, closing.Text, closing.Span.Start)
	}
	return nil
}

func (bt *BracketTracker) GetUnclosedBrackets() []BracketInfo { return bt.stack }
func (bt *BracketTracker) IsEmpty() bool                      { return len(bt.stack) == 0 }

func isMatchingBracket(opening, closing lexer.Kind) bool {
	switch opening {
	case lexer.LBrace:
		return closing == lexer.RBrace
	case lexer.LParen:
		return closing == lexer.RParen
	case lexer.LBracket:
		return closing == lexer.RBracket
	default:
		return false
	}
}

// ErrorType categorizes parsing errors.
type ErrorType int

const (
	ErrorSyntax ErrorType = iota
	ErrorUnexpected
	ErrorMissing
	ErrorInvalid
)

func (e ErrorType) String() string {
	switch e {
	case ErrorSyntax:
		return "syntax error"
	case ErrorUnexpected:
		return "unexpected token"
	case ErrorMissing:
		return "missing"
	case ErrorInvalid:
		return "invalid"
	default:
		return "error"
	}
}

// Error renders the error with a Rust/Clang-style caret snippet.
func (e ParseError) Error() string {
	snippet := e.createCodeSnippet()
	return fmt.Sprintf("%s: %s\n%s", e.Type.String(), e.Message, snippet)
}

func (e ParseError) createCodeSnippet() string {
	if len(e.Input) == 0 {
		return ""
	}
	li := span.NewLineIndex(e.Input)
	line, col := li.LineCol(e.Token.Span.Start)
	lineSpan := li.LineSpan(line)
	lineContent := string(e.Input[lineSpan.Start:lineSpan.End])

	var snip strings.Builder
	fmt.Fprintf(&snip, "  --> byte %d (line %d, col %d)\n", e.Token.Span.Start, line, col)
	snip.WriteString("   |\n")
	fmt.Fprintf(&snip, "%2d | %s\n", line, lineContent)
	snip.WriteString("   | ")
	if col > 0 && col <= len(lineContent)+1 {
		snip.WriteString(strings.Repeat(" ", col-1) + "^")
	}
	return snip.String()
}

// NewSyntaxError creates a syntax error at the parser's current token.
func (p *Parser) NewSyntaxError(message string) error {
	return ParseError{Type: ErrorSyntax, Message: message, Token: p.current(), Input: p.src}
}

// NewUnexpectedTokenError creates an error for an unexpected token.
func (p *Parser) NewUnexpectedTokenError(expected string, got lexer.Token) error {
	message := fmt.Sprintf("expected %s, got %s", expected, got.Kind.String())
	return ParseError{Type: ErrorUnexpected, Message: message, Token: got, Input: p.src}
}

// NewMissingTokenError creates an error for a missing expected token.
func (p *Parser) NewMissingTokenError(expected string) error {
	return ParseError{Type: ErrorMissing, Message: fmt.Sprintf("expected %s", expected), Token: p.current(), Input: p.src}
}

// NewInvalidError creates a generic invalid-construct error.
func (p *Parser) NewInvalidError(message string) error {
	return ParseError{Type: ErrorInvalid, Message: message, Token: p.current(), Input: p.src}
}
