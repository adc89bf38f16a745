package parser

// The lexer hands quote-like operators (m//, qr//, s///, tr///, y///) to
// the parser as a single opaque token whose Text is the operator's full
// source spelling, e.g. "s{foo}{bar}xg". These helpers split that text
// back into the operator name, its delimited part(s), and trailing
// flags, mirroring the scan the lexer already performed so the parser
// doesn't need its own copy of the token stream's raw bytes.

// stringInterpolates reports whether a String token's raw text
// interpolates variables: "..." and qq/qx<delim>...<delim> do, '...'
// and q<delim>...<delim> don't.
func stringInterpolates(raw string) bool {
	if len(raw) == 0 {
		return false
	}
	if raw[0] == '"' {
		return true
	}
	if raw[0] == '\'' {
		return false
	}
	i := 0
	for i < len(raw) && isAsciiLetter(raw[i]) {
		i++
	}
	switch raw[:i] {
	case "qq", "qx":
		return true
	case "q":
		return false
	}
	return false
}

func isAsciiLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func closingDelimiter(open byte) byte {
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

// scanDelimitedPart returns the content strictly between raw[pos] (the
// opening delimiter) and its matching close, and the index just past
// the close.
func scanDelimitedPart(raw string, pos int) (body string, next int) {
	open := raw[pos]
	close := closingDelimiter(open)
	depth := 1
	bodyStart := pos + 1
	j := bodyStart
	for j < len(raw) {
		if raw[j] == '\\' && j+1 < len(raw) {
			j += 2
			continue
		}
		if open != close && raw[j] == open {
			depth++
		} else if raw[j] == close {
			depth--
			if depth == 0 {
				return raw[bodyStart:j], j + 1
			}
		}
		j++
	}
	return raw[bodyStart:], j
}

// splitRegexLike splits "m/foo/gi" or "qr{foo}x" style text into pattern
// and flags.
func splitRegexLike(raw string) (pattern, flags string) {
	i := 0
	for i < len(raw) && isAsciiLetter(raw[i]) {
		i++
	}
	if i >= len(raw) {
		return "", ""
	}
	pattern, next := scanDelimitedPart(raw, i)
	if next < len(raw) {
		flags = raw[next:]
	}
	return pattern, flags
}

// splitTwoPartQuoteLike splits "s/a/b/gi" or "s{a}{b}x" style text into
// its two delimited parts and trailing flags.
func splitTwoPartQuoteLike(raw string) (first, second, flags string) {
	i := 0
	for i < len(raw) && isAsciiLetter(raw[i]) {
		i++
	}
	if i >= len(raw) {
		return "", "", ""
	}
	open := raw[i]
	close := closingDelimiter(open)
	first, next := scanDelimitedPart(raw, i)
	if open != close {
		for next < len(raw) && (raw[next] == ' ' || raw[next] == '\t' || raw[next] == '\n') {
			next++
		}
		if next >= len(raw) {
			return first, "", ""
		}
		second, next = scanDelimitedPart(raw, next)
	} else {
		// The first part's closing delimiter doubles as the second
		// part's opening delimiter, already consumed by scanDelimitedPart
		// above; scan forward to the next occurrence of close instead.
		start := next
		j := next
		for j < len(raw) {
			if raw[j] == '\\' && j+1 < len(raw) {
				j += 2
				continue
			}
			if raw[j] == close {
				break
			}
			j++
		}
		second = raw[start:j]
		next = j + 1
	}
	if next < len(raw) {
		flags = raw[next:]
	}
	return first, second, flags
}
