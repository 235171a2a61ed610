package script

import (
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokWord
	tokOpen
	tokClose
	tokNewline
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of file"
	case tokOpen:
		return `"{"`
	case tokClose:
		return `"}"`
	case tokNewline:
		return "end of line"
	default:
		return `"` + t.text + `"`
	}
}

// lexer splits compositor scripts into words, braces and line ends.
// Comments run from // to the end of the line or between /* and */.
// Double-quoted words may contain spaces and braces.
type lexer struct {
	src  string
	name string
	pos  int
	line int
	col  int
}

func newLexer(name, src string) *lexer {
	return &lexer{src: src, name: name, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) *ScriptError {
	return newError(l.name, line, col, format, args...)
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// tokens lexes the whole source.
func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance(1)
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				end = len(l.src) - l.pos
			}
			l.advance(end)
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			line, col := l.line, l.col
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return token{}, l.errorf(line, col, "unterminated comment")
			}
			l.advance(end + 4)
		default:
			return l.lexToken()
		}
	}
	return token{kind: tokEOF, line: l.line, col: l.col}, nil
}

func (l *lexer) lexToken() (token, error) {
	line, col := l.line, l.col
	switch c := l.src[l.pos]; c {
	case '\n':
		l.advance(1)
		return token{kind: tokNewline, line: line, col: col}, nil
	case '{':
		l.advance(1)
		return token{kind: tokOpen, text: "{", line: line, col: col}, nil
	case '}':
		l.advance(1)
		return token{kind: tokClose, text: "}", line: line, col: col}, nil
	case '"':
		end := strings.IndexAny(l.src[l.pos+1:], "\"\n")
		if end < 0 || l.src[l.pos+1+end] != '"' {
			return token{}, l.errorf(line, col, "unterminated string")
		}
		text := l.src[l.pos+1 : l.pos+1+end]
		l.advance(end + 2)
		return token{kind: tokWord, text: text, line: line, col: col}, nil
	}
	start := l.pos
	for l.pos < len(l.src) && !isDelimiter(l.src[l.pos]) {
		if strings.HasPrefix(l.src[l.pos:], "//") || strings.HasPrefix(l.src[l.pos:], "/*") {
			break
		}
		l.advance(1)
	}
	return token{kind: tokWord, text: l.src[start:l.pos], line: line, col: col}, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '{', '}', '"':
		return true
	}
	return false
}
