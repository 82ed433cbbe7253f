package formula

import "unicode/utf8"

// Tokenize splits a formula into tokens. The returned slice always ends with
// a TokenEOF positioned at len(source). Whitespace is skipped. The first
// character that cannot start a token produces a *LexError.
func Tokenize(source string) ([]Token, error) {
	l := &lexer{input: source}
	return l.tokenize()
}

type lexer struct {
	input  string
	pos    int
	tokens []Token
}

func (l *lexer) tokenize() ([]Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			l.tokens = append(l.tokens, Token{Kind: TokenEOF, Pos: l.pos})
			return l.tokens, nil
		}

		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
	}
}

func (l *lexer) next() (Token, error) {
	ch := l.input[l.pos]

	switch {
	case isDigit(ch):
		return l.readNumber(), nil
	case isIdentStart(ch):
		return l.readIdentifier(), nil
	}

	start := l.pos
	switch ch {
	case '+', '-', '*', '/':
		l.pos++
		return Token{Kind: TokenOperator, Text: l.input[start:l.pos], Pos: start}, nil
	case '(':
		l.pos++
		return Token{Kind: TokenLParen, Text: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokenRParen, Text: ")", Pos: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return Token{}, &LexError{Char: r, Pos: start}
}

// readNumber reads [0-9]+(\.[0-9]+)?. A '.' not followed by a digit is left
// in the input, where it fails as an unexpected character.
func (l *lexer) readNumber() Token {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: TokenNumber, Text: l.input[start:l.pos], Pos: start}
}

func (l *lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Kind: TokenIdentifier, Text: l.input[start:l.pos], Pos: start}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			l.pos++
		default:
			return
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
