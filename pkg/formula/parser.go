package formula

import (
	"fmt"
	"strconv"
)

// Parse builds an expression tree from tokens produced by Tokenize.
//
// Grammar, lowest precedence first; binary operators are left-associative:
//
//	expression := term (("+" | "-") term)*
//	term       := factor (("*" | "/") factor)*
//	factor     := ["-"] primary
//	primary    := NUMBER | IDENTIFIER | "(" expression ")"
//
// Parse never evaluates or resolves identifiers. A slice without a trailing
// TokenEOF is read as if it had one.
func Parse(tokens []Token) (Node, error) {
	p := &parser{tokens: tokens}

	if p.current().Kind == TokenEOF {
		return nil, &ParseError{
			Message:  "empty formula",
			Expected: "expression",
			Found:    "end of formula",
			Pos:      p.current().Pos,
		}
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Kind != TokenEOF {
		return nil, &ParseError{
			Message:  fmt.Sprintf("unexpected token %s, expected operator or end of formula", tok.describe()),
			Expected: "operator or end of formula",
			Found:    tok.describe(),
			Pos:      tok.Pos,
		}
	}
	return node, nil
}

// ParseString tokenizes and parses source in one step.
func ParseString(source string) (Node, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

type parser struct {
	tokens []Token
	pos    int
}

// current returns the current token, synthesising EOF past the end.
func (p *parser) current() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if n := len(p.tokens); n > 0 {
			last := p.tokens[n-1]
			end = last.Pos + len(last.Text)
		}
		return Token{Kind: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// matchOperator consumes the current token if it is one of ops.
func (p *parser) matchOperator(ops ...Operator) (Operator, Token, bool) {
	tok := p.current()
	op, ok := operatorOf(tok)
	if !ok {
		return 0, tok, false
	}
	for _, candidate := range ops {
		if op == candidate {
			p.advance()
			return op, tok, true
		}
	}
	return 0, tok, false
}

func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		op, tok, ok := p.matchOperator(OpAdd, OpSub)
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: tok.Pos}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for {
		op, tok, ok := p.matchOperator(OpMul, OpDiv)
		if !ok {
			return left, nil
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right, Offset: tok.Pos}
	}
}

func (p *parser) parseFactor() (Node, error) {
	if _, tok, ok := p.matchOperator(OpSub); ok {
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: OpSub, Operand: operand, Offset: tok.Pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Kind {
	case TokenNumber:
		p.advance()
		value, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, &ParseError{
				Message:  fmt.Sprintf("invalid number '%s'", tok.Text),
				Expected: "number",
				Found:    tok.describe(),
				Pos:      tok.Pos,
			}
		}
		return &Literal{Value: value, Offset: tok.Pos}, nil

	case TokenIdentifier:
		p.advance()
		return &VariableRef{Name: tok.Text, Offset: tok.Pos}, nil

	case TokenLParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		closing := p.current()
		if closing.Kind != TokenRParen {
			return nil, &ParseError{
				Message:  fmt.Sprintf("expected closing parenthesis for '(' at position %d, found %s", tok.Pos, closing.describe()),
				Expected: "closing parenthesis",
				Found:    closing.describe(),
				Pos:      closing.Pos,
			}
		}
		p.advance()
		return inner, nil
	}

	msg := fmt.Sprintf("unexpected %s, expected number, identifier or '('", tok.describe())
	if tok.Kind == TokenEOF {
		msg = "unexpected end of formula, expected number, identifier or '('"
	}
	return nil, &ParseError{
		Message:  msg,
		Expected: "number, identifier or '('",
		Found:    tok.describe(),
		Pos:      tok.Pos,
	}
}
