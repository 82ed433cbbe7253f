// Package formula implements the expression language used for revenue and
// expense formulas: a tokenizer, a recursive descent parser, a tree-walking
// evaluator and a validator that classifies failures for display.
//
// A formula is plain arithmetic over numbers and identifiers:
//
//	stream_1 + driver_2 * 1.5
//	(stream_1 - expense_4) / 12
//
// Every call builds its own tokens and tree; nothing is shared between calls,
// so all functions in this package are safe for concurrent use.
package formula

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenNumber     TokenKind = iota // 12, 1.5
	TokenIdentifier                  // stream_1
	TokenOperator                    // + - * /
	TokenLParen                      // (
	TokenRParen                      // )
	TokenEOF                         // end of formula
)

// String returns the upper-case name of the kind.
func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "NUMBER"
	case TokenIdentifier:
		return "IDENTIFIER"
	case TokenOperator:
		return "OPERATOR"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical unit of a formula.
type Token struct {
	Kind TokenKind
	Text string // raw source text
	Pos  int    // byte offset in the source
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Kind {
	case TokenNumber:
		return fmt.Sprintf("number '%s'", t.Text)
	case TokenIdentifier:
		return fmt.Sprintf("identifier '%s'", t.Text)
	case TokenOperator:
		return fmt.Sprintf("operator '%s'", t.Text)
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	default:
		return "end of formula"
	}
}

// Operator is one of the four arithmetic operators.
type Operator byte

const (
	OpAdd Operator = '+'
	OpSub Operator = '-'
	OpMul Operator = '*'
	OpDiv Operator = '/'
)

func (o Operator) String() string {
	return string(rune(o))
}

func operatorOf(t Token) (Operator, bool) {
	if t.Kind != TokenOperator || len(t.Text) != 1 {
		return 0, false
	}
	switch op := Operator(t.Text[0]); op {
	case OpAdd, OpSub, OpMul, OpDiv:
		return op, true
	}
	return 0, false
}
