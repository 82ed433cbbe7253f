package formula

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by EvalError through errors.Is.
var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrNonFinite         = errors.New("non-finite value")
	ErrMalformed         = errors.New("malformed expression")
)

// LexError reports a character that cannot start any token.
type LexError struct {
	Char rune
	Pos  int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("unexpected character '%c' at position %d", e.Char, e.Pos)
}

// ParseError reports a grammar violation. Expected and Found describe the
// offending spot in words, e.g. "closing parenthesis" and "end of formula".
type ParseError struct {
	Message  string
	Expected string
	Found    string
	Pos      int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

// EvalErrorKind distinguishes evaluation failures.
type EvalErrorKind int

const (
	EvalUnknownIdentifier EvalErrorKind = iota
	EvalDivisionByZero
	EvalNonFinite
	EvalMalformed
)

// EvalError reports a failure while evaluating a well-formed tree.
type EvalError struct {
	Kind EvalErrorKind
	Name string // identifier for EvalUnknownIdentifier and EvalNonFinite on a variable
	Pos  int
}

func (e *EvalError) Error() string {
	switch e.Kind {
	case EvalUnknownIdentifier:
		return fmt.Sprintf("unknown identifier '%s'", e.Name)
	case EvalDivisionByZero:
		return "division by zero"
	case EvalNonFinite:
		if e.Name != "" {
			return fmt.Sprintf("identifier '%s' is not a finite number", e.Name)
		}
		return "result is not a finite number"
	default:
		return "malformed expression"
	}
}

// Unwrap exposes the sentinel for the kind so callers can use errors.Is.
func (e *EvalError) Unwrap() error {
	switch e.Kind {
	case EvalUnknownIdentifier:
		return ErrUnknownIdentifier
	case EvalDivisionByZero:
		return ErrDivisionByZero
	case EvalNonFinite:
		return ErrNonFinite
	default:
		return ErrMalformed
	}
}

// ErrorKind is the display classification of a failed validation.
type ErrorKind string

const (
	KindSyntax     ErrorKind = "syntax"
	KindEvaluation ErrorKind = "evaluation"
)

// Reason is the finer classification behind an ErrorKind.
type Reason string

const (
	ReasonLexical           Reason = "lexical"
	ReasonSyntax            Reason = "syntax"
	ReasonUnknownIdentifier Reason = "unknown_identifier"
	ReasonDivisionByZero    Reason = "division_by_zero"
	ReasonNonFinite         Reason = "non_finite"
	ReasonMalformed         Reason = "malformed"
)

// ValidationError is the uniform, display-ready form of any engine error.
type ValidationError struct {
	Message    string    `json:"message" yaml:"message"`
	Kind       ErrorKind `json:"kind" yaml:"kind"`
	Reason     Reason    `json:"reason" yaml:"reason"`
	Position   *int      `json:"position,omitempty" yaml:"position,omitempty"`
	Identifier string    `json:"identifier,omitempty" yaml:"identifier,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// classify converts an engine error into a ValidationError. Errors that did
// not originate in this package are reported without their text.
func classify(err error) *ValidationError {
	var (
		lexErr   *LexError
		parseErr *ParseError
		evalErr  *EvalError
	)
	switch {
	case errors.As(err, &lexErr):
		return &ValidationError{
			Message:  lexErr.Error(),
			Kind:     KindSyntax,
			Reason:   ReasonLexical,
			Position: intPtr(lexErr.Pos),
		}
	case errors.As(err, &parseErr):
		return &ValidationError{
			Message:  parseErr.Error(),
			Kind:     KindSyntax,
			Reason:   ReasonSyntax,
			Position: intPtr(parseErr.Pos),
		}
	case errors.As(err, &evalErr):
		verr := &ValidationError{
			Message:    evalErr.Error(),
			Kind:       KindEvaluation,
			Position:   intPtr(evalErr.Pos),
			Identifier: evalErr.Name,
		}
		switch evalErr.Kind {
		case EvalUnknownIdentifier:
			verr.Reason = ReasonUnknownIdentifier
		case EvalDivisionByZero:
			verr.Reason = ReasonDivisionByZero
		case EvalNonFinite:
			verr.Reason = ReasonNonFinite
		default:
			verr.Reason = ReasonMalformed
			verr.Position = nil
		}
		return verr
	default:
		return &ValidationError{
			Message: "malformed expression",
			Kind:    KindEvaluation,
			Reason:  ReasonMalformed,
		}
	}
}

func intPtr(v int) *int {
	return &v
}
