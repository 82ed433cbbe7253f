package formula

import (
	"errors"
	"math"
	"testing"
)

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"10 + 20 * 2", 50},
		{"(10 + 20) * 2", 60},
		{"-5 * 2", -10},
		{"10 - 4 - 3", 3},
		{"100 / 10 / 2", 5},
		{"7 / 2", 3.5},
		{"-(3 - 10)", 7},
		{"2 * -3 + 1", -5},
		{"0.5 * 4", 2},
		{"((((1))))", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			node, err := Parse(tokens)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := Evaluate(node, Variables{})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Evaluate(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEvaluateVariables(t *testing.T) {
	vars := Variables{
		"stream_1":    1000,
		"driver_2":    500,
		"expense_3":   250,
		"personnel_4": 0,
	}

	tests := []struct {
		input    string
		expected float64
	}{
		{"stream_1 + driver_2 * 1.5", 1750},
		{"(stream_1 - expense_3) / 3", 250},
		{"-stream_1 + driver_2", -500},
		{"personnel_4 * stream_1", 0},
		{"personnel_4 / stream_1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := EvaluateString(tt.input, vars)
			if err != nil {
				t.Fatalf("EvaluateString() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("EvaluateString(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		vars     Variables
		sentinel error
		kind     EvalErrorKind
		ident    string
		position int
	}{
		{"Unknown identifier", "stream_1 + missing_var", Variables{"stream_1": 1000}, ErrUnknownIdentifier, EvalUnknownIdentifier, "missing_var", 11},
		{"Nil variables", "stream_1", nil, ErrUnknownIdentifier, EvalUnknownIdentifier, "stream_1", 0},
		{"Literal division by zero", "10 / 0", Variables{}, ErrDivisionByZero, EvalDivisionByZero, "", 3},
		{"Variable division by zero", "stream_1 / driver_2", Variables{"stream_1": 1, "driver_2": 0}, ErrDivisionByZero, EvalDivisionByZero, "", 9},
		{"Expression division by zero", "10 / (5 - 5)", Variables{}, ErrDivisionByZero, EvalDivisionByZero, "", 3},
		{"Negative zero divisor", "1 / -0", Variables{}, ErrDivisionByZero, EvalDivisionByZero, "", 2},
		{"Left error wins over right", "missing_a + 1 / 0", Variables{}, ErrUnknownIdentifier, EvalUnknownIdentifier, "missing_a", 0},
		{"Division error wins when on the left", "1 / 0 + missing_a", Variables{}, ErrDivisionByZero, EvalDivisionByZero, "", 2},
		{"First of two unknowns", "missing_a * missing_b", Variables{}, ErrUnknownIdentifier, EvalUnknownIdentifier, "missing_a", 0},
		{"Infinite variable", "x + 1", Variables{"x": math.Inf(1)}, ErrNonFinite, EvalNonFinite, "x", 0},
		{"NaN variable", "x", Variables{"x": math.NaN()}, ErrNonFinite, EvalNonFinite, "x", 0},
		{"Overflow", "x * x", Variables{"x": 1e200}, ErrNonFinite, EvalNonFinite, "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvaluateString(tt.input, tt.vars)
			if err == nil {
				t.Fatalf("EvaluateString(%q) expected error", tt.input)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(%v, %v)", err, tt.sentinel)
			}
			var evalErr *EvalError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvalError, got %T", err)
			}
			if evalErr.Kind != tt.kind {
				t.Errorf("Kind = %d, expected %d", evalErr.Kind, tt.kind)
			}
			if evalErr.Name != tt.ident {
				t.Errorf("Name = %q, expected %q", evalErr.Name, tt.ident)
			}
			if evalErr.Pos != tt.position {
				t.Errorf("Pos = %d, expected %d", evalErr.Pos, tt.position)
			}
		})
	}
}

func TestEvaluateDoesNotModifyVariables(t *testing.T) {
	vars := Variables{"a": 1, "b": 2}
	if _, err := EvaluateString("a + b * unknown", vars); err == nil {
		t.Fatal("expected unknown identifier error")
	}
	if _, err := EvaluateString("a + b", vars); err != nil {
		t.Fatalf("EvaluateString() error = %v", err)
	}
	if len(vars) != 2 || vars["a"] != 1 || vars["b"] != 2 {
		t.Errorf("variables were modified: %v", vars)
	}
}

func TestEvaluateMalformedTree(t *testing.T) {
	tests := []struct {
		name string
		node Node
	}{
		{"Nil node", nil},
		{"Nil child", &BinaryOp{Op: OpAdd, Left: &Literal{Value: 1}, Right: nil}},
		{"Unknown binary operator", &BinaryOp{Op: Operator('%'), Left: &Literal{Value: 1}, Right: &Literal{Value: 2}}},
		{"Unary plus", &UnaryOp{Op: OpAdd, Operand: &Literal{Value: 1}}},
		{"Typed nil literal", (*Literal)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.node, Variables{})
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}
