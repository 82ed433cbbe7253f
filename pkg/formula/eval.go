package formula

import "math"

// Variables maps identifier names to their resolved values for one evaluation.
type Variables map[string]float64

// Evaluate computes the value of node, resolving identifiers in vars.
//
// Children are evaluated left before right and the first error wins. A
// division whose right operand is exactly zero fails with
// EvalDivisionByZero instead of producing Inf or NaN, and any other
// non-finite intermediate value fails with EvalNonFinite. vars is never
// modified; a nil map resolves nothing.
func Evaluate(node Node, vars Variables) (float64, error) {
	switch n := node.(type) {
	case *Literal:
		if n == nil {
			break
		}
		return n.Value, nil

	case *VariableRef:
		if n == nil {
			break
		}
		value, ok := vars[n.Name]
		if !ok {
			return 0, &EvalError{Kind: EvalUnknownIdentifier, Name: n.Name, Pos: n.Offset}
		}
		if !finite(value) {
			return 0, &EvalError{Kind: EvalNonFinite, Name: n.Name, Pos: n.Offset}
		}
		return value, nil

	case *UnaryOp:
		if n == nil || n.Op != OpSub {
			break
		}
		operand, err := Evaluate(n.Operand, vars)
		if err != nil {
			return 0, err
		}
		return -operand, nil

	case *BinaryOp:
		if n == nil {
			break
		}
		return evalBinary(n, vars)
	}

	return 0, &EvalError{Kind: EvalMalformed}
}

func evalBinary(n *BinaryOp, vars Variables) (float64, error) {
	left, err := Evaluate(n.Left, vars)
	if err != nil {
		return 0, err
	}
	right, err := Evaluate(n.Right, vars)
	if err != nil {
		return 0, err
	}

	var result float64
	switch n.Op {
	case OpAdd:
		result = left + right
	case OpSub:
		result = left - right
	case OpMul:
		result = left * right
	case OpDiv:
		if right == 0 {
			return 0, &EvalError{Kind: EvalDivisionByZero, Pos: n.Offset}
		}
		result = left / right
	default:
		return 0, &EvalError{Kind: EvalMalformed, Pos: n.Offset}
	}

	if !finite(result) {
		return 0, &EvalError{Kind: EvalNonFinite, Pos: n.Offset}
	}
	return result, nil
}

// EvaluateString tokenizes, parses and evaluates source.
func EvaluateString(source string, vars Variables) (float64, error) {
	node, err := ParseString(source)
	if err != nil {
		return 0, err
	}
	return Evaluate(node, vars)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
