package formula

import "fmt"

// ValidationResult is the verdict for one formula. Value is set only when the
// formula is valid and was evaluated against a variable set.
type ValidationResult struct {
	IsValid bool             `json:"isValid" yaml:"isValid"`
	Value   *float64         `json:"value,omitempty" yaml:"value,omitempty"`
	Error   *ValidationError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Engine runs validations with optional limits. The zero value and
// NewEngine() without options impose no limits. An Engine holds no mutable
// state and may be shared between goroutines.
type Engine struct {
	maxLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxLength rejects formulas longer than n bytes. n <= 0 disables the limit.
func WithMaxLength(n int) Option {
	return func(e *Engine) {
		e.maxLength = n
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxLength returns the configured length limit, 0 when unlimited.
func (e *Engine) MaxLength() int {
	return e.maxLength
}

// Check is the quick syntax-only verdict used while a formula is edited.
func (e *Engine) Check(formula string) ValidationResult {
	return e.ValidateWithDetails(formula, nil)
}

// Validate is the authoritative verdict: the formula is also evaluated
// against vars. A nil vars is treated as an empty set, so every identifier
// is unknown.
func (e *Engine) Validate(formula string, vars Variables) ValidationResult {
	if vars == nil {
		vars = Variables{}
	}
	return e.ValidateWithDetails(formula, vars)
}

// ValidateWithDetails tokenizes and parses formula and, when vars is not
// nil, evaluates it. Lexical and grammar failures are reported with
// KindSyntax and a position; evaluation failures with KindEvaluation.
func (e *Engine) ValidateWithDetails(formula string, vars Variables) ValidationResult {
	if e.maxLength > 0 && len(formula) > e.maxLength {
		return ValidationResult{Error: &ValidationError{
			Message:  fmt.Sprintf("formula exceeds maximum length of %d characters", e.maxLength),
			Kind:     KindSyntax,
			Reason:   ReasonSyntax,
			Position: intPtr(e.maxLength),
		}}
	}

	node, err := ParseString(formula)
	if err != nil {
		return ValidationResult{Error: classify(err)}
	}

	if vars == nil {
		return ValidationResult{IsValid: true}
	}

	value, err := Evaluate(node, vars)
	if err != nil {
		return ValidationResult{Error: classify(err)}
	}
	return ValidationResult{IsValid: true, Value: &value}
}

var defaultEngine = NewEngine()

// ValidateWithDetails validates formula without length limits.
// See Engine.ValidateWithDetails.
func ValidateWithDetails(formula string, vars Variables) ValidationResult {
	return defaultEngine.ValidateWithDetails(formula, vars)
}
