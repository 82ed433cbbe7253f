package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/finance-formula/pkg/formula"
)

// ValidateVariableName checks that name would tokenize as a single
// identifier, i.e. a formula could actually reference it.
func ValidateVariableName(name string) error {
	tokens, err := formula.Tokenize(name)
	if err != nil || len(tokens) != 2 || tokens[0].Kind != formula.TokenIdentifier {
		return fmt.Errorf("variable name '%s' is not a valid identifier", name)
	}
	return nil
}

// ValidateVariableValue rejects NaN and infinite values.
func ValidateVariableValue(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("variable '%s' must be a finite number", name)
	}
	return nil
}

// ParseVariable parses a name=value assignment as given on the command line.
func ParseVariable(assignment string) (string, float64, error) {
	name, raw, ok := strings.Cut(assignment, "=")
	if !ok {
		return "", 0, fmt.Errorf("expected name=value, got '%s'", assignment)
	}
	name = strings.TrimSpace(name)
	if err := ValidateVariableName(name); err != nil {
		return "", 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("variable '%s' has a non-numeric value '%s'", name, raw)
	}
	if err := ValidateVariableValue(name, value); err != nil {
		return "", 0, err
	}
	return name, value, nil
}

// ParseVariables parses a list of name=value assignments. Later assignments
// to the same name win.
func ParseVariables(assignments []string) (formula.Variables, error) {
	vars := make(formula.Variables, len(assignments))
	for _, assignment := range assignments {
		name, value, err := ParseVariable(assignment)
		if err != nil {
			return nil, err
		}
		vars[name] = value
	}
	return vars, nil
}
