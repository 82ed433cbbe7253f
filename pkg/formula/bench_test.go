package formula

import (
	"fmt"
	"strings"
	"testing"
)

func benchFormula(terms int) string {
	parts := make([]string, terms)
	for i := range parts {
		parts[i] = "(stream_1 * (1 + driver_2) - expense_rent / 12)"
	}
	return strings.Join(parts, " + ")
}

var benchVars = Variables{"stream_1": 12000, "driver_2": 0.05, "expense_rent": 54000}

func BenchmarkValidateWithDetails(b *testing.B) {
	for _, terms := range []int{1, 10, 100} {
		source := benchFormula(terms)
		b.Run(fmt.Sprintf("terms_%d", terms), func(b *testing.B) {
			for b.Loop() {
				ValidateWithDetails(source, benchVars)
			}
		})
	}
}

func BenchmarkCheck(b *testing.B) {
	engine := NewEngine()
	source := benchFormula(100)
	for b.Loop() {
		engine.Check(source)
	}
}

func BenchmarkTokenize(b *testing.B) {
	source := benchFormula(100)
	for b.Loop() {
		_, _ = Tokenize(source)
	}
}
