// Package output provides utilities for formatting and displaying formula results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/finance-formula/internal/catalog"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/format"
	"github.com/iwvelando/finance-formula/pkg/references"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Report is the outcome of one CLI formula command.
type Report struct {
	Formula    string                   `json:"formula" yaml:"formula"`
	Mode       string                   `json:"mode" yaml:"mode"`
	Result     formula.ValidationResult `json:"result" yaml:"result"`
	References []references.Reference   `json:"references,omitempty" yaml:"references,omitempty"`
	Missing    []string                 `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Write renders report in the requested output format.
func Write(w io.Writer, outputFormat string, report Report) error {
	switch outputFormat {
	case constants.OutputFormatJSON:
		return JSONFormat(w, report)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, report)
	default:
		return PrettyFormat(w, report)
	}
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
// A caret under the formula marks the error position when there is one.
func PrettyFormat(w io.Writer, report Report) error {
	p := message.NewPrinter(language.English)
	res := report.Result

	if _, err := p.Fprintf(w, "Formula: %s\n", report.Formula); err != nil {
		return err
	}
	if res.Error != nil && res.Error.Position != nil {
		pos := *res.Error.Position
		if pos > len(report.Formula) {
			pos = len(report.Formula)
		}
		_, _ = p.Fprintf(w, "         %s^\n", strings.Repeat(" ", pos))
	}
	_, _ = p.Fprintf(w, "Mode:    %s\n", report.Mode)

	switch {
	case res.IsValid && res.Value != nil:
		_, _ = p.Fprintf(w, "Result:  valid, value %s\n", format.Number(*res.Value))
	case res.IsValid:
		_, _ = p.Fprintf(w, "Result:  valid syntax\n")
	case res.Error != nil:
		_, _ = p.Fprintf(w, "Result:  invalid (%s error, %s)\n", res.Error.Kind, res.Error.Reason)
		_, _ = p.Fprintf(w, "Error:   %s\n", res.Error.Message)
	default:
		_, _ = p.Fprintf(w, "Result:  invalid\n")
	}

	if len(report.References) > 0 {
		_, _ = p.Fprintf(w, "Refs:    %s\n", strings.Join(references.Names(report.References), ", "))
	}
	if len(report.Missing) > 0 {
		_, err := p.Fprintf(w, "Missing: %s\n", strings.Join(report.Missing, ", "))
		return err
	}
	return nil
}

// JSONFormat outputs v as indented JSON.
func JSONFormat(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// YAMLFormat outputs v as YAML.
func YAMLFormat(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	return enc.Close()
}

// WriteCatalog renders catalog entries in the requested output format.
func WriteCatalog(w io.Writer, outputFormat string, entries []catalog.Entry) error {
	switch outputFormat {
	case constants.OutputFormatJSON:
		return JSONFormat(w, entries)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, entries)
	default:
		return CatalogTable(w, entries)
	}
}

// CatalogTable outputs catalog entries as a table.
func CatalogTable(w io.Writer, entries []catalog.Entry) error {
	if _, err := fmt.Fprintf(w, "Reference            | Amount         | Monthly        | Annual         | Notes\n"); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "_________            | ______         | _______        | ______         | _____\n")
	for _, entry := range entries {
		notes := entry.Name
		if entry.Formula != "" {
			notes = strings.TrimSpace(notes + " = " + entry.Formula)
		}
		if entry.Error != "" {
			notes = strings.TrimSpace(notes + " [" + entry.Error + "]")
		}
		_, _ = fmt.Fprintf(w, "%-20s | %14s | %14s | %14s | %s\n",
			entry.Reference, optionalCurrency(entry.Amount), optionalCurrency(entry.MonthlyAmount),
			optionalCurrency(entry.AnnualAmount), notes)
	}
	return nil
}

// WriteReferences renders extracted references in the requested output format.
func WriteReferences(w io.Writer, outputFormat string, refs []references.Reference) error {
	if refs == nil {
		refs = []references.Reference{}
	}
	switch outputFormat {
	case constants.OutputFormatJSON:
		return JSONFormat(w, refs)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, refs)
	}
	for _, ref := range refs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", ref.Name, ref.EntityType, ref.ID); err != nil {
			return err
		}
	}
	return nil
}

func optionalCurrency(v *float64) string {
	if v == nil {
		return "-"
	}
	return format.Currency(*v)
}
