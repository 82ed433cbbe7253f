// Package references finds entity references such as stream_1 or
// personnel_12 in raw formula text. It is a pattern-matching heuristic that
// runs before the formula engine: its output only decides which names to put
// into the variable set, the engine itself treats every identifier as opaque.
package references

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
)

var referencePattern = regexp.MustCompile(`\b(stream|driver|expense|personnel)_([A-Za-z0-9_]+)\b`)

// Reference is an entity reference found in a formula.
type Reference struct {
	Name       string `json:"name" yaml:"name"`
	EntityType string `json:"entityType" yaml:"entityType"`
	ID         string `json:"id" yaml:"id"`
}

// Extract returns the distinct references in formula in order of first
// appearance.
func Extract(source string) []Reference {
	matches := referencePattern.FindAllStringSubmatch(source, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[0]]; ok {
			continue
		}
		seen[m[0]] = struct{}{}
		refs = append(refs, Reference{Name: m[0], EntityType: m[1], ID: m[2]})
	}
	return refs
}

// Names returns the reference names.
func Names(refs []Reference) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names
}

// Name builds the identifier for an entity, e.g. Name("stream", "1") is "stream_1".
func Name(entityType, id string) string {
	return entityType + "_" + id
}

// Parse splits an identifier into its entity type and id.
func Parse(name string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(name)
	if m == nil || m[0] != name {
		return Reference{}, fmt.Errorf("%q is not an entity reference (expected one of %s followed by _<id>)",
			name, strings.Join(constants.EntityTypes, ", "))
	}
	return Reference{Name: m[0], EntityType: m[1], ID: m[2]}, nil
}

// Placeholders assigns value to every reference in source. The result is
// suitable for a dry-run evaluation before real values are known.
func Placeholders(source string, value float64) formula.Variables {
	refs := Extract(source)
	vars := make(formula.Variables, len(refs))
	for _, ref := range refs {
		vars[ref.Name] = value
	}
	return vars
}

// Missing returns the names in refs that have no entry in vars.
func Missing(refs []Reference, vars formula.Variables) []string {
	var missing []string
	for _, ref := range refs {
		if _, ok := vars[ref.Name]; !ok {
			missing = append(missing, ref.Name)
		}
	}
	return missing
}
