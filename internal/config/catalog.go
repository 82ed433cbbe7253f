package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/mathutil"
	"github.com/iwvelando/finance-formula/pkg/references"
)

// CatalogConfig lists the entities whose values formulas may reference.
type CatalogConfig struct {
	Streams   []EntityConfig `yaml:"streams,omitempty" mapstructure:"streams"`
	Drivers   []EntityConfig `yaml:"drivers,omitempty" mapstructure:"drivers"`
	Expenses  []EntityConfig `yaml:"expenses,omitempty" mapstructure:"expenses"`
	Personnel []EntityConfig `yaml:"personnel,omitempty" mapstructure:"personnel"`
}

// EntityConfig is a revenue stream, driver, expense category or personnel
// role. Its value is Amount, or the result of Formula when one is set.
type EntityConfig struct {
	ID        string  `yaml:"id" mapstructure:"id"`
	Name      string  `yaml:"name,omitempty" mapstructure:"name"`
	Amount    float64 `yaml:"amount,omitempty" mapstructure:"amount"`
	Formula   string  `yaml:"formula,omitempty" mapstructure:"formula"`
	Frequency int     `yaml:"frequency,omitempty" mapstructure:"frequency"` // months
}

// TypedEntity pairs an entity with its entity type.
type TypedEntity struct {
	Type string
	EntityConfig
}

// Reference returns the identifier formulas use for the entity, e.g. stream_1.
func (e TypedEntity) Reference() string {
	return references.Name(e.Type, e.ID)
}

// Entities returns every entity in type order: streams, drivers, expenses,
// personnel.
func (c CatalogConfig) Entities() []TypedEntity {
	var all []TypedEntity
	for _, group := range c.groups() {
		for _, entity := range group.entities {
			all = append(all, TypedEntity{Type: group.entityType, EntityConfig: entity})
		}
	}
	return all
}

type entityGroup struct {
	entityType string
	entities   []EntityConfig
}

func (c CatalogConfig) groups() []entityGroup {
	return []entityGroup{
		{constants.EntityStream, c.Streams},
		{constants.EntityDriver, c.Drivers},
		{constants.EntityExpense, c.Expenses},
		{constants.EntityPersonnel, c.Personnel},
	}
}

// Normalize trims identifiers and formulas and defaults an unset frequency
// to monthly. Negative frequencies are kept so validation can report them.
func (c *CatalogConfig) Normalize() {
	for _, group := range []*[]EntityConfig{&c.Streams, &c.Drivers, &c.Expenses, &c.Personnel} {
		for i := range *group {
			entity := &(*group)[i]
			entity.ID = strings.TrimSpace(entity.ID)
			entity.Name = strings.TrimSpace(entity.Name)
			entity.Formula = strings.TrimSpace(entity.Formula)
			if entity.Frequency == 0 {
				entity.Frequency = constants.DefaultFrequency
			}
		}
	}
}

// Validate returns warnings for entities that cannot be referenced or
// evaluated as configured.
func (c CatalogConfig) Validate(maxLength int) []string {
	var warnings []string
	engine := formula.NewEngine(formula.WithMaxLength(maxLength))
	seen := make(map[string]struct{})

	for _, entity := range c.Entities() {
		label := fmt.Sprintf("%s '%s'", entity.Type, entity.ID)
		if entity.Name != "" {
			label = fmt.Sprintf("%s '%s' (%s)", entity.Type, entity.ID, entity.Name)
		}

		if entity.ID == "" {
			warnings = append(warnings, fmt.Sprintf("%s entity '%s' has no id and cannot be referenced", entity.Type, entity.Name))
			continue
		}
		ref := entity.Reference()
		if _, err := references.Parse(ref); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s has an id that does not form a valid reference: %v", label, err))
		}
		if _, dup := seen[ref]; dup {
			warnings = append(warnings, fmt.Sprintf("%s is defined more than once; the last definition wins", label))
		}
		seen[ref] = struct{}{}

		if entity.Frequency < 0 {
			warnings = append(warnings, fmt.Sprintf("%s has negative frequency %d; a monthly amount cannot be derived", label, entity.Frequency))
		}

		if entity.Formula == "" {
			switch {
			case math.IsNaN(entity.Amount) || math.IsInf(entity.Amount, 0):
				warnings = append(warnings, fmt.Sprintf("%s has a non-finite amount and cannot be referenced", label))
			case entity.Frequency > 0 && math.IsInf(mathutil.Annualize(entity.Amount/float64(entity.Frequency)), 0):
				warnings = append(warnings, fmt.Sprintf("%s has an amount that overflows when annualised and cannot be referenced", label))
			}
		}

		if entity.Formula != "" {
			if entity.Amount != 0 {
				warnings = append(warnings, fmt.Sprintf("%s sets both amount and formula; the formula takes precedence", label))
			}
			if res := engine.Check(entity.Formula); !res.IsValid {
				warnings = append(warnings, fmt.Sprintf("%s has an invalid formula: %s", label, res.Error.Message))
			}
		}
	}

	return warnings
}
