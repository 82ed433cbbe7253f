// Package catalog turns the configured revenue streams, drivers, expenses and
// personnel roles into the variable set formulas are evaluated against.
//
// Resolution is a single naive pass: entities with a plain amount are bound
// first, then each formula entity is evaluated against the plain amounts
// only. A formula entity that references another formula entity fails with
// an unknown identifier; there is no dependency ordering between formulas.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/iwvelando/finance-formula/internal/config"
	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/iwvelando/finance-formula/pkg/formula"
	"github.com/iwvelando/finance-formula/pkg/mathutil"
	"github.com/iwvelando/finance-formula/pkg/references"
	"go.uber.org/zap"
)

// Entry is a catalog entity with its resolved value.
type Entry struct {
	Reference     string   `json:"reference" yaml:"reference"`
	Type          string   `json:"type" yaml:"type"`
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Formula       string   `json:"formula,omitempty" yaml:"formula,omitempty"`
	Amount        *float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Frequency     int      `json:"frequency" yaml:"frequency"`
	MonthlyAmount *float64 `json:"monthlyAmount,omitempty" yaml:"monthlyAmount,omitempty"`
	AnnualAmount  *float64 `json:"annualAmount,omitempty" yaml:"annualAmount,omitempty"`
	Error         string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolution is the outcome of evaluating a formula against the catalog.
type Resolution struct {
	Result     formula.ValidationResult `json:"result"`
	References []references.Reference   `json:"references,omitempty"`
	Missing    []string                 `json:"missing,omitempty"`
}

// Catalog is an immutable snapshot of resolved entity values.
type Catalog struct {
	engine  *formula.Engine
	entries []Entry
	values  formula.Variables
}

// New resolves every entity in cfg. Entities that cannot be resolved keep
// an Error and are left out of the variable set.
func New(logger *zap.Logger, cfg config.CatalogConfig, engine *formula.Engine) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = formula.NewEngine()
	}

	entities := cfg.Entities()
	c := &Catalog{
		engine:  engine,
		entries: make([]Entry, len(entities)),
		values:  make(formula.Variables, len(entities)),
	}

	last := make(map[string]int, len(entities))
	for i, entity := range entities {
		last[entity.Reference()] = i
	}

	plain := make(formula.Variables)
	for i, entity := range entities {
		c.entries[i] = Entry{
			Reference: entity.Reference(),
			Type:      entity.Type,
			ID:        entity.ID,
			Name:      entity.Name,
			Formula:   entity.Formula,
			Frequency: entity.Frequency,
		}
		if entity.ID == "" {
			c.entries[i].Error = "entity has no id"
			continue
		}
		if last[entity.Reference()] != i {
			c.entries[i].Error = "superseded by a later definition"
			continue
		}
		if entity.Formula == "" {
			if _, _, err := figures(entity.Amount, entity.Frequency); errors.Is(err, errNonFinite) {
				c.entries[i].Error = err.Error()
				logger.Warn("ignoring non-finite catalog amount",
					zap.String("op", "catalog.New"),
					zap.String("reference", entity.Reference()),
					zap.Error(err),
				)
				continue
			}
			plain[entity.Reference()] = entity.Amount
		}
	}

	for ref, value := range plain {
		c.values[ref] = value
	}

	for i, entity := range entities {
		entry := &c.entries[i]
		if entry.Error != "" {
			continue
		}

		value, ok := plain[entry.Reference]
		if entry.Formula != "" {
			// Evaluate against a copy so formula results never feed each other.
			res := engine.Validate(entry.Formula, copyVariables(plain))
			if !res.IsValid {
				entry.Error = res.Error.Message
				logger.Warn("failed to resolve catalog formula",
					zap.String("op", "catalog.New"),
					zap.String("reference", entry.Reference),
					zap.String("formula", entry.Formula),
					zap.String("error", res.Error.Message),
				)
				continue
			}
			value, ok = *res.Value, true
			if entity.Amount != 0 && !mathutil.WithinTolerance(value, entity.Amount, constants.CurrencyTolerance) {
				logger.Warn("formula result differs from configured amount; using the formula",
					zap.String("op", "catalog.New"),
					zap.String("reference", entry.Reference),
					zap.Float64("amount", entity.Amount),
					zap.Float64("result", value),
				)
			}
		}
		if !ok {
			continue
		}

		monthly, annual, err := figures(value, entry.Frequency)
		if errors.Is(err, errNonFinite) {
			entry.Error = err.Error()
			logger.Warn("ignoring non-finite catalog amount",
				zap.String("op", "catalog.New"),
				zap.String("reference", entry.Reference),
				zap.Error(err),
			)
			continue
		}
		if entry.Formula != "" {
			c.values[entry.Reference] = value
		}

		amount := value
		entry.Amount = &amount
		if err != nil {
			entry.Error = err.Error()
			logger.Warn("failed to derive monthly amount",
				zap.String("op", "catalog.New"),
				zap.String("reference", entry.Reference),
				zap.Error(err),
			)
			continue
		}
		entry.MonthlyAmount = &monthly
		entry.AnnualAmount = &annual
	}

	logger.Debug("catalog resolved",
		zap.String("op", "catalog.New"),
		zap.Int("entities", len(c.entries)),
		zap.Int("variables", len(c.values)),
	)
	return c
}

// Entries returns a copy of the catalog entries in configuration order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Variables returns a copy of every resolved value keyed by reference.
func (c *Catalog) Variables() formula.Variables {
	return copyVariables(c.values)
}

// References returns the resolvable reference names, sorted.
func (c *Catalog) References() []string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve evaluates source against the catalog values of the references it
// mentions. References absent from the catalog are reported in Missing and
// surface as an unknown identifier in the result.
func (c *Catalog) Resolve(source string) Resolution {
	refs := references.Extract(source)
	vars := make(formula.Variables, len(refs))
	for _, ref := range refs {
		if value, ok := c.values[ref.Name]; ok {
			vars[ref.Name] = value
		}
	}

	return Resolution{
		Result:     c.engine.Validate(source, vars),
		References: refs,
		Missing:    references.Missing(refs, c.values),
	}
}

var errNonFinite = errors.New("is not a finite number")

// figures derives the rounded monthly and annual amounts for value. A
// non-finite value or an overflowing annual amount wraps errNonFinite; a
// bad frequency is reported by mathutil.PerMonth.
func figures(value float64, frequency int) (monthly, annual float64, err error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, 0, fmt.Errorf("amount %w", errNonFinite)
	}
	monthly, err = mathutil.PerMonth(value, frequency)
	if err != nil {
		return 0, 0, err
	}
	annual = mathutil.Annualize(monthly)
	if math.IsInf(annual, 0) {
		return 0, 0, fmt.Errorf("annual amount %w", errNonFinite)
	}
	return mathutil.Round(monthly), mathutil.Round(annual), nil
}

func copyVariables(vars formula.Variables) formula.Variables {
	out := make(formula.Variables, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// Store holds the current catalog and lets it be swapped on reload.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
}

// NewStore creates a Store holding c.
func NewStore(c *Catalog) *Store {
	return &Store{current: c}
}

// Load returns the current catalog.
func (s *Store) Load() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new catalog. Callers holding the previous catalog keep
// a consistent snapshot.
func (s *Store) Replace(c *Catalog) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}
