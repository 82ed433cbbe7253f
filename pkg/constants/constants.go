// Package constants provides shared constants for the finance-formula application.
package constants

// Entity types that may appear as <entityType>_<id> references in formulas.
const (
	EntityStream    = "stream"
	EntityDriver    = "driver"
	EntityExpense   = "expense"
	EntityPersonnel = "personnel"
)

// EntityTypes lists the entity types in display order.
var EntityTypes = []string{EntityStream, EntityDriver, EntityExpense, EntityPersonnel}

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// DefaultFrequency is the default frequency for monthly amounts
	DefaultFrequency = 1

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)

// Formula engine defaults
const (
	// DefaultMaxFormulaLength is the default maximum formula length in bytes
	DefaultMaxFormulaLength = 1000

	// DefaultPlaceholderValue is assigned to references during dry runs
	DefaultPlaceholderValue = 1.0

	// DefaultBatchConcurrency bounds concurrent validations in a batch request
	DefaultBatchConcurrency = 8

	// MaxBatchSize is the largest number of formulas accepted in one batch
	MaxBatchSize = 500
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment variable overrides, e.g. FF_LOGGING_LEVEL
	EnvPrefix = "FF"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultShutdownTimeout is the default graceful shutdown timeout
	DefaultShutdownTimeout = "10s"
)

// HTTP API paths
const (
	PathValidate      = "/api/formulas/validate"
	PathValidateBatch = "/api/formulas/validate/batch"
	PathCheck         = "/api/formulas/check"
	PathResolve       = "/api/formulas/resolve"
	PathCatalog       = "/api/catalog"
	PathVersion       = "/api/version"
)
