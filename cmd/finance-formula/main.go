// Package main is the finance-formula command line tool: it checks,
// validates and evaluates forecasting formulas and serves the formula API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/iwvelando/finance-formula/pkg/constants"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errInvalidVerdict signals a formula judged invalid. The report has already
// been written, so main only sets the exit status.
var errInvalidVerdict = errors.New("formula is invalid")

type rootOptions struct {
	configPath   string
	logLevel     string
	outputFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "finance-formula",
		Short: "Validate and evaluate financial forecasting formulas",
		Long: `finance-formula checks arithmetic formulas over revenue streams, drivers,
expenses and personnel roles, and evaluates them against configured values.

Examples:
  finance-formula check "stream_1 * (1 + driver_2)"
  finance-formula validate "x / y" --var x=10 --var y=4
  finance-formula eval "stream_1 - expense_rent" --config config.yaml
  finance-formula refs "stream_1 + personnel_7 * 2"
  finance-formula serve --server-config server-config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, json, yaml")

	cmd.AddCommand(
		newCheckCmd(opts),
		newValidateCmd(opts),
		newEvalCmd(opts),
		newRefsCmd(opts),
		newCatalogCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "finance-formula %s\n", version)
			return err
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errInvalidVerdict) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
