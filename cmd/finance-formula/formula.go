package main

import (
	"github.com/iwvelando/finance-formula/internal/catalog"
	"github.com/iwvelando/finance-formula/pkg/output"
	"github.com/iwvelando/finance-formula/pkg/references"
	"github.com/iwvelando/finance-formula/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <formula>",
		Short: "Check formula syntax without evaluating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			return rt.report(cmd, output.Report{
				Formula:    args[0],
				Mode:       "check",
				Result:     rt.engine.Check(args[0]),
				References: references.Extract(args[0]),
			})
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var (
		assignments []string
		dryRun      bool
		useCatalog  bool
	)

	cmd := &cobra.Command{
		Use:   "validate <formula>",
		Short: "Validate a formula by evaluating it against variables",
		Long: `Validate a formula by evaluating it against the variables given with --var.
Every identifier in the formula must be supplied. With --catalog, the
configured catalog values are bound first and --var overrides them. With
--dry-run, entity references still unset are bound to the configured
placeholder value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			vars, err := validation.ParseVariables(assignments)
			if err != nil {
				return err
			}
			if useCatalog {
				for name, value := range catalog.New(rt.logger, rt.conf.Catalog, rt.engine).Variables() {
					if _, set := vars[name]; !set {
						vars[name] = value
					}
				}
			}
			if dryRun {
				for name, value := range references.Placeholders(args[0], rt.conf.Formula.PlaceholderValue) {
					if _, set := vars[name]; !set {
						vars[name] = value
					}
				}
			}

			return rt.report(cmd, output.Report{
				Formula:    args[0],
				Mode:       "validate",
				Result:     rt.engine.Validate(args[0], vars),
				References: references.Extract(args[0]),
			})
		},
	}

	cmd.Flags().StringArrayVar(&assignments, "var", nil, "variable assignment name=value (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "bind unset entity references to the placeholder value")
	cmd.Flags().BoolVar(&useCatalog, "catalog", false, "bind the configured catalog values before --var assignments")
	return cmd
}

func newEvalCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula against the configured catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			if !rt.configFound {
				rt.logger.Warn("no configuration file found; evaluating against an empty catalog",
					zap.String("op", "main.eval"),
					zap.String("config", opts.configPath),
				)
			}

			resolution := catalog.New(rt.logger, rt.conf.Catalog, rt.engine).Resolve(args[0])
			return rt.report(cmd, output.Report{
				Formula:    args[0],
				Mode:       "eval",
				Result:     resolution.Result,
				References: resolution.References,
				Missing:    resolution.Missing,
			})
		},
	}
}

func newRefsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refs <formula>",
		Short: "List the entity references a formula mentions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			return output.WriteReferences(cmd.OutOrStdout(), rt.outputFormat, references.Extract(args[0]))
		},
	}
}

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the configured entities and their resolved values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			entries := catalog.New(rt.logger, rt.conf.Catalog, rt.engine).Entries()
			return output.WriteCatalog(cmd.OutOrStdout(), rt.outputFormat, entries)
		},
	}
}

// report writes the report and turns an invalid verdict into
// errInvalidVerdict.
func (rt *cliEnv) report(cmd *cobra.Command, report output.Report) error {
	if err := output.Write(cmd.OutOrStdout(), rt.outputFormat, report); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("op", "main."+report.Mode),
		zap.Bool("valid", report.Result.IsValid),
	}
	if verr := report.Result.Error; verr != nil {
		fields = append(fields, zap.String("kind", string(verr.Kind)), zap.String("reason", string(verr.Reason)))
	}
	rt.logger.Debug("formula processed", fields...)

	if !report.Result.IsValid {
		return errInvalidVerdict
	}
	return nil
}
