package main

import (
	"fmt"
	"text/tabwriter"

	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"

	"github.com/spf13/cobra"
)

// app holds what the subcommands share once the root pre-run has opened
// the store.
type app struct {
	cfg     *config.Config
	backend *backend.BackendResult
}

func (a *app) engine() (*services.Propagator, *services.MonthView) {
	s := a.backend.Backend
	return services.NewPropagator(s, a.cfg.HorizonYears), services.NewMonthView(s, services.NewGapFiller(s), nil)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "bilancioctl",
		Short:         "Maintain the bilancio budget store",
		Long:          "bilancioctl seeds the taxonomy, materializes months and inspects budgets\nusing the same configuration as the server.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			// seed is explicit here
			bcfg.SeedDefaults = false
			res, err := backend.NewFactory(logger.Logger).CreateBackend(cmd.Context(), bcfg)
			if err != nil {
				return err
			}
			a.cfg, a.backend = cfg, res
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.backend.Close()
		},
	}

	root.AddCommand(
		newSeedCmd(a),
		newSyncCmd(a),
		newPropagateCmd(a),
		newListCmd(a),
	)
	return root
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the default income sources and expense groups to an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := services.NewTaxonomyInitializer(a.backend.Backend).Run(cmd.Context())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d sources and %d groups\n", len(services.DefaultSources), len(services.DefaultGroups))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "taxonomy already present, nothing to do")
			}
			return nil
		},
	}
}

func addMonthFlags(cmd *cobra.Command, year, month *int) {
	cmd.Flags().IntVar(year, "year", 0, "year (required)")
	cmd.Flags().IntVar(month, "month", 0, "month 1-12 (required)")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
}

func newSyncCmd(a *app) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy series declarations forward into a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, view := a.engine()
			res := view.Sync(cmd.Context(), core.NewYearMonth(year, month))
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: copied %d declarations\n", core.NewYearMonth(year, month), res.CopiedCount)
			return nil
		},
	}
	addMonthFlags(cmd, &year, &month)
	return cmd
}

func newPropagateCmd(a *app) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Fill a declaration's series up to the horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.backend.Backend.GetByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("declaration %d: %w", id, err)
			}
			propagator, _ := a.engine()
			created, err := propagator.Propagate(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "declaration %d (%s, %s): created %d, horizon %s\n",
				d.ID, d.Key(), d.Mode, created, propagator.Horizon(d.YearMonth()))
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "declaration id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the declarations and totals of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, view := a.engine()
			o, err := view.Month(cmd.Context(), core.NewYearMonth(year, month))
			if err != nil {
				return err
			}
			labels, err := sheets.LoadLabels(cmd.Context(), a.backend.Backend)
			if err != nil {
				return err
			}
			return printOverview(cmd, o, labels)
		},
	}
	addMonthFlags(cmd, &year, &month)
	return cmd
}

func printOverview(cmd *cobra.Command, o core.MonthOverview, labels sheets.Labels) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tSUBCATEGORY\tMODE\tINSTALLMENT\tAMOUNT")
	for _, d := range o.Declarations {
		cat, sub := labels.Category(d)
		inst := ""
		if d.Mode == core.Installment {
			inst = fmt.Sprintf("%d/%d", d.InstallmentIndex, d.InstallmentsTotal)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Type, cat, sub, d.Mode, inst, core.FormatAmount(d.Amount))
	}
	fmt.Fprintf(tw, "\t\t\t\t\tincome\t%s\n", core.FormatAmount(o.IncomeTotal))
	fmt.Fprintf(tw, "\t\t\t\t\texpense\t%s\n", core.FormatAmount(o.ExpenseTotal))
	fmt.Fprintf(tw, "\t\t\t\t\tbalance\t%s\n", core.FormatAmount(o.Balance))
	return tw.Flush()
}
