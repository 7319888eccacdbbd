package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/coverage-planner/internal/model"
	"github.com/sells-group/coverage-planner/internal/store"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Inspect saved plans",
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved plans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("plans"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		instance, _ := cmd.Flags().GetString("instance")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		plans, err := st.ListPlans(ctx, store.PlanFilter{
			Instance: instance,
			Status:   model.SolveStatus(status),
			Limit:    limit,
		})
		if err != nil {
			return err
		}

		if format, _ := cmd.Flags().GetString("format"); format == "csv" {
			return writePlansCSV(os.Stdout, plans)
		}
		writePlansTable(os.Stdout, plans)
		return nil
	},
}

var plansShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("plans"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		plan, err := st.GetPlan(ctx, args[0])
		if err != nil {
			return err
		}
		printPlanReport(os.Stdout, plan)
		return nil
	},
}

var plansDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("plans"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeletePlan(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted plan %s\n", args[0])
		return nil
	},
}

func init() {
	f := plansListCmd.Flags()
	f.String("instance", "", "filter by instance name")
	f.String("status", "", "filter by status: optimal, feasible, infeasible, error")
	f.Int("limit", 0, "maximum number of plans (0 = store default)")
	f.String("format", "table", "output format: table or csv")

	plansCmd.AddCommand(plansListCmd)
	plansCmd.AddCommand(plansShowCmd)
	plansCmd.AddCommand(plansDeleteCmd)
	rootCmd.AddCommand(plansCmd)
}
