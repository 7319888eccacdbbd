package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-planner/internal/config"
	"github.com/sells-group/coverage-planner/internal/coverage"
	"github.com/sells-group/coverage-planner/internal/loader"
	"github.com/sells-group/coverage-planner/internal/mclp"
	"github.com/sells-group/coverage-planner/internal/model"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a coverage planning instance",
	Long: `Load an instance, build the coverage structure, and pick the new
hospital sites that maximize covered population.

Input is one of:
  --scenario plan.yaml          a scenario file naming the inputs
  --instance inst.json          a self-contained JSON instance
  --households h.csv --sites s.csv --distances d.csv
                                the CSV/XLSX triple, or shapefiles with
                                --format shp (distances derived from
                                coordinates)

Examples:
  covplan solve --instance timor.json
  covplan solve --scenario study.yaml --backend cbc --time-limit 120
  covplan solve --households h.csv --sites s.csv --distances d.csv \
      --threshold 12 --budget 4 --save`,
	RunE: runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.String("scenario", "", "scenario YAML naming the input files")
	f.String("instance", "", "JSON instance file")
	f.String("households", "", "households file (csv, xlsx, or shp)")
	f.String("sites", "", "sites file (csv, xlsx, or shp)")
	f.String("distances", "", "distance triples file (csv or xlsx)")
	f.String("format", "csv", "triple input format: csv, xlsx, or shp")
	f.Float64("threshold", 0, "coverage threshold in km (overrides config and instance)")
	f.Int("budget", 0, "maximum new sites to open (overrides config and instance)")
	f.String("backend", "", "MILP backend: highs, cbc, or enum (overrides config)")
	f.String("binary", "", "solver binary path (overrides config)")
	f.Int("time-limit", 0, "solver time limit in seconds (overrides config)")
	f.Float64("gap", 0, "relative optimality gap tolerance (overrides config)")
	f.Int("threads", 0, "solver threads (overrides config)")
	f.Bool("keep-files", false, "keep solver scratch files")
	f.Bool("tie-break", false, "resolve objective ties toward lower-ranked site IDs")
	f.Bool("save", false, "save the plan to the store")
	f.String("output", "", "write the plan as JSON to this file")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	solverCfg := applySolverOverrides(cmd)
	effective := *cfg
	effective.Solver = solverCfg
	if err := effective.Validate("solve"); err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "solve"))

	inst, err := loadInstance(cmd)
	if err != nil {
		return err
	}

	log.Info("instance loaded",
		zap.String("instance", inst.Name),
		zap.Int("households", len(inst.Households)),
		zap.Int("sites", len(inst.Sites)),
		zap.Float64("threshold_km", inst.Threshold),
		zap.Int("budget", inst.Budget),
	)

	idx, err := coverage.Build(ctx, len(inst.Households), len(inst.Sites), inst.Threshold, inst.Distances.Func())
	if err != nil {
		return err
	}

	backend, err := solverBackend(solverCfg)
	if err != nil {
		return err
	}

	tieBreak, _ := cmd.Flags().GetBool("tie-break")
	plan, err := mclp.Solve(ctx, idx, inst, backend, solverOptions(solverCfg), mclp.Params{
		TieBreak: tieBreak || solverCfg.TieBreak,
	})
	if err != nil {
		return err
	}

	printPlanReport(os.Stdout, plan)

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		raw, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return eris.Wrap(err, "solve: marshal plan")
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return eris.Wrapf(err, "solve: write %s", path)
		}
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SavePlan(ctx, plan); err != nil {
			return err
		}
		log.Info("plan saved", zap.String("id", plan.ID))
	}

	return nil
}

// applySolverOverrides returns the solver config with CLI flag overrides applied.
func applySolverOverrides(cmd *cobra.Command) (c config.SolverConfig) {
	c = cfg.Solver

	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		c.Backend = v
	}
	if v, _ := cmd.Flags().GetString("binary"); v != "" {
		c.Binary = v
	}
	if v, _ := cmd.Flags().GetInt("time-limit"); v > 0 {
		c.TimeLimitSecs = v
	}
	if cmd.Flags().Changed("gap") {
		c.GapTolerance, _ = cmd.Flags().GetFloat64("gap")
	}
	if v, _ := cmd.Flags().GetInt("threads"); v > 0 {
		c.Threads = v
	}
	if v, _ := cmd.Flags().GetBool("keep-files"); v {
		c.KeepFiles = true
	}

	return c
}

// loadInstance resolves the input flags into a validated instance.
func loadInstance(cmd *cobra.Command) (*model.Instance, error) {
	threshold := cfg.Coverage.ThresholdKm
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	budget := cfg.Coverage.Budget
	if cmd.Flags().Changed("budget") {
		budget, _ = cmd.Flags().GetInt("budget")
	}

	if path, _ := cmd.Flags().GetString("scenario"); path != "" {
		return loader.LoadScenario(path)
	}

	if path, _ := cmd.Flags().GetString("instance"); path != "" {
		inst, err := loader.LoadJSON(path)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("threshold") {
			inst.Threshold = threshold
		}
		if cmd.Flags().Changed("budget") {
			inst.Budget = budget
		}
		return inst, inst.Validate()
	}

	hPath, _ := cmd.Flags().GetString("households")
	sPath, _ := cmd.Flags().GetString("sites")
	dPath, _ := cmd.Flags().GetString("distances")
	if hPath == "" || sPath == "" {
		return nil, eris.Wrap(model.ErrConfiguration, "solve: need --scenario, --instance, or --households/--sites")
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "csv":
		return loader.LoadCSV(hPath, sPath, dPath, threshold, budget)
	case "xlsx":
		return loader.LoadXLSX(hPath, sPath, dPath, threshold, budget)
	case "shp":
		return loader.LoadShapefile(hPath, sPath, threshold, budget)
	}
	return nil, eris.Wrapf(model.ErrConfiguration, "solve: unknown format %q", format)
}
