package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/coverage-planner/internal/model"
)

// printPlanReport writes the human-readable solve report. Population counts
// get thousands separators; instances run into the hundreds of thousands.
func printPlanReport(w io.Writer, plan *model.Plan) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Instance:     %s\n", plan.InstanceName)
	p.Fprintf(w, "Status:       %s", plan.Status)
	if plan.TimedOut {
		p.Fprintf(w, " (time limit reached)")
	}
	p.Fprintf(w, "\n")
	if plan.Solver != "" {
		p.Fprintf(w, "Solver:       %s\n", plan.Solver)
	}
	p.Fprintf(w, "Threshold:    %.1f km, budget %d\n", plan.Threshold, plan.Budget)

	if plan.Status == model.StatusInfeasible || plan.Status == model.StatusError {
		return
	}

	p.Fprintf(w, "Covered:      %d of %d people (%.1f%%)\n",
		plan.CoveredPopulation, plan.TotalPopulation, plan.CoverageRate()*100)
	p.Fprintf(w, "Households:   %d covered, %d uncovered\n",
		plan.CoveredHouseholds, plan.UncoveredHouseholds)

	if len(plan.OpenedSites) > 0 {
		p.Fprintf(w, "Open new:     %s\n", strings.Join(plan.OpenedSites, ", "))
	} else {
		p.Fprintf(w, "Open new:     none\n")
	}
	p.Fprintf(w, "Existing:     %d sites\n", len(plan.ExistingSites))

	if n := len(plan.UncoverableHouseholds); n > 0 {
		p.Fprintf(w, "Uncoverable:  %d households (%d people) have no site within %.1f km\n",
			n, plan.UncoverablePopulation, plan.Threshold)
	}
	if n := len(plan.UnservedReachable); n > 0 {
		p.Fprintf(w, "Unserved:     %d households reachable by a candidate the budget left closed\n", n)
	}
	if plan.Gap > 0 {
		p.Fprintf(w, "Gap:          %.2f%%\n", plan.Gap*100)
	}
	p.Fprintf(w, "Solve time:   %s\n", plan.SolveTime.Round(1e6))
}

func writePlansTable(w io.Writer, plans []model.Plan) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans.")
		return
	}

	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "%-36s %-20s %-10s %15s %8s %7s\n",
		"ID", "Instance", "Status", "Covered", "Rate", "Opened")
	fmt.Fprintln(w, strings.Repeat("-", 102))
	for _, plan := range plans {
		name := plan.InstanceName
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		p.Fprintf(w, "%-36s %-20s %-10s %15d %7.1f%% %7d\n",
			plan.ID, name, plan.Status, plan.CoveredPopulation,
			plan.CoverageRate()*100, len(plan.OpenedSites))
	}
}

func writePlansCSV(w io.Writer, plans []model.Plan) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"id", "instance", "status", "covered_population", "total_population", "opened_sites", "budget", "threshold_km", "created_at"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "plans: write CSV header")
	}

	for _, plan := range plans {
		row := []string{
			plan.ID,
			plan.InstanceName,
			string(plan.Status),
			fmt.Sprintf("%d", plan.CoveredPopulation),
			fmt.Sprintf("%d", plan.TotalPopulation),
			strings.Join(plan.OpenedSites, " "),
			fmt.Sprintf("%d", plan.Budget),
			fmt.Sprintf("%g", plan.Threshold),
			plan.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "plans: write CSV row")
		}
	}
	return nil
}
