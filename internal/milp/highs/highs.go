// Package highs submits models to the HiGHS solver executable. The model is
// written in LP format, HiGHS runs as a subprocess bounded by the configured
// time limit, and its solution file is parsed back into a normalized result.
package highs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coverage-planner/internal/milp"
)

// DefaultBinary is the executable looked up on PATH when none is configured.
const DefaultBinary = "highs"

// cancelGrace is how long past the solver's own time limit we wait before
// killing the process outright.
const cancelGrace = 15 * time.Second

// Backend runs the HiGHS binary.
type Backend struct {
	// Path to the highs executable. Empty means DefaultBinary on PATH.
	Path string
}

// New returns a Backend using the given executable path.
func New(path string) *Backend {
	if path == "" {
		path = DefaultBinary
	}
	return &Backend{Path: path}
}

// Name implements milp.Backend.
func (b *Backend) Name() string { return "highs" }

// Solve implements milp.Backend.
func (b *Backend) Solve(ctx context.Context, m *milp.Model, opts milp.Options) (*milp.Result, error) {
	start := time.Now()

	dir := opts.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "covplan-highs-*")
		if err != nil {
			return nil, eris.Wrap(err, "highs: temp dir")
		}
		dir = tmp
	}
	if !opts.KeepFiles {
		defer os.RemoveAll(dir)
	}

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	optPath := filepath.Join(dir, "highs.opt")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, eris.Wrap(err, "highs: create model file")
	}
	if err := milp.WriteLP(f, m); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "highs: close model file")
	}

	if err := os.WriteFile(optPath, []byte(optionsFile(opts, solPath)), 0o644); err != nil {
		return nil, eris.Wrap(err, "highs: write options file")
	}

	runCtx := ctx
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.TimeLimit+cancelGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, b.Path, "--options_file", optPath, lpPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return nil, eris.Wrapf(runCtx.Err(), "highs: killed after %s", time.Since(start).Round(time.Millisecond))
		}
		return nil, eris.Wrapf(err, "highs: run %s: %s", b.Path, tail(out, 400))
	}

	res, err := parseSolutionFile(solPath, m)
	if err != nil {
		return nil, err
	}
	res.Runtime = time.Since(start)
	if gap, ok := parseGap(out); ok {
		res.Gap = gap
	}

	zap.L().Debug("highs: solve finished",
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective),
		zap.Duration("runtime", res.Runtime),
	)
	return res, nil
}

// optionsFile renders the HiGHS options file. Everything, including the
// solution file path, goes through options so the CLI invocation stays the
// same across HiGHS versions.
func optionsFile(opts milp.Options, solPath string) string {
	var sb strings.Builder
	if opts.TimeLimit > 0 {
		fmt.Fprintf(&sb, "time_limit = %g\n", opts.TimeLimit.Seconds())
	}
	if opts.GapTolerance > 0 {
		fmt.Fprintf(&sb, "mip_rel_gap = %g\n", opts.GapTolerance)
	}
	if opts.Threads > 0 {
		fmt.Fprintf(&sb, "threads = %d\n", opts.Threads)
	}
	fmt.Fprintf(&sb, "write_solution_to_file = true\n")
	fmt.Fprintf(&sb, "solution_file = %s\n", solPath)
	return sb.String()
}

// parseSolutionFile reads the HiGHS raw solution file: a model status, an
// objective, and a Columns section of name/value pairs. Tolerates both the
// "Model status\nOptimal" and "Model status: Optimal" layouts.
func parseSolutionFile(path string, m *milp.Model) (*milp.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "highs: open solution file")
	}
	defer f.Close()

	colIndex := make(map[string]int, len(m.Vars))
	for i, v := range m.Vars {
		colIndex[v.Name] = i
	}

	res := &milp.Result{Status: milp.StatusError}
	values := make([]float64, len(m.Vars))
	haveValues := false

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	expectStatus := false
	inColumns := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Model status:"):
			applyStatus(res, strings.TrimSpace(strings.TrimPrefix(line, "Model status:")))
		case line == "Model status":
			expectStatus = true
		case expectStatus:
			applyStatus(res, line)
			expectStatus = false
		case strings.HasPrefix(line, "Objective"):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if v, err := strconv.ParseFloat(fields[len(fields)-1], 64); err == nil {
					res.Objective = v
				}
			}
		case strings.HasPrefix(line, "# Columns"):
			inColumns = true
		case strings.HasPrefix(line, "#"):
			// Any other section header ends the columns block.
			inColumns = false
		case inColumns:
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			idx, ok := colIndex[fields[0]]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				continue
			}
			values[idx] = v
			haveValues = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "highs: read solution file")
	}

	if res.Status == milp.StatusOptimal || res.Status == milp.StatusFeasible {
		if !haveValues {
			return nil, eris.New("highs: solution file has no column values")
		}
		res.Values = values
	}
	return res, nil
}

// applyStatus maps a HiGHS model status string onto the normalized status.
// A time-limit stop with a feasible point is reported as feasible, never
// upgraded to optimal.
func applyStatus(res *milp.Result, s string) {
	ls := strings.ToLower(s)
	switch {
	case strings.Contains(ls, "optimal"):
		res.Status = milp.StatusOptimal
	case strings.Contains(ls, "infeasible"):
		res.Status = milp.StatusInfeasible
	case strings.Contains(ls, "time limit"):
		res.Status = milp.StatusFeasible
		res.TimedOut = true
	case strings.Contains(ls, "bound") || strings.Contains(ls, "interrupt") || strings.Contains(ls, "limit"):
		res.Status = milp.StatusFeasible
	default:
		res.Status = milp.StatusError
	}
}

// parseGap scrapes the final relative gap from the MIP log, best effort.
func parseGap(out []byte) (float64, bool) {
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	gap := 0.0
	found := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "Gap") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v := strings.TrimSuffix(fields[1], "%")
		if g, err := strconv.ParseFloat(v, 64); err == nil {
			gap = g / 100
			found = true
		}
	}
	return gap, found
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
