// Package cbc submits models to the Coin-OR CBC solver executable, the
// same file-based contract as the highs backend: LP file in, solution file
// out, subprocess bounded by the configured time limit.
package cbc

import (
	"bufio"
	"context"
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
const DefaultBinary = "cbc"

const cancelGrace = 15 * time.Second

// Backend runs the CBC binary.
type Backend struct {
	// Path to the cbc executable. Empty means DefaultBinary on PATH.
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
func (b *Backend) Name() string { return "cbc" }

// Solve implements milp.Backend.
func (b *Backend) Solve(ctx context.Context, m *milp.Model, opts milp.Options) (*milp.Result, error) {
	start := time.Now()

	dir := opts.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "covplan-cbc-*")
		if err != nil {
			return nil, eris.Wrap(err, "cbc: temp dir")
		}
		dir = tmp
	}
	if !opts.KeepFiles {
		defer os.RemoveAll(dir)
	}

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, eris.Wrap(err, "cbc: create model file")
	}
	if err := milp.WriteLP(f, m); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "cbc: close model file")
	}

	args := buildArgs(lpPath, solPath, opts)

	runCtx := ctx
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.TimeLimit+cancelGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, b.Path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil {
			return nil, eris.Wrapf(runCtx.Err(), "cbc: killed after %s", time.Since(start).Round(time.Millisecond))
		}
		return nil, eris.Wrapf(err, "cbc: run %s: %s", b.Path, tail(out, 400))
	}

	res, err := parseSolutionFile(solPath, m)
	if err != nil {
		return nil, err
	}
	res.Runtime = time.Since(start)

	zap.L().Debug("cbc: solve finished",
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective),
		zap.Duration("runtime", res.Runtime),
	)
	return res, nil
}

// buildArgs assembles the CBC command line. CBC takes its parameters as
// bare words before the solve action.
func buildArgs(lpPath, solPath string, opts milp.Options) []string {
	args := []string{lpPath}
	if opts.TimeLimit > 0 {
		args = append(args, "-seconds", strconv.FormatFloat(opts.TimeLimit.Seconds(), 'f', 0, 64))
	}
	if opts.GapTolerance > 0 {
		args = append(args, "-ratioGap", strconv.FormatFloat(opts.GapTolerance, 'g', -1, 64))
	}
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args, "-solve", "-solution", solPath)
	return args
}

// parseSolutionFile reads CBC's solution file. The first line carries the
// status and objective ("Optimal - objective value 300.00"); the rest are
// "index name value reducedCost" rows, nonzero columns only.
func parseSolutionFile(path string, m *milp.Model) (*milp.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "cbc: open solution file")
	}
	defer f.Close()

	colIndex := make(map[string]int, len(m.Vars))
	for i, v := range m.Vars {
		colIndex[v.Name] = i
	}

	res := &milp.Result{Status: milp.StatusError}
	values := make([]float64, len(m.Vars))

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			parseStatusLine(res, line)
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		idx, ok := colIndex[fields[1]]
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
			values[idx] = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "cbc: read solution file")
	}
	if first {
		return nil, eris.New("cbc: empty solution file")
	}

	if res.Status == milp.StatusOptimal || res.Status == milp.StatusFeasible {
		res.Values = values
	}
	return res, nil
}

// parseStatusLine maps CBC's header line onto the normalized status. A
// stop on time or gap with an incumbent stays feasible, never optimal.
func parseStatusLine(res *milp.Result, line string) {
	ls := strings.ToLower(line)
	switch {
	case strings.HasPrefix(ls, "optimal"):
		res.Status = milp.StatusOptimal
	case strings.Contains(ls, "infeasible"):
		res.Status = milp.StatusInfeasible
	case strings.Contains(ls, "time"):
		res.Status = milp.StatusFeasible
		res.TimedOut = true
	case strings.Contains(ls, "stopped"):
		res.Status = milp.StatusFeasible
	default:
		res.Status = milp.StatusError
	}

	if i := strings.Index(ls, "objective value"); i >= 0 {
		rest := strings.Fields(line[i+len("objective value"):])
		if len(rest) > 0 {
			if v, err := strconv.ParseFloat(rest[0], 64); err == nil {
				res.Objective = v
			}
		}
	}
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
