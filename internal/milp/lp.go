package milp

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// WriteLP writes the model in CPLEX LP format, the lingua franca the
// subprocess backends feed to HiGHS and CBC. All variables are declared in
// the Binary section.
func WriteLP(w io.Writer, m *Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\\ %s\n", m.Name)

	if m.Sense == Maximize {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}

	fmt.Fprint(bw, " obj:")
	wroteObj := false
	col := 5
	for i, v := range m.Vars {
		if v.Obj == 0 {
			continue
		}
		col = writeTerm(bw, col, v.Obj, m.Vars[i].Name, !wroteObj)
		wroteObj = true
	}
	if !wroteObj {
		// LP format wants a non-empty objective; a zero coefficient on any
		// declared variable works.
		fmt.Fprintf(bw, " 0 %s", m.Vars[0].Name)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for ci, c := range m.Cons {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("c%d", ci)
		}
		fmt.Fprintf(bw, " %s:", name)
		col = len(name) + 2
		first := true
		for _, t := range c.Terms {
			col = writeTerm(bw, col, t.Coef, m.Vars[t.Var].Name, first)
			first = false
		}
		if first {
			fmt.Fprintf(bw, " 0 %s", m.Vars[0].Name)
		}
		fmt.Fprintf(bw, " %s %s\n", c.Rel, formatCoef(c.RHS))
	}

	fmt.Fprintln(bw, "Binary")
	for _, v := range m.Vars {
		fmt.Fprintf(bw, " %s\n", v.Name)
	}
	fmt.Fprintln(bw, "End")

	return eris.Wrap(bw.Flush(), "milp: write lp")
}

// writeTerm appends one signed coefficient·name pair, wrapping lines so no
// row grows unboundedly long. Returns the updated column position.
func writeTerm(w *bufio.Writer, col int, coef float64, name string, first bool) int {
	var s string
	switch {
	case first && coef >= 0:
		s = fmt.Sprintf(" %s %s", formatCoef(coef), name)
	case first:
		s = fmt.Sprintf(" -%s %s", formatCoef(-coef), name)
	case coef >= 0:
		s = fmt.Sprintf(" + %s %s", formatCoef(coef), name)
	default:
		s = fmt.Sprintf(" - %s %s", formatCoef(-coef), name)
	}
	if col+len(s) > 200 {
		fmt.Fprint(w, "\n   ")
		col = 3
	}
	fmt.Fprint(w, s)
	return col + len(s)
}

func formatCoef(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
