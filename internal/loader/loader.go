// Package loader resolves instance data from files into the numeric form
// the core consumes: households, sites, and a fully materialized distance
// relation. Formats: a self-contained JSON instance, CSV or XLSX triples,
// and point shapefiles whose coordinates are resolved to kilometers here,
// before the optimization core ever sees them.
package loader

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/model"
)

// parseHouseholdRows turns id,population[,lng,lat] rows into households.
func parseHouseholdRows(rows [][]string) ([]model.Household, error) {
	out := make([]model.Household, 0, len(rows))
	for n, row := range rows {
		if len(row) < 2 {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: households row %d: want at least id,population", n+1)
		}
		pop, err := strconv.ParseInt(strings.TrimSpace(row[1]), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: households row %d: bad population %q", n+1, row[1])
		}
		h := model.Household{ID: strings.TrimSpace(row[0]), Population: pop}
		if len(row) >= 4 {
			if h.Lng, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: households row %d: bad lng %q", n+1, row[2])
			}
			if h.Lat, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64); err != nil {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: households row %d: bad lat %q", n+1, row[3])
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// parseSiteRows turns id,existing[,lng,lat] rows into sites.
func parseSiteRows(rows [][]string) ([]model.Site, error) {
	out := make([]model.Site, 0, len(rows))
	for n, row := range rows {
		if len(row) < 2 {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: sites row %d: want at least id,existing", n+1)
		}
		existing, err := parseBool(row[1])
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: sites row %d: bad existing flag %q", n+1, row[1])
		}
		s := model.Site{ID: strings.TrimSpace(row[0]), Existing: existing}
		if len(row) >= 4 {
			if s.Lng, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: sites row %d: bad lng %q", n+1, row[2])
			}
			if s.Lat, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64); err != nil {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: sites row %d: bad lat %q", n+1, row[3])
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// applyDistanceRows fills the matrix from sparse household_id,site_id,km
// triples. Absent pairs stay +Inf, i.e. beyond any threshold.
func applyDistanceRows(rows [][]string, inst *model.Instance) error {
	hIdx := make(map[string]int, len(inst.Households))
	for i, h := range inst.Households {
		hIdx[h.ID] = i
	}
	sIdx := make(map[string]int, len(inst.Sites))
	for j, s := range inst.Sites {
		sIdx[s.ID] = j
	}

	for n, row := range rows {
		if len(row) < 3 {
			return eris.Wrapf(model.ErrConfiguration, "loader: distances row %d: want household,site,km", n+1)
		}
		hid, sid := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		i, ok := hIdx[hid]
		if !ok {
			return eris.Wrapf(model.ErrConfiguration, "loader: distances row %d: unknown household %q", n+1, hid)
		}
		j, ok := sIdx[sid]
		if !ok {
			return eris.Wrapf(model.ErrConfiguration, "loader: distances row %d: unknown site %q", n+1, sid)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil || d < 0 || math.IsNaN(d) {
			return eris.Wrapf(model.ErrConfiguration, "loader: distances row %d: bad distance %q", n+1, row[2])
		}
		inst.Distances.Set(i, j, d)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "existing":
		return true, nil
	case "0", "false", "no", "candidate":
		return false, nil
	}
	return false, eris.Errorf("not a boolean: %q", s)
}

// assemble builds and validates an Instance from parsed parts.
func assemble(name string, households []model.Household, sites []model.Site, threshold float64, budget int) (*model.Instance, error) {
	inst := &model.Instance{
		Name:       name,
		Households: households,
		Sites:      sites,
		Threshold:  threshold,
		Budget:     budget,
		Distances:  model.NewDistanceMatrix(len(households), len(sites)),
	}
	return inst, nil
}
