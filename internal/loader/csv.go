package loader

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/model"
)

// LoadCSV reads an instance from three CSV files: households
// (id,population[,lng,lat]), sites (id,existing[,lng,lat]) and sparse
// distance triples (household_id,site_id,km). Pairs absent from the
// distance file are treated as unreachable. Threshold and budget come from
// the caller; CSV carries no instance metadata.
func LoadCSV(householdsPath, sitesPath, distancesPath string, threshold float64, budget int) (*model.Instance, error) {
	hRows, err := readCSV(householdsPath)
	if err != nil {
		return nil, err
	}
	sRows, err := readCSV(sitesPath)
	if err != nil {
		return nil, err
	}
	dRows, err := readCSV(distancesPath)
	if err != nil {
		return nil, err
	}

	households, err := parseHouseholdRows(hRows)
	if err != nil {
		return nil, err
	}
	sites, err := parseSiteRows(sRows)
	if err != nil {
		return nil, err
	}

	inst, err := assemble(instanceName(householdsPath), households, sites, threshold, budget)
	if err != nil {
		return nil, err
	}
	if err := applyDistanceRows(dRows, inst); err != nil {
		return nil, err
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// readCSV reads all records, skipping a header row when the first record
// starts with a column-name word rather than an ID.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}
	if len(records) > 0 && looksLikeHeader(records[0]) {
		records = records[1:]
	}
	return records, nil
}

func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(row[0])) {
	case "id", "household", "household_id", "site", "site_id":
		return true
	}
	return false
}

func instanceName(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}
