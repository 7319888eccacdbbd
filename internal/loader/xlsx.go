package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/coverage-planner/internal/model"
)

// LoadXLSX reads the same triple layout as LoadCSV from the first sheet of
// three workbook files.
func LoadXLSX(householdsPath, sitesPath, distancesPath string, threshold float64, budget int) (*model.Instance, error) {
	hRows, err := readXLSX(householdsPath)
	if err != nil {
		return nil, err
	}
	sRows, err := readXLSX(sitesPath)
	if err != nil {
		return nil, err
	}
	dRows, err := readXLSX(distancesPath)
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

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) > 0 && looksLikeHeader(rows[0]) {
		rows = rows[1:]
	}
	return rows, nil
}
