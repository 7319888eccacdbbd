package loader

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/coverage-planner/internal/model"
)

// Scenario is a YAML file naming the input files and parameters for one
// planning run, so a study can be re-run from a single artifact.
type Scenario struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"` // json | csv | xlsx | shp

	// Instance is the path for the json format.
	Instance string `yaml:"instance"`
	// Households/Sites/Distances are the paths for csv and xlsx; shp uses
	// Households and Sites only.
	Households string `yaml:"households"`
	Sites      string `yaml:"sites"`
	Distances  string `yaml:"distances"`

	ThresholdKm float64 `yaml:"threshold_km"`
	Budget      int     `yaml:"budget"`
}

// LoadScenario parses a scenario file and loads the instance it describes.
// Relative paths resolve against the scenario file's directory.
func LoadScenario(path string) (*model.Instance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: read scenario")
	}

	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, eris.Wrap(err, "loader: parse scenario")
	}

	dir := filepath.Dir(path)
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var inst *model.Instance
	switch sc.Format {
	case "json":
		inst, err = LoadJSON(abs(sc.Instance))
	case "csv":
		inst, err = LoadCSV(abs(sc.Households), abs(sc.Sites), abs(sc.Distances), sc.ThresholdKm, sc.Budget)
	case "xlsx":
		inst, err = LoadXLSX(abs(sc.Households), abs(sc.Sites), abs(sc.Distances), sc.ThresholdKm, sc.Budget)
	case "shp":
		inst, err = LoadShapefile(abs(sc.Households), abs(sc.Sites), sc.ThresholdKm, sc.Budget)
	default:
		return nil, eris.Wrapf(model.ErrConfiguration, "loader: scenario format %q (want json, csv, xlsx, or shp)", sc.Format)
	}
	if err != nil {
		return nil, err
	}

	if sc.Name != "" {
		inst.Name = sc.Name
	}
	// Scenario parameters override what the instance file carried.
	if sc.Format == "json" {
		if sc.ThresholdKm > 0 {
			inst.Threshold = sc.ThresholdKm
		}
		if sc.Budget > 0 {
			inst.Budget = sc.Budget
		}
	}
	return inst, nil
}
