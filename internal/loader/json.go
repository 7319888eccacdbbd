package loader

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/model"
)

// jsonInstance is the self-contained interchange format: ID lists, a
// population map, and nested distance maps keyed by household then site.
type jsonInstance struct {
	Name               string                        `json:"name"`
	Households         []string                      `json:"households"`
	ExistingHospitals  []string                      `json:"existing_hospitals"`
	CandidateHospitals []string                      `json:"candidate_hospitals"`
	Population         map[string]int64              `json:"population"`
	TravelDistances    map[string]map[string]float64 `json:"travel_distances"`
	MaxTravelDistance  float64                       `json:"max_travel_distance"`
	MaxNewHospitals    int                           `json:"max_new_hospitals"`
}

// LoadJSON reads a JSON instance file. A site listed as both existing and
// candidate, or a distance referencing an undeclared ID, is a
// configuration error, not a silent skip.
func LoadJSON(path string) (*model.Instance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: read json instance")
	}
	return ParseJSON(raw, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// ParseJSON parses an instance from raw interchange bytes. fallbackName is
// used when the document carries no name, e.g. for HTTP request bodies.
func ParseJSON(raw []byte, fallbackName string) (*model.Instance, error) {
	var ji jsonInstance
	if err := json.Unmarshal(raw, &ji); err != nil {
		return nil, eris.Wrap(err, "loader: parse json instance")
	}

	name := ji.Name
	if name == "" {
		name = fallbackName
	}

	existing := make(map[string]bool, len(ji.ExistingHospitals))
	for _, id := range ji.ExistingHospitals {
		existing[id] = true
	}
	for _, id := range ji.CandidateHospitals {
		if existing[id] {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: site %q flagged both existing and candidate", id)
		}
	}

	households := make([]model.Household, 0, len(ji.Households))
	for _, id := range ji.Households {
		pop, ok := ji.Population[id]
		if !ok {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: household %q has no population entry", id)
		}
		households = append(households, model.Household{ID: id, Population: pop})
	}

	sites := make([]model.Site, 0, len(ji.ExistingHospitals)+len(ji.CandidateHospitals))
	for _, id := range ji.ExistingHospitals {
		sites = append(sites, model.Site{ID: id, Existing: true})
	}
	for _, id := range ji.CandidateHospitals {
		sites = append(sites, model.Site{ID: id})
	}

	inst, err := assemble(name, households, sites, ji.MaxTravelDistance, ji.MaxNewHospitals)
	if err != nil {
		return nil, err
	}

	hIdx := make(map[string]int, len(households))
	for i, h := range households {
		hIdx[h.ID] = i
	}
	sIdx := make(map[string]int, len(sites))
	for j, s := range sites {
		sIdx[s.ID] = j
	}
	for hid, row := range ji.TravelDistances {
		i, ok := hIdx[hid]
		if !ok {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: travel_distances references unknown household %q", hid)
		}
		for sid, d := range row {
			j, ok := sIdx[sid]
			if !ok {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: travel_distances references unknown site %q", sid)
			}
			if d < 0 {
				return nil, eris.Wrapf(model.ErrConfiguration, "loader: negative distance %g for %s->%s", d, hid, sid)
			}
			inst.Distances.Set(i, j, d)
		}
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// WriteJSON writes an instance in the same interchange format, the
// counterpart to LoadJSON used by the generate command.
func WriteJSON(path string, inst *model.Instance) error {
	ji := jsonInstance{
		Name:              inst.Name,
		Population:        make(map[string]int64, len(inst.Households)),
		TravelDistances:   make(map[string]map[string]float64, len(inst.Households)),
		MaxTravelDistance: inst.Threshold,
		MaxNewHospitals:   inst.Budget,
	}
	for _, h := range inst.Households {
		ji.Households = append(ji.Households, h.ID)
		ji.Population[h.ID] = h.Population
	}
	for _, s := range inst.Sites {
		if s.Existing {
			ji.ExistingHospitals = append(ji.ExistingHospitals, s.ID)
		} else {
			ji.CandidateHospitals = append(ji.CandidateHospitals, s.ID)
		}
	}
	for i, h := range inst.Households {
		row := make(map[string]float64, len(inst.Sites))
		for j, s := range inst.Sites {
			// Unreachable pairs are omitted; JSON has no Inf.
			if d := inst.Distances.At(i, j); !math.IsInf(d, 1) {
				row[s.ID] = d
			}
		}
		ji.TravelDistances[h.ID] = row
	}

	raw, err := json.MarshalIndent(&ji, "", "  ")
	if err != nil {
		return eris.Wrap(err, "loader: marshal json instance")
	}
	return eris.Wrap(os.WriteFile(path, raw, 0o644), "loader: write json instance")
}
