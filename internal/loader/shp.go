package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/model"
)

const earthRadiusKm = 6371.0

// LoadShapefile reads households and sites from two point shapefiles and
// resolves pairwise haversine distances in kilometers, so the core still
// only ever sees numbers. The household layer needs a POP attribute, the
// site layer an EXISTING attribute; an ID attribute is used when present,
// otherwise IDs are positional.
func LoadShapefile(householdsPath, sitesPath string, threshold float64, budget int) (*model.Instance, error) {
	households, err := readHouseholdPoints(householdsPath)
	if err != nil {
		return nil, err
	}
	sites, err := readSitePoints(sitesPath)
	if err != nil {
		return nil, err
	}

	inst, err := assemble(instanceName(householdsPath), households, sites, threshold, budget)
	if err != nil {
		return nil, err
	}
	for i, h := range households {
		for j, s := range sites {
			inst.Distances.Set(i, j, haversineKm(h.Lat, h.Lng, s.Lat, s.Lng))
		}
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

func readHouseholdPoints(path string) ([]model.Household, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	popIdx := fieldIndex(reader, "POP")
	if popIdx < 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "loader: %s: required shapefile field POP not found", path)
	}
	idIdx := fieldIndex(reader, "ID")

	var out []model.Household
	row := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			row++
			continue
		}
		pop, err := strconv.ParseInt(strings.TrimSpace(reader.ReadAttribute(row, popIdx)), 10, 64)
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: %s row %d: bad POP", path, row)
		}
		id := fmt.Sprintf("H%d", row+1)
		if idIdx >= 0 {
			if v := strings.TrimSpace(reader.ReadAttribute(row, idIdx)); v != "" {
				id = v
			}
		}
		out = append(out, model.Household{ID: id, Population: pop, Lng: pt.X, Lat: pt.Y})
		row++
	}
	return out, nil
}

func readSitePoints(path string) ([]model.Site, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	exIdx := fieldIndex(reader, "EXISTING")
	if exIdx < 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "loader: %s: required shapefile field EXISTING not found", path)
	}
	idIdx := fieldIndex(reader, "ID")

	var out []model.Site
	row := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			row++
			continue
		}
		existing, err := parseBool(reader.ReadAttribute(row, exIdx))
		if err != nil {
			return nil, eris.Wrapf(model.ErrConfiguration, "loader: %s row %d: bad EXISTING", path, row)
		}
		id := fmt.Sprintf("S%d", row+1)
		if idIdx >= 0 {
			if v := strings.TrimSpace(reader.ReadAttribute(row, idIdx)); v != "" {
				id = v
			}
		}
		out = append(out, model.Site{ID: id, Existing: existing, Lng: pt.X, Lat: pt.Y})
		row++
	}
	return out, nil
}

// fieldIndex returns the index of a named DBF field, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// haversineKm is the great-circle distance between two WGS84 points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
