package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// Household is a demand point. Population is the number of people counted
// toward the objective when the household is covered.
type Household struct {
	ID         string  `json:"id"`
	Population int64   `json:"population"`
	Lng        float64 `json:"lng,omitempty"`
	Lat        float64 `json:"lat,omitempty"`
}

// Site is a hospital location. Existing sites are pinned open by the model;
// the rest form the candidate pool.
type Site struct {
	ID       string  `json:"id"`
	Existing bool    `json:"existing"`
	Lng      float64 `json:"lng,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
}

// DistanceFunc returns the travel distance from household index i to site
// index j. Distances are read-only inputs, already resolved to numbers by
// the loader; the core never computes raw geography.
type DistanceFunc func(household, site int) float64

// DistanceMatrix is a dense household×site distance table.
type DistanceMatrix struct {
	rows, cols int
	data       []float64
}

// NewDistanceMatrix allocates an n×m matrix with every entry set to +Inf,
// i.e. beyond any threshold until filled in.
func NewDistanceMatrix(households, sites int) *DistanceMatrix {
	data := make([]float64, households*sites)
	for i := range data {
		data[i] = math.Inf(1)
	}
	return &DistanceMatrix{rows: households, cols: sites, data: data}
}

// Set records the distance from household i to site j.
func (m *DistanceMatrix) Set(i, j int, d float64) {
	m.data[i*m.cols+j] = d
}

// At returns the distance from household i to site j.
func (m *DistanceMatrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Func adapts the matrix to a DistanceFunc.
func (m *DistanceMatrix) Func() DistanceFunc {
	return m.At
}

// Instance is one fully loaded MCLP problem: demand, sites, and the distance
// relation between them. Immutable once loaded.
type Instance struct {
	Name       string      `json:"name"`
	Households []Household `json:"households"`
	Sites      []Site      `json:"sites"`
	Threshold  float64     `json:"threshold"`
	Budget     int         `json:"budget"`

	Distances *DistanceMatrix `json:"-"`
}

// TotalPopulation sums household populations.
func (in *Instance) TotalPopulation() int64 {
	var total int64
	for _, h := range in.Households {
		total += h.Population
	}
	return total
}

// Candidates returns the number of non-existing sites.
func (in *Instance) Candidates() int {
	var n int
	for _, s := range in.Sites {
		if !s.Existing {
			n++
		}
	}
	return n
}

// Validate checks the structural invariants the core relies on. Violations
// are configuration bugs, reported immediately and never retried.
func (in *Instance) Validate() error {
	if len(in.Households) < 1 {
		return eris.Wrap(ErrConfiguration, "instance: no households")
	}
	if len(in.Sites) < 1 {
		return eris.Wrap(ErrConfiguration, "instance: no sites")
	}
	if in.Threshold <= 0 {
		return eris.Wrapf(ErrConfiguration, "instance: threshold must be positive, got %g", in.Threshold)
	}
	if in.Budget < 0 {
		return eris.Wrapf(ErrConfiguration, "instance: negative budget %d", in.Budget)
	}
	seen := make(map[string]bool, len(in.Sites))
	for _, s := range in.Sites {
		if seen[s.ID] {
			return eris.Wrapf(ErrConfiguration, "instance: duplicate site id %q", s.ID)
		}
		seen[s.ID] = true
	}
	hseen := make(map[string]bool, len(in.Households))
	for _, h := range in.Households {
		if hseen[h.ID] {
			return eris.Wrapf(ErrConfiguration, "instance: duplicate household id %q", h.ID)
		}
		hseen[h.ID] = true
		if h.Population < 0 {
			return eris.Wrapf(ErrConfiguration, "instance: household %q has negative population", h.ID)
		}
	}
	if in.Distances == nil {
		return eris.Wrap(ErrConfiguration, "instance: missing distance relation")
	}
	if in.Distances.rows != len(in.Households) || in.Distances.cols != len(in.Sites) {
		return eris.Wrapf(ErrConfiguration,
			"instance: distance matrix is %dx%d, want %dx%d",
			in.Distances.rows, in.Distances.cols, len(in.Households), len(in.Sites))
	}
	return nil
}
