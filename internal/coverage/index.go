// Package coverage builds the sparse household↔site reachability structure
// that replaces the dense all-pairs distance check. Downstream formulation
// iterates cover sets, never the full household×site cross product.
package coverage

import (
	"context"
	"runtime"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coverage-planner/internal/model"
)

// Index maps each household to the sites within the distance threshold and
// each site to the households it can reach. The two mappings are exact
// inverses. Immutable after Build.
type Index struct {
	threshold  float64
	households int
	sites      int

	cover     [][]int32 // household -> sites with d(i,j) <= threshold
	coveredBy [][]int32 // site -> households within threshold
	arcs      int
}

// Build scans the distance relation once and records every pair within the
// threshold. O(n·m) to build, O(|cover(i)|) per lookup afterward. The scan
// is chunked across workers; dist must be safe for concurrent reads, which
// holds for any matrix or pure function.
func Build(ctx context.Context, households, sites int, threshold float64, dist model.DistanceFunc) (*Index, error) {
	if households < 1 {
		return nil, eris.Wrap(model.ErrConfiguration, "coverage: need at least one household")
	}
	if sites < 1 {
		return nil, eris.Wrap(model.ErrConfiguration, "coverage: need at least one site")
	}
	if threshold <= 0 {
		return nil, eris.Wrapf(model.ErrConfiguration, "coverage: threshold must be positive, got %g", threshold)
	}
	if dist == nil {
		return nil, eris.Wrap(model.ErrConfiguration, "coverage: nil distance function")
	}

	idx := &Index{
		threshold:  threshold,
		households: households,
		sites:      sites,
		cover:      make([][]int32, households),
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > households {
		workers = households
	}
	chunk := (households + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < households; start += chunk {
		end := start + chunk
		if end > households {
			end = households
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				var row []int32
				for j := 0; j < sites; j++ {
					if dist(i, j) <= threshold {
						row = append(row, int32(j))
					}
				}
				idx.cover[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "coverage: build")
	}

	// Invert. Single pass; cover rows are already sorted by construction,
	// so the inverse rows come out sorted too.
	idx.coveredBy = make([][]int32, sites)
	for i, row := range idx.cover {
		idx.arcs += len(row)
		for _, j := range row {
			idx.coveredBy[j] = append(idx.coveredBy[j], int32(i))
		}
	}

	return idx, nil
}

// Households returns the number of demand points indexed.
func (x *Index) Households() int { return x.households }

// Sites returns the number of sites indexed.
func (x *Index) Sites() int { return x.sites }

// Threshold returns the distance cutoff the index was built with.
func (x *Index) Threshold() float64 { return x.threshold }

// Cover returns the sites within threshold of household i, ascending by
// site index. The slice is shared; callers must not mutate it.
func (x *Index) Cover(i int) []int32 { return x.cover[i] }

// CoveredBy returns the households within threshold of site j, ascending by
// household index. The slice is shared; callers must not mutate it.
func (x *Index) CoveredBy(j int) []int32 { return x.coveredBy[j] }

// Arcs returns Σ|cover(i)|, the nonzero count of the sparse relation. This
// bounds the linking-constraint density of the formulation.
func (x *Index) Arcs() int { return x.arcs }

// Uncoverable returns the households whose cover set is empty. No choice of
// open sites can serve them under this threshold; they are reported as a
// data fact in every plan, never silently dropped.
func (x *Index) Uncoverable() []int {
	var out []int
	for i, row := range x.cover {
		if len(row) == 0 {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
