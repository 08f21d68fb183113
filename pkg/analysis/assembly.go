package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
	"golang.org/x/sync/errgroup"
)

// touchingDistance is the solid-to-solid distance treated as contact.
const touchingDistance = 1e-6

// Census summarizes the solids of a model.
type Census struct {
	Solids      int     `json:"solids"`
	IsAssembly  bool    `json:"is_assembly"`
	TotalVolume float64 `json:"total_volume"`
	Invalid     int     `json:"invalid"`
}

// Census counts solids, their combined volume and how many fail validity
// checks.
func (a *Analyzer) Census(m kernel.Model) Census {
	solids := m.Solids()
	c := Census{Solids: len(solids), IsAssembly: len(solids) > 1}
	for i, s := range solids {
		a.guard(CheckCensus, SolidID(i), func() {
			v, valid := s.Volume(), s.IsValid()
			c.TotalVolume += v
			if !valid {
				c.Invalid++
			}
		})
	}
	return c
}

// Interference is a volumetric overlap between two solids. Potential is set
// when the intersection could not be computed, in which case no volume is
// known.
type Interference struct {
	Solids    [2]string `json:"solids"`
	Volume    float64   `json:"volume"`
	Relative  float64   `json:"relative"`
	Severe    bool      `json:"severe"`
	Potential bool      `json:"potential,omitempty"`
}

// Clearance is a gap between two solids that is narrower than required.
type Clearance struct {
	Solids   [2]string `json:"solids"`
	Distance float64   `json:"distance"`
	Severe   bool      `json:"severe"`
}

// pair indexes two solids of a model.
type pair struct{ i, j int }

func (p pair) ids() [2]string { return [2]string{SolidID(p.i), SolidID(p.j)} }

func (p pair) String() string { return fmt.Sprintf("%s/%s", SolidID(p.i), SolidID(p.j)) }

func pairsOf(n int) []pair {
	var out []pair
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, pair{i, j})
		}
	}
	return out
}

// forEachPair runs fn over all solid pairs with at most workers goroutines.
// Results are stored by pair index so output order is independent of
// scheduling. A pair whose fn panics is skipped under check, on whichever
// goroutine it ran.
func forEachPair[T any](ctx context.Context, a *Analyzer, check string, n, workers int, fn func(pair) (T, bool)) []T {
	pairs := pairsOf(n)
	slots := make([]T, len(pairs))
	found := make([]bool, len(pairs))
	visit := func(k int, p pair) {
		a.guard(check, p.String(), func() {
			slots[k], found[k] = fn(p)
		})
	}

	if workers <= 1 {
		for k, p := range pairs {
			if ctx.Err() != nil {
				break
			}
			visit(k, p)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for k, p := range pairs {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				visit(k, p)
				return nil
			})
		}
		_ = g.Wait()
	}

	var out []T
	for k := range pairs {
		if found[k] {
			out = append(out, slots[k])
		}
	}
	return out
}

// Interference intersects every pair of solids whose bounding boxes overlap.
// Overlaps larger than minVolume are reported with their volume relative to
// the smaller solid, severe above severe. A failed intersection yields a
// potential interference.
func (a *Analyzer) Interference(ctx context.Context, m kernel.Model, minVolume, severe float64, workers int) []Interference {
	solids := m.Solids()
	return forEachPair(ctx, a, CheckInterference, len(solids), workers, func(p pair) (Interference, bool) {
		s1, s2 := solids[p.i], solids[p.j]
		if !s1.BoundingBox().Overlaps(s2.BoundingBox()) {
			return Interference{}, false
		}
		common, ok := query(a, CheckInterference, p.String(), func() (kernel.Solid, error) {
			return s1.Intersect(s2)
		})
		if !ok || common == nil {
			return Interference{Solids: p.ids(), Potential: true}, true
		}
		vol := common.Volume()
		if vol <= minVolume {
			return Interference{}, false
		}
		var rel float64
		if smaller := math.Min(s1.Volume(), s2.Volume()); smaller > 0 {
			rel = vol / smaller
		}
		return Interference{Solids: p.ids(), Volume: vol, Relative: rel, Severe: rel > severe}, true
	})
}

// Clearance measures the distance between every pair of solids and reports
// gaps with 0 < distance < minGap, severe below minGap/2. Pairs whose
// bounding boxes are at least minGap apart are skipped without a query.
func (a *Analyzer) Clearance(ctx context.Context, m kernel.Model, minGap float64, workers int) []Clearance {
	solids := m.Solids()
	return forEachPair(ctx, a, CheckClearance, len(solids), workers, func(p pair) (Clearance, bool) {
		s1, s2 := solids[p.i], solids[p.j]
		if boxGap(s1.BoundingBox(), s2.BoundingBox()) >= minGap {
			return Clearance{}, false
		}
		d, ok := query(a, CheckClearance, p.String(), func() (float64, error) {
			return s1.DistanceToSolid(s2)
		})
		if !ok || d < touchingDistance || d >= minGap {
			return Clearance{}, false
		}
		return Clearance{Solids: p.ids(), Distance: d, Severe: d < minGap/2}, true
	})
}

// boxGap is the Euclidean distance between two boxes, 0 when they overlap.
func boxGap(a, b kernel.BoundingBox) float64 {
	gap := func(amin, amax, bmin, bmax float64) float64 {
		return math.Max(0, math.Max(bmin-amax, amin-bmax))
	}
	dx := gap(a.Min.X, a.Max.X, b.Min.X, b.Max.X)
	dy := gap(a.Min.Y, a.Max.Y, b.Min.Y, b.Max.Y)
	dz := gap(a.Min.Z, a.Max.Z, b.Min.Z, b.Max.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
