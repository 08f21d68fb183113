// Package analysis derives manufacturability findings from a kernel.Model.
//
// Every analyzer method is read-only with respect to the model. Geometry
// queries that fail or panic are skipped per feature and tallied by check
// name; they never abort the remaining features.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/dfmcheck/pkg/kernel"
	"go.uber.org/zap"
)

// ErrNotImplemented is returned by analyses that exist as extension points
// only.
var ErrNotImplemented = errors.New("analysis: not implemented")

// Check names used for skip accounting and logging.
const (
	CheckWallThickness = "wall_thickness"
	CheckDraft         = "draft"
	CheckUndercut      = "undercut"
	CheckOverhang      = "overhang"
	CheckSharpCorners  = "sharp_corners"
	CheckHoles         = "holes"
	CheckHoleClearance = "hole_clearance"
	CheckSmallFeatures = "small_features"
	CheckSurfaces      = "surfaces"
	CheckInterference  = "interference"
	CheckClearance     = "clearance"
	CheckPocketAccess  = "pocket_accessibility"
	CheckCensus        = "census"
	CheckPhysical      = "physical"
)

// Analyzer runs the geometric analyses for one model. It accumulates the
// count of skipped queries, so a fresh Analyzer should be used per run.
type Analyzer struct {
	logger *zap.Logger

	mu      sync.Mutex
	skipped map[string]int
}

// New returns an Analyzer that logs skipped queries to logger. A nil logger
// discards output.
func New(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger, skipped: make(map[string]int)}
}

// Skipped returns a copy of the per-check count of skipped queries.
func (a *Analyzer) Skipped() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.skipped))
	for k, v := range a.skipped {
		out[k] = v
	}
	return out
}

// Skip records a skipped feature for check.
func (a *Analyzer) Skip(check, feature string, err error) {
	a.mu.Lock()
	a.skipped[check]++
	a.mu.Unlock()
	a.logger.Debug("geometry query skipped",
		zap.String("check", check),
		zap.String("feature", feature),
		zap.Error(err),
	)
}

// query runs one fallible geometry query. Errors and provider panics are
// recorded against check and reported through ok.
func query[T any](a *Analyzer, check, feature string, fn func() (T, error)) (v T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, ok = zero, false
			a.Skip(check, feature, fmt.Errorf("provider panic: %v", r))
		}
	}()
	v, err := fn()
	if err != nil {
		a.Skip(check, feature, err)
		return v, false
	}
	return v, true
}

// guard runs fn for one feature. A provider panic inside fn skips only that
// feature and is recorded against check.
func (a *Analyzer) guard(check, feature string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.Skip(check, feature, fmt.Errorf("provider panic: %v", r))
		}
	}()
	fn()
}

// FaceRef identifies a face within a model. IDs are F<i>, numbered across
// all solids in order.
type FaceRef struct {
	ID    string
	Solid int
	Face  kernel.Face
}

// SolidID returns the identifier for the i-th solid.
func SolidID(i int) string { return fmt.Sprintf("S%d", i) }

// faceRefs groups the model's faces by solid. A solid whose faces cannot be
// listed contributes none.
func (a *Analyzer) faceRefs(m kernel.Model, check string) [][]FaceRef {
	solids := m.Solids()
	out := make([][]FaceRef, len(solids))
	n := 0
	for i, s := range solids {
		a.guard(check, SolidID(i), func() {
			faces := s.Faces()
			refs := make([]FaceRef, len(faces))
			for j, f := range faces {
				refs[j] = FaceRef{ID: fmt.Sprintf("F%d", n+j), Solid: i, Face: f}
			}
			out[i] = refs
			n += len(faces)
		})
	}
	return out
}

// allFaces flattens faceRefs.
func (a *Analyzer) allFaces(m kernel.Model, check string) []FaceRef {
	var out []FaceRef
	for _, refs := range a.faceRefs(m, check) {
		out = append(out, refs...)
	}
	return out
}

// samplePoints returns the face center plus, for non-planar faces, the
// center of every boundary edge.
func samplePoints(f kernel.Face) []kernel.Vec3 {
	pts := []kernel.Vec3{f.Center()}
	if f.GeomType() == kernel.SurfacePlane {
		return pts
	}
	for _, e := range f.Edges() {
		pts = append(pts, e.Center())
	}
	return pts
}

// shareEdge reports whether two faces have a boundary edge in common.
func shareEdge(a, b kernel.Face) bool {
	ids := make(map[string]struct{}, len(a.Edges()))
	for _, e := range a.Edges() {
		ids[e.ID()] = struct{}{}
	}
	for _, e := range b.Edges() {
		if _, ok := ids[e.ID()]; ok {
			return true
		}
	}
	return false
}

// unionBounds returns the bounding box of all solids and false when no
// solid reported one.
func (a *Analyzer) unionBounds(m kernel.Model, check string) (kernel.BoundingBox, bool) {
	var b kernel.BoundingBox
	found := false
	for i, s := range m.Solids() {
		a.guard(check, SolidID(i), func() {
			sb := s.BoundingBox()
			if !found {
				b, found = sb, true
				return
			}
			b = b.Union(sb)
		})
	}
	return b, found
}

// largestFaces returns up to n faces ordered by decreasing area. Ties keep
// model order.
func (a *Analyzer) largestFaces(refs []FaceRef, n int, check string) []FaceRef {
	type sized struct {
		ref  FaceRef
		area float64
	}
	var sorted []sized
	for _, ref := range refs {
		a.guard(check, ref.ID, func() {
			sorted = append(sorted, sized{ref, ref.Face.Area()})
		})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].area > sorted[j].area
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]FaceRef, len(sorted))
	for i, s := range sorted {
		out[i] = s.ref
	}
	return out
}
