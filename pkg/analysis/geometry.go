package analysis

import (
	"fmt"
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
)

const (
	// onSurfaceTol is how far a sample point may be from its face and still
	// count as lying on it.
	onSurfaceTol = 1e-6
	// minThickness ignores coincident faces when measuring walls.
	minThickness = 1e-6
	// downwardTol is the dot product below which a normal faces down.
	downwardTol = -1e-6
)

// WallSample is the local thickness measured behind one face.
type WallSample struct {
	FaceID    string  `json:"face_id"`
	Thickness float64 `json:"thickness"`
}

// WallThickness aggregates sampled wall thicknesses. Fallback is set when no
// face produced a sample and the figures come from bounding-box extents.
type WallThickness struct {
	Min      float64      `json:"min"`
	Max      float64      `json:"max"`
	Avg      float64      `json:"avg"`
	Samples  []WallSample `json:"samples,omitempty"`
	Fallback bool         `json:"fallback"`
}

// Below returns the samples thinner than limit.
func (w WallThickness) Below(limit float64) []WallSample {
	var out []WallSample
	for _, s := range w.Samples {
		if s.Thickness < limit {
			out = append(out, s)
		}
	}
	return out
}

// WallThickness samples the largest faces of every solid. For each sample
// face the center p and outward normal n are taken; another face of the same
// solid is opposing when moving from p to p-eps*n brings it closer. The
// nearest opposing face gives the local thickness.
func (a *Analyzer) WallThickness(m kernel.Model, samples int, eps float64) WallThickness {
	var out WallThickness
	for _, refs := range a.faceRefs(m, CheckWallThickness) {
		for _, ref := range a.largestFaces(refs, samples, CheckWallThickness) {
			a.guard(CheckWallThickness, ref.ID, func() {
				if t, ok := a.localThickness(ref, refs, eps); ok {
					out.Samples = append(out.Samples, WallSample{FaceID: ref.ID, Thickness: t})
				}
			})
		}
	}
	if len(out.Samples) == 0 {
		return a.boundsThickness(m)
	}
	out.Min = math.Inf(1)
	var sum float64
	for _, s := range out.Samples {
		out.Min = math.Min(out.Min, s.Thickness)
		out.Max = math.Max(out.Max, s.Thickness)
		sum += s.Thickness
	}
	out.Avg = sum / float64(len(out.Samples))
	return out
}

func (a *Analyzer) localThickness(ref FaceRef, refs []FaceRef, eps float64) (float64, bool) {
	p := ref.Face.Center()
	// Curved faces can have their center off the surface, e.g. on a hole axis.
	off, ok := query(a, CheckWallThickness, ref.ID, func() (float64, error) {
		return ref.Face.DistanceTo(p)
	})
	if !ok || off > onSurfaceTol {
		return 0, false
	}
	n, ok := query(a, CheckWallThickness, ref.ID, func() (kernel.Vec3, error) {
		return ref.Face.NormalAt(p)
	})
	if !ok {
		return 0, false
	}
	inward := p.Sub(n.Scale(eps))

	best := math.Inf(1)
	for _, other := range refs {
		if other.ID == ref.ID {
			continue
		}
		d, ok := query(a, CheckWallThickness, other.ID, func() (float64, error) {
			return other.Face.DistanceTo(p)
		})
		if !ok || d <= minThickness {
			continue
		}
		dIn, ok := query(a, CheckWallThickness, other.ID, func() (float64, error) {
			return other.Face.DistanceTo(inward)
		})
		if !ok {
			continue
		}
		if dIn < d-1e-9 && d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// boundsThickness estimates thickness from the union bounding box extents.
func (a *Analyzer) boundsThickness(m kernel.Model) WallThickness {
	b, ok := a.unionBounds(m, CheckWallThickness)
	if !ok {
		return WallThickness{}
	}
	s := b.Size()
	return WallThickness{
		Min:      math.Min(s.X, math.Min(s.Y, s.Z)),
		Max:      math.Max(s.X, math.Max(s.Y, s.Z)),
		Avg:      (s.X + s.Y + s.Z) / 3,
		Fallback: true,
	}
}

// DraftClass grades a face's draft angle.
type DraftClass int

const (
	DraftOK DraftClass = iota
	DraftCaution
	DraftNeeded
	DraftCritical
)

func (c DraftClass) String() string {
	switch c {
	case DraftOK:
		return "ok"
	case DraftCaution:
		return "caution"
	case DraftNeeded:
		return "needs_draft"
	case DraftCritical:
		return "negative_draft"
	default:
		return "unknown"
	}
}

// MarshalText renders the class name in reports.
func (c DraftClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// FaceDraft is the worst draft angle observed on a face, in degrees.
type FaceDraft struct {
	FaceID string             `json:"face_id"`
	Type   kernel.SurfaceType `json:"-"`
	Angle  float64            `json:"angle"`
	Class  DraftClass         `json:"class"`
}

// DraftAngle returns 90° minus the angle between n and the pull direction,
// which is asin(|n·pull|).
func DraftAngle(n, pull kernel.Vec3) float64 {
	dot := math.Min(math.Abs(n.Dot(pull)), 1)
	return degrees(math.Asin(dot))
}

// ClassifyDraft grades a draft angle against the warning and caution limits.
func ClassifyDraft(angle, warn, caution float64) DraftClass {
	switch {
	case angle < 0:
		return DraftCritical
	case angle < warn:
		return DraftNeeded
	case angle < caution:
		return DraftCaution
	default:
		return DraftOK
	}
}

// Draft measures the minimum draft of every face relative to pull.
func (a *Analyzer) Draft(m kernel.Model, pull kernel.Vec3, warn, caution float64) []FaceDraft {
	pull = direction(pull)
	var out []FaceDraft
	for _, ref := range a.allFaces(m, CheckDraft) {
		a.guard(CheckDraft, ref.ID, func() {
			worst := math.Inf(1)
			for _, p := range samplePoints(ref.Face) {
				n, ok := query(a, CheckDraft, ref.ID, func() (kernel.Vec3, error) {
					return ref.Face.NormalAt(p)
				})
				if !ok {
					continue
				}
				worst = math.Min(worst, DraftAngle(n, pull))
			}
			if math.IsInf(worst, 1) {
				return
			}
			out = append(out, FaceDraft{
				FaceID: ref.ID,
				Type:   ref.Face.GeomType(),
				Angle:  worst,
				Class:  ClassifyDraft(worst, warn, caution),
			})
		})
	}
	return out
}

// Undercut is a face whose normal opposes the pull direction.
type Undercut struct {
	FaceID string  `json:"face_id"`
	Dot    float64 `json:"dot"`
	Severe bool    `json:"severe"`
}

// Undercuts flags faces whose center normal has n·pull below limit. Faces
// below severe are marked severe.
func (a *Analyzer) Undercuts(m kernel.Model, pull kernel.Vec3, limit, severe float64) []Undercut {
	pull = direction(pull)
	var out []Undercut
	for _, ref := range a.allFaces(m, CheckUndercut) {
		n, ok := query(a, CheckUndercut, ref.ID, func() (kernel.Vec3, error) {
			return ref.Face.NormalAt(ref.Face.Center())
		})
		if !ok {
			continue
		}
		dot := n.Dot(pull)
		if dot < limit {
			out = append(out, Undercut{FaceID: ref.ID, Dot: dot, Severe: dot < severe})
		}
	}
	return out
}

// Overhang is a downward face steeper than the printable limit.
type Overhang struct {
	FaceID string  `json:"face_id"`
	Angle  float64 `json:"angle"`
}

// Overhangs flags downward faces whose overhang angle exceeds maxAngle
// degrees. Faces resting entirely on the build plate, the lowest plane of
// the whole model along build, are supported and skipped.
func (a *Analyzer) Overhangs(m kernel.Model, build kernel.Vec3, maxAngle float64) []Overhang {
	build = direction(build)
	bounds, ok := a.unionBounds(m, CheckOverhang)
	if !ok {
		return nil
	}
	plate := lowestAlong(bounds, build)
	var out []Overhang
	for _, ref := range a.allFaces(m, CheckOverhang) {
		a.guard(CheckOverhang, ref.ID, func() {
			worst := math.Inf(-1)
			onPlate := true
			for _, p := range samplePoints(ref.Face) {
				n, ok := query(a, CheckOverhang, ref.ID, func() (kernel.Vec3, error) {
					return ref.Face.NormalAt(p)
				})
				if !ok {
					continue
				}
				dot := n.Dot(build)
				if dot >= downwardTol {
					continue
				}
				if math.Abs(p.Dot(build)-plate) > onSurfaceTol {
					onPlate = false
				}
				worst = math.Max(worst, 90-degrees(math.Acos(math.Min(math.Abs(dot), 1))))
			}
			if math.IsInf(worst, -1) || onPlate {
				return
			}
			if worst > maxAngle {
				out = append(out, Overhang{FaceID: ref.ID, Angle: worst})
			}
		})
	}
	return out
}

// lowestAlong returns the minimum projection of the box corners onto dir.
func lowestAlong(b kernel.BoundingBox, dir kernel.Vec3) float64 {
	low := math.Inf(1)
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		low = math.Min(low, c.Dot(dir))
	}
	return low
}

// SharpCorner is a concave edge between two faces.
type SharpCorner struct {
	EdgeID string    `json:"edge_id"`
	Faces  [2]string `json:"faces"`
	// Angle is the angle between the two face normals, in degrees.
	Angle             float64 `json:"angle"`
	RecommendedRadius float64 `json:"recommended_radius"`
}

// SharpInternalCorners finds concave straight edges shared by exactly two
// faces. A corner is concave when points displaced by probe along n1-n2 and
// n2-n1 from the edge midpoint both lie inside the material.
func (a *Analyzer) SharpInternalCorners(m kernel.Model, probe, parallelDot, radius float64) []SharpCorner {
	var out []SharpCorner
	solids := m.Solids()
	for si, refs := range a.faceRefs(m, CheckSharpCorners) {
		type adjacency struct {
			edge  kernel.Edge
			faces []FaceRef
		}
		var order []string
		byEdge := make(map[string]*adjacency)
		for _, ref := range refs {
			a.guard(CheckSharpCorners, ref.ID, func() {
				for _, e := range ref.Face.Edges() {
					if e.GeomType() != kernel.CurveLine {
						continue
					}
					adj, ok := byEdge[e.ID()]
					if !ok {
						adj = &adjacency{edge: e}
						byEdge[e.ID()] = adj
						order = append(order, e.ID())
					}
					adj.faces = append(adj.faces, ref)
				}
			})
		}

		solid := solids[si]
		for _, id := range order {
			adj := byEdge[id]
			if len(adj.faces) != 2 {
				continue
			}
			f1, f2 := adj.faces[0], adj.faces[1]
			mid, ok := query(a, CheckSharpCorners, id, func() (kernel.Vec3, error) {
				return adj.edge.Center(), nil
			})
			if !ok {
				continue
			}
			n1, ok := query(a, CheckSharpCorners, id, func() (kernel.Vec3, error) {
				return f1.Face.NormalAt(mid)
			})
			if !ok {
				continue
			}
			n2, ok := query(a, CheckSharpCorners, id, func() (kernel.Vec3, error) {
				return f2.Face.NormalAt(mid)
			})
			if !ok {
				continue
			}
			dot := n1.Dot(n2)
			if math.Abs(dot) > parallelDot {
				continue
			}
			spread := n1.Sub(n2).Normalize().Scale(probe)
			in1, ok := query(a, CheckSharpCorners, id, func() (bool, error) {
				return solid.IsInside(mid.Add(spread))
			})
			if !ok || !in1 {
				continue
			}
			in2, ok := query(a, CheckSharpCorners, id, func() (bool, error) {
				return solid.IsInside(mid.Sub(spread))
			})
			if !ok || !in2 {
				continue
			}
			out = append(out, SharpCorner{
				EdgeID:            id,
				Faces:             [2]string{f1.ID, f2.ID},
				Angle:             degrees(math.Acos(math.Max(-1, math.Min(1, dot)))),
				RecommendedRadius: radius,
			})
		}
	}
	return out
}

// FeatureKind distinguishes holes from bosses.
type FeatureKind int

const (
	Hole FeatureKind = iota
	Boss
)

func (k FeatureKind) String() string {
	if k == Boss {
		return "boss"
	}
	return "hole"
}

// MarshalText renders the kind name in reports.
func (k FeatureKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Feature is a cylindrical face classified as a hole or a boss.
type Feature struct {
	FaceID string      `json:"face_id"`
	Solid  int         `json:"solid"`
	Kind   FeatureKind `json:"kind"`
	Radius float64     `json:"radius"`
	Height float64     `json:"height"`
	Center kernel.Vec3 `json:"center"`

	face kernel.Face
}

// Diameter returns twice the radius.
func (f Feature) Diameter() float64 { return 2 * f.Radius }

// HolesAndBosses classifies every cylindrical face. Reversed faces are
// holes. The radius comes from the first circular boundary edge and the
// height from the lateral area; a face without circular edges reports zero
// for both.
func (a *Analyzer) HolesAndBosses(m kernel.Model) []Feature {
	var out []Feature
	for _, ref := range a.allFaces(m, CheckHoles) {
		a.guard(CheckHoles, ref.ID, func() {
			if ref.Face.GeomType() != kernel.SurfaceCylinder {
				return
			}
			f := Feature{
				FaceID: ref.ID,
				Solid:  ref.Solid,
				Kind:   Boss,
				Center: ref.Face.Center(),
				face:   ref.Face,
			}
			if ref.Face.Orientation() == kernel.Reversed {
				f.Kind = Hole
			}
			for _, e := range ref.Face.Edges() {
				if e.GeomType() != kernel.CurveCircle {
					continue
				}
				r, ok := query(a, CheckHoles, ref.ID, e.Radius)
				if !ok {
					continue
				}
				f.Radius = r
				break
			}
			if f.Radius > 0 {
				f.Height = ref.Face.Area() / (2 * math.Pi * f.Radius)
			}
			out = append(out, f)
		})
	}
	return out
}

// HoleIssue names a hole machinability finding.
type HoleIssue int

const (
	DeepHole HoleIssue = iota
	SmallHole
	TappedHole
)

func (h HoleIssue) String() string {
	switch h {
	case DeepHole:
		return "deep_hole"
	case SmallHole:
		return "small_hole"
	case TappedHole:
		return "potential_tapped_hole"
	default:
		return "unknown"
	}
}

// MarshalText renders the issue name in reports.
func (h HoleIssue) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// HoleFinding is one machinability observation about a hole.
type HoleFinding struct {
	FaceID   string    `json:"face_id"`
	Issue    HoleIssue `json:"issue"`
	Diameter float64   `json:"diameter"`
	Depth    float64   `json:"depth"`
	Ratio    float64   `json:"ratio,omitempty"`
	Severe   bool      `json:"severe,omitempty"`
	Tap      string    `json:"tap,omitempty"`
}

// TapDrill maps a tap drill diameter to its thread.
type TapDrill struct {
	Diameter float64
	Thread   string
}

// TapDrills is the metric coarse tap drill table, in lookup order.
var TapDrills = []TapDrill{
	{2.5, "M3"},
	{3.3, "M4"},
	{4.2, "M5"},
	{5.0, "M6"},
	{6.8, "M8"},
	{8.5, "M10"},
	{10.2, "M12"},
}

// MatchTap returns the first thread whose drill is within tol of d.
func MatchTap(d, tol float64) (string, bool) {
	for _, t := range TapDrills {
		if math.Abs(d-t.Diameter) < tol {
			return t.Thread, true
		}
	}
	return "", false
}

// HoleLimits are the thresholds for HoleMachinability.
type HoleLimits struct {
	DeepRatio   float64
	SevereRatio float64
	SmallDia    float64
	TapTol      float64
}

// HoleMachinability checks depth-to-diameter ratio, minimum diameter and tap
// drill sizes for every hole with a known diameter.
func (a *Analyzer) HoleMachinability(features []Feature, lim HoleLimits) []HoleFinding {
	var out []HoleFinding
	for _, f := range features {
		d := f.Diameter()
		if f.Kind != Hole || d <= 0 {
			continue
		}
		base := HoleFinding{FaceID: f.FaceID, Diameter: d, Depth: f.Height}
		if ratio := f.Height / d; ratio > lim.DeepRatio {
			h := base
			h.Issue, h.Ratio, h.Severe = DeepHole, ratio, ratio > lim.SevereRatio
			out = append(out, h)
		}
		if d < lim.SmallDia {
			h := base
			h.Issue = SmallHole
			out = append(out, h)
		}
		if thread, ok := MatchTap(d, lim.TapTol); ok {
			h := base
			h.Issue, h.Tap = TappedHole, thread
			out = append(out, h)
		}
	}
	return out
}

// HoleClearance is a hole too close to a neighboring face.
type HoleClearance struct {
	FaceID    string  `json:"face_id"`
	Diameter  float64 `json:"diameter"`
	Clearance float64 `json:"clearance"`
	Target    float64 `json:"target"`
	Severe    bool    `json:"severe"`
}

// HoleEdgeClearance measures, for each hole, the distance from its center to
// the nearest face of the same solid minus the radius. Hole faces and faces
// adjacent to the hole are not candidates, and clearances up to 1e-3 are
// ignored. A hole is flagged when the clearance is below diameter*factor and
// severe when below one diameter.
func (a *Analyzer) HoleEdgeClearance(m kernel.Model, features []Feature, factor float64) []HoleClearance {
	refs := a.faceRefs(m, CheckHoleClearance)
	var out []HoleClearance
	for _, f := range features {
		if f.Kind != Hole || f.Radius <= 0 || f.Solid >= len(refs) {
			continue
		}
		best := math.Inf(1)
		for _, other := range refs[f.Solid] {
			a.guard(CheckHoleClearance, other.ID, func() {
				if other.ID == f.FaceID || isHoleFace(other.Face) || shareEdge(f.face, other.Face) {
					return
				}
				d, ok := query(a, CheckHoleClearance, other.ID, func() (float64, error) {
					return other.Face.DistanceTo(f.Center)
				})
				if !ok {
					return
				}
				if c := d - f.Radius; c > 1e-3 && c < best {
					best = c
				}
			})
		}
		if math.IsInf(best, 1) {
			continue
		}
		target := f.Diameter() * factor
		if best < target-1e-9 {
			out = append(out, HoleClearance{
				FaceID:    f.FaceID,
				Diameter:  f.Diameter(),
				Clearance: best,
				Target:    target,
				Severe:    best < f.Diameter(),
			})
		}
	}
	return out
}

func isHoleFace(f kernel.Face) bool {
	return f.GeomType() == kernel.SurfaceCylinder && f.Orientation() == kernel.Reversed
}

// TallBoss is a boss whose height exceeds its diameter by too much.
type TallBoss struct {
	FaceID   string  `json:"face_id"`
	Diameter float64 `json:"diameter"`
	Height   float64 `json:"height"`
	Ratio    float64 `json:"ratio"`
}

// TallBosses flags bosses with height/diameter above maxRatio.
func (a *Analyzer) TallBosses(features []Feature, maxRatio float64) []TallBoss {
	var out []TallBoss
	for _, f := range features {
		d := f.Diameter()
		if f.Kind != Boss || d <= 0 {
			continue
		}
		if ratio := f.Height / d; ratio > maxRatio {
			out = append(out, TallBoss{FaceID: f.FaceID, Diameter: d, Height: f.Height, Ratio: ratio})
		}
	}
	return out
}

// ThinRib reports whether the thinnest sampled wall is below ratio times the
// average, which suggests an under-proportioned rib.
func ThinRib(w WallThickness, ratio float64) bool {
	return w.Avg > 0 && w.Min < ratio*w.Avg
}

// SmallFeature is a face too small to manufacture reliably.
type SmallFeature struct {
	FaceID string  `json:"face_id"`
	Area   float64 `json:"area"`
}

// SmallFeatures flags faces with 0 < area < threshold².
func (a *Analyzer) SmallFeatures(m kernel.Model, threshold float64) []SmallFeature {
	limit := threshold * threshold
	var out []SmallFeature
	for _, ref := range a.allFaces(m, CheckSmallFeatures) {
		a.guard(CheckSmallFeatures, ref.ID, func() {
			if area := ref.Face.Area(); area > 0 && area < limit {
				out = append(out, SmallFeature{FaceID: ref.ID, Area: area})
			}
		})
	}
	return out
}

// Pocket is reserved for pocket accessibility findings.
type Pocket struct {
	FaceIDs []string `json:"face_ids"`
	Reason  string   `json:"reason"`
}

// PocketAccessibility is an extension point. No algorithm is defined yet, so
// it always returns ErrNotImplemented and no findings.
func (a *Analyzer) PocketAccessibility(kernel.Model) ([]Pocket, error) {
	return nil, fmt.Errorf("%s: %w", CheckPocketAccess, ErrNotImplemented)
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// direction normalizes v, defaulting to +Z for the zero vector.
func direction(v kernel.Vec3) kernel.Vec3 {
	if v.IsZero() || !v.IsFinite() {
		return kernel.Vec3{Z: 1}
	}
	return v.Normalize()
}
