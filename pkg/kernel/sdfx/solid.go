package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
)

// Solid is an sdfx-backed solid with recipe-derived topology.
type Solid struct {
	k   *Kernel
	rec recipe
	sdf sdf.SDF3

	faces  []kernel.Face
	edges  []kernel.Edge
	verts  []kernel.Vec3
	bbox   kernel.BoundingBox
	volume float64
	area   float64
	center kernel.Vec3
}

// edgeSet deduplicates edges shared between faces.
type edgeSet struct {
	byKey map[string]*edge
	order []kernel.Edge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{byKey: make(map[string]*edge)}
}

func (es *edgeSet) line(a, b kernel.Vec3) *edge {
	key := lineKey(a, b)
	if e, ok := es.byKey[key]; ok {
		return e
	}
	e := &edge{
		id:     fmt.Sprintf("E%d", len(es.order)),
		kind:   kernel.CurveLine,
		center: a.Add(b).Scale(0.5),
		length: a.Dist(b),
	}
	es.byKey[key] = e
	es.order = append(es.order, e)
	return e
}

func (es *edgeSet) circle(c kernel.Vec3, r float64) *edge {
	e := &edge{
		id:     fmt.Sprintf("E%d", len(es.order)),
		kind:   kernel.CurveCircle,
		center: c,
		length: 2 * math.Pi * r,
		radius: r,
	}
	es.order = append(es.order, e)
	return e
}

// lineKey is independent of endpoint order.
func lineKey(a, b kernel.Vec3) string {
	ka := fmt.Sprintf("%.6f,%.6f,%.6f", a.X, a.Y, a.Z)
	kb := fmt.Sprintf("%.6f,%.6f,%.6f", b.X, b.Y, b.Z)
	if kb < ka {
		ka, kb = kb, ka
	}
	return ka + "|" + kb
}

var (
	unitX = kernel.Vec3{X: 1}
	unitY = kernel.Vec3{Y: 1}
	unitZ = kernel.Vec3{Z: 1}
)

// buildBox derives faces, edges and the SDF for a box with optional
// through holes.
func (s *Solid) buildBox() error {
	size, o := s.rec.size, s.rec.offset
	half := size.Scale(0.5)
	mid := o.Add(half)

	body, err := sdf.Box3D(toV3(size), 0)
	if err != nil {
		return fmt.Errorf("sdfx: box: %w", err)
	}
	shape := translated(body, mid)

	es := newEdgeSet()
	rect := func(center, normal, u, v kernel.Vec3, hu, hv float64) *planeFace {
		f := &planeFace{center: center, normal: normal, u: u, v: v, hu: hu, hv: hv, area: 4 * hu * hv}
		corners := f.corners()
		for i := range corners {
			f.edges = append(f.edges, es.line(corners[i], corners[(i+1)%4]))
		}
		return f
	}

	neg := func(v kernel.Vec3) kernel.Vec3 { return v.Scale(-1) }
	bottom := rect(kernel.Vec3{X: mid.X, Y: mid.Y, Z: o.Z}, neg(unitZ), unitX, unitY, half.X, half.Y)
	top := rect(kernel.Vec3{X: mid.X, Y: mid.Y, Z: o.Z + size.Z}, unitZ, unitX, unitY, half.X, half.Y)
	front := rect(kernel.Vec3{X: mid.X, Y: o.Y, Z: mid.Z}, neg(unitY), unitX, unitZ, half.X, half.Z)
	back := rect(kernel.Vec3{X: mid.X, Y: o.Y + size.Y, Z: mid.Z}, unitY, unitX, unitZ, half.X, half.Z)
	left := rect(kernel.Vec3{X: o.X, Y: mid.Y, Z: mid.Z}, neg(unitX), unitY, unitZ, half.Y, half.Z)
	right := rect(kernel.Vec3{X: o.X + size.X, Y: mid.Y, Z: mid.Z}, unitX, unitY, unitZ, half.Y, half.Z)

	faces := []kernel.Face{bottom, top, front, back, left, right}
	volume := size.X * size.Y * size.Z
	moment := mid.Scale(volume)

	var cutters []sdf.SDF3
	for _, h := range s.rec.holes {
		base := kernel.Vec3{X: o.X + h.x, Y: o.Y + h.y, Z: o.Z}
		bottomRim := es.circle(base, h.r)
		topRim := es.circle(base.Add(kernel.Vec3{Z: size.Z}), h.r)

		disc := math.Pi * h.r * h.r
		for _, f := range []*planeFace{bottom, top} {
			f.area -= disc
			f.cutouts = append(f.cutouts, cutout{center: base, r: h.r})
		}
		bottom.edges = append(bottom.edges, bottomRim)
		top.edges = append(top.edges, topRim)

		faces = append(faces, &cylFace{
			base:     base,
			axis:     unitZ,
			height:   size.Z,
			radius:   h.r,
			reversed: true,
			edges:    []kernel.Edge{bottomRim, topRim},
		})

		cut := disc * size.Z
		volume -= cut
		moment = moment.Sub(base.Add(kernel.Vec3{Z: half.Z}).Scale(cut))

		c, err := sdf.Cylinder3D(size.Z+2, h.r, 0)
		if err != nil {
			return fmt.Errorf("sdfx: hole: %w", err)
		}
		cutters = append(cutters, translated(c, base.Add(kernel.Vec3{Z: half.Z})))
	}
	if len(cutters) > 0 {
		shape = sdf.Difference3D(shape, sdf.Union3D(cutters...))
	}

	s.sdf = shape
	s.faces = faces
	s.edges = es.order
	s.bbox = kernel.BoundingBox{Min: o, Max: o.Add(size)}
	s.volume = volume
	if volume > 0 {
		s.center = moment.Scale(1 / volume)
	} else {
		s.center = mid
	}
	s.verts = bottom.corners()
	s.verts = append(s.verts, top.corners()...)
	for _, f := range faces {
		s.area += f.Area()
	}
	return nil
}

// buildCylinder derives faces, edges and the SDF for a Z-axis cylinder.
func (s *Solid) buildCylinder() error {
	h, r, o := s.rec.height, s.rec.radius, s.rec.offset
	body, err := sdf.Cylinder3D(h, r, 0)
	if err != nil {
		return fmt.Errorf("sdfx: cylinder: %w", err)
	}
	topCenter := o.Add(kernel.Vec3{Z: h})

	es := newEdgeSet()
	bottomRim := es.circle(o, r)
	topRim := es.circle(topCenter, r)

	bottom := &discFace{center: o, normal: unitZ.Scale(-1), radius: r, edges: []kernel.Edge{bottomRim}}
	top := &discFace{center: topCenter, normal: unitZ, radius: r, edges: []kernel.Edge{topRim}}
	side := &cylFace{base: o, axis: unitZ, height: h, radius: r, edges: []kernel.Edge{bottomRim, topRim}}

	s.sdf = translated(body, o.Add(kernel.Vec3{Z: h / 2}))
	s.faces = []kernel.Face{bottom, top, side}
	s.edges = es.order
	s.bbox = kernel.BoundingBox{
		Min: o.Sub(kernel.Vec3{X: r, Y: r}),
		Max: topCenter.Add(kernel.Vec3{X: r, Y: r}),
	}
	s.volume = math.Pi * r * r * h
	s.center = o.Add(kernel.Vec3{Z: h / 2})
	for _, f := range s.faces {
		s.area += f.Area()
	}
	return nil
}

// Faces returns the solid's faces. Boxes list bottom, top, front (-Y),
// back (+Y), left (-X), right (+X), then one internal face per hole.
func (s *Solid) Faces() []kernel.Face { return s.faces }

// Edges returns each boundary edge once.
func (s *Solid) Edges() []kernel.Edge { return s.edges }

// Vertices returns the corner points of box solids.
func (s *Solid) Vertices() []kernel.Vec3 { return s.verts }

// BoundingBox returns the axis-aligned bounds.
func (s *Solid) BoundingBox() kernel.BoundingBox { return s.bbox }

// Volume returns the enclosed volume in mm³.
func (s *Solid) Volume() float64 { return s.volume }

// Area returns the total surface area in mm².
func (s *Solid) Area() float64 { return s.area }

// Center returns the center of mass for uniform density.
func (s *Solid) Center() kernel.Vec3 { return s.center }

// IsInside reports whether p lies strictly inside the material.
func (s *Solid) IsInside(p kernel.Vec3) (bool, error) {
	if !p.IsFinite() {
		return false, &kernel.QueryError{Op: "inside", Err: kernel.ErrDegenerate}
	}
	return s.sdf.Evaluate(toV3(p)) < 0, nil
}

// DistanceTo returns the distance from p to the solid, 0 when p is inside.
func (s *Solid) DistanceTo(p kernel.Vec3) (float64, error) {
	if !p.IsFinite() {
		return 0, &kernel.QueryError{Op: "distance", Err: kernel.ErrDegenerate}
	}
	d := s.sdf.Evaluate(toV3(p))
	if d <= 0 {
		return 0, nil
	}
	if s.rec.kind == shapeIntersection {
		return d, nil
	}
	best := math.Inf(1)
	for _, f := range s.faces {
		fd, err := f.DistanceTo(p)
		if err != nil {
			return 0, err
		}
		best = math.Min(best, fd)
	}
	return best, nil
}

// DistanceToSolid returns the minimum distance between two solids by
// sampling each solid's faces against the other.
func (s *Solid) DistanceToSolid(other kernel.Solid) (float64, error) {
	if other == nil {
		return 0, &kernel.QueryError{Op: "distance", Err: kernel.ErrDegenerate}
	}
	best := math.Inf(1)
	measure := func(from, to kernel.Solid) error {
		for _, p := range samplePoints(from, s.k.surfaceSamples) {
			d, err := to.DistanceTo(p)
			if err != nil {
				return err
			}
			if d < best {
				best = d
			}
			if best <= 0 {
				return nil
			}
		}
		return nil
	}
	if err := measure(s, other); err != nil {
		return 0, err
	}
	if best > 0 {
		if err := measure(other, s); err != nil {
			return 0, err
		}
	}
	if math.IsInf(best, 1) {
		return 0, &kernel.QueryError{Op: "distance", Err: kernel.ErrUnsupported}
	}
	return best, nil
}

// Intersect returns the boolean intersection. Its volume is estimated on a
// sampling grid over the overlap of the two bounding boxes, and it carries
// no faces.
func (s *Solid) Intersect(other kernel.Solid) (kernel.Solid, error) {
	o, ok := other.(*Solid)
	if !ok || o == nil {
		return nil, &kernel.QueryError{Op: "intersect", Err: kernel.ErrUnsupported}
	}
	out := &Solid{
		k:   s.k,
		rec: recipe{kind: shapeIntersection},
		sdf: sdf.Intersect3D(s.sdf, o.sdf),
	}
	box, overlap := s.bbox.Intersection(o.bbox)
	if !overlap {
		return out, nil
	}
	out.bbox = box
	out.center = box.Center()

	size := box.Size()
	cellVolume := size.X * size.Y * size.Z
	if cellVolume <= 0 {
		return out, nil
	}
	n := s.k.volumeCells
	step := size.Scale(1 / float64(n))
	cellVolume /= float64(n * n * n)

	var hits int
	var sum kernel.Vec3
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for l := 0; l < n; l++ {
				p := box.Min.Add(kernel.Vec3{
					X: (float64(i) + 0.5) * step.X,
					Y: (float64(j) + 0.5) * step.Y,
					Z: (float64(l) + 0.5) * step.Z,
				})
				if out.sdf.Evaluate(toV3(p)) < 0 {
					hits++
					sum = sum.Add(p)
				}
			}
		}
	}
	out.volume = float64(hits) * cellVolume
	if hits > 0 {
		out.center = sum.Scale(1 / float64(hits))
	}
	return out, nil
}

// IsValid reports whether the recipe describes a closed, non-degenerate
// solid.
func (s *Solid) IsValid() bool {
	switch s.rec.kind {
	case shapeBox:
		size := s.rec.size
		if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
			return false
		}
		for i, h := range s.rec.holes {
			if h.r <= 0 || h.x-h.r <= 0 || h.x+h.r >= size.X || h.y-h.r <= 0 || h.y+h.r >= size.Y {
				return false
			}
			for _, o := range s.rec.holes[i+1:] {
				if math.Hypot(o.x-h.x, o.y-h.y) <= o.r+h.r {
					return false
				}
			}
		}
		return s.volume > 0
	case shapeCylinder:
		return s.rec.height > 0 && s.rec.radius > 0
	case shapeIntersection:
		return s.volume >= 0
	}
	return false
}

// samplePoints collects surface points of a solid for distance sampling.
// Solids without sampled faces contribute their bounding box corners.
func samplePoints(sol kernel.Solid, n int) []kernel.Vec3 {
	var pts []kernel.Vec3
	for _, f := range sol.Faces() {
		if sf, ok := f.(sampler); ok {
			pts = append(pts, sf.samples(n)...)
			continue
		}
		pts = append(pts, f.Center())
	}
	if len(pts) == 0 {
		b := sol.BoundingBox()
		for i := 0; i < 8; i++ {
			p := b.Min
			if i&1 != 0 {
				p.X = b.Max.X
			}
			if i&2 != 0 {
				p.Y = b.Max.Y
			}
			if i&4 != 0 {
				p.Z = b.Max.Z
			}
			pts = append(pts, p)
		}
	}
	return pts
}
