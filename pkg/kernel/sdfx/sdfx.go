// Package sdfx implements the kernel query surface on top of the
// github.com/deadsy/sdfx SDF-based CAD library.
//
// sdfx represents solids as signed distance functions, which answer inside
// tests and boolean intersections but carry no boundary topology. Solids
// built here therefore keep an analytic recipe (box or cylinder plus Z-axis
// through holes) from which faces and edges are derived, while the SDF
// answers inside and intersection queries.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Builder = (*Kernel)(nil)
	_ kernel.Solid   = (*Solid)(nil)
)

const (
	// defaultVolumeCells is the per-axis grid used to estimate
	// intersection volumes.
	defaultVolumeCells = 32
	// defaultSurfaceSamples is the per-axis sample grid on planar faces
	// used by solid-to-solid distance.
	defaultSurfaceSamples = 9
)

// Kernel builds sdfx-backed solids.
type Kernel struct {
	volumeCells    int
	surfaceSamples int
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithVolumeCells sets the sampling grid used for intersection volumes.
func WithVolumeCells(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.volumeCells = n
		}
	}
}

// WithSurfaceSamples sets the per-face sampling density used for
// solid-to-solid distances.
func WithSurfaceSamples(n int) Option {
	return func(k *Kernel) {
		if n > 1 {
			k.surfaceSamples = n
		}
	}
}

// New returns a new Kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		volumeCells:    defaultVolumeCells,
		surfaceSamples: defaultSurfaceSamples,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

type shapeKind int

const (
	shapeBox shapeKind = iota
	shapeCylinder
	shapeIntersection
)

// hole is a through hole parallel to Z, positioned in the solid's local
// XY coordinates.
type hole struct {
	x, y, r float64
}

// recipe is the analytic description a solid's topology is derived from.
type recipe struct {
	kind   shapeKind
	size   kernel.Vec3 // box extents
	height float64     // cylinder
	radius float64     // cylinder
	holes  []hole
	offset kernel.Vec3
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin so that placement translations work
// intuitively: translating by (10,0,0) puts the corner at x=10.
func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("sdfx: box dimensions must be positive, got %gx%gx%g", x, y, z)
	}
	return k.build(recipe{kind: shapeBox, size: kernel.Vec3{X: x, Y: y, Z: z}})
}

// Cylinder creates a Z-axis cylinder with its base disc centered on the
// origin.
func (k *Kernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("sdfx: cylinder height and radius must be positive, got h=%g r=%g", height, radius)
	}
	return k.build(recipe{kind: shapeCylinder, height: height, radius: radius})
}

// Drill cuts a through hole parallel to Z at model coordinates (x, y).
// Only boxes can be drilled and the hole must lie inside the footprint
// without touching other holes.
func (k *Kernel) Drill(s kernel.Solid, x, y, diameter float64) (kernel.Solid, error) {
	src, err := k.unwrap(s)
	if err != nil {
		return nil, err
	}
	if src.rec.kind != shapeBox {
		return nil, fmt.Errorf("sdfx: drill: only boxes can be drilled")
	}
	if diameter <= 0 {
		return nil, fmt.Errorf("sdfx: drill: diameter must be positive, got %g", diameter)
	}
	h := hole{x: x - src.rec.offset.X, y: y - src.rec.offset.Y, r: diameter / 2}
	size := src.rec.size
	if h.x-h.r <= 0 || h.x+h.r >= size.X || h.y-h.r <= 0 || h.y+h.r >= size.Y {
		return nil, fmt.Errorf("sdfx: drill: hole at (%g,%g) d=%g breaks out of the %gx%g footprint",
			x, y, diameter, size.X, size.Y)
	}
	for _, o := range src.rec.holes {
		if math.Hypot(o.x-h.x, o.y-h.y) <= o.r+h.r {
			return nil, fmt.Errorf("sdfx: drill: hole at (%g,%g) overlaps an existing hole", x, y)
		}
	}
	rec := src.rec
	rec.holes = append(append([]hole(nil), src.rec.holes...), h)
	return k.build(rec)
}

// Translate moves a solid by (x, y, z).
func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) (kernel.Solid, error) {
	src, err := k.unwrap(s)
	if err != nil {
		return nil, err
	}
	if src.rec.kind == shapeIntersection {
		return nil, &kernel.QueryError{Op: "translate", Err: kernel.ErrUnsupported}
	}
	rec := src.rec
	rec.holes = append([]hole(nil), src.rec.holes...)
	rec.offset = rec.offset.Add(kernel.Vec3{X: x, Y: y, Z: z})
	return k.build(rec)
}

// unwrap extracts the package solid from a kernel.Solid.
func (k *Kernel) unwrap(s kernel.Solid) (*Solid, error) {
	src, ok := s.(*Solid)
	if !ok || src == nil {
		return nil, fmt.Errorf("sdfx: expected an sdfx solid, got %T", s)
	}
	return src, nil
}

// build derives topology, mass properties and the SDF from a recipe.
func (k *Kernel) build(rec recipe) (*Solid, error) {
	s := &Solid{k: k, rec: rec}
	var err error
	switch rec.kind {
	case shapeBox:
		err = s.buildBox()
	case shapeCylinder:
		err = s.buildCylinder()
	default:
		err = fmt.Errorf("sdfx: cannot build shape kind %d", rec.kind)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// toV3 converts a kernel vector into an sdfx vector.
func toV3(v kernel.Vec3) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// translated wraps an SDF in a translation.
func translated(s sdf.SDF3, v kernel.Vec3) sdf.SDF3 {
	return sdf.Transform3D(s, sdf.Translate3d(toV3(v)))
}

// Model groups solids into a kernel.Model.
func Model(solids ...kernel.Solid) kernel.Model {
	return kernel.ModelOf(solids)
}
