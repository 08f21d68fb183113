// Package kernel defines the abstract B-rep query surface that the
// manufacturability analyzers run against. Implementations (sdfx) wrap a
// solid-modeling backend behind these interfaces so that the rule engine
// never depends on a particular geometry kernel.
package kernel

// Model is the full geometry of one analysis invocation.
type Model interface {
	// Solids returns the solids in a stable order.
	Solids() []Solid
}

// Solid is a closed volume bounded by faces.
// A Solid is never mutated while it is being analyzed.
type Solid interface {
	Faces() []Face
	Edges() []Edge
	Vertices() []Vec3

	BoundingBox() BoundingBox
	Volume() float64
	Area() float64
	// Center returns the center of mass for uniform density.
	Center() Vec3

	// DistanceTo returns the distance from p to the solid (0 inside).
	DistanceTo(p Vec3) (float64, error)
	// DistanceToSolid returns the minimum distance between two solids.
	DistanceToSolid(other Solid) (float64, error)
	// Intersect returns the boolean intersection of two solids.
	Intersect(other Solid) (Solid, error)
	IsInside(p Vec3) (bool, error)
	IsValid() bool
}

// Face is a bounded surface patch of a solid.
type Face interface {
	GeomType() SurfaceType
	Area() float64
	Center() Vec3
	// NormalAt returns the unit normal pointing out of the material at the
	// surface point closest to p.
	NormalAt(p Vec3) (Vec3, error)
	Orientation() Orientation
	Edges() []Edge
	// DistanceTo returns the distance from p to the face.
	DistanceTo(p Vec3) (float64, error)
}

// Edge is a boundary curve. Two faces that share an edge report edges with
// the same ID.
type Edge interface {
	ID() string
	GeomType() CurveType
	Length() float64
	Center() Vec3
	// Radius is defined for circular edges only.
	Radius() (float64, error)
}

// Builder constructs solids. Translations and holes return new solids; the
// inputs are left untouched.
type Builder interface {
	// Box creates a box with its minimum corner at the origin.
	Box(x, y, z float64) (Solid, error)
	// Cylinder creates a Z-axis cylinder whose base disc is centered on the
	// origin.
	Cylinder(height, radius float64) (Solid, error)
	// Drill cuts a through hole parallel to Z at (x, y) in model coordinates.
	Drill(s Solid, x, y, diameter float64) (Solid, error)
	Translate(s Solid, x, y, z float64) (Solid, error)
}

// ModelOf is a Model backed by a plain slice.
type ModelOf []Solid

// Solids returns the slice itself.
func (m ModelOf) Solids() []Solid { return m }
