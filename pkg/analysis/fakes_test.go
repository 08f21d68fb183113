package analysis

import (
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
)

// fakeEdge is a hand-built edge.
type fakeEdge struct {
	id     string
	kind   kernel.CurveType
	center kernel.Vec3
	radius float64
}

func (e *fakeEdge) ID() string                 { return e.id }
func (e *fakeEdge) GeomType() kernel.CurveType { return e.kind }
func (e *fakeEdge) Length() float64            { return 1 }
func (e *fakeEdge) Center() kernel.Vec3        { return e.center }
func (e *fakeEdge) Radius() (float64, error) {
	if e.kind != kernel.CurveCircle {
		return 0, &kernel.QueryError{Op: "edge radius", Err: kernel.ErrUnsupported}
	}
	return e.radius, nil
}

// fakeFace has a constant normal unless normalFn is set.
type fakeFace struct {
	typ      kernel.SurfaceType
	area     float64
	center   kernel.Vec3
	normal   kernel.Vec3
	normalFn func(kernel.Vec3) (kernel.Vec3, error)
	orient   kernel.Orientation
	edges    []kernel.Edge
	distFn   func(kernel.Vec3) (float64, error)
	// brokenArea makes Area panic.
	brokenArea bool
}

func (f *fakeFace) GeomType() kernel.SurfaceType    { return f.typ }
func (f *fakeFace) Center() kernel.Vec3             { return f.center }
func (f *fakeFace) Orientation() kernel.Orientation { return f.orient }
func (f *fakeFace) Edges() []kernel.Edge            { return f.edges }

func (f *fakeFace) Area() float64 {
	if f.brokenArea {
		panic("bad face")
	}
	return f.area
}

func (f *fakeFace) NormalAt(p kernel.Vec3) (kernel.Vec3, error) {
	if f.normalFn != nil {
		return f.normalFn(p)
	}
	return f.normal, nil
}

func (f *fakeFace) DistanceTo(p kernel.Vec3) (float64, error) {
	if f.distFn != nil {
		return f.distFn(p)
	}
	return p.Dist(f.center), nil
}

// fakeSolid answers inside tests with a predicate.
type fakeSolid struct {
	faces     []kernel.Face
	bbox      kernel.BoundingBox
	volume    float64
	area      float64
	center    kernel.Vec3
	invalid   bool
	inside    func(kernel.Vec3) bool
	intersect func(kernel.Solid) (kernel.Solid, error)
	distance  func(kernel.Solid) (float64, error)
	// brokenBounds makes BoundingBox panic.
	brokenBounds bool
}

func (s *fakeSolid) Faces() []kernel.Face    { return s.faces }
func (s *fakeSolid) Edges() []kernel.Edge    { return nil }
func (s *fakeSolid) Vertices() []kernel.Vec3 { return nil }
func (s *fakeSolid) Volume() float64         { return s.volume }
func (s *fakeSolid) Area() float64           { return s.area }
func (s *fakeSolid) Center() kernel.Vec3     { return s.center }
func (s *fakeSolid) IsValid() bool           { return !s.invalid }

func (s *fakeSolid) BoundingBox() kernel.BoundingBox {
	if s.brokenBounds {
		panic("bad solid")
	}
	return s.bbox
}

func (s *fakeSolid) DistanceTo(kernel.Vec3) (float64, error) {
	return 0, &kernel.QueryError{Op: "distance", Err: kernel.ErrUnsupported}
}

func (s *fakeSolid) DistanceToSolid(o kernel.Solid) (float64, error) {
	if s.distance == nil {
		return 0, &kernel.QueryError{Op: "distance", Err: kernel.ErrUnsupported}
	}
	return s.distance(o)
}

func (s *fakeSolid) Intersect(o kernel.Solid) (kernel.Solid, error) {
	if s.intersect == nil {
		return nil, &kernel.QueryError{Op: "intersect", Err: kernel.ErrUnsupported}
	}
	return s.intersect(o)
}

func (s *fakeSolid) IsInside(p kernel.Vec3) (bool, error) {
	if s.inside == nil {
		return false, &kernel.QueryError{Op: "inside", Err: kernel.ErrUnsupported}
	}
	return s.inside(p), nil
}

func unitBox() kernel.BoundingBox {
	return kernel.BoundingBox{Max: kernel.Vec3{X: 10, Y: 10, Z: 10}}
}

// tilted returns a downward-facing plane whose surface is deg degrees from
// vertical.
func tilted(deg float64, center kernel.Vec3) *fakeFace {
	rad := deg * math.Pi / 180
	return &fakeFace{
		typ:    kernel.SurfacePlane,
		area:   10,
		center: center,
		normal: kernel.Vec3{X: math.Cos(rad), Z: -math.Sin(rad)},
	}
}

func modelOf(solids ...kernel.Solid) kernel.Model { return kernel.ModelOf(solids) }
