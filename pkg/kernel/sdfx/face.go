package sdfx

import (
	"math"

	"github.com/chazu/dfmcheck/pkg/kernel"
)

// sampler is implemented by faces that can produce surface points for
// distance sampling.
type sampler interface {
	samples(n int) []kernel.Vec3
}

// cutout is a circular opening in a planar face.
type cutout struct {
	center kernel.Vec3
	r      float64
}

// planeFace is a rectangle spanned by u and v around center.
type planeFace struct {
	center, normal kernel.Vec3
	u, v           kernel.Vec3
	hu, hv         float64
	area           float64
	cutouts        []cutout
	edges          []kernel.Edge
}

func (f *planeFace) GeomType() kernel.SurfaceType    { return kernel.SurfacePlane }
func (f *planeFace) Area() float64                   { return f.area }
func (f *planeFace) Center() kernel.Vec3             { return f.center }
func (f *planeFace) Orientation() kernel.Orientation { return kernel.Forward }
func (f *planeFace) Edges() []kernel.Edge            { return f.edges }

func (f *planeFace) NormalAt(kernel.Vec3) (kernel.Vec3, error) {
	return f.normal, nil
}

// DistanceTo clamps p onto the rectangle. A foot point that falls in a
// cutout moves radially onto the cutout's rim; cutouts lie strictly inside
// the rectangle and do not overlap, so the rim point is on the face.
func (f *planeFace) DistanceTo(p kernel.Vec3) (float64, error) {
	if !p.IsFinite() {
		return 0, &kernel.QueryError{Op: "face distance", Err: kernel.ErrDegenerate}
	}
	d := p.Sub(f.center)
	a := clamp(d.Dot(f.u), -f.hu, f.hu)
	b := clamp(d.Dot(f.v), -f.hv, f.hv)
	q := f.center.Add(f.u.Scale(a)).Add(f.v.Scale(b))
	for _, c := range f.cutouts {
		radial := q.Sub(c.center)
		radial = radial.Sub(f.normal.Scale(radial.Dot(f.normal)))
		l := radial.Length()
		if l >= c.r {
			continue
		}
		dir := f.u
		if l > 1e-12 {
			dir = radial.Scale(1 / l)
		}
		rim := c.center.Sub(f.normal.Scale(c.center.Sub(f.center).Dot(f.normal)))
		q = rim.Add(dir.Scale(c.r))
		break
	}
	return p.Dist(q), nil
}

// corners returns the rectangle corners in winding order.
func (f *planeFace) corners() []kernel.Vec3 {
	u := f.u.Scale(f.hu)
	v := f.v.Scale(f.hv)
	return []kernel.Vec3{
		f.center.Sub(u).Sub(v),
		f.center.Add(u).Sub(v),
		f.center.Add(u).Add(v),
		f.center.Sub(u).Add(v),
	}
}

func (f *planeFace) samples(n int) []kernel.Vec3 {
	pts := make([]kernel.Vec3, 0, n*n)
	for i := 0; i < n; i++ {
		a := -f.hu + 2*f.hu*float64(i)/float64(n-1)
		for j := 0; j < n; j++ {
			b := -f.hv + 2*f.hv*float64(j)/float64(n-1)
			p := f.center.Add(f.u.Scale(a)).Add(f.v.Scale(b))
			if f.inCutout(p) {
				continue
			}
			pts = append(pts, p)
		}
	}
	return pts
}

func (f *planeFace) inCutout(p kernel.Vec3) bool {
	for _, c := range f.cutouts {
		d := p.Sub(c.center)
		d = d.Sub(f.normal.Scale(d.Dot(f.normal)))
		if d.Length() < c.r {
			return true
		}
	}
	return false
}

// discFace is a flat circular cap.
type discFace struct {
	center, normal kernel.Vec3
	radius         float64
	edges          []kernel.Edge
}

func (f *discFace) GeomType() kernel.SurfaceType    { return kernel.SurfacePlane }
func (f *discFace) Area() float64                   { return math.Pi * f.radius * f.radius }
func (f *discFace) Center() kernel.Vec3             { return f.center }
func (f *discFace) Orientation() kernel.Orientation { return kernel.Forward }
func (f *discFace) Edges() []kernel.Edge            { return f.edges }

func (f *discFace) NormalAt(kernel.Vec3) (kernel.Vec3, error) {
	return f.normal, nil
}

func (f *discFace) DistanceTo(p kernel.Vec3) (float64, error) {
	if !p.IsFinite() {
		return 0, &kernel.QueryError{Op: "face distance", Err: kernel.ErrDegenerate}
	}
	d := p.Sub(f.center)
	radial := d.Sub(f.normal.Scale(d.Dot(f.normal)))
	if l := radial.Length(); l > f.radius {
		radial = radial.Scale(f.radius / l)
	}
	return p.Dist(f.center.Add(radial)), nil
}

func (f *discFace) samples(n int) []kernel.Vec3 {
	u, v := basis(f.normal)
	pts := []kernel.Vec3{f.center}
	for ring := 1; ring <= 2; ring++ {
		r := f.radius * float64(ring) / 2
		for i := 0; i < 2*n; i++ {
			t := 2 * math.Pi * float64(i) / float64(2*n)
			pts = append(pts, f.center.Add(u.Scale(r*math.Cos(t))).Add(v.Scale(r*math.Sin(t))))
		}
	}
	return pts
}

// cylFace is the lateral surface of a finite cylinder. Reversed faces bound
// holes: their material lies outside the cylinder.
type cylFace struct {
	base, axis kernel.Vec3
	height     float64
	radius     float64
	reversed   bool
	edges      []kernel.Edge
}

func (f *cylFace) GeomType() kernel.SurfaceType { return kernel.SurfaceCylinder }
func (f *cylFace) Area() float64                { return 2 * math.Pi * f.radius * f.height }
func (f *cylFace) Edges() []kernel.Edge         { return f.edges }

// Center returns the midpoint of the axis segment.
func (f *cylFace) Center() kernel.Vec3 {
	return f.base.Add(f.axis.Scale(f.height / 2))
}

func (f *cylFace) Orientation() kernel.Orientation {
	if f.reversed {
		return kernel.Reversed
	}
	return kernel.Forward
}

// radialDir returns the unit direction from the axis toward p, falling back
// to a fixed perpendicular for points on the axis.
func (f *cylFace) radialDir(p kernel.Vec3) (kernel.Vec3, float64) {
	d := p.Sub(f.base)
	t := d.Dot(f.axis)
	radial := d.Sub(f.axis.Scale(t))
	if radial.Length() < 1e-12 {
		u, _ := basis(f.axis)
		return u, t
	}
	return radial.Normalize(), t
}

func (f *cylFace) NormalAt(p kernel.Vec3) (kernel.Vec3, error) {
	if !p.IsFinite() {
		return kernel.Vec3{}, &kernel.QueryError{Op: "normal", Err: kernel.ErrDegenerate}
	}
	dir, _ := f.radialDir(p)
	if f.reversed {
		return dir.Scale(-1), nil
	}
	return dir, nil
}

func (f *cylFace) DistanceTo(p kernel.Vec3) (float64, error) {
	if !p.IsFinite() {
		return 0, &kernel.QueryError{Op: "face distance", Err: kernel.ErrDegenerate}
	}
	dir, t := f.radialDir(p)
	q := f.base.Add(f.axis.Scale(clamp(t, 0, f.height))).Add(dir.Scale(f.radius))
	return p.Dist(q), nil
}

func (f *cylFace) samples(n int) []kernel.Vec3 {
	u, v := basis(f.axis)
	var pts []kernel.Vec3
	for i := 0; i < n; i++ {
		h := f.height * float64(i) / float64(n-1)
		for j := 0; j < 2*n; j++ {
			t := 2 * math.Pi * float64(j) / float64(2*n)
			dir := u.Scale(math.Cos(t)).Add(v.Scale(math.Sin(t)))
			pts = append(pts, f.base.Add(f.axis.Scale(h)).Add(dir.Scale(f.radius)))
		}
	}
	return pts
}

// edge is a line segment or full circle.
type edge struct {
	id     string
	kind   kernel.CurveType
	center kernel.Vec3
	length float64
	radius float64
}

func (e *edge) ID() string                 { return e.id }
func (e *edge) GeomType() kernel.CurveType { return e.kind }
func (e *edge) Length() float64            { return e.length }
func (e *edge) Center() kernel.Vec3        { return e.center }

func (e *edge) Radius() (float64, error) {
	if e.kind != kernel.CurveCircle {
		return 0, &kernel.QueryError{Op: "edge radius", Err: kernel.ErrUnsupported}
	}
	return e.radius, nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// basis returns two unit vectors perpendicular to n and to each other.
func basis(n kernel.Vec3) (kernel.Vec3, kernel.Vec3) {
	ref := unitX
	if math.Abs(n.Dot(ref)) > 0.9 {
		ref = unitY
	}
	u := ref.Sub(n.Scale(ref.Dot(n))).Normalize()
	return u, n.Cross(u)
}
