package kernel

import (
	"errors"
	"fmt"
)

// SurfaceType tags the underlying geometry of a face.
type SurfaceType int

const (
	SurfacePlane SurfaceType = iota
	SurfaceCylinder
	SurfaceCone
	SurfaceSphere
	SurfaceTorus
	SurfaceFreeform // B-spline, offset and anything else
)

func (t SurfaceType) String() string {
	switch t {
	case SurfacePlane:
		return "PLANE"
	case SurfaceCylinder:
		return "CYLINDER"
	case SurfaceCone:
		return "CONE"
	case SurfaceSphere:
		return "SPHERE"
	case SurfaceTorus:
		return "TORUS"
	case SurfaceFreeform:
		return "FREEFORM"
	default:
		return "UNKNOWN"
	}
}

// CurveType tags the underlying geometry of an edge.
type CurveType int

const (
	CurveLine CurveType = iota
	CurveCircle
	CurveEllipse
	CurveFreeform
)

func (t CurveType) String() string {
	switch t {
	case CurveLine:
		return "LINE"
	case CurveCircle:
		return "CIRCLE"
	case CurveEllipse:
		return "ELLIPSE"
	case CurveFreeform:
		return "FREEFORM"
	default:
		return "UNKNOWN"
	}
}

// Orientation tells whether a face's material lies on the side opposite its
// natural surface normal. Internal cylinders (holes) are Reversed.
type Orientation int

const (
	Forward Orientation = iota
	Reversed
)

func (o Orientation) String() string {
	if o == Reversed {
		return "REVERSED"
	}
	return "FORWARD"
}

var (
	// ErrUnsupported is returned for queries a backend cannot answer.
	ErrUnsupported = errors.New("kernel: query not supported")
	// ErrDegenerate is returned when geometry is too small or malformed to
	// answer a query.
	ErrDegenerate = errors.New("kernel: degenerate geometry")
)

// QueryError wraps a failed geometry query with the operation name.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("kernel: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
