package analysis

import (
	"github.com/chazu/dfmcheck/pkg/kernel"
)

// Complexity grades how hard a surface is to produce.
type Complexity int

const (
	ComplexityMedium Complexity = iota
	ComplexityHigh
)

func (c Complexity) String() string {
	if c == ComplexityHigh {
		return "high"
	}
	return "medium"
}

// MarshalText renders the complexity name in reports.
func (c Complexity) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// SurfaceFinding describes one non-planar face.
type SurfaceFinding struct {
	FaceID     string     `json:"face_id"`
	Type       string     `json:"type"`
	Area       float64    `json:"area"`
	Complexity Complexity `json:"complexity"`
}

// ComplexityOf classifies a surface type. Planes are not graded.
func ComplexityOf(t kernel.SurfaceType) (Complexity, bool) {
	switch t {
	case kernel.SurfacePlane:
		return 0, false
	case kernel.SurfaceCylinder, kernel.SurfaceCone, kernel.SurfaceSphere:
		return ComplexityMedium, true
	default:
		return ComplexityHigh, true
	}
}

// SurfaceComplexity grades every non-planar face.
func (a *Analyzer) SurfaceComplexity(m kernel.Model) []SurfaceFinding {
	var out []SurfaceFinding
	for _, ref := range a.allFaces(m, CheckSurfaces) {
		a.guard(CheckSurfaces, ref.ID, func() {
			t := ref.Face.GeomType()
			c, ok := ComplexityOf(t)
			if !ok {
				return
			}
			out = append(out, SurfaceFinding{
				FaceID:     ref.ID,
				Type:       t.String(),
				Area:       ref.Face.Area(),
				Complexity: c,
			})
		})
	}
	return out
}

// Efficiency relates surface area to enclosed volume.
type Efficiency struct {
	Area                 float64 `json:"area"`
	Volume               float64 `json:"volume"`
	Ratio                float64 `json:"ratio"`
	CharacteristicLength float64 `json:"characteristic_length"`
	Normalized           float64 `json:"normalized"`
	Efficient            bool    `json:"efficient"`
}

// SurfaceEfficiency computes area/volume normalized by the mean extent of the
// union bounding box. The model is efficient when the normalized ratio is
// below limit; a model without volume reports a ratio of 0.
func (a *Analyzer) SurfaceEfficiency(m kernel.Model, limit float64) Efficiency {
	var e Efficiency
	for i, s := range m.Solids() {
		a.guard(CheckSurfaces, SolidID(i), func() {
			area, vol := s.Area(), s.Volume()
			e.Area += area
			e.Volume += vol
		})
	}
	if b, ok := a.unionBounds(m, CheckSurfaces); ok {
		sz := b.Size()
		e.CharacteristicLength = (sz.X + sz.Y + sz.Z) / 3
	}
	if e.Volume > 0 {
		e.Ratio = e.Area / e.Volume
	}
	e.Normalized = e.Ratio * e.CharacteristicLength
	e.Efficient = e.Normalized < limit
	return e
}

// FilletCandidate is a curved face that may be a fillet or chamfer blend.
type FilletCandidate struct {
	FaceID string  `json:"face_id"`
	Type   string  `json:"type"`
	Area   float64 `json:"area"`
}

// FilletCandidates lists cylindrical, conical and toroidal faces.
func (a *Analyzer) FilletCandidates(m kernel.Model) []FilletCandidate {
	var out []FilletCandidate
	for _, ref := range a.allFaces(m, CheckSurfaces) {
		a.guard(CheckSurfaces, ref.ID, func() {
			switch t := ref.Face.GeomType(); t {
			case kernel.SurfaceCylinder, kernel.SurfaceCone, kernel.SurfaceTorus:
				out = append(out, FilletCandidate{FaceID: ref.ID, Type: t.String(), Area: ref.Face.Area()})
			}
		})
	}
	return out
}
