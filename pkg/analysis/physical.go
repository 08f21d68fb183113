package analysis

import (
	"github.com/chazu/dfmcheck/pkg/kernel"
)

const (
	// mm3PerCm3 converts g/cm³ densities to g/mm³.
	mm3PerCm3 = 1000

	// DefaultDensity is steel, in g/cm³.
	DefaultDensity = 7.85
)

// Units names the units of the physical figures.
type Units struct {
	Length  string `json:"length"`
	Volume  string `json:"volume"`
	Mass    string `json:"mass"`
	Density string `json:"density"`
}

// DefaultUnits are the units every figure is reported in.
var DefaultUnits = Units{Length: "mm", Volume: "mm³", Mass: "g", Density: "g/cm³"}

// SolidProperties are the mass properties of one solid.
type SolidProperties struct {
	ID          string             `json:"id"`
	Volume      float64            `json:"volume"`
	Area        float64            `json:"area"`
	Mass        float64            `json:"mass"`
	Center      kernel.Vec3        `json:"center"`
	BoundingBox kernel.BoundingBox `json:"bounding_box"`
	Valid       bool               `json:"valid"`
}

// Physical are the aggregate mass properties of a model.
type Physical struct {
	Volume          float64            `json:"volume"`
	Mass            float64            `json:"mass"`
	Density         float64            `json:"density"`
	CenterOfGravity kernel.Vec3        `json:"center_of_gravity"`
	BoundingBox     kernel.BoundingBox `json:"bounding_box"`
	Solids          []SolidProperties  `json:"solids"`
	Units           Units              `json:"units"`
}

// Physical computes volume, mass at density g/cm³, the volume-weighted
// center of gravity and the union bounding box. An empty model yields zeros.
// A density that is not positive means DefaultDensity.
func (a *Analyzer) Physical(m kernel.Model, density float64) Physical {
	if density <= 0 {
		density = DefaultDensity
	}
	out := Physical{Density: density, Units: DefaultUnits}
	perMM3 := density / mm3PerCm3

	var moment kernel.Vec3
	for i, s := range m.Solids() {
		a.guard(CheckPhysical, SolidID(i), func() {
			v := s.Volume()
			c := s.Center()
			props := SolidProperties{
				ID:          SolidID(i),
				Volume:      v,
				Area:        s.Area(),
				Mass:        v * perMM3,
				Center:      c,
				BoundingBox: s.BoundingBox(),
				Valid:       s.IsValid(),
			}
			out.Solids = append(out.Solids, props)
			out.Volume += v
			moment = moment.Add(c.Scale(v))
		})
	}
	out.Mass = out.Volume * perMM3
	if out.Volume > 0 {
		out.CenterOfGravity = moment.Scale(1 / out.Volume)
	}
	if b, ok := a.unionBounds(m, CheckPhysical); ok {
		out.BoundingBox = b
	}
	return out
}
