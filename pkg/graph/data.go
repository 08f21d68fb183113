package graph

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// BoxData is a rectangular block with its min corner at the origin.
type BoxData struct {
	Dimensions Vec3 `json:"dimensions"` // x, y, z extents in mm
}

func (BoxData) nodeData() {}

// CylinderData is a solid Z-axis cylinder whose base is centered on the
// origin.
type CylinderData struct {
	Height float64 `json:"height"` // mm
	Radius float64 `json:"radius"` // mm
}

func (CylinderData) nodeData() {}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData translates its children. Created by the (place ...) form.
type TransformData struct {
	Translation *Vec3 `json:"translation,omitempty"`
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Drill
// ---------------------------------------------------------------------------

// DrillData cuts a through hole along Z into its single child. Position is
// in the child's local coordinates; only X and Y are used.
type DrillData struct {
	Position Vec3    `json:"position"`
	Diameter float64 `json:"diameter"` // mm
}

func (DrillData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData is a logical grouping (assembly). Created by the (assembly ...)
// form.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}
