package graph

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Tier 2 — Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs all Tier 2 geometric checks.
// Returns errors (blocking) and warnings (advisory) separately.
func validateGeometry(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	errs = append(errs, validateDimensions(g)...)
	errs = append(errs, validateDrills(g)...)
	warnings = append(warnings, validateEmptyContainers(g)...)

	return errs, warnings
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// validateDimensions checks that every primitive has positive, finite size.
func validateDimensions(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	bad := func(n *Node, what string, v float64) {
		errs = append(errs, ValidationError{
			NodeID:   n.ID,
			Message:  fmt.Sprintf("%s is %.4f, must be positive", what, v),
			Severity: SeverityError,
		})
	}

	for _, id := range g.Order {
		node := g.Nodes[id]
		switch d := node.Data.(type) {
		case BoxData:
			if !positive(d.Dimensions.X) {
				bad(node, "box dimension X", d.Dimensions.X)
			}
			if !positive(d.Dimensions.Y) {
				bad(node, "box dimension Y", d.Dimensions.Y)
			}
			if !positive(d.Dimensions.Z) {
				bad(node, "box dimension Z", d.Dimensions.Z)
			}
		case CylinderData:
			if !positive(d.Height) {
				bad(node, "cylinder height", d.Height)
			}
			if !positive(d.Radius) {
				bad(node, "cylinder radius", d.Radius)
			}
		case DrillData:
			if !positive(d.Diameter) {
				bad(node, "drill diameter", d.Diameter)
			}
		}
	}

	return errs
}

// drillTarget follows a chain of drills down to the box they cut. It returns
// the box and the holes already cut above it, innermost first.
func drillTarget(g *DesignGraph, n *Node) (*Node, []DrillData, error) {
	var holes []DrillData
	seen := make(map[NodeID]bool)
	for {
		if len(n.Children) != 1 {
			return nil, nil, fmt.Errorf("drill must have exactly one child, has %d", len(n.Children))
		}
		seen[n.ID] = true
		child := g.Nodes[n.Children[0]]
		if child == nil {
			// Dangling reference; handled by validateReferences.
			return nil, nil, nil
		}
		switch d := child.Data.(type) {
		case BoxData:
			return child, holes, nil
		case DrillData:
			if seen[child.ID] {
				return nil, nil, nil // cycle; handled by validateDAG
			}
			holes = append(holes, d)
			n = child
		default:
			return nil, nil, fmt.Errorf("only boxes can be drilled, target is %s %q", child.Kind, label(child))
		}
	}
}

// validateDrills checks that every hole lies strictly inside its box's XY
// footprint and does not touch a hole drilled before it.
func validateDrills(g *DesignGraph) []ValidationError {
	var errs []ValidationError

	for _, id := range g.Order {
		node := g.Nodes[id]
		dd, ok := node.Data.(DrillData)
		if !ok {
			continue
		}
		box, earlier, err := drillTarget(g, node)
		if err != nil {
			errs = append(errs, ValidationError{NodeID: node.ID, Message: err.Error(), Severity: SeverityError})
			continue
		}
		if box == nil || !positive(dd.Diameter) {
			continue
		}

		size := box.Data.(BoxData).Dimensions
		x, y, r := dd.Position.X, dd.Position.Y, dd.Diameter/2
		if x-r <= 0 || x+r >= size.X || y-r <= 0 || y+r >= size.Y {
			errs = append(errs, ValidationError{
				NodeID: node.ID,
				Message: fmt.Sprintf("hole at (%g, %g) with diameter %g breaks out of the %gx%g footprint of %q",
					x, y, dd.Diameter, size.X, size.Y, label(box)),
				Severity: SeverityError,
			})
			continue
		}
		for _, o := range earlier {
			if math.Hypot(o.Position.X-x, o.Position.Y-y) <= o.Diameter/2+r {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("hole at (%g, %g) overlaps the hole at (%g, %g)", x, y, o.Position.X, o.Position.Y),
					Severity: SeverityError,
				})
				break
			}
		}
	}

	return errs
}

// validateEmptyContainers warns about placements and assemblies that hold
// nothing.
func validateEmptyContainers(g *DesignGraph) []ValidationWarning {
	var warnings []ValidationWarning

	for _, id := range g.Order {
		node := g.Nodes[id]
		if (node.Kind == NodeTransform || node.Kind == NodeGroup) && len(node.Children) == 0 {
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: fmt.Sprintf("%s %q is empty", node.Kind, label(node)),
			})
		}
	}

	return warnings
}
