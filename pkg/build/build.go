// Package build walks a design graph and produces solids through a geometry
// kernel. One solid is produced per placed part.
package build

import (
	"fmt"

	"github.com/chazu/dfmcheck/pkg/graph"
	"github.com/chazu/dfmcheck/pkg/kernel"
)

// Part is one built solid and the graph node it came from.
type Part struct {
	Name   string
	NodeID graph.NodeID
	Solid  kernel.Solid
}

// Model is the built geometry. It implements kernel.Model.
type Model struct {
	Parts []Part
}

// Solids returns the part solids in build order.
func (m *Model) Solids() []kernel.Solid {
	out := make([]kernel.Solid, len(m.Parts))
	for i, p := range m.Parts {
		out[i] = p.Solid
	}
	return out
}

// Names returns the part names in build order.
func (m *Model) Names() []string {
	out := make([]string, len(m.Parts))
	for i, p := range m.Parts {
		out[i] = p.Name
	}
	return out
}

// transformStack accumulates translations during graph traversal.
type transformStack struct {
	translations []graph.Vec3
}

func (ts *transformStack) push(v graph.Vec3) {
	ts.translations = append(ts.translations, v)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
}

// accumulated returns the sum of all translations on the stack.
func (ts *transformStack) accumulated() graph.Vec3 {
	var sum graph.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// Build walks the design graph from its roots and produces one solid per
// part using k. Build is read-only and never mutates the graph. A part
// reached through two placements yields two solids.
func Build(g *graph.DesignGraph, k kernel.Builder) (*Model, error) {
	m := &Model{}
	if g == nil {
		return m, nil
	}

	w := &walker{g: g, k: k}
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		parts, err := w.walk(root)
		if err != nil {
			return nil, fmt.Errorf("build: root %s: %w", label(root), err)
		}
		m.Parts = append(m.Parts, parts...)
	}
	return m, nil
}

type walker struct {
	g  *graph.DesignGraph
	k  kernel.Builder
	ts transformStack
}

// walk recursively traverses a node and its children, collecting parts.
func (w *walker) walk(n *graph.Node) ([]Part, error) {
	switch n.Kind {
	case graph.NodePrimitive, graph.NodeDrill:
		s, err := w.solid(n)
		if err != nil {
			return nil, err
		}
		return []Part{{Name: w.partName(n), NodeID: n.ID, Solid: s}}, nil

	case graph.NodeTransform:
		td, ok := n.Data.(graph.TransformData)
		if !ok {
			return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
		}
		var t graph.Vec3
		if td.Translation != nil {
			t = *td.Translation
		}
		w.ts.push(t)
		defer w.ts.pop()
		return w.children(n)

	case graph.NodeGroup:
		return w.children(n)

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w *walker) children(n *graph.Node) ([]Part, error) {
	var parts []Part
	for _, child := range w.g.Children(n) {
		collected, err := w.walk(child)
		if err != nil {
			return nil, err
		}
		parts = append(parts, collected...)
	}
	return parts, nil
}

// solid builds a primitive or a drilled primitive at the current placement.
func (w *walker) solid(n *graph.Node) (kernel.Solid, error) {
	switch d := n.Data.(type) {
	case graph.BoxData:
		s, err := w.k.Box(d.Dimensions.X, d.Dimensions.Y, d.Dimensions.Z)
		if err != nil {
			return nil, fmt.Errorf("box %s: %w", label(n), err)
		}
		return w.place(s)

	case graph.CylinderData:
		s, err := w.k.Cylinder(d.Height, d.Radius)
		if err != nil {
			return nil, fmt.Errorf("cylinder %s: %w", label(n), err)
		}
		return w.place(s)

	case graph.DrillData:
		if len(n.Children) != 1 {
			return nil, fmt.Errorf("drill %s: expected one target, got %d", label(n), len(n.Children))
		}
		target := w.g.Get(n.Children[0])
		if target == nil {
			return nil, fmt.Errorf("drill %s: missing target %s", label(n), n.Children[0].Short())
		}
		s, err := w.solid(target)
		if err != nil {
			return nil, err
		}
		// The position is local to the drilled part; the kernel wants model
		// coordinates.
		at := d.Position.Add(w.ts.accumulated())
		s, err = w.k.Drill(s, at.X, at.Y, d.Diameter)
		if err != nil {
			return nil, fmt.Errorf("drill %s: %w", label(n), err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%s node %s has unsupported data type %T", n.Kind, n.ID.Short(), n.Data)
	}
}

func (w *walker) place(s kernel.Solid) (kernel.Solid, error) {
	t := w.ts.accumulated()
	if t.IsZero() {
		return s, nil
	}
	return w.k.Translate(s, t.X, t.Y, t.Z)
}

// partName names a part after its node, or for an unnamed drill after the
// part it cuts.
func (w *walker) partName(n *graph.Node) string {
	for n.Name == "" && n.Kind == graph.NodeDrill && len(n.Children) == 1 {
		next := w.g.Get(n.Children[0])
		if next == nil {
			break
		}
		n = next
	}
	return label(n)
}

func label(n *graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}
