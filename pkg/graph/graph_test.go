package graph

import "testing"

func TestNewDesignGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddNodeAndLookup(t *testing.T) {
	g := New()

	id := NewNodeID("defpart/bracket")
	g.AddNode(&Node{
		ID:   id,
		Kind: NodePrimitive,
		Name: "bracket",
		Data: BoxData{Dimensions: Vec3{X: 40, Y: 20, Z: 5}},
	})
	g.AddRoot(id)

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
	found := g.Lookup("bracket")
	if found == nil || found.ID != id {
		t.Fatalf("Lookup(bracket) = %v, want node %s", found, id.Short())
	}
	if must := g.MustLookup("bracket"); must.ID != id {
		t.Errorf("MustLookup returned wrong node")
	}
	if g.Lookup("missing") != nil {
		t.Error("Lookup(missing) should return nil")
	}
	if g.Get(id) != found {
		t.Error("Get should return the same node as Lookup")
	}
	if len(g.Roots) != 1 || g.Roots[0] != id {
		t.Errorf("roots = %v, want [%s]", g.Roots, id.Short())
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup on a missing name should panic")
		}
	}()
	New().MustLookup("nope")
}

func TestAddNodeKeepsOrder(t *testing.T) {
	g := New()
	a := NewNodeID("box/a")
	b := NewNodeID("box/b")
	g.AddNode(&Node{ID: a, Kind: NodePrimitive, Data: BoxData{Dimensions: Vec3{X: 1, Y: 1, Z: 1}}})
	g.AddNode(&Node{ID: b, Kind: NodePrimitive, Data: BoxData{Dimensions: Vec3{X: 2, Y: 2, Z: 2}}})
	// Re-adding replaces the node without moving it.
	g.AddNode(&Node{ID: a, Kind: NodePrimitive, Data: BoxData{Dimensions: Vec3{X: 3, Y: 3, Z: 3}}})

	if len(g.Order) != 2 || g.Order[0] != a || g.Order[1] != b {
		t.Fatalf("order = %v, want [a b]", g.Order)
	}
	if got := g.Get(a).Data.(BoxData).Dimensions.X; got != 3 {
		t.Errorf("re-added node X = %g, want 3", got)
	}
	prims := g.Primitives()
	if len(prims) != 2 || prims[0].ID != a {
		t.Errorf("Primitives() not in insertion order")
	}
}

func TestSetName(t *testing.T) {
	g := New()
	a := NewNodeID("box/a")
	b := NewNodeID("box/b")
	g.AddNode(&Node{ID: a, Kind: NodePrimitive, Data: BoxData{}})
	g.AddNode(&Node{ID: b, Kind: NodePrimitive, Data: BoxData{}})

	if err := g.SetName(a, "plate"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if g.Lookup("plate") == nil || g.Get(a).Name != "plate" {
		t.Error("named node not indexed")
	}

	tests := []struct {
		name string
		id   NodeID
		as   string
	}{
		{"already named", a, "other"},
		{"name taken", b, "plate"},
		{"missing node", NewNodeID("nope"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.SetName(tt.id, tt.as); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestChildrenAndUnreferenced(t *testing.T) {
	g := New()
	box := NewNodeID("box/0")
	drill := NewNodeID("drill/0")
	loose := NewNodeID("cylinder/0")
	g.AddNode(&Node{ID: box, Kind: NodePrimitive, Data: BoxData{Dimensions: Vec3{X: 10, Y: 10, Z: 2}}})
	g.AddNode(&Node{ID: drill, Kind: NodeDrill, Children: []NodeID{box}, Data: DrillData{Position: Vec3{X: 5, Y: 5}, Diameter: 2}})
	g.AddNode(&Node{ID: loose, Kind: NodePrimitive, Data: CylinderData{Height: 4, Radius: 1}})

	children := g.Children(g.Get(drill))
	if len(children) != 1 || children[0].ID != box {
		t.Errorf("Children(drill) = %v, want [box]", children)
	}

	got := g.Unreferenced()
	if len(got) != 2 || got[0] != drill || got[1] != loose {
		t.Errorf("Unreferenced() = %v, want [drill cylinder]", got)
	}
}

func TestNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("defpart/plate")
	if a != NewNodeID("defpart/plate") {
		t.Error("same path should give the same ID")
	}
	if a == NewNodeID("defpart/other") {
		t.Error("different paths should give different IDs")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() = %q, want 8 characters", a.Short())
	}
	if !ZeroID.IsZero() || a.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestNodeKindString(t *testing.T) {
	tests := []struct {
		kind NodeKind
		want string
	}{
		{NodePrimitive, "primitive"},
		{NodeTransform, "transform"},
		{NodeDrill, "drill"},
		{NodeGroup, "group"},
		{NodeKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
