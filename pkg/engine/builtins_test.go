package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/chazu/dfmcheck/pkg/graph"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(box :x 40)`,
			expect: `(box "__kw_x" 40)`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :height 10 :radius 4)`,
			expect: `(cylinder "__kw_height" 10 "__kw_radius" 4)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def top-plate (box 1 1 1))`,
			expect: `(def top_plate (box 1 1 1))`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(vec3 -5 0 0)`,
			expect: `(vec3 -5 0 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// mustEvaluate evaluates source and fails the test on any error.
func mustEvaluate(t *testing.T, source string) *graph.DesignGraph {
	t.Helper()
	g, evalErrs, err := NewEngine().Evaluate(context.Background(), source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return g
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

func TestBoxForms(t *testing.T) {
	for _, src := range []string{
		`(defpart "plate" (box 60 40 6))`,
		`(defpart "plate" (box :x 60 :y 40 :z 6))`,
		`(defpart "plate" (box :z 6 :y 40 :x 60))`,
	} {
		g := mustEvaluate(t, src)
		plate := g.Lookup("plate")
		if plate == nil {
			t.Fatalf("%s: expected node named 'plate'", src)
		}
		if plate.Kind != graph.NodePrimitive {
			t.Errorf("expected NodePrimitive, got %s", plate.Kind)
		}
		bd, ok := plate.Data.(graph.BoxData)
		if !ok {
			t.Fatalf("expected BoxData, got %T", plate.Data)
		}
		if bd.Dimensions != (graph.Vec3{X: 60, Y: 40, Z: 6}) {
			t.Errorf("%s: dimensions = %+v", src, bd.Dimensions)
		}
		if len(g.Roots) != 1 || g.Roots[0] != plate.ID {
			t.Errorf("%s: loose part should become the only root, roots = %v", src, g.Roots)
		}
	}
}

func TestCylinderForms(t *testing.T) {
	tests := []struct {
		src    string
		height float64
		radius float64
	}{
		{`(defpart "boss" (cylinder :height 12 :radius 4))`, 12, 4},
		{`(defpart "boss" (cylinder :height 12 :diameter 8.5))`, 12, 4.25},
		{`(defpart "boss" (cylinder 12 4))`, 12, 4},
	}
	for _, tt := range tests {
		g := mustEvaluate(t, tt.src)
		cd, ok := g.MustLookup("boss").Data.(graph.CylinderData)
		if !ok {
			t.Fatalf("%s: expected CylinderData", tt.src)
		}
		if cd.Height != tt.height || cd.Radius != tt.radius {
			t.Errorf("%s: got h=%g r=%g, want h=%g r=%g", tt.src, cd.Height, cd.Radius, tt.height, tt.radius)
		}
	}
}

func TestVec3(t *testing.T) {
	g := mustEvaluate(t, `(place (box 1 1 1) :at (vec3 1.5 -2 3))`)

	var td graph.TransformData
	for _, n := range g.Nodes {
		if n.Kind == graph.NodeTransform {
			td = n.Data.(graph.TransformData)
		}
	}
	if td.Translation == nil {
		t.Fatal("expected a translation")
	}
	if *td.Translation != (graph.Vec3{X: 1.5, Y: -2, Z: 3}) {
		t.Errorf("translation = %+v", *td.Translation)
	}
}

// ---------------------------------------------------------------------------
// Naming and references
// ---------------------------------------------------------------------------

func TestVariableReference(t *testing.T) {
	g := mustEvaluate(t, `
(def base (defpart "base" (box 100 50 10)))
(assembly "stack"
  base
  (place (part "base") :at (vec3 0 0 10)))
`)
	base := g.MustLookup("base")
	stack := g.MustLookup("stack")
	if len(stack.Children) != 2 {
		t.Fatalf("stack children = %d, want 2", len(stack.Children))
	}
	if stack.Children[0] != base.ID {
		t.Errorf("first child should be the base itself")
	}
	placed := g.Get(stack.Children[1])
	if placed.Kind != graph.NodeTransform || placed.Children[0] != base.ID {
		t.Errorf("second child should place the base, got %s %v", placed.Kind, placed.Children)
	}
	if len(g.Roots) != 1 || g.Roots[0] != stack.ID {
		t.Errorf("roots = %v, want only the assembly", g.Roots)
	}
	if g.MustLookup("stack").Data.(graph.GroupData).Description != "" {
		t.Error("description should be empty")
	}
}

func TestAssemblyDescription(t *testing.T) {
	g := mustEvaluate(t, `(assembly "jig" (box 1 1 1) :description "welding jig")`)
	if got := g.MustLookup("jig").Data.(graph.GroupData).Description; got != "welding jig" {
		t.Errorf("description = %q", got)
	}
}

func TestDrill(t *testing.T) {
	g := mustEvaluate(t, `
(defpart "plate"
  (drill (drill (box 60 40 6) :at (vec3 15 20 0) :diameter 6)
         :at (vec3 45 20 0) :diameter 6.6))
`)
	outer := g.MustLookup("plate")
	if outer.Kind != graph.NodeDrill {
		t.Fatalf("plate kind = %s, want drill", outer.Kind)
	}
	dd := outer.Data.(graph.DrillData)
	if dd.Position.X != 45 || dd.Diameter != 6.6 {
		t.Errorf("outer drill = %+v", dd)
	}
	inner := g.Get(outer.Children[0])
	if inner.Kind != graph.NodeDrill || inner.Data.(graph.DrillData).Position.X != 15 {
		t.Errorf("inner drill = %+v", inner)
	}
	if box := g.Get(inner.Children[0]); box.Kind != graph.NodePrimitive {
		t.Errorf("drilled shape kind = %s", box.Kind)
	}
	if len(g.Roots) != 1 || g.Roots[0] != outer.ID {
		t.Errorf("roots = %v, want only the outer drill", g.Roots)
	}
	if res := graph.ValidateAll(g); len(res.Errors) > 0 {
		t.Errorf("validation errors: %v", res.Errors)
	}
}

func TestDeterministicIDs(t *testing.T) {
	src := `(assembly "a" (place (box 1 2 3) :at (vec3 5 0 0)) (cylinder 4 1))`
	g1 := mustEvaluate(t, src)
	g2 := mustEvaluate(t, src)
	if len(g1.Order) != len(g2.Order) {
		t.Fatalf("node counts differ: %d vs %d", len(g1.Order), len(g2.Order))
	}
	for i := range g1.Order {
		if g1.Order[i] != g2.Order[i] {
			t.Errorf("node %d: IDs differ between evaluations", i)
		}
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"box missing dimension", `(box 1 2)`, "missing z dimension"},
		{"box non-number", `(box "a" 2 3)`, "expected number"},
		{"cylinder missing radius", `(cylinder :height 3)`, "missing radius or diameter"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
		{"defpart non-shape", `(defpart "p" 5)`, "expected shape or part reference"},
		{"defpart twice", `(def b (defpart "a" (box 1 1 1))) (defpart "b" b)`, "already named"},
		{"defpart duplicate name", `(defpart "a" (box 1 1 1)) (defpart "a" (box 2 2 2))`, "already in use"},
		{"unknown part", `(part "nope")`, `no part named "nope"`},
		{"drill without position", `(drill (box 10 10 1) :diameter 2)`, "missing :at"},
		{"drill without diameter", `(drill (box 10 10 1) :at (vec3 5 5 0))`, "missing :diameter"},
		{"place non-vector", `(place (box 1 1 1) :at 5)`, "expected vec3"},
		{"assembly child", `(assembly "a" 5)`, "child 1"},
		{"assembly duplicate", `(defpart "a" (box 1 1 1)) (assembly "a")`, "already in use"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, evalErrs, err := NewEngine().Evaluate(context.Background(), tt.src)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if g != nil {
				t.Error("expected nil graph on error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected an eval error")
			}
			if !strings.Contains(evalErrs[0].Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", evalErrs[0].Error(), tt.want)
			}
		})
	}
}
