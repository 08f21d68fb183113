package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/dfmcheck/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms model source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: top-plate -> top_plate
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	kind graph.NodeKind
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(%s %q)", n.kind, n.name)
	}
	return fmt.Sprintf("(%s %s)", n.kind, n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// number returns keyword arg key, or positional arg pos when the keyword is
// absent. pos < 0 means keyword only.
func (a kwArgs) number(key string, pos int) (float64, bool, error) {
	v, ok := a.kw[key]
	if !ok {
		if pos < 0 || pos >= len(a.positional) {
			return 0, false, nil
		}
		v = a.positional[pos]
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return f, true, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a node reference.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected shape or part reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder populates one evaluation's graph. Anonymous nodes get IDs from a
// per-evaluation counter, so the same source always yields the same IDs.
type builder struct {
	g    *graph.DesignGraph
	anon map[string]int
}

// newID returns the ID for an anonymous node of the given form.
func (b *builder) newID(form string) graph.NodeID {
	if b.anon == nil {
		b.anon = make(map[string]int)
	}
	n := b.anon[form]
	b.anon[form]++
	return graph.NewNodeID(fmt.Sprintf("%s/_anon_%d", form, n))
}

func (b *builder) add(form string, kind graph.NodeKind, data graph.NodeData, children ...graph.NodeID) *sexpNodeRef {
	id := b.newID(form)
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Children: children, Data: data})
	return &sexpNodeRef{id: id, kind: kind}
}

// register installs the model builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func (b *builder) register(env *zygo.Zlisp) {
	env.AddFunction("box", b.box)
	env.AddFunction("cylinder", b.cylinder)
	env.AddFunction("vec3", b.vec3)
	env.AddFunction("defpart", b.defpart)
	env.AddFunction("part", b.part)
	env.AddFunction("drill", b.drill)
	env.AddFunction("place", b.place)
	env.AddFunction("assembly", b.assembly)
}

// (box :x 40 :y 20 :z 5) or (box 40 20 5)
func (b *builder) box(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	var dims [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		v, ok, err := pa.number(axis, i)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("box: missing %s dimension", axis)
		}
		dims[i] = v
	}
	return b.add("box", graph.NodePrimitive, graph.BoxData{
		Dimensions: graph.Vec3{X: dims[0], Y: dims[1], Z: dims[2]},
	}), nil
}

// (cylinder :height 10 :radius 4) or (cylinder :height 10 :diameter 8)
func (b *builder) cylinder(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	h, ok, err := pa.number("height", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	if !ok {
		return zygo.SexpNull, fmt.Errorf("cylinder: missing height")
	}
	r, ok, err := pa.number("radius", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
	}
	if !ok {
		d, hasDia, err := pa.number("diameter", -1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if !hasDia {
			return zygo.SexpNull, fmt.Errorf("cylinder: missing radius or diameter")
		}
		r = d / 2
	}
	return b.add("cylinder", graph.NodePrimitive, graph.CylinderData{Height: h, Radius: r}), nil
}

// (vec3 1 2 3)
func (b *builder) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(args[i])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: graph.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (defpart "name" shape)
func (b *builder) defpart(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 2 {
		return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
	}
	partName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
	}
	if partName == "" {
		return zygo.SexpNull, fmt.Errorf("defpart: name must not be empty")
	}
	ref, err := toNodeRef(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("defpart %q: %w", partName, err)
	}
	if err := b.g.SetName(ref.id, partName); err != nil {
		return zygo.SexpNull, fmt.Errorf("defpart %q: %w", partName, err)
	}
	return &sexpNodeRef{id: ref.id, kind: ref.kind, name: partName}, nil
}

// (part "name")
func (b *builder) part(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("part requires a name argument")
	}
	partName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
	}
	n := b.g.Lookup(partName)
	if n == nil {
		return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
	}
	return &sexpNodeRef{id: n.ID, kind: n.Kind, name: partName}, nil
}

// (drill shape :at (vec3 10 10 0) :diameter 5)
func (b *builder) drill(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("drill requires one shape to drill")
	}
	target, err := toNodeRef(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("drill: %w", err)
	}
	at, ok := pa.kw["at"]
	if !ok {
		return zygo.SexpNull, fmt.Errorf("drill: missing :at position")
	}
	pos, err := toVec3(at)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("drill: at: %w", err)
	}
	d, ok, err := pa.number("diameter", -1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("drill: %w", err)
	}
	if !ok {
		return zygo.SexpNull, fmt.Errorf("drill: missing :diameter")
	}
	return b.add("drill", graph.NodeDrill, graph.DrillData{Position: pos, Diameter: d}, target.id), nil
}

// (place shape :at (vec3 0 0 19))
func (b *builder) place(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("place requires one shape to place")
	}
	child, err := toNodeRef(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("place: %w", err)
	}
	td := graph.TransformData{}
	if v, ok := pa.kw["at"]; ok {
		vec, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
		}
		td.Translation = &vec
	}
	return b.add("place", graph.NodeTransform, td, child.id), nil
}

// (assembly "name" (place ...) (part "x") ... :description "text")
func (b *builder) assembly(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 1 {
		return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
	}
	asmName, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
	}
	if b.g.Lookup(asmName) != nil {
		return zygo.SexpNull, fmt.Errorf("assembly: name %q is already in use", asmName)
	}

	gd := graph.GroupData{}
	if v, ok := pa.kw["description"]; ok {
		if gd.Description, err = toString(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: description: %w", err)
		}
	}

	var children []graph.NodeID
	for i, arg := range pa.positional[1:] {
		ref, err := toNodeRef(arg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly %q: child %d: %w", asmName, i+1, err)
		}
		children = append(children, ref.id)
	}

	id := graph.NewNodeID("assembly/" + asmName)
	b.g.AddNode(&graph.Node{
		ID:       id,
		Kind:     graph.NodeGroup,
		Name:     asmName,
		Children: children,
		Data:     gd,
	})
	b.g.AddRoot(id)

	return &sexpNodeRef{id: id, kind: graph.NodeGroup, name: asmName}, nil
}
