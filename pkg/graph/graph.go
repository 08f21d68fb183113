package graph

import "fmt"

// DesignGraph is the top-level immutable data structure produced by script
// evaluation. It is never mutated once evaluation completes; each
// evaluation produces a new graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	// Order lists node IDs in the order they were added.
	Order   []NodeID `json:"order"`
	Version uint64   `json:"version"`
}

// New creates an empty DesignGraph.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	if _, ok := g.Nodes[n.ID]; !ok {
		g.Order = append(g.Order, n.ID)
	}
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *DesignGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// SetName names an existing unnamed node.
func (g *DesignGraph) SetName(id NodeID, name string) error {
	n := g.Nodes[id]
	if n == nil {
		return fmt.Errorf("graph: no node %s", id.Short())
	}
	if n.Name != "" {
		return fmt.Errorf("graph: node is already named %q", n.Name)
	}
	if _, taken := g.NameIndex[name]; taken {
		return fmt.Errorf("graph: name %q is already in use", name)
	}
	n.Name = name
	g.NameIndex[name] = id
	return nil
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup is like Lookup but panics if the name is not found.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Primitives returns all primitive nodes in insertion order.
func (g *DesignGraph) Primitives() []*Node {
	var out []*Node
	for _, id := range g.Order {
		if n := g.Nodes[id]; n != nil && n.Kind == NodePrimitive {
			out = append(out, n)
		}
	}
	return out
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Unreferenced returns, in insertion order, the nodes that are no other
// node's child.
func (g *DesignGraph) Unreferenced() []NodeID {
	referenced := make(map[NodeID]bool)
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			referenced[c] = true
		}
	}
	var out []NodeID
	for _, id := range g.Order {
		if !referenced[id] {
			out = append(out, id)
		}
	}
	return out
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}
