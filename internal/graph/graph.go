package graph

// Graph holds the session's nodes and links in insertion order.
// A Graph is never mutated after Merge returns it; growth produces a new Graph
// that shares the existing *Node values.
type Graph struct {
	nodes []*Node
	links []Link
	index map[string]*Node
	pairs map[LinkKey]struct{}
}

// Subgraph is an unvalidated batch of nodes and links as delivered by a data source.
// Its links may reference nodes that only exist in the graph it is merged into.
type Subgraph struct {
	Nodes []*Node
	Links []Link
}

// Empty returns a graph with no nodes.
func Empty() *Graph {
	return &Graph{
		index: make(map[string]*Node),
		pairs: make(map[LinkKey]struct{}),
	}
}

// Nodes returns the nodes in insertion order. Callers must not modify the slice.
func (g *Graph) Nodes() []*Node {
	if g == nil {
		return nil
	}
	return g.nodes
}

// Links returns the links in insertion order. Callers must not modify the slice.
func (g *Graph) Links() []Link {
	if g == nil {
		return nil
	}
	return g.links
}

// Node returns a node by id (nil if absent).
func (g *Graph) Node(id string) *Node {
	if g == nil {
		return nil
	}
	return g.index[id]
}

// HasLink reports whether source→target is present.
func (g *Graph) HasLink(source, target string) bool {
	if g == nil {
		return false
	}
	_, ok := g.pairs[LinkKey{Source: source, Target: target}]
	return ok
}

// Resolve returns both endpoints of l, or ok=false if either is missing.
func (g *Graph) Resolve(l Link) (src, dst *Node, ok bool) {
	src, dst = g.Node(l.Source), g.Node(l.Target)
	return src, dst, src != nil && dst != nil
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes()) }

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.Links()) }

// Degree returns how many links touch each node id.
func (g *Graph) Degree() map[string]int {
	deg := make(map[string]int, g.NodeCount())
	for _, l := range g.Links() {
		deg[l.Source]++
		deg[l.Target]++
	}
	return deg
}
