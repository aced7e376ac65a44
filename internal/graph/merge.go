package graph

import "fmt"

// Report summarises one merge.
type Report struct {
	NodesAdded     int
	LinksAdded     int
	DuplicateNodes int
	DuplicateLinks int
	// Rejected holds incoming links that were refused, with the reason.
	Rejected []RejectedLink
}

// RejectedLink is an incoming link Merge refused to admit.
type RejectedLink struct {
	Link   Link
	Reason string
}

func (r Report) String() string {
	return fmt.Sprintf("nodes +%d (dup %d), links +%d (dup %d, rejected %d)",
		r.NodesAdded, r.DuplicateNodes, r.LinksAdded, r.DuplicateLinks, len(r.Rejected))
}

// Merge folds incoming into existing and returns the union.
//
// Nodes are deduplicated by id and links by (source, target); existing entries
// win and keep their order, new ones are appended in arrival order. A link is
// rejected when an endpoint is missing from the merged node set or when it
// points at its own source. existing is left untouched.
func Merge(existing *Graph, incoming *Subgraph) (*Graph, Report) {
	if existing == nil {
		existing = Empty()
	}
	var rep Report
	if incoming == nil {
		return existing, rep
	}

	out := &Graph{
		nodes: make([]*Node, len(existing.nodes), len(existing.nodes)+len(incoming.Nodes)),
		links: make([]Link, len(existing.links), len(existing.links)+len(incoming.Links)),
		index: make(map[string]*Node, len(existing.index)+len(incoming.Nodes)),
		pairs: make(map[LinkKey]struct{}, len(existing.pairs)+len(incoming.Links)),
	}
	copy(out.nodes, existing.nodes)
	copy(out.links, existing.links)
	for id, n := range existing.index {
		out.index[id] = n
	}
	for k := range existing.pairs {
		out.pairs[k] = struct{}{}
	}

	for _, n := range incoming.Nodes {
		if n == nil || n.ID == "" {
			continue
		}
		if _, dup := out.index[n.ID]; dup {
			rep.DuplicateNodes++
			continue
		}
		out.nodes = append(out.nodes, n)
		out.index[n.ID] = n
		rep.NodesAdded++
	}

	for _, l := range incoming.Links {
		switch {
		case l.Source == l.Target:
			rep.Rejected = append(rep.Rejected, RejectedLink{Link: l, Reason: "self loop"})
			continue
		case out.index[l.Source] == nil:
			rep.Rejected = append(rep.Rejected, RejectedLink{Link: l, Reason: fmt.Sprintf("unknown source %q", l.Source)})
			continue
		case out.index[l.Target] == nil:
			rep.Rejected = append(rep.Rejected, RejectedLink{Link: l, Reason: fmt.Sprintf("unknown target %q", l.Target)})
			continue
		}
		if l.Kind == "" {
			l.Kind = RelationCites
		}
		k := l.Key()
		if _, dup := out.pairs[k]; dup {
			rep.DuplicateLinks++
			continue
		}
		out.links = append(out.links, l)
		out.pairs[k] = struct{}{}
		rep.LinksAdded++
	}

	if rep.NodesAdded == 0 && rep.LinksAdded == 0 {
		return existing, rep
	}
	return out, rep
}

// Build constructs a graph from scratch; it is Merge into an empty graph.
func Build(nodes []*Node, links []Link) (*Graph, Report) {
	return Merge(Empty(), &Subgraph{Nodes: nodes, Links: links})
}

// AsSubgraph exposes g's entries as a Subgraph so it can be merged elsewhere.
func (g *Graph) AsSubgraph() *Subgraph {
	return &Subgraph{Nodes: g.Nodes(), Links: g.Links()}
}
