package graph

import "math"

// Variant selects the base render radius of a node.
type Variant string

const (
	VariantToday    Variant = "today"
	VariantCited    Variant = "cited"
	VariantExpanded Variant = "expanded"
	VariantCenter   Variant = "center"
)

// ParseVariant maps a wire value to a Variant. Unknown values fall back to cited.
func ParseVariant(s string) Variant {
	switch Variant(s) {
	case VariantToday, VariantCited, VariantExpanded, VariantCenter:
		return Variant(s)
	}
	return VariantCited
}

// Node is a paper in the session graph.
//
// Field ownership:
//   - ID, Variant, Category and display metadata are written once by Merge.
//   - X, Y, VX, VY belong to the layout simulator.
//   - the pin is set and cleared only through Pin / Unpin by the interaction layer.
type Node struct {
	ID       string
	Variant  Variant
	Category string

	Title       string
	FirstAuthor string
	AuthorCount int
	Year        string
	Summary     string

	X, Y   float64
	VX, VY float64

	fx, fy float64
	pinned bool
}

// Pin fixes the node at (x, y). The simulator stops integrating it but it
// keeps exerting forces on its neighbours.
func (n *Node) Pin(x, y float64) {
	n.fx, n.fy, n.pinned = x, y, true
}

// Unpin clears the pin; the node rejoins free layout on the next tick.
func (n *Node) Unpin() {
	n.fx, n.fy, n.pinned = 0, 0, false
}

// Pinned reports the pin position, if any.
func (n *Node) Pinned() (fx, fy float64, ok bool) {
	return n.fx, n.fy, n.pinned
}

// HasPosition is false while the node has no usable coordinates.
func (n *Node) HasPosition() bool {
	return !math.IsNaN(n.X) && !math.IsNaN(n.Y) && !math.IsInf(n.X, 0) && !math.IsInf(n.Y, 0)
}

// Relation is the kind of a link. Only citations exist today.
type Relation string

const RelationCites Relation = "CITES"

// Link is a directed relation between two node ids.
type Link struct {
	Source string
	Target string
	Kind   Relation
}

// Key returns the ordered pair that identifies the link.
func (l Link) Key() LinkKey {
	return LinkKey{Source: l.Source, Target: l.Target}
}

// LinkKey identifies a link by its ordered endpoints.
type LinkKey struct {
	Source string
	Target string
}
