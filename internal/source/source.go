// Package source is the Graph Data Service: the seed graph, per-node
// expansions and paper details, served from the local store or fetched from
// a remote paperatlas server.
package source

import (
	"context"
	"errors"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
)

var ErrNotFound = errors.New("not found")

// Source supplies subgraphs to explorer sessions. Every call returns freshly
// allocated nodes that the caller owns.
type Source interface {
	Initial(ctx context.Context) (*graph.Subgraph, error)
	Expand(ctx context.Context, id string) (*graph.Subgraph, error)
	Detail(ctx context.Context, id string) (*Detail, error)
}

// Detail is the full record shown for a selected paper.
type Detail struct {
	ArxivID         string   `json:"arxiv_id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Abstract        string   `json:"abstract"`
	PDFURL          string   `json:"pdf_url"`
	PublicationDate string   `json:"publication_date"`
	Domain          string   `json:"domain"`
}

// Node is the wire form of a graph node.
type Node struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Title            string   `json:"title,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Domain           string   `json:"domain,omitempty"`
	FirstAuthor      string   `json:"first_author,omitempty"`
	AuthorCount      int      `json:"author_count,omitempty"`
	Year             string   `json:"year,omitempty"`
	KeyContributions []string `json:"key_contributions,omitempty"`
	Methodology      string   `json:"methodology,omitempty"`
}

// Link is the wire form of a graph link.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Response is the body of the daily and expand endpoints.
type Response struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// FromResponse builds a subgraph of new nodes from r. Duplicates and
// dangling links are left for Merge to resolve.
func FromResponse(r *Response) *graph.Subgraph {
	if r == nil {
		return &graph.Subgraph{}
	}
	sg := &graph.Subgraph{
		Nodes: make([]*graph.Node, 0, len(r.Nodes)),
		Links: make([]graph.Link, 0, len(r.Links)),
	}
	for _, n := range r.Nodes {
		sg.Nodes = append(sg.Nodes, &graph.Node{
			ID:          n.ID,
			Variant:     graph.ParseVariant(n.Type),
			Category:    n.Domain,
			Title:       n.Title,
			FirstAuthor: n.FirstAuthor,
			AuthorCount: n.AuthorCount,
			Year:        n.Year,
			Summary:     n.Summary,
		})
	}
	for _, l := range r.Links {
		sg.Links = append(sg.Links, graph.Link{Source: l.Source, Target: l.Target, Kind: graph.Relation(l.Type)})
	}
	return sg
}

func wireNode(n *graph.Node) Node {
	return Node{
		ID:          n.ID,
		Type:        string(n.Variant),
		Title:       n.Title,
		Summary:     n.Summary,
		Domain:      n.Category,
		FirstAuthor: n.FirstAuthor,
		AuthorCount: n.AuthorCount,
		Year:        n.Year,
	}
}
