package source

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gyaneshwarpardhi/paperatlas/internal/classify"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

// Local serves graphs straight from the paper store.
//
// Concurrent identical requests share one set of queries. The shared result
// is a Response value; each caller gets its own nodes from FromResponse.
type Local struct {
	db         *store.DB
	classifier atomic.Pointer[classify.Classifier]
	latestN    int
	now        func() time.Time
	group      singleflight.Group
}

// NewLocal creates a store-backed source.
func NewLocal(db *store.DB, c *classify.Classifier, latestN int) *Local {
	l := &Local{db: db, latestN: latestN, now: time.Now}
	l.classifier.Store(c)
	return l
}

// SetClassifier swaps the domain rules (used on config reload).
func (l *Local) SetClassifier(c *classify.Classifier) { l.classifier.Store(c) }

// SetClock overrides the clock that decides which papers are today's.
func (l *Local) SetClock(now func() time.Time) { l.now = now }

// Initial implements Source.
func (l *Local) Initial(ctx context.Context) (*graph.Subgraph, error) {
	r, err := l.Daily(ctx)
	if err != nil {
		return nil, err
	}
	return FromResponse(r), nil
}

// Expand implements Source.
func (l *Local) Expand(ctx context.Context, id string) (*graph.Subgraph, error) {
	r, err := l.Expansion(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromResponse(r), nil
}

// Daily returns today's papers and the papers they cite. When nothing is
// dated today it falls back to the latest papers.
func (l *Local) Daily(ctx context.Context) (*Response, error) {
	today := l.now().Format(time.DateOnly)
	v, err, _ := l.group.Do("daily:"+today, func() (any, error) {
		return l.daily(ctx, today)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

func (l *Local) daily(ctx context.Context, today string) (*Response, error) {
	featured, err := l.db.PublishedOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("daily papers: %w", err)
	}
	if len(featured) == 0 {
		if featured, err = l.db.Latest(ctx, l.latestN); err != nil {
			return nil, fmt.Errorf("latest papers: %w", err)
		}
	}
	resp := &Response{Nodes: []Node{}, Links: []Link{}}
	if len(featured) == 0 {
		return resp, nil
	}

	ids := make([]string, len(featured))
	for i, p := range featured {
		ids[i] = p.ArxivID
	}
	cited, err := l.db.CitedBy(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("cited papers: %w", err)
	}
	edges, err := l.db.CitationsFrom(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("citations: %w", err)
	}

	c := l.classifier.Load()
	for _, p := range featured {
		resp.Nodes = append(resp.Nodes, richNode(c, p, graph.VariantToday))
	}
	for _, p := range cited {
		resp.Nodes = append(resp.Nodes, richNode(c, p, graph.VariantCited))
	}
	for _, e := range edges {
		resp.Links = append(resp.Links, Link{Source: e.Citing, Target: e.Cited, Type: string(graph.RelationCites)})
	}
	return resp, nil
}

// Expansion returns id as a centre node plus every paper it cites or is
// cited by, with links oriented citing → cited.
func (l *Local) Expansion(ctx context.Context, id string) (*Response, error) {
	v, err, _ := l.group.Do("expand:"+id, func() (any, error) {
		return l.expansion(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

func (l *Local) expansion(ctx context.Context, id string) (*Response, error) {
	neighbours, err := l.db.Neighbours(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("neighbours of %s: %w", id, err)
	}
	resp := &Response{
		Nodes: []Node{{ID: id, Type: string(graph.VariantCenter)}},
		Links: []Link{},
	}
	c := l.classifier.Load()
	seen := map[string]bool{id: true}
	for _, nb := range neighbours {
		p := nb.Paper
		if !seen[p.ArxivID] {
			seen[p.ArxivID] = true
			resp.Nodes = append(resp.Nodes, richNode(c, p, graph.VariantExpanded))
		}
		link := Link{Source: id, Target: p.ArxivID, Type: string(graph.RelationCites)}
		if !nb.Outgoing {
			link.Source, link.Target = p.ArxivID, id
		}
		resp.Links = append(resp.Links, link)
	}
	return resp, nil
}

// Detail implements Source.
func (l *Local) Detail(ctx context.Context, id string) (*Detail, error) {
	p, err := l.db.Paper(ctx, id)
	if errors.Is(err, store.ErrPaperNotFound) {
		return nil, fmt.Errorf("paper %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	d := &Detail{
		ArxivID:         p.ArxivID,
		Title:           p.Title,
		Authors:         p.Authors,
		Abstract:        p.Abstract,
		PDFURL:          p.PDFURL,
		PublicationDate: p.PublicationDate,
		Domain:          p.Domain,
	}
	if d.Authors == nil {
		d.Authors = []string{}
	}
	if d.PDFURL == "" {
		d.PDFURL = "https://arxiv.org/pdf/" + id + ".pdf"
	}
	if d.Domain == "" {
		d.Domain = l.classifier.Load().Domain(classify.Input{Title: p.Title, Abstract: p.Abstract, Authors: p.Authors})
	}
	return d, nil
}

func richNode(c *classify.Classifier, p store.Paper, v graph.Variant) Node {
	n := wireNode(c.Node(p, v))
	n.KeyContributions = p.KeyContributions
	n.Methodology = p.Methodology
	return n
}
