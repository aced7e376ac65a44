package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

const (
	summaryLimit  = 300
	abstractLimit = 120
)

// Node builds the display node for p. Papers without a title become bare
// nodes carrying only id and variant.
func (c *Classifier) Node(p store.Paper, v graph.Variant) *graph.Node {
	n := &graph.Node{ID: p.ArxivID, Variant: v}
	if p.Title == "" {
		return n
	}
	n.Title = p.Title
	switch {
	case p.AISummary != "":
		n.Summary = truncate(p.AISummary, summaryLimit)
	case p.Abstract != "":
		n.Summary = truncate(p.Abstract, abstractLimit)
	}

	n.Category = p.Domain
	if n.Category == "" {
		n.Category = c.Domain(Input{Title: p.Title, Abstract: p.Abstract, Authors: p.Authors, Year: year(p.PublicationDate)})
	}

	authors := p.Authors
	if len(authors) == 1 && strings.Contains(authors[0], ",") {
		authors = strings.Split(authors[0], ",")
	}
	if len(authors) > 0 {
		n.FirstAuthor = strings.TrimSpace(authors[0])
		n.AuthorCount = len(authors)
	}
	n.Year = year(p.PublicationDate)
	return n
}

func year(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
