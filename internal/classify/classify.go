// Package classify assigns research domains to papers and builds graph
// nodes from stored paper records.
package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/paperatlas/internal/condition"
	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
)

type rule struct {
	name string
	expr condition.Expr
}

// Classifier evaluates domain rules in order; the first match wins.
type Classifier struct {
	rules []rule
	def   string
}

// New compiles the configured rules.
func New(conf config.ClassifyConf) (*Classifier, error) {
	c := &Classifier{def: conf.Default, rules: make([]rule, 0, len(conf.Domains))}
	for _, d := range conf.Domains {
		expr, err := condition.Parse(d.Expression)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", d.Name, err)
		}
		c.rules = append(c.rules, rule{name: d.Name, expr: expr})
	}
	return c, nil
}

// Input is what rules can see. Expressions address it through the fields
// text (lower-cased title and abstract), title, abstract, authors,
// author_count and year.
type Input struct {
	Title    string
	Abstract string
	Authors  []string
	Year     string
}

func (in Input) context() condition.MapContext {
	return condition.MapContext{
		"text":         strings.ToLower(in.Title + " " + in.Abstract),
		"title":        in.Title,
		"abstract":     in.Abstract,
		"authors":      in.Authors,
		"author_count": len(in.Authors),
		"year":         in.Year,
	}
}

// Domain returns the first matching rule name, or the default. A rule that
// fails to evaluate is treated as a non-match.
func (c *Classifier) Domain(in Input) string {
	ctx := in.context()
	for _, r := range c.rules {
		ok, err := condition.Evaluate(r.expr, ctx)
		if err != nil {
			slog.Debug("domain rule failed", "domain", r.name, "err", err)
			continue
		}
		if ok {
			return r.name
		}
	}
	return c.def
}

// Domains lists rule names in evaluation order followed by the default.
func (c *Classifier) Domains() []string {
	out := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		out = append(out, r.name)
	}
	return append(out, c.def)
}
