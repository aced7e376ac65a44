// Package arxiv fetches paper metadata from the arXiv export API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

const userAgent = "paperatlas/1 (+https://github.com/gyaneshwarpardhi/paperatlas)"

// Client queries the export API. Consecutive queries are spaced by the
// configured pause, as arXiv asks of API users.
type Client struct {
	base       string
	http       *http.Client
	categories []string
	batch      int
	pause      time.Duration
	last       time.Time
}

// New builds a client from conf.
func New(conf config.ArxivConf) *Client {
	return &Client{
		base:       conf.BaseURL,
		http:       &http.Client{Timeout: time.Duration(conf.TimeoutMs) * time.Millisecond},
		categories: conf.Categories,
		batch:      conf.BatchSize,
		pause:      time.Duration(conf.PauseMs) * time.Millisecond,
	}
}

// ByIDs fetches metadata for ids, batch by batch. Ids arXiv does not know
// are absent from the result; the order follows the feed.
func (c *Client) ByIDs(ctx context.Context, ids []string) ([]store.Paper, error) {
	ids = dedupe(ids)
	var out []store.Paper
	for start := 0; start < len(ids); start += c.batch {
		end := min(start+c.batch, len(ids))
		q := url.Values{
			"id_list":     {strings.Join(ids[start:end], ",")},
			"max_results": {strconv.Itoa(end - start)},
		}
		papers, err := c.query(ctx, q)
		if err != nil {
			return out, err
		}
		out = append(out, papers...)
	}
	slog.Info("fetched arxiv metadata", "requested", len(ids), "found", len(out))
	return out, nil
}

// Latest fetches the n most recently submitted papers in the configured
// categories.
func (c *Client) Latest(ctx context.Context, n int) ([]store.Paper, error) {
	cats := make([]string, len(c.categories))
	for i, cat := range c.categories {
		cats[i] = "cat:" + cat
	}
	q := url.Values{
		"search_query": {strings.Join(cats, " OR ")},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
		"max_results":  {strconv.Itoa(n)},
	}
	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q url.Values) ([]store.Paper, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building arxiv request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv query: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding arxiv feed: %w", err)
	}
	papers := make([]store.Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		if p, ok := e.paper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func (c *Client) wait(ctx context.Context) error {
	defer func() { c.last = time.Now() }()
	if c.last.IsZero() || c.pause <= 0 {
		return ctx.Err()
	}
	d := c.pause - time.Since(c.last)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
		Type  string `xml:"type,attr"`
	} `xml:"link"`
}

// paper converts an entry; the API reports unknown ids as error entries.
func (e entry) paper() (store.Paper, bool) {
	id := ParseID(e.ID)
	if id == "" || strings.Contains(e.ID, "/api/errors") {
		return store.Paper{}, false
	}
	p := store.Paper{
		ArxivID:  id,
		Title:    squash(e.Title),
		Abstract: squash(e.Summary),
	}
	for _, a := range e.Authors {
		if name := squash(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
			break
		}
	}
	if len(e.Published) >= 10 {
		p.PublicationDate = e.Published[:10]
	}
	return p, true
}

var version = regexp.MustCompile(`v\d+$`)

// ParseID turns an abstract URL such as http://arxiv.org/abs/1706.03762v7
// into the versionless id 1706.03762, the form citations are stored under.
func ParseID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/abs/"); i >= 0 {
		s = s[i+len("/abs/"):]
	}
	return version.ReplaceAllString(s, "")
}

var reference = regexp.MustCompile(`(?:arXiv:)?(\d{4}\.\d{4,5})`)

// References extracts the distinct new-style arXiv ids cited in text,
// sorted.
func References(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range reference.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = ParseID(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
