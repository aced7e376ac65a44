package arxiv_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source/arxiv"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

const entryTmpl = `<entry>
    <id>http://arxiv.org/abs/%[1]sv2</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>%[2]s</title>
    <summary>  Abstract of
      %[1]s. </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name> Alan Turing </name></author>
    <link href="http://arxiv.org/abs/%[1]sv2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/%[1]sv2" rel="related" type="application/pdf"/>
  </entry>`

const errorEntry = `<entry>
    <id>http://arxiv.org/api/errors#incorrect_id_format_for_bogus</id>
    <title>Error</title>
    <summary>incorrect id format for bogus</summary>
  </entry>`

func atom(entries ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  ` + strings.Join(entries, "\n  ") + `
</feed>`
}

// fakeArxiv answers id_list queries from known titles and records queries.
type fakeArxiv struct {
	mu      sync.Mutex
	titles  map[string]string
	queries []string
}

func (f *fakeArxiv) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := r.URL.Query()
	f.queries = append(f.queries, r.URL.RawQuery)
	var entries []string
	if list := q.Get("id_list"); list != "" {
		for _, id := range strings.Split(list, ",") {
			if title, ok := f.titles[id]; ok {
				entries = append(entries, fmt.Sprintf(entryTmpl, id, title))
			} else {
				entries = append(entries, errorEntry)
			}
		}
	} else {
		entries = append(entries, fmt.Sprintf(entryTmpl, "2410.00001", "Newest"))
	}
	w.Header().Set("Content-Type", "application/atom+xml")
	fmt.Fprint(w, atom(entries...))
}

func newClient(t *testing.T, h http.Handler, batch int) *arxiv.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return arxiv.New(config.ArxivConf{BaseURL: srv.URL, BatchSize: batch, TimeoutMs: 2000, Categories: []string{"cs.AI", "cs.CV"}})
}

func TestByIDs(t *testing.T) {
	f := &fakeArxiv{titles: map[string]string{"1706.03762": "Attention Is\n  All You Need", "1512.03385": "ResNet"}}
	c := newClient(t, f, 2)

	got, err := c.ByIDs(context.Background(), []string{"1706.03762", "bogus", "1512.03385v3", "1706.03762"})
	if err != nil {
		t.Fatal(err)
	}
	want := []store.Paper{
		{
			ArxivID:         "1706.03762",
			Title:           "Attention Is All You Need",
			Authors:         []string{"Ada Lovelace", "Alan Turing"},
			Abstract:        "Abstract of 1706.03762.",
			PDFURL:          "http://arxiv.org/pdf/1706.03762v2",
			PublicationDate: "2017-06-12",
		},
		{
			ArxivID:         "1512.03385",
			Title:           "ResNet",
			Authors:         []string{"Ada Lovelace", "Alan Turing"},
			Abstract:        "Abstract of 1512.03385.",
			PDFURL:          "http://arxiv.org/pdf/1512.03385v2",
			PublicationDate: "2017-06-12",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("papers (-want +got):\n%s", diff)
	}
	if len(f.queries) != 2 {
		t.Errorf("queries = %d, want 2 batches of 2", len(f.queries))
	}
}

func TestLatestQuery(t *testing.T) {
	f := &fakeArxiv{}
	c := newClient(t, f, 20)
	got, err := c.Latest(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ArxivID != "2410.00001" {
		t.Fatalf("latest = %+v", got)
	}
	q := f.queries[0]
	for _, part := range []string{"search_query=cat%3Acs.AI+OR+cat%3Acs.CV", "sortBy=submittedDate", "max_results=5"} {
		if !strings.Contains(q, part) {
			t.Errorf("query %q lacks %q", q, part)
		}
	}
}

func TestServerError(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}), 20)
	if _, err := c.ByIDs(context.Background(), []string{"1706.03762"}); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want status 503", err)
	}
}

func TestParseID(t *testing.T) {
	cases := map[string]string{
		"http://arxiv.org/abs/1706.03762v7":     "1706.03762",
		"1706.03762":                            "1706.03762",
		"2410.00001v1":                          "2410.00001",
		"http://arxiv.org/abs/hep-th/9901001v1": "hep-th/9901001",
	}
	for in, want := range cases {
		if got := arxiv.ParseID(in); got != want {
			t.Errorf("ParseID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReferences(t *testing.T) {
	text := `As shown in arXiv:1706.03762 and [12] 1512.03385, and again arXiv:1706.03762v5.
	Phone 1234.567 is not an id.`
	want := []string{"1512.03385", "1706.03762"}
	if diff := cmp.Diff(want, arxiv.References(text)); diff != "" {
		t.Errorf("references (-want +got):\n%s", diff)
	}
}
