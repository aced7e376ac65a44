package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var arxivTitles = map[string]string{
	"2410.00002": "Sparse Mixture of Experts",
	"1706.03762": "Attention Is All You Need",
	"1512.03385": "Deep Residual Learning for Image Recognition",
}

func fakeArxiv(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">`)
		for _, id := range strings.Split(r.URL.Query().Get("id_list"), ",") {
			title, ok := arxivTitles[id]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, `<entry><id>http://arxiv.org/abs/%sv1</id><title>%s</title>
				<summary>About %s.</summary><published>2024-10-02T00:00:00Z</published>
				<author><name>Grace Hopper</name></author></entry>`, id, title, title)
		}
		b.WriteString(`</feed>`)
		fmt.Fprint(w, b.String())
	}))
	t.Cleanup(srv.Close)

	cfg := filepath.Join(t.TempDir(), "atlas.yaml")
	yaml := fmt.Sprintf("version: v1\narxiv:\n  base_url: %s\n  pause_ms: 1\n", srv.URL)
	if err := os.WriteFile(cfg, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestIngestWithReferences(t *testing.T) {
	cfg := fakeArxiv(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "atlas.db")
	text := filepath.Join(dir, "paper.txt")
	body := "We build on arXiv:1706.03762 and 1512.03385, and on 2410.00002 itself."
	if err := os.WriteFile(text, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out := run(t, "ingest", "--config", cfg, "--db", db, "--text", text, "2410.00002v3")
	for _, want := range []string{"ingested 1 papers with 2 citations", "backfilled 2 papers"} {
		if !strings.Contains(out, want) {
			t.Errorf("ingest output lacks %q:\n%s", want, out)
		}
	}

	out = run(t, "stats", "--db", db)
	if !strings.Contains(out, "3") || strings.Contains(out, "missing metadata") {
		t.Errorf("stats after ingest:\n%s", out)
	}
}

func TestBackfillCommand(t *testing.T) {
	cfg := fakeArxiv(t)
	_, db := seeded(t)
	// Seeded papers without an abstract also count as incomplete.
	run(t, "ingest", "--config", cfg, "--db", db, "--backfill", "0", "--cites", "1512.03385,9999.99999", "2410.00002")

	out := run(t, "backfill", "--config", cfg, "--db", db, "--limit", "5")
	if !strings.Contains(out, "backfilled 1 papers") || !strings.Contains(out, "2410.00001, 9999.99999") {
		t.Errorf("backfill output:\n%s", out)
	}
}

func TestIngestArgs(t *testing.T) {
	for _, args := range [][]string{
		{"ingest"},
		{"ingest", "--latest", "3", "1706.03762"},
		{"ingest", "--cites", "1512.03385", "1706.03762", "2410.00002"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(&strings.Builder{})
		if err := cmd.Execute(); err == nil {
			t.Errorf("atlas %s: expected an error", strings.Join(args, " "))
		}
	}
}
