package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

func openTemp(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "atlas.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndRead(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	p := store.Paper{
		ArxivID:          "2401.00001",
		Title:            "Sparse Attention",
		Authors:          []string{"Ada", "Grace"},
		Abstract:         "We study attention.",
		PublicationDate:  "2026-10-18",
		KeyContributions: []string{"a kernel"},
		References:       []string{"1706.03762"},
	}
	if err := db.UpsertPaper(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := db.Paper(ctx, p.ArxivID)
	if err != nil {
		t.Fatal(err)
	}
	p.References = nil
	if diff := cmp.Diff(&p, got); diff != "" {
		t.Errorf("Paper (-want +got):\n%s", diff)
	}

	stub, err := db.Paper(ctx, "1706.03762")
	if err != nil {
		t.Fatalf("cited paper was not stubbed: %v", err)
	}
	if stub.Complete() {
		t.Error("stub reported complete")
	}

	if _, err := db.Paper(ctx, "missing"); !errors.Is(err, store.ErrPaperNotFound) {
		t.Errorf("err = %v, want ErrPaperNotFound", err)
	}
}

func TestUpsertCompletesStub(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	if err := db.AddCitations(ctx, "a", []string{"b", "b", "a"}); err != nil {
		t.Fatal(err)
	}
	papers, citations, err := db.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if papers != 2 || citations != 1 {
		t.Fatalf("papers=%d citations=%d, want 2/1", papers, citations)
	}
	ids, err := db.Incomplete(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("Incomplete (-want +got):\n%s", diff)
	}

	if err := db.UpsertPaper(ctx, store.Paper{ArxivID: "b", Title: "B", Abstract: "x"}); err != nil {
		t.Fatal(err)
	}
	ids, _ = db.Incomplete(ctx, 10)
	if diff := cmp.Diff([]string{"a"}, ids); diff != "" {
		t.Errorf("Incomplete after backfill (-want +got):\n%s", diff)
	}
}

func TestDailyQueries(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	seed := `
papers:
  - arxiv_id: "p1"
    title: "Today One"
    publication_date: "2026-10-18"
    references: ["c1", "c2"]
  - arxiv_id: "p2"
    title: "Yesterday"
    publication_date: "2026-10-17"
    references: ["c2"]
  - arxiv_id: "c1"
    title: "Cited One"
    publication_date: "2020-01-01"
`
	papers, err := store.ReadSeed(strings.NewReader(seed))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Seed(ctx, papers); err != nil {
		t.Fatal(err)
	}

	today, err := db.PublishedOn(ctx, "2026-10-18")
	if err != nil || len(today) != 1 || today[0].ArxivID != "p1" {
		t.Fatalf("PublishedOn = %v, %v", today, err)
	}

	latest, err := db.Latest(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, p := range latest {
		ids = append(ids, p.ArxivID)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, ids); diff != "" {
		t.Errorf("Latest (-want +got):\n%s", diff)
	}

	cited, err := db.CitedBy(ctx, []string{"p1", "p2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cited) != 2 {
		t.Errorf("CitedBy returned %d papers, want 2 distinct", len(cited))
	}

	edges, err := db.CitationsFrom(ctx, []string{"p1", "p2"})
	if err != nil {
		t.Fatal(err)
	}
	want := []store.Citation{
		{Citing: "p1", Cited: "c1"},
		{Citing: "p1", Cited: "c2"},
		{Citing: "p2", Cited: "c2"},
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("CitationsFrom (-want +got):\n%s", diff)
	}
}

func TestNeighboursCarryDirection(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)
	db.AddCitations(ctx, "a", []string{"b"})
	db.AddCitations(ctx, "c", []string{"a"})

	ns, err := db.Neighbours(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 2 {
		t.Fatalf("got %d neighbours", len(ns))
	}
	if ns[0].Paper.ArxivID != "b" || !ns[0].Outgoing {
		t.Errorf("first neighbour = %+v, want outgoing b", ns[0])
	}
	if ns[1].Paper.ArxivID != "c" || ns[1].Outgoing {
		t.Errorf("second neighbour = %+v, want incoming c", ns[1])
	}
}

func TestReadSeedRejectsMissingID(t *testing.T) {
	_, err := store.ReadSeed(strings.NewReader("papers:\n  - title: nameless\n"))
	if err == nil {
		t.Fatal("expected error for a paper without arxiv_id")
	}
}
