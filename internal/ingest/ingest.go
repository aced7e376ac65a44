// Package ingest loads arXiv papers into the store and fills in papers that
// are so far known only as citation targets.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

// Fetcher supplies paper metadata.
type Fetcher interface {
	ByIDs(ctx context.Context, ids []string) ([]store.Paper, error)
	Latest(ctx context.Context, n int) ([]store.Paper, error)
}

// Store is the subset of *store.DB ingestion writes through.
type Store interface {
	UpsertPaper(ctx context.Context, p store.Paper) error
	Incomplete(ctx context.Context, limit int) ([]string, error)
}

// Report summarises one run.
type Report struct {
	Stored    []string // ids written, in fetch order
	Missing   []string // requested ids the fetcher did not return
	Citations int      // references recorded with the stored papers
}

// Ingester writes fetched papers to a store.
type Ingester struct {
	fetch Fetcher
	db    Store
}

// New creates an Ingester.
func New(f Fetcher, db Store) *Ingester {
	return &Ingester{fetch: f, db: db}
}

// Papers fetches ids and stores them. refs maps a paper id to the ids it
// cites; those citations are stored with the paper and unknown targets
// become stubs for a later Backfill.
func (in *Ingester) Papers(ctx context.Context, ids []string, refs map[string][]string) (Report, error) {
	papers, err := in.fetch.ByIDs(ctx, ids)
	if err != nil {
		return Report{}, fmt.Errorf("fetching papers: %w", err)
	}
	for i := range papers {
		papers[i].References = refs[papers[i].ArxivID]
	}
	rep, err := in.save(ctx, papers)
	rep.Missing = missing(ids, rep.Stored)
	return rep, err
}

// Latest stores the n newest papers the fetcher knows.
func (in *Ingester) Latest(ctx context.Context, n int) (Report, error) {
	papers, err := in.fetch.Latest(ctx, n)
	if err != nil {
		return Report{}, fmt.Errorf("fetching latest papers: %w", err)
	}
	return in.save(ctx, papers)
}

// Backfill fetches metadata for up to limit papers that are still stubs.
func (in *Ingester) Backfill(ctx context.Context, limit int) (Report, error) {
	ids, err := in.db.Incomplete(ctx, limit)
	if err != nil {
		return Report{}, err
	}
	if len(ids) == 0 {
		slog.Info("no incomplete papers to backfill")
		return Report{}, nil
	}
	rep, err := in.Papers(ctx, ids, nil)
	if err == nil {
		slog.Info("backfilled papers", "stored", len(rep.Stored), "missing", len(rep.Missing))
	}
	return rep, err
}

func (in *Ingester) save(ctx context.Context, papers []store.Paper) (Report, error) {
	var rep Report
	for _, p := range papers {
		if err := in.db.UpsertPaper(ctx, p); err != nil {
			return rep, err
		}
		rep.Stored = append(rep.Stored, p.ArxivID)
		rep.Citations += len(p.References)
		slog.Debug("stored paper", "id", p.ArxivID, "refs", len(p.References))
	}
	return rep, nil
}

func missing(requested, stored []string) []string {
	got := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		got[id] = struct{}{}
	}
	var out []string
	for _, id := range requested {
		if _, ok := got[id]; !ok {
			got[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
