// Package engine runs expansion fetches on a bounded worker pool so slow
// data-service calls never block a session loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/graph"
	"github.com/gyaneshwarpardhi/paperatlas/internal/metrics"
)

var ErrQueueFull = errors.New("expansion queue full")

// Fetcher loads the subgraph around a node.
type Fetcher interface {
	Expand(ctx context.Context, id string) (*graph.Subgraph, error)
}

// Request asks for one node's expansion. Deliver is called exactly once,
// from a worker goroutine, unless Submit fails.
type Request struct {
	ID      string
	Session string
	NodeID  string
	Epoch   uint64
	Deliver func(*Result)
}

// Result is the outcome of one expansion fetch.
type Result struct {
	RequestID string
	NodeID    string
	Epoch     uint64
	Subgraph  *graph.Subgraph
	Err       error
	Duration  time.Duration
}

type fetcherRef struct{ f Fetcher }

// Engine owns the expansion worker pool.
type Engine struct {
	source atomic.Pointer[fetcherRef]
	pool   *workerPool[*Request]
	conf   config.ExpansionConf
}

// New creates an Engine using conf and starts its workers.
func New(ctx context.Context, f Fetcher, conf config.ExpansionConf) *Engine {
	e := &Engine{conf: conf}
	e.source.Store(&fetcherRef{f: f})
	e.pool = newWorkerPool[*Request](ctx, conf.Workers, conf.QueueDepth, e.process)
	return e
}

// SwapSource atomically replaces the data service (used on hot-reload).
func (e *Engine) SwapSource(f Fetcher) {
	e.source.Store(&fetcherRef{f: f})
}

// Submit enqueues req and returns its request id. It never blocks; a full
// queue yields ErrQueueFull and Deliver is not called.
func (e *Engine) Submit(req Request) (string, error) {
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}
	r := req
	if !e.pool.Submit(&r) {
		metrics.ExpansionsDropped.Inc()
		return "", fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.ExpansionsEnqueued.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())
	return r.ID, nil
}

// ExpandSync runs one expansion through the pool and waits for it.
func (e *Engine) ExpandSync(ctx context.Context, id string) (*graph.Subgraph, error) {
	resultC := make(chan *Result, 1)
	if _, err := e.Submit(Request{NodeID: id, Deliver: func(r *Result) { resultC <- r }}); err != nil {
		return nil, err
	}
	select {
	case res := <-resultC:
		return res.Subgraph, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) process(ctx context.Context, req *Request) {
	start := time.Now()
	res := &Result{RequestID: req.ID, NodeID: req.NodeID, Epoch: req.Epoch}
	defer func() {
		if r := recover(); r != nil {
			res.Subgraph, res.Err = nil, fmt.Errorf("expansion panicked: %v", r)
		}
		res.Duration = time.Since(start)
		metrics.ExpansionDuration.Observe(float64(res.Duration.Milliseconds()))
		metrics.QueueUtilization.Set(e.QueueUtilization())
		if res.Err != nil {
			slog.Warn("expansion failed", "request", req.ID, "session", req.Session, "node", req.NodeID, "err", res.Err)
		}
		if req.Deliver != nil {
			req.Deliver(res)
		}
	}()

	timeout := time.Duration(e.conf.TimeoutMs) * time.Millisecond
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res.Subgraph, res.Err = e.source.Load().f.Expand(fctx, req.NodeID)
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
