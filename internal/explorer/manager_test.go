package explorer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
)

func newManager(t *testing.T, mutate func(*config.Config)) (*explorer.Manager, *fakeSource) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	src := &fakeSource{initial: star("a", "b")}
	ctx, cancel := context.WithCancel(context.Background())
	m := explorer.NewManager(ctx, src, &fakeExpander{}, cfg)
	t.Cleanup(func() {
		m.Shutdown()
		cancel()
	})
	return m, src
}

func TestManagerLifecycle(t *testing.T) {
	m, _ := newManager(t, nil)
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Get(s.ID()); !ok || got != s {
		t.Fatal("created session not found")
	}
	if m.Count() != 1 {
		t.Errorf("count = %d", m.Count())
	}

	var st explorer.State
	if err := s.Do(context.Background(), func() { st = s.State() }); err != nil {
		t.Fatal(err)
	}
	if st.Nodes != 2 || st.Links != 1 || st.ID != s.ID() {
		t.Errorf("state = %+v", st)
	}

	if !m.Remove(s.ID()) {
		t.Fatal("remove failed")
	}
	if m.Remove(s.ID()) {
		t.Error("second remove succeeded")
	}
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session not closed")
	}
}

func TestManagerLimit(t *testing.T) {
	m, _ := newManager(t, func(c *config.Config) { c.Server.MaxSessions = 1 })
	if _, err := m.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(context.Background()); !errors.Is(err, explorer.ErrTooManySessions) {
		t.Fatalf("err = %v, want ErrTooManySessions", err)
	}
}

func TestManagerFailedLoadCreatesNothing(t *testing.T) {
	m, src := newManager(t, nil)
	src.fail(errors.New("down"))
	if _, err := m.Create(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Count() != 0 {
		t.Errorf("count = %d", m.Count())
	}
}

func TestManagerReapIdle(t *testing.T) {
	m, _ := newManager(t, func(c *config.Config) { c.Server.IdleTimeoutSec = 60 })
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := m.ReapIdle(time.Now()); n != 0 {
		t.Fatalf("reaped %d fresh sessions", n)
	}
	if n := m.ReapIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if _, ok := m.Get(s.ID()); ok {
		t.Error("idle session still registered")
	}
}

func TestManagerApplyConfig(t *testing.T) {
	m, _ := newManager(t, nil)
	s, err := m.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Viewport.MaxScale = 0.5
	m.ApplyConfig(cfg)

	var k float64
	if err := s.Do(context.Background(), func() { k = s.Viewport().Transform().K }); err != nil {
		t.Fatal(err)
	}
	if k > 0.5 {
		t.Errorf("k = %g after max scale 0.5", k)
	}
}
