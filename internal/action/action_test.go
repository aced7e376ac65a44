package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gyaneshwarpardhi/paperatlas/internal/action"
)

type recorder struct {
	calls     []string
	expandErr error
}

func (r *recorder) Expand(id string) error {
	r.calls = append(r.calls, "expand "+id)
	return r.expandErr
}
func (r *recorder) Center(id string) error { r.calls = append(r.calls, "center "+id); return nil }
func (r *recorder) Select(id string) error { r.calls = append(r.calls, "select "+id); return nil }
func (r *recorder) Deselect()              { r.calls = append(r.calls, "deselect") }
func (r *recorder) Fit(p float64) {
	if p == 40 {
		r.calls = append(r.calls, "fit default")
		return
	}
	r.calls = append(r.calls, "fit custom")
}
func (r *recorder) ResetView()                   { r.calls = append(r.calls, "reset") }
func (r *recorder) Reload(context.Context) error { r.calls = append(r.calls, "reload"); return nil }

func TestDefaultRegistryDispatch(t *testing.T) {
	reg := action.Default()
	rec := &recorder{}
	ctx := context.Background()

	steps := []struct {
		name   string
		params map[string]any
	}{
		{"expand", map[string]any{"id": "a"}},
		{"center", map[string]any{"id": "a"}},
		{"select", map[string]any{"id": "b"}},
		{"deselect", nil},
		{"fit", nil},
		{"fit", map[string]any{"padding": 12.0}},
		{"reset_view", nil},
		{"reload", nil},
	}
	for _, s := range steps {
		res, err := reg.Run(ctx, rec, s.name, s.params)
		if err != nil || !res.Success {
			t.Fatalf("%s: res=%+v err=%v", s.name, res, err)
		}
	}
	want := []string{"expand a", "center a", "select b", "deselect", "fit default", "fit custom", "reset", "reload"}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestRunFailures(t *testing.T) {
	reg := action.Default()
	rec := &recorder{expandErr: errors.New("in flight")}
	ctx := context.Background()

	cases := []struct {
		name    string
		command string
		params  map[string]any
	}{
		{"unknown command", "explode", nil},
		{"missing id", "expand", map[string]any{}},
		{"bad padding", "fit", map[string]any{"padding": "wide"}},
		{"executor error", "expand", map[string]any{"id": "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := reg.Run(ctx, rec, tc.command, tc.params)
			if err == nil {
				t.Fatal("expected an error")
			}
			if res == nil || res.Success || res.Message == "" {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg := action.Default()
	reg.Register(mustGet(t, reg, "expand"))
}

func mustGet(t *testing.T, r *action.Registry, name string) action.Executor {
	t.Helper()
	e, err := r.Get(name)
	if err != nil {
		t.Fatal(err)
	}
	return e
}
