package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps command names to their executors.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Default returns a registry holding every built-in session command.
func Default() *Registry {
	r := NewRegistry()
	for _, e := range []Executor{expand{}, center{}, selectNode{}, deselect{}, fit{}, resetView{}, reload{}} {
		r.Register(e)
	}
	return r
}

// Register adds an executor. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[e.Type()]; exists {
		panic(fmt.Sprintf("action registry: duplicate type %q", e.Type()))
	}
	r.executors[e.Type()] = e
}

// Get returns the executor for the given command.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("no executor registered for command %q", name)
	}
	return e, nil
}

// Check resolves name and validates params without running anything.
func (r *Registry) Check(name string, params map[string]any) error {
	e, err := r.Get(name)
	if err != nil {
		return err
	}
	return e.Validate(params)
}

// Run validates and executes one command. A failed command still yields a
// Result describing the failure.
func (r *Registry) Run(ctx context.Context, t Target, name string, params map[string]any) (*Result, error) {
	e, err := r.Get(name)
	if err != nil {
		return &Result{Command: name, Message: err.Error()}, err
	}
	if err := e.Validate(params); err != nil {
		return &Result{Command: name, Message: err.Error()}, err
	}
	res, err := e.Execute(ctx, t, params)
	if err != nil {
		if res == nil {
			res = &Result{Command: name}
		}
		res.Success = false
		res.Message = err.Error()
		return res, err
	}
	return res, nil
}

// Types returns all registered command names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
