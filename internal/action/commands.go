package action

import (
	"context"
	"fmt"
)

func idParam(cmd string, params map[string]any) (string, error) {
	id, _ := params["id"].(string)
	if id == "" {
		return "", fmt.Errorf("%s: param 'id' is required", cmd)
	}
	return id, nil
}

func ok(cmd string) *Result { return &Result{Command: cmd, Success: true} }

// expand fetches the neighbourhood of a node and merges it.
type expand struct{}

func (expand) Type() string { return "expand" }

func (expand) Validate(params map[string]any) error {
	_, err := idParam("expand", params)
	return err
}

func (expand) Execute(_ context.Context, t Target, params map[string]any) (*Result, error) {
	id, _ := idParam("expand", params)
	if err := t.Expand(id); err != nil {
		return nil, err
	}
	return ok("expand"), nil
}

// center pins a node at the origin for a while.
type center struct{}

func (center) Type() string { return "center" }

func (center) Validate(params map[string]any) error {
	_, err := idParam("center", params)
	return err
}

func (center) Execute(_ context.Context, t Target, params map[string]any) (*Result, error) {
	id, _ := idParam("center", params)
	if err := t.Center(id); err != nil {
		return nil, err
	}
	return ok("center"), nil
}

// selectNode highlights a node and loads its detail.
type selectNode struct{}

func (selectNode) Type() string { return "select" }

func (selectNode) Validate(params map[string]any) error {
	_, err := idParam("select", params)
	return err
}

func (selectNode) Execute(_ context.Context, t Target, params map[string]any) (*Result, error) {
	id, _ := idParam("select", params)
	if err := t.Select(id); err != nil {
		return nil, err
	}
	return ok("select"), nil
}

type deselect struct{}

func (deselect) Type() string                  { return "deselect" }
func (deselect) Validate(map[string]any) error { return nil }

func (deselect) Execute(_ context.Context, t Target, _ map[string]any) (*Result, error) {
	t.Deselect()
	return ok("deselect"), nil
}

// fit frames every node; params.padding is in pixels.
type fit struct{}

func (fit) Type() string { return "fit" }

func (fit) Validate(params map[string]any) error {
	if v, present := params["padding"]; present {
		p, isNum := v.(float64)
		if !isNum || p < 0 {
			return fmt.Errorf("fit: padding must be a non-negative number, got %v", v)
		}
	}
	return nil
}

func (fit) Execute(_ context.Context, t Target, params map[string]any) (*Result, error) {
	padding := 40.0
	if p, isNum := params["padding"].(float64); isNum {
		padding = p
	}
	t.Fit(padding)
	return ok("fit"), nil
}

type resetView struct{}

func (resetView) Type() string                  { return "reset_view" }
func (resetView) Validate(map[string]any) error { return nil }

func (resetView) Execute(_ context.Context, t Target, _ map[string]any) (*Result, error) {
	t.ResetView()
	return ok("reset_view"), nil
}

// reload refetches the seed graph.
type reload struct{}

func (reload) Type() string                  { return "reload" }
func (reload) Validate(map[string]any) error { return nil }

func (reload) Execute(ctx context.Context, t Target, _ map[string]any) (*Result, error) {
	if err := t.Reload(ctx); err != nil {
		return nil, err
	}
	return ok("reload"), nil
}
