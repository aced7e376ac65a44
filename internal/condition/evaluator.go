package condition

import (
	"fmt"
	"strings"
)

// EvalContext supplies field values during evaluation.
type EvalContext interface {
	Resolve(path []string) (any, bool)
}

// Evaluate walks the AST and returns true/false or an error.
func Evaluate(expr Expr, ctx EvalContext) (bool, error) {
	switch e := expr.(type) {
	case *BinaryExpr:
		left, err := Evaluate(e.Left, ctx)
		if err != nil {
			return false, err
		}
		switch e.Op {
		case "AND":
			if !left {
				return false, nil
			}
		case "OR":
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("unknown binary op %q", e.Op)
		}
		return Evaluate(e.Right, ctx)
	case *NotExpr:
		v, err := Evaluate(e.Expr, ctx)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *ComparisonExpr:
		left, err := resolveOperand(e.Left, ctx)
		if err != nil {
			return false, err
		}
		right, err := resolveOperand(e.Right, ctx)
		if err != nil {
			return false, err
		}
		return compare(e.Op, left, right, e.re)
	default:
		return false, fmt.Errorf("unknown expr type %T", expr)
	}
}

func resolveOperand(op Operand, ctx EvalContext) (any, error) {
	switch o := op.(type) {
	case *LiteralOperand:
		return o.Value, nil
	case *FieldOperand:
		val, ok := ctx.Resolve(o.Path)
		if !ok {
			return nil, fmt.Errorf("field %q not found", strings.Join(o.Path, "."))
		}
		return val, nil
	default:
		return nil, fmt.Errorf("unknown operand type %T", op)
	}
}

// MapContext resolves single-segment paths from a flat map.
type MapContext map[string]any

// Resolve implements EvalContext.
func (m MapContext) Resolve(path []string) (any, bool) {
	if len(path) != 1 {
		return nil, false
	}
	v, ok := m[path[0]]
	return v, ok
}
