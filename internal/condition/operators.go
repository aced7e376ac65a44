package condition

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Operator represents a comparison operator.
type Operator string

const (
	OpEq         Operator = "=="
	OpNeq        Operator = "!="
	OpGt         Operator = ">"
	OpGte        Operator = ">="
	OpLt         Operator = "<"
	OpLte        Operator = "<="
	OpContains   Operator = "contains"
	OpMentions   Operator = "mentions"
	OpStartsWith Operator = "startswith"
	OpMatches    Operator = "matches"
)

// wordOps are the operators spelled as keywords rather than symbols.
var wordOps = []Operator{OpContains, OpMentions, OpStartsWith, OpMatches}

// textOp tests one string against the literal on the right. Text operators
// ignore case; a list operand matches when any element does.
type textOp func(hay, needle string) bool

var textOps = map[Operator]textOp{
	OpContains: func(hay, needle string) bool {
		return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
	},
	OpStartsWith: func(hay, needle string) bool {
		return len(hay) >= len(needle) && strings.EqualFold(hay[:len(needle)], needle)
	},
	OpMentions: mentions,
}

func compare(op Operator, left, right any, re *regexp.Regexp) (bool, error) {
	if fn, ok := textOps[op]; ok {
		return applyText(op, fn, left, fmt.Sprint(right))
	}
	switch op {
	case OpEq:
		return equal(left, right), nil
	case OpNeq:
		return !equal(left, right), nil
	case OpGt, OpGte, OpLt, OpLte:
		return order(op, left, right)
	case OpMatches:
		return regexOp(left, right, re)
	}
	return false, fmt.Errorf("unknown operator: %s", op)
}

func applyText(op Operator, fn textOp, left any, needle string) (bool, error) {
	switch l := left.(type) {
	case string:
		return fn(l, needle), nil
	case []string:
		for _, s := range l {
			if fn(s, needle) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("%s: left operand must be text or a list of text, got %T", op, left)
}

// mentions reports whether needle occurs in hay as a whole word or phrase, so
// "gan" mentions nothing in "organ" but does in "a GAN-based model".
func mentions(hay, needle string) bool {
	if needle == "" {
		return false
	}
	h, n := strings.ToLower(hay), strings.ToLower(needle)
	for from := 0; ; {
		i := strings.Index(h[from:], n)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(n)
		if boundary(h, start-1) && boundary(h, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return r < 0x80 && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// equal compares numbers by value and everything else by its printed form.
func equal(left, right any) bool {
	if lf, ok := number(left); ok {
		rf, ok := number(right)
		return ok && math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}

func order(op Operator, left, right any) (bool, error) {
	lf, lok := number(left)
	rf, rok := number(right)
	if !lok || !rok {
		return false, fmt.Errorf("operator %s needs numbers, got %T and %T", op, left, right)
	}
	switch op {
	case OpGt:
		return lf > rf, nil
	case OpGte:
		return lf >= rf, nil
	case OpLt:
		return lf < rf, nil
	}
	return lf <= rf, nil
}

func regexOp(left, right any, re *regexp.Regexp) (bool, error) {
	s, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("matches: left operand must be text, got %T", left)
	}
	if re == nil {
		pattern, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("matches: pattern must be text, got %T", right)
		}
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return false, fmt.Errorf("matches: invalid regex %q: %w", pattern, err)
		}
	}
	return re.MatchString(s), nil
}
