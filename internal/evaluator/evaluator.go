// Package evaluator provides the default implementation of the
// ports.Evaluator contract: dotted-path condition expressions and
// {{path}} interpolation with a small closed set of control tags.
//
// The tag set (listen_again, jump_to, response, end, set, delete) is
// parsed here, at the shim layer, and surfaced to the engine core as
// typed signals. Anything else inside a template, including inline media
// tags, passes through verbatim for the channel layer to interpret. A
// production deployment can swap in a full template language by
// implementing ports.Evaluator; the engine core only knows this contract.
package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// Default is the built-in evaluator. It is stateless and safe for
// concurrent use.
type Default struct{}

// New creates the default evaluator.
func New() *Default {
	return &Default{}
}

var _ ports.Evaluator = (*Default)(nil)

// Evaluate resolves a condition or value expression against the scope.
//
// Supported forms: literal true/false, quoted strings, numbers, dotted
// paths (slots.date, intents.exit, entities.number, rpc.method), unary
// negation, the comparison operators ==, !=, <, <=, >, >=, and the
// connectives && and || without grouping.
func (d *Default) Evaluate(ctx context.Context, expr string, scope ports.Scope) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	if parts := splitTop(expr, "||"); len(parts) > 1 {
		for _, part := range parts {
			v, err := d.Evaluate(ctx, part, scope)
			if err != nil {
				return nil, err
			}
			if ports.Truthy(v) {
				return true, nil
			}
		}
		return false, nil
	}

	if parts := splitTop(expr, "&&"); len(parts) > 1 {
		for _, part := range parts {
			v, err := d.Evaluate(ctx, part, scope)
			if err != nil {
				return nil, err
			}
			if !ports.Truthy(v) {
				return false, nil
			}
		}
		return true, nil
	}

	if strings.HasPrefix(expr, "!") {
		v, err := d.Evaluate(ctx, expr[1:], scope)
		if err != nil {
			return nil, err
		}
		return !ports.Truthy(v), nil
	}

	if lhs, op, rhs, ok := splitComparison(expr); ok {
		return d.compare(ctx, lhs, op, rhs, scope)
	}

	return d.operand(expr, scope)
}

// operand resolves a single literal or path.
func (d *Default) operand(expr string, scope ports.Scope) (any, error) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "true", "anything_else":
		return true, nil
	case "false":
		return false, nil
	}
	if len(expr) >= 2 {
		if (expr[0] == '\'' && expr[len(expr)-1] == '\'') || (expr[0] == '"' && expr[len(expr)-1] == '"') {
			return expr[1 : len(expr)-1], nil
		}
	}
	if n, err := strconv.ParseFloat(expr, 64); err == nil {
		return n, nil
	}
	if !pathPattern.MatchString(expr) {
		return nil, fmt.Errorf("malformed expression %q", expr)
	}
	return resolvePath(expr, scope), nil
}

var pathPattern = regexp.MustCompile(`^[A-Za-z_][\w.-]*$`)

func (d *Default) compare(ctx context.Context, lhs, op, rhs string, scope ports.Scope) (any, error) {
	lv, err := d.operand(lhs, scope)
	if err != nil {
		return nil, err
	}
	rv, err := d.operand(rhs, scope)
	if err != nil {
		return nil, err
	}

	ln, lok := asNumber(lv)
	rn, rok := asNumber(rv)

	switch op {
	case "==":
		if lok && rok {
			return ln == rn, nil
		}
		return fmt.Sprint(unwrap(lv)) == fmt.Sprint(unwrap(rv)), nil
	case "!=":
		if lok && rok {
			return ln != rn, nil
		}
		return fmt.Sprint(unwrap(lv)) != fmt.Sprint(unwrap(rv)), nil
	}

	if !lok || !rok {
		return nil, fmt.Errorf("non-numeric operands for %q: %v %v", op, lv, rv)
	}
	switch op {
	case ">":
		return ln > rn, nil
	case ">=":
		return ln >= rn, nil
	case "<":
		return ln < rn, nil
	case "<=":
		return ln <= rn, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

// splitTop splits on a connective, respecting quoted strings.
func splitTop(expr, sep string) []string {
	var parts []string
	depth := byte(0)
	start := 0
	for i := 0; i+len(sep) <= len(expr); i++ {
		c := expr[i]
		if c == '\'' || c == '"' {
			if depth == 0 {
				depth = c
			} else if depth == c {
				depth = 0
			}
			continue
		}
		if depth == 0 && expr[i:i+len(sep)] == sep {
			parts = append(parts, expr[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	parts = append(parts, expr[start:])
	if len(parts) == 1 {
		return parts[:1]
	}
	return parts
}

func splitComparison(expr string) (lhs, op, rhs string, ok bool) {
	depth := byte(0)
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\'' || c == '"' {
			if depth == 0 {
				depth = c
			} else if depth == c {
				depth = 0
			}
			continue
		}
		if depth != 0 {
			continue
		}
		for _, candidate := range []string{"==", "!=", ">=", "<=", ">", "<"} {
			if strings.HasPrefix(expr[i:], candidate) {
				// Skip unary negation, which is handled by the caller.
				if candidate == "!=" || expr[i] != '!' {
					return strings.TrimSpace(expr[:i]), candidate, strings.TrimSpace(expr[i+len(candidate):]), true
				}
			}
		}
	}
	return "", "", "", false
}

// resolvePath walks a dotted path through the scope. Unknown segments
// resolve to nil rather than erroring: a missing slot or entity is an
// ordinary falsy outcome, not a template failure.
func resolvePath(path string, scope ports.Scope) any {
	segments := strings.Split(path, ".")
	var current any = map[string]any(scope)
	for _, seg := range segments {
		switch v := current.(type) {
		case map[string]any:
			current = v[seg]
		case ports.Scope:
			current = v[seg]
		case map[string]bool:
			return v[seg]
		case map[string]int:
			return v[seg]
		case domain.Intents:
			return v[seg]
		case domain.Entities:
			current = entityLeaf(v[seg])
		case []domain.EntityMatch:
			current = matchField(v, seg)
		case domain.EntityMatch:
			current = singleMatchField(v, seg)
		default:
			return nil
		}
	}
	return unwrap(current)
}

// entityLeaf keeps the match list so subfields stay addressable.
func entityLeaf(matches []domain.EntityMatch) any {
	if len(matches) == 0 {
		return nil
	}
	return matches
}

func matchField(matches []domain.EntityMatch, field string) any {
	if len(matches) == 0 {
		return nil
	}
	return singleMatchField(matches[0], field)
}

func singleMatchField(m domain.EntityMatch, field string) any {
	switch field {
	case "literal":
		return m.Literal
	case "value":
		return m.Value
	case "kind":
		return string(m.Kind)
	}
	return nil
}

// unwrap collapses an entity match list to its first typed value, so a
// path like entities.date both tests presence and yields the fill value.
func unwrap(v any) any {
	if matches, ok := v.([]domain.EntityMatch); ok {
		if len(matches) == 0 {
			return nil
		}
		return matches[0].Value
	}
	return v
}

func asNumber(v any) (float64, bool) {
	switch n := unwrap(v).(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
