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

var (
	controlTag = regexp.MustCompile(`<(listen_again|jump_to|response|end|set|delete)\b([^>]*?)/?>`)
	ifBlock    = regexp.MustCompile(`(?s)<if\s+cond="([^"]*)"\s*>(.*?)</if>`)
	interp     = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	attrExpr   = regexp.MustCompile(`([a-z_]+)\s*=\s*"([^"]*)"`)
)

// Render interpolates the template and extracts control tags in document
// order. Mutations (set/delete) accumulate as they appear; the first
// control-flow tag (listen_again, jump_to, response, end) aborts the
// remainder of the template, since control transfers immediately.
func (d *Default) Render(ctx context.Context, template string, scope ports.Scope) (ports.RenderResult, error) {
	var result ports.RenderResult
	var text strings.Builder
	rest, err := d.resolveConditionals(ctx, template, scope)
	if err != nil {
		return ports.RenderResult{}, err
	}

	for {
		loc := controlTag.FindStringSubmatchIndex(rest)
		if loc == nil {
			interpolated, err := d.interpolate(ctx, rest, scope)
			if err != nil {
				return ports.RenderResult{}, err
			}
			text.WriteString(interpolated)
			break
		}

		head, err := d.interpolate(ctx, rest[:loc[0]], scope)
		if err != nil {
			return ports.RenderResult{}, err
		}
		text.WriteString(head)

		name := rest[loc[2]:loc[3]]
		attrs := parseAttrs(rest[loc[4]:loc[5]])
		rest = rest[loc[1]:]

		switch name {
		case "set":
			value, err := d.interpolate(ctx, attrs["value"], scope)
			if err != nil {
				return ports.RenderResult{}, err
			}
			result.Mutations = append(result.Mutations, domain.Mutation{
				Op:    domain.MutationSet,
				Slot:  attrs["slot"],
				Value: coerce(value),
			})

		case "delete":
			result.Mutations = append(result.Mutations, domain.Mutation{
				Op:   domain.MutationDelete,
				Slot: attrs["slot"],
			})

		case "listen_again":
			result.Directives = append(result.Directives, domain.Directive{Type: domain.DirectiveListenAgain})
			result.Text = strings.TrimSpace(text.String())
			return result, nil

		case "response":
			result.Directives = append(result.Directives, domain.Directive{Type: domain.DirectiveRespond})
			result.Text = strings.TrimSpace(text.String())
			return result, nil

		case "end":
			result.Directives = append(result.Directives, domain.Directive{Type: domain.DirectiveEnd})
			result.Text = strings.TrimSpace(text.String())
			return result, nil

		case "jump_to":
			target := attrs["node"]
			if target == "" {
				return ports.RenderResult{}, fmt.Errorf("jump_to tag missing node attribute")
			}
			transition := domain.JumpBody
			if attrs["transition"] == string(domain.JumpCondition) {
				transition = domain.JumpCondition
			}
			result.Directives = append(result.Directives, domain.Directive{
				Type:       domain.DirectiveJump,
				Target:     target,
				Transition: transition,
			})
			result.Text = strings.TrimSpace(text.String())
			return result, nil
		}
	}

	result.Text = strings.TrimSpace(text.String())
	return result, nil
}

// resolveConditionals expands <if cond="..."> blocks before tag scanning:
// a truthy condition keeps the block body, a falsy one drops it. Blocks
// do not nest.
func (d *Default) resolveConditionals(ctx context.Context, template string, scope ports.Scope) (string, error) {
	var firstErr error
	out := ifBlock.ReplaceAllStringFunc(template, func(block string) string {
		m := ifBlock.FindStringSubmatch(block)
		v, err := d.Evaluate(ctx, m[1], scope)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("evaluating if cond %q: %w", m[1], err)
			}
			return ""
		}
		if ports.Truthy(v) {
			return m[2]
		}
		return ""
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// interpolate substitutes {{expr}} references. A failing expression
// aborts the whole render; the engine logs and degrades to empty output.
func (d *Default) interpolate(ctx context.Context, s string, scope ports.Scope) (string, error) {
	var firstErr error
	out := interp.ReplaceAllStringFunc(s, func(ref string) string {
		expr := interp.FindStringSubmatch(ref)[1]
		v, err := d.Evaluate(ctx, expr, scope)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("interpolating %q: %w", expr, err)
		}
		return formatValue(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrExpr.FindAllStringSubmatch(s, -1) {
		attrs[m[1]] = m[2]
	}
	return attrs
}

// formatValue renders a scope value for inclusion in response text.
func formatValue(v any) string {
	switch val := unwrap(v).(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// coerce turns a numeric-looking set value into a number so later
// comparisons against it behave arithmetically.
func coerce(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
