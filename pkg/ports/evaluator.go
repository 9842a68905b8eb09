package ports

import (
	"context"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

// Scope is the transient, turn-scoped view a condition or template is
// evaluated against: current slots, entities, intents, raw message, user
// profile, RPC params, and previous_value/current_value for slots being
// updated. It is assembled per turn and never persisted.
type Scope map[string]any

// RenderResult is the outcome of rendering one template: the text to
// emit, plus any state mutations and control directives the template
// produced as side effects. The evaluator must not mutate session state
// directly; it only reports requested changes.
type RenderResult struct {
	Text       string
	Mutations  []domain.Mutation
	Directives []domain.Directive
}

// Evaluator is the narrow contract the engine relies on from the
// template/expression language. Implementations are synchronous and pure
// with respect to session state.
type Evaluator interface {
	// Evaluate resolves a boolean condition or value expression against
	// the scope. The engine applies Truthy to the result for branch
	// decisions and stores the raw value when filling a slot.
	Evaluate(ctx context.Context, expr string, scope Scope) (any, error)

	// Render produces the text, mutations, and directives for a template.
	Render(ctx context.Context, template string, scope Scope) (RenderResult, error)
}

// Truthy is the single truthiness rule shared by the engine and
// evaluator implementations: nil, false, empty strings, zero numbers,
// and empty collections are false; everything else is true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case []domain.EntityMatch:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
