package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/maxbot-ai/dialogtree/internal/metrics"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/graph"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// turn holds the mutable state of one turn's execution over a working
// copy of the session. All directive-driven re-entries happen inside a
// single turn; hops bounds them.
type turn struct {
	e      *Engine
	sess   *domain.Session
	inputs ports.Scope
	turnID string
	logger *slog.Logger

	texts []string
	hops  int
	ended bool
}

// run is the top of the per-turn state machine: resume a suspended path
// if one exists, otherwise select a top-level node by condition.
func (t *turn) run(ctx context.Context) error {
	if t.sess.ActivePath != nil {
		return t.resume(ctx)
	}
	return t.dispatch(ctx)
}

// dispatch evaluates top-level nodes in declaration order; first truthy
// condition wins. No match and no catch-all is a normal outcome answered
// with the configured fallback.
func (t *turn) dispatch(ctx context.Context) error {
	for _, id := range t.e.graph.Roots() {
		node := t.e.graph.Node(id)
		if node.Condition == "" {
			continue // label-only nodes are jump targets, not candidates
		}
		if ports.Truthy(t.check(ctx, node.Condition)) {
			return t.enterNode(ctx, node)
		}
	}
	t.say(t.e.fallback)
	return nil
}

// resume continues a session suspended mid slot-filling or mid followup.
func (t *turn) resume(ctx context.Context) error {
	path := *t.sess.ActivePath
	node := t.e.graph.Node(path.Node)
	if node == nil {
		// Stale path from an older graph build: recover with a fresh match.
		t.logger.Warn("active path references unknown node, resetting", "node", path.Node)
		t.sess.ActivePath = nil
		return t.dispatch(ctx)
	}

	// Slot handlers run before the pending slot is resumed, so exit
	// intents and similar escapes win over slot interpretation.
	for i := range node.Handlers {
		handler := &node.Handlers[i]
		if !ports.Truthy(t.check(ctx, handler.Condition)) {
			continue
		}
		return t.runHandler(ctx, node, handler)
	}

	// Digression: a top-level intent belonging to a different node takes
	// over; the suspended path is stacked according to the target's
	// resume policy. Catch-all nodes never steal a pending slot.
	activeRoot := t.e.graph.Root(path.Node)
	for _, id := range t.e.graph.Roots() {
		root := t.e.graph.Node(id)
		if id == activeRoot || root.Condition == "" || root.CatchAll() {
			continue
		}
		if ports.Truthy(t.check(ctx, root.Condition)) {
			return t.digress(ctx, path, root)
		}
	}

	if path.Slot != "" {
		return t.processNode(ctx, node)
	}

	// Awaiting followup input: first matching child continues the flow.
	for _, id := range node.Followups {
		child := t.e.graph.Node(id)
		if child.Condition == "" {
			continue
		}
		if ports.Truthy(t.check(ctx, child.Condition)) {
			t.sess.ActivePath = nil
			return t.enterNode(ctx, child)
		}
	}

	// No followup claims the input: fall back to fresh top-level matching.
	t.sess.ActivePath = nil
	return t.dispatch(ctx)
}

// runHandler executes a matched slot handler: its response, its jump, or
// both. A response-only handler bypasses slot-filling for this turn and
// leaves the slot awaiting.
func (t *turn) runHandler(ctx context.Context, node *graph.Node, handler *graph.Handler) error {
	if handler.Response != "" {
		res, ok := t.render(ctx, handler.Response, nil)
		if ok {
			t.apply(res.Mutations)
			t.say(res.Text)
			if len(res.Directives) > 0 {
				d := res.Directives[0]
				if d.Type == domain.DirectiveRespond {
					// The handler defers to the owning node's top-level
					// response; the pending slot keeps waiting.
					t.renderResponseOnly(ctx, node)
					return nil
				}
				return t.dispatchDirective(ctx, node, d)
			}
		}
	}
	if handler.JumpTo != graph.NoNode {
		t.sess.ActivePath = nil
		return t.jump(ctx, handler.JumpTo, handler.Transition)
	}
	return nil
}

// digress suspends the current path and processes the stealing node.
func (t *turn) digress(ctx context.Context, path domain.NodePath, into *graph.Node) error {
	policy := t.resumePolicyFor(into)
	t.sess.Digressions = append(t.sess.Digressions, domain.DigressionFrame{
		Path:   path,
		Policy: policy,
	})
	t.sess.ActivePath = nil
	metrics.Digressions.Inc()
	if t.e.hooks.OnDigression != nil {
		t.e.hooks.OnDigression(ctx, &domain.DigressionEvent{
			EventBase: t.eventBase(domain.EventDigression),
			From:      path,
			Into:      into.ID,
			Policy:    policy,
		})
	}
	return t.enterNode(ctx, into)
}

// resumePolicyFor resolves the digression policy of a node: its own
// setting, inherited from its ancestors, or the engine default.
func (t *turn) resumePolicyFor(node *graph.Node) domain.ResumePolicy {
	for n := node; n != nil; n = t.e.graph.Node(n.Parent) {
		if n.Settings.AfterDigression != "" {
			return n.Settings.AfterDigression
		}
		if n.Parent == graph.NoNode {
			break
		}
	}
	return t.e.resume
}

// enterNode begins processing a node body after its condition matched
// (or a jump skipped the check).
func (t *turn) enterNode(ctx context.Context, node *graph.Node) error {
	if t.e.hooks.OnNodeEnter != nil {
		t.e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: t.eventBase(domain.EventNodeEnter),
			Node:      node.ID,
			Label:     node.Label,
		})
	}
	return t.processNode(ctx, node)
}

// processNode drives a node to one of its terminal states for this turn:
// suspended on a slot or followup input, redirected by a directive, or
// completed.
func (t *turn) processNode(ctx context.Context, node *graph.Node) error {
	if len(node.Slots) > 0 {
		result, err := t.fillSlots(ctx, node)
		if err != nil {
			return err
		}
		switch result {
		case fillSuspended:
			return nil
		case fillRedirected, fillEnded:
			return nil
		case fillRespondParent:
			// Short-circuit: parent response now, no followup traversal.
			t.renderResponseOnly(ctx, node)
			return nil
		}
	}

	if node.Response != "" {
		res, ok := t.render(ctx, node.Response, nil)
		if ok {
			t.apply(res.Mutations)
			t.say(res.Text)
			if len(res.Directives) > 0 {
				return t.dispatchDirective(ctx, node, res.Directives[0])
			}
		}
	}

	for _, id := range node.Followups {
		child := t.e.graph.Node(id)
		if child.Condition == "" {
			continue
		}
		if ports.Truthy(t.check(ctx, child.Condition)) {
			return t.enterNode(ctx, child)
		}
	}

	if len(node.Followups) > 0 {
		// Wait at this node: next turn's input is matched against the
		// followup conditions first.
		t.sess.ActivePath = &domain.NodePath{Node: node.ID}
		return nil
	}

	t.sess.ActivePath = nil
	return t.afterFlow(ctx)
}

// renderResponseOnly renders a node's response for the respond-as-parent
// directive; mutations apply, further control directives are ignored.
func (t *turn) renderResponseOnly(ctx context.Context, node *graph.Node) {
	if node.Response == "" {
		return
	}
	if res, ok := t.render(ctx, node.Response, nil); ok {
		t.apply(res.Mutations)
		t.say(res.Text)
	}
}

// afterFlow runs when a flow completes with nothing left awaiting input:
// suspended digression frames are resumed or discarded by policy.
func (t *turn) afterFlow(ctx context.Context) error {
	if t.ended {
		return nil
	}
	for len(t.sess.Digressions) > 0 {
		top := len(t.sess.Digressions) - 1
		frame := t.sess.Digressions[top]
		t.sess.Digressions = t.sess.Digressions[:top]

		if frame.Policy == domain.ResumeNever {
			continue
		}

		node := t.e.graph.Node(frame.Path.Node)
		if node == nil {
			continue
		}
		path := frame.Path
		t.sess.ActivePath = &path
		// Re-orient the user by repeating the pending prompt.
		if path.Slot != "" {
			for i := range node.Slots {
				if node.Slots[i].Name == path.Slot {
					if res, ok := t.render(ctx, node.Slots[i].Prompt, nil); ok {
						t.say(res.Text)
					}
					break
				}
			}
		}
		return nil
	}
	return nil
}

// endFlow terminates the active multi-turn flow. Slot values survive
// unless a template explicitly deleted them.
func (t *turn) endFlow() {
	t.ended = true
	t.sess.ActivePath = nil
	t.sess.Digressions = nil
}

// say appends one response segment; empty renders are dropped.
func (t *turn) say(text string) {
	if text != "" {
		t.texts = append(t.texts, text)
	}
}

// bump counts one directive-driven re-entry against the hop bound.
func (t *turn) bump() error {
	t.hops++
	if t.hops > t.e.maxHops {
		return &LoopLimitError{Hops: t.e.maxHops}
	}
	return nil
}

// check evaluates a condition; failures are logged and degraded to false
// so a bad filter never takes the turn down.
func (t *turn) check(ctx context.Context, expr string) any {
	v, err := t.e.eval.Evaluate(ctx, expr, t.scope(nil))
	if err != nil {
		t.logger.Warn("condition evaluation failed", "expr", expr, "err", err)
		metrics.EvaluatorFailures.WithLabelValues("condition").Inc()
		return nil
	}
	return v
}

// render evaluates a template; failures are logged and degraded to an
// empty result. The second return reports whether rendering succeeded.
func (t *turn) render(ctx context.Context, template string, extra map[string]any) (ports.RenderResult, bool) {
	if template == "" {
		return ports.RenderResult{}, true
	}
	res, err := t.e.eval.Render(ctx, template, t.scope(extra))
	if err != nil {
		t.logger.Warn("template rendering failed", "err", err)
		metrics.EvaluatorFailures.WithLabelValues("template").Inc()
		return ports.RenderResult{}, false
	}
	return res, true
}

// scope builds the render context: turn inputs plus live views of the
// working session's slots and retry counters.
func (t *turn) scope(extra map[string]any) ports.Scope {
	scope := make(ports.Scope, len(t.inputs)+len(extra)+2)
	for k, v := range t.inputs {
		scope[k] = v
	}
	scope["slots"] = t.sess.Slots
	scope["retries"] = t.sess.Retries
	for k, v := range extra {
		scope[k] = v
	}
	return scope
}

// apply commits template-requested mutations to the working session.
func (t *turn) apply(muts []domain.Mutation) bool {
	for _, m := range muts {
		if m.Slot == "" {
			continue
		}
		switch m.Op {
		case domain.MutationSet:
			t.sess.Slots[m.Slot] = m.Value
		case domain.MutationDelete:
			delete(t.sess.Slots, m.Slot)
			delete(t.sess.Retries, m.Slot)
		}
	}
	return len(muts) > 0
}

func (t *turn) eventBase(typ domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  time.Now(),
		Type:       typ,
		SessionKey: t.sess.Key,
		TurnID:     t.turnID,
	}
}
