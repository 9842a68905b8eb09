package runtime

import (
	"context"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/graph"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// dispatchDirective interprets the first control directive emitted by a
// node response or a slot handler response. Directives that only make
// sense inside slot-filling are ignored with a warning.
func (t *turn) dispatchDirective(ctx context.Context, node *graph.Node, d domain.Directive) error {
	switch d.Type {
	case domain.DirectiveJump:
		target, found := t.e.graph.Resolve(d.Target)
		if !found {
			t.logger.Warn("jump target does not exist, ignoring directive", "target", d.Target)
			return nil
		}
		t.sess.ActivePath = nil
		return t.jump(ctx, target, d.Transition)

	case domain.DirectiveEnd:
		t.endFlow()
		return nil

	case domain.DirectiveListenAgain:
		t.logger.Warn("listen_again outside slot-filling, ignoring directive", "node", node.ID)
		return nil

	case domain.DirectiveRespond:
		t.logger.Warn("response directive in a node's own response, ignoring directive", "node", node.ID)
		return nil
	}
	return nil
}

// jump transfers control to a resolved target node. Body transitions
// enter the target unconditionally; condition transitions evaluate the
// target and its younger siblings in order, so a jump can land on
// whichever branch of a node group matches the current input.
func (t *turn) jump(ctx context.Context, target graph.NodeID, transition domain.JumpTransition) error {
	if err := t.bump(); err != nil {
		return err
	}

	if transition == domain.JumpCondition {
		for _, id := range t.e.graph.SiblingsFrom(target) {
			sib := t.e.graph.Node(id)
			if sib.Condition == "" {
				continue
			}
			if ports.Truthy(t.check(ctx, sib.Condition)) {
				return t.enterNode(ctx, sib)
			}
		}
		// Nothing in the group matched: answer like a failed dispatch.
		t.sess.ActivePath = nil
		t.say(t.e.fallback)
		return nil
	}

	return t.enterNode(ctx, t.e.graph.Node(target))
}
