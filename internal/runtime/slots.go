package runtime

import (
	"context"
	"reflect"

	"github.com/maxbot-ai/dialogtree/internal/metrics"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/graph"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// fillResult is the terminal state of one slot-filling run.
type fillResult int

const (
	// fillCompleted: every slot is filled; control returns to the node.
	fillCompleted fillResult = iota
	// fillSuspended: a prompt was emitted and the turn ends awaiting input.
	fillSuspended
	// fillRedirected: a jump directive transferred control elsewhere.
	fillRedirected
	// fillEnded: an end directive terminated the flow.
	fillEnded
	// fillRespondParent: a respond directive short-circuits to the
	// owning node's response.
	fillRespondParent
)

// slotSignal is the outcome of running one found/not_found template.
type slotSignal int

const (
	sigNone slotSignal = iota
	sigRestart
	sigRedirect
	sigEnded
	sigRespond
)

// fillSlots advances the node's ordered slot list. Every slot's check_for
// is probed each pass, so information supplied out of declared order
// still lands in the right slots; the prompt emitted on suspension is
// always the first slot left unfilled.
func (t *turn) fillSlots(ctx context.Context, node *graph.Node) (fillResult, error) {
	awaiting := ""
	if p := t.sess.ActivePath; p != nil && p.Node == node.ID {
		awaiting = p.Slot
	}

	// Slots whose found branch already ran this turn are exempt from
	// revision probing, otherwise a found that normalizes its own value
	// would re-trigger itself until the hop bound.
	handled := make(map[string]bool)

	for {
		if err := t.bump(); err != nil {
			return 0, err
		}
		restart := false

		// Filling pass: probe every slot in order. Slots already handled
		// this turn are skipped so listen_again waits for fresh input
		// instead of re-consuming the same match.
		for i := range node.Slots {
			slot := &node.Slots[i]
			if handled[slot.Name] {
				continue
			}
			current, filled := t.sess.Slots[slot.Name]
			value := t.check(ctx, slot.CheckFor)
			if !ports.Truthy(value) {
				continue
			}

			if filled {
				if reflect.DeepEqual(current, value) {
					continue
				}
				// A previously filled slot received a different value.
				sig, err := t.reviseSlot(ctx, node, slot, current, value, handled)
				if err != nil {
					return fillRedirected, err
				}
				switch sig {
				case sigRestart:
					restart = true
				case sigRedirect:
					return fillRedirected, nil
				case sigEnded:
					return fillEnded, nil
				case sigRespond:
					return fillRespondParent, nil
				}
				if restart {
					break
				}
				continue
			}

			t.sess.Slots[slot.Name] = value
			delete(t.sess.Retries, slot.Name)
			metrics.SlotsFilled.Inc()
			if t.e.hooks.OnSlotFilled != nil {
				t.e.hooks.OnSlotFilled(ctx, &domain.SlotEvent{
					EventBase: t.eventBase(domain.EventSlotFilled),
					Node:      node.ID,
					Slot:      slot.Name,
					Value:     value,
				})
			}

			if slot.Found != "" {
				handled[slot.Name] = true
				sig, err := t.runSlotTemplate(ctx, node, slot, slot.Found, map[string]any{
					"previous_value": current,
					"current_value":  value,
				}, true)
				if err != nil {
					return fillRedirected, err
				}
				switch sig {
				case sigRestart:
					restart = true
				case sigRedirect:
					return fillRedirected, nil
				case sigEnded:
					return fillEnded, nil
				case sigRespond:
					return fillRespondParent, nil
				}
				if restart {
					break
				}
			}
		}
		if restart {
			continue
		}

		// Prompting pass: the first slot still unfilled pauses the turn.
		for i := range node.Slots {
			slot := &node.Slots[i]
			if _, filled := t.sess.Slots[slot.Name]; filled {
				continue
			}

			if slot.Name == awaiting && !handled[slot.Name] {
				// The user was asked for this slot and the answer did not
				// satisfy check_for.
				t.sess.Retries[slot.Name]++
				if slot.NotFound != "" {
					handled[slot.Name] = true
					sig, err := t.runSlotTemplate(ctx, node, slot, slot.NotFound, nil, false)
					if err != nil {
						return fillRedirected, err
					}
					switch sig {
					case sigRestart:
						restart = true
					case sigRedirect:
						return fillRedirected, nil
					case sigEnded:
						return fillEnded, nil
					case sigRespond:
						return fillRespondParent, nil
					}
					if restart {
						break
					}
					// A not_found mutation may have supplied the value.
					if _, nowFilled := t.sess.Slots[slot.Name]; nowFilled {
						restart = true
						break
					}
				}
			}

			if res, ok := t.render(ctx, slot.Prompt, nil); ok {
				t.apply(res.Mutations)
				t.say(res.Text)
			}
			t.sess.ActivePath = &domain.NodePath{Node: node.ID, Slot: slot.Name}
			return fillSuspended, nil
		}
		if restart {
			continue
		}

		return fillCompleted, nil
	}
}

// reviseSlot handles a filled slot whose probed value changed mid-flow.
// With a found branch the change is reported through it; without one the
// engine-wide revision policy decides between replacing and resetting.
func (t *turn) reviseSlot(ctx context.Context, node *graph.Node, slot *graph.Slot, previous, value any, handled map[string]bool) (slotSignal, error) {
	if slot.Found != "" {
		t.sess.Slots[slot.Name] = value
		handled[slot.Name] = true
		return t.runSlotTemplate(ctx, node, slot, slot.Found, map[string]any{
			"previous_value": previous,
			"current_value":  value,
		}, true)
	}
	if t.e.revision == RevisionReset {
		// Marking the slot handled keeps the filling pass from instantly
		// re-consuming the very match that triggered the reset.
		delete(t.sess.Slots, slot.Name)
		delete(t.sess.Retries, slot.Name)
		handled[slot.Name] = true
		return sigRestart, nil
	}
	t.sess.Slots[slot.Name] = value
	return sigNone, nil
}

// runSlotTemplate renders a found or not_found branch and interprets its
// directive, if any. incrementOnListen distinguishes found (listen_again
// counts a retry) from not_found (the retry was already counted when the
// expected answer failed).
func (t *turn) runSlotTemplate(ctx context.Context, node *graph.Node, slot *graph.Slot, template string, extra map[string]any, incrementOnListen bool) (slotSignal, error) {
	res, ok := t.render(ctx, template, extra)
	if !ok {
		return sigNone, nil
	}
	touched := t.apply(res.Mutations)
	t.say(res.Text)

	if len(res.Directives) > 0 {
		d := res.Directives[0]
		switch d.Type {
		case domain.DirectiveListenAgain:
			delete(t.sess.Slots, slot.Name)
			if incrementOnListen {
				t.sess.Retries[slot.Name]++
			}
			return sigRestart, nil

		case domain.DirectiveJump:
			target, found := t.e.graph.Resolve(d.Target)
			if !found {
				t.logger.Warn("jump target does not exist, ignoring directive", "target", d.Target)
				return sigNone, nil
			}
			t.sess.ActivePath = nil
			return sigRedirect, t.jump(ctx, target, d.Transition)

		case domain.DirectiveEnd:
			t.endFlow()
			return sigEnded, nil

		case domain.DirectiveRespond:
			return sigRespond, nil
		}
	}

	if touched {
		// Mutations may have filled or reset other slots; re-run the
		// completeness check from the top of the list.
		return sigRestart, nil
	}
	return sigNone, nil
}
