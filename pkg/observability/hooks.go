package observability

import (
	"context"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

// Multiplex combines several hook sets into one. Events are delivered in
// argument order; nil callbacks are skipped.
func Multiplex(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, ev *domain.NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, ev)
				}
			}
		},
		OnSlotFilled: func(ctx context.Context, ev *domain.SlotEvent) {
			for _, h := range hooks {
				if h.OnSlotFilled != nil {
					h.OnSlotFilled(ctx, ev)
				}
			}
		},
		OnDigression: func(ctx context.Context, ev *domain.DigressionEvent) {
			for _, h := range hooks {
				if h.OnDigression != nil {
					h.OnDigression(ctx, ev)
				}
			}
		},
		OnTurnEnd: func(ctx context.Context, ev *domain.TurnEvent) {
			for _, h := range hooks {
				if h.OnTurnEnd != nil {
					h.OnTurnEnd(ctx, ev)
				}
			}
		},
	}
}
