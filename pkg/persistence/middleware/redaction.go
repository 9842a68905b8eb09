package middleware

import (
	"context"
	"regexp"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

const masked = "***"

type redactionStore struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewRedaction returns a middleware that masks slot values whose names
// match any of the given patterns before they are persisted. The live
// session the engine works on keeps the real values; only the stored
// snapshot is masked.
func NewRedaction(patterns []string) Middleware {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactionStore{next: next, patterns: compiled}
	}
}

func (s *redactionStore) Save(ctx context.Context, key string, sess *domain.Session) error {
	cloned := sess.Clone()
	cloned.Slots = maskSlots(cloned.Slots, s.patterns)
	return s.next.Save(ctx, key, cloned)
}

func (s *redactionStore) Load(ctx context.Context, key string) (*domain.Session, error) {
	return s.next.Load(ctx, key)
}

func (s *redactionStore) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

func (s *redactionStore) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}

// maskSlots returns a masked copy. Session.Clone copies the slot map but
// not nested values, so nested maps are rebuilt rather than mutated.
func maskSlots(slots map[string]any, patterns []*regexp.Regexp) map[string]any {
	out := make(map[string]any, len(slots))
	for name, value := range slots {
		if matchesAny(name, patterns) {
			out[name] = masked
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			out[name] = maskSlots(nested, patterns)
			continue
		}
		out[name] = value
	}
	return out
}

func matchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
