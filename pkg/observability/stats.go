package observability

import (
	"context"
	"sync"

	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	Turns       int
	Committed   int
	RolledBack  int
	SlotsFilled int
	Digressions int
	NodeVisits  map[string]int
}

// Stats aggregates lifecycle events into counters. Safe for concurrent
// use; register its Hooks with the bot and read Snapshot at any time.
type Stats struct {
	mu          sync.Mutex
	turns       int
	committed   int
	slotsFilled int
	digressions int
	nodeVisits  map[string]int
}

// NewStats creates an empty collector.
func NewStats() *Stats {
	return &Stats{nodeVisits: make(map[string]int)}
}

// Hooks returns the hook set feeding this collector.
func (s *Stats) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, ev *domain.NodeEvent) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if ev.Label != "" {
				s.nodeVisits[ev.Label]++
			}
		},
		OnSlotFilled: func(_ context.Context, _ *domain.SlotEvent) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.slotsFilled++
		},
		OnDigression: func(_ context.Context, _ *domain.DigressionEvent) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.digressions++
		},
		OnTurnEnd: func(_ context.Context, ev *domain.TurnEvent) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.turns++
			if ev.Committed {
				s.committed++
			}
		},
	}
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	visits := make(map[string]int, len(s.nodeVisits))
	for k, v := range s.nodeVisits {
		visits[k] = v
	}
	return Snapshot{
		Turns:       s.turns,
		Committed:   s.committed,
		RolledBack:  s.turns - s.committed,
		SlotsFilled: s.slotsFilled,
		Digressions: s.digressions,
		NodeVisits:  visits,
	}
}
