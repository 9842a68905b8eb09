package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventSlotFilled EventType = "slot_filled"
	EventDigression EventType = "digression"
	EventTurnEnd    EventType = "turn_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionKey string    `json:"session_key"`
	TurnID     string    `json:"turn_id,omitempty"`
}

// NodeEvent marks entry into a dialog node.
type NodeEvent struct {
	EventBase
	Node  int    `json:"node"`
	Label string `json:"label,omitempty"`
}

// SlotEvent marks a slot becoming filled or reset.
type SlotEvent struct {
	EventBase
	Node  int    `json:"node"`
	Slot  string `json:"slot"`
	Value any    `json:"value,omitempty"`
	Retry int    `json:"retry,omitempty"`
}

// DigressionEvent marks a suspended node path being pushed or resumed.
type DigressionEvent struct {
	EventBase
	From   NodePath     `json:"from"`
	Into   int          `json:"into"`
	Policy ResumePolicy `json:"policy"`
}

// TurnEvent marks the end of turn processing.
type TurnEvent struct {
	EventBase
	Texts     int  `json:"texts"`
	Committed bool `json:"committed"`
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks
// are skipped; hooks run synchronously inside the turn.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnSlotFilled func(context.Context, *SlotEvent)
	OnDigression func(context.Context, *DigressionEvent)
	OnTurnEnd    func(context.Context, *TurnEvent)
}
