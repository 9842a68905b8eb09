package dsl

import (
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
)

// NodeBuilder configures one dialog node.
type NodeBuilder struct {
	def       *schema.NodeDef
	followups []*NodeBuilder
}

// build materializes the node including its followup subtree.
func (n *NodeBuilder) build() schema.NodeDef {
	def := *n.def
	for _, fb := range n.followups {
		def.Followup = append(def.Followup, fb.build())
	}
	return def
}

// Label names the node as a jump target.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.def.Label = label
	return n
}

// Slot appends a slot to the node's ordered filling pipeline.
func (n *NodeBuilder) Slot(name, checkFor string) *SlotBuilder {
	n.def.SlotFilling = append(n.def.SlotFilling, schema.SlotDef{Name: name, CheckFor: checkFor})
	return &SlotBuilder{node: n, idx: len(n.def.SlotFilling) - 1}
}

// Handler appends a slot handler consulted before pending slots resume.
func (n *NodeBuilder) Handler(condition string) *HandlerBuilder {
	n.def.SlotHandlers = append(n.def.SlotHandlers, schema.HandlerDef{Condition: condition})
	return &HandlerBuilder{node: n, idx: len(n.def.SlotHandlers) - 1}
}

// Followup appends a child node matched against the next turn's input
// after this node responds.
func (n *NodeBuilder) Followup(condition string) *NodeBuilder {
	fb := &NodeBuilder{def: &schema.NodeDef{Condition: condition}}
	n.followups = append(n.followups, fb)
	return fb
}

// Response sets the node's response template.
func (n *NodeBuilder) Response(template string) *NodeBuilder {
	n.def.Response = template
	return n
}

// NeverReturn marks the node so flows it digresses from are discarded
// instead of resumed.
func (n *NodeBuilder) NeverReturn() *NodeBuilder {
	if n.def.Settings == nil {
		n.def.Settings = schema.SettingsDef{}
	}
	n.def.Settings["after_digression"] = string(domain.ResumeNever)
	return n
}

// SlotBuilder configures one slot. Its methods chain; Node returns to
// the owning node.
type SlotBuilder struct {
	node *NodeBuilder
	idx  int
}

func (s *SlotBuilder) slot() *schema.SlotDef {
	return &s.node.def.SlotFilling[s.idx]
}

// Prompt sets the template asked when the slot is still empty.
func (s *SlotBuilder) Prompt(template string) *SlotBuilder {
	s.slot().Prompt = template
	return s
}

// Found sets the template run when the slot gets a value.
func (s *SlotBuilder) Found(template string) *SlotBuilder {
	s.slot().Found = template
	return s
}

// NotFound sets the template run when the prompted answer fails check_for.
func (s *SlotBuilder) NotFound(template string) *SlotBuilder {
	s.slot().NotFound = template
	return s
}

// Node returns the owning node builder.
func (s *SlotBuilder) Node() *NodeBuilder {
	return s.node
}

// HandlerBuilder configures one slot handler.
type HandlerBuilder struct {
	node *NodeBuilder
	idx  int
}

func (h *HandlerBuilder) handler() *schema.HandlerDef {
	return &h.node.def.SlotHandlers[h.idx]
}

// Response sets the handler's response template.
func (h *HandlerBuilder) Response(template string) *HandlerBuilder {
	h.handler().Response = template
	return h
}

// JumpTo makes the handler transfer control to a labeled node.
func (h *HandlerBuilder) JumpTo(label string) *HandlerBuilder {
	h.handler().JumpTo = label
	return h
}

// Evaluating switches the jump to condition mode: the target and its
// following siblings are re-dispatched instead of entered directly.
func (h *HandlerBuilder) Evaluating() *HandlerBuilder {
	h.handler().Transition = string(domain.JumpCondition)
	return h
}

// Node returns the owning node builder.
func (h *HandlerBuilder) Node() *NodeBuilder {
	return h.node
}
