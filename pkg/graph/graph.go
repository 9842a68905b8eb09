package graph

import (
	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

// NodeID is an index into the graph's node arena.
type NodeID = int

// NoNode marks the absence of a node reference.
const NoNode NodeID = -1

// Slot is one compiled unit of the slot-filling pipeline.
type Slot struct {
	Name     string
	CheckFor string
	Prompt   string
	Found    string
	NotFound string
}

// Handler is a compiled slot handler. JumpTo is resolved at compile time;
// a handler has either a Response, a jump, or both.
type Handler struct {
	Condition  string
	Response   string
	JumpTo     NodeID
	Transition domain.JumpTransition
}

// Settings are the per-node behavior knobs the runtime consults.
type Settings struct {
	// AfterDigression controls whether a flow suspended by digressing
	// into this node is resumed afterward. Empty means inherit the
	// engine default (which is to return).
	AfterDigression domain.ResumePolicy `mapstructure:"after_digression"`
}

// Node is one compiled dialog node. All cross-node references are arena
// indices.
type Node struct {
	ID        NodeID
	Condition string
	Label     string
	Slots     []Slot
	Handlers  []Handler
	Followups []NodeID
	Parent    NodeID
	Response  string
	Settings  Settings
}

// CatchAll reports whether the node's condition is the literal universal
// fallback. Catch-all nodes never trigger digressions.
func (n *Node) CatchAll() bool {
	return n.Condition == "true" || n.Condition == "anything_else"
}

// RPCMethod is a compiled RPC trigger declaration.
type RPCMethod struct {
	Method string
	Params []Param
}

// Param is one declared RPC param.
type Param struct {
	Name     string
	Required bool
}

// MissingRequired returns the names of declared required params absent
// from the given input params.
func (m RPCMethod) MissingRequired(params map[string]any) []string {
	var missing []string
	for _, p := range m.Params {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// Graph is the compiled, immutable dialog configuration.
type Graph struct {
	nodes  []Node
	roots  []NodeID
	labels map[string]NodeID
	rpc    map[string]RPCMethod
}

// Node returns the compiled node for an arena index. The returned pointer
// aliases the arena; callers must treat it as read-only.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return &g.nodes[id]
}

// Len returns the number of compiled nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Roots returns the top-level nodes in declaration order.
func (g *Graph) Roots() []NodeID {
	return g.roots
}

// Resolve maps a label to its node identity.
func (g *Graph) Resolve(label string) (NodeID, bool) {
	id, ok := g.labels[label]
	return id, ok
}

// RPC returns the declaration for a trigger method.
func (g *Graph) RPC(method string) (RPCMethod, bool) {
	m, ok := g.rpc[method]
	return m, ok
}

// Root walks parent links up to the top-level ancestor of a node.
func (g *Graph) Root(id NodeID) NodeID {
	for id != NoNode {
		node := g.Node(id)
		if node == nil {
			return NoNode
		}
		if node.Parent == NoNode {
			return id
		}
		id = node.Parent
	}
	return NoNode
}

// SiblingsFrom returns the ordered sibling list starting at the given
// node: for a root its following top-level nodes, for a followup its
// following entries in the parent's followup list. Used by jumps in
// condition mode, which re-dispatch over the target and its successors.
func (g *Graph) SiblingsFrom(id NodeID) []NodeID {
	node := g.Node(id)
	if node == nil {
		return nil
	}
	list := g.roots
	if node.Parent != NoNode {
		list = g.Node(node.Parent).Followups
	}
	for i, sibling := range list {
		if sibling == id {
			return list[i:]
		}
	}
	return nil
}
