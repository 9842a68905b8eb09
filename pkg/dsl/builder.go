package dsl

import "github.com/maxbot-ai/dialogtree/pkg/schema"

// Builder accumulates a bot definition.
type Builder struct {
	name     string
	intents  []schema.IntentDef
	entities []*EntityBuilder
	nodes    []*NodeBuilder
	rpc      []*RPCBuilder
}

// New creates a builder for a named bot.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Intent declares an intent with its training examples.
func (b *Builder) Intent(name string, examples ...string) *Builder {
	b.intents = append(b.intents, schema.IntentDef{Name: name, Examples: examples})
	return b
}

// Entity starts an entity declaration.
func (b *Builder) Entity(name string) *EntityBuilder {
	eb := &EntityBuilder{def: schema.EntityDef{Name: name}}
	b.entities = append(b.entities, eb)
	return eb
}

// Node appends a top-level dialog node with the given condition.
func (b *Builder) Node(condition string) *NodeBuilder {
	nb := &NodeBuilder{def: &schema.NodeDef{Condition: condition}}
	b.nodes = append(b.nodes, nb)
	return nb
}

// Target appends a condition-less top-level node reachable only by
// jumps, identified by its label.
func (b *Builder) Target(label string) *NodeBuilder {
	nb := &NodeBuilder{def: &schema.NodeDef{Label: label}}
	b.nodes = append(b.nodes, nb)
	return nb
}

// RPC starts a webhook trigger declaration.
func (b *Builder) RPC(method string) *RPCBuilder {
	rb := &RPCBuilder{def: schema.RPCDef{Method: method}}
	b.rpc = append(b.rpc, rb)
	return rb
}

// Build assembles and validates the definition.
func (b *Builder) Build() (*schema.Definition, error) {
	def := &schema.Definition{Name: b.name, Intents: b.intents}
	for _, eb := range b.entities {
		def.Entities = append(def.Entities, eb.def)
	}
	for _, nb := range b.nodes {
		def.Dialog = append(def.Dialog, nb.build())
	}
	for _, rb := range b.rpc {
		def.RPC = append(def.RPC, rb.def)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// EntityBuilder configures one entity declaration.
type EntityBuilder struct {
	def schema.EntityDef
}

// Value adds an enumerated value and the phrases that surface it.
func (e *EntityBuilder) Value(name string, phrases ...string) *EntityBuilder {
	e.def.Values = append(e.def.Values, schema.EntityValue{Name: name, Phrases: phrases})
	return e
}

// Pattern adds a named regex pattern.
func (e *EntityBuilder) Pattern(name, regexp string) *EntityBuilder {
	e.def.Patterns = append(e.def.Patterns, schema.PatternDef{Name: name, Regexp: regexp})
	return e
}

// RPCBuilder configures one webhook trigger.
type RPCBuilder struct {
	def schema.RPCDef
}

// Param declares a method parameter.
func (r *RPCBuilder) Param(name string, required bool) *RPCBuilder {
	r.def.Params = append(r.def.Params, schema.ParamDef{Name: name, Required: required})
	return r
}
