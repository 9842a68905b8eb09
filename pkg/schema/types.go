package schema

// Definition is the root of a declarative bot configuration.
type Definition struct {
	Name     string      `yaml:"name" json:"name"`
	Intents  []IntentDef `yaml:"intents,omitempty" json:"intents,omitempty"`
	Entities []EntityDef `yaml:"entities,omitempty" json:"entities,omitempty"`
	Dialog   []NodeDef   `yaml:"dialog" json:"dialog"`
	RPC      []RPCDef    `yaml:"rpc,omitempty" json:"rpc,omitempty"`
}

// IntentDef declares an intent. Training examples are carried for the
// NLU layer; the engine only ever consumes the name.
type IntentDef struct {
	Name     string   `yaml:"name" json:"name"`
	Examples []string `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// EntityDef declares an entity: either enumerated values with phrases or
// free regex patterns.
type EntityDef struct {
	Name     string        `yaml:"name" json:"name"`
	Values   []EntityValue `yaml:"values,omitempty" json:"values,omitempty"`
	Patterns []PatternDef  `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// EntityValue is one enumerated value and the phrases that surface it.
type EntityValue struct {
	Name    string   `yaml:"name" json:"name"`
	Phrases []string `yaml:"phrases,omitempty" json:"phrases,omitempty"`
}

// PatternDef is a named regex pattern for an entity.
type PatternDef struct {
	Name   string `yaml:"name" json:"name"`
	Regexp string `yaml:"regexp" json:"regexp"`
}

// NodeDef is one conditioned branch of the dialog tree. Followup entries
// nest recursively; labels plus jump directives allow non-tree edges, so
// the compiled topology is a graph over node identities.
type NodeDef struct {
	Condition    string       `yaml:"condition,omitempty" json:"condition,omitempty"`
	Label        string       `yaml:"label,omitempty" json:"label,omitempty"`
	SlotFilling  []SlotDef    `yaml:"slot_filling,omitempty" json:"slot_filling,omitempty"`
	SlotHandlers []HandlerDef `yaml:"slot_handlers,omitempty" json:"slot_handlers,omitempty"`
	Followup     []NodeDef    `yaml:"followup,omitempty" json:"followup,omitempty"`
	Response     string       `yaml:"response,omitempty" json:"response,omitempty"`
	Settings     SettingsDef  `yaml:"settings,omitempty" json:"settings,omitempty"`
}

// SlotDef is one unit of required information in a node's ordered
// slot-filling pipeline.
type SlotDef struct {
	Name     string `yaml:"name" json:"name"`
	CheckFor string `yaml:"check_for" json:"check_for"`
	Prompt   string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Found    string `yaml:"found,omitempty" json:"found,omitempty"`
	NotFound string `yaml:"not_found,omitempty" json:"not_found,omitempty"`
}

// HandlerDef is a node-level digression handler consulted before a
// pending slot is resumed. Exactly one of Response or JumpTo is expected.
type HandlerDef struct {
	Condition  string `yaml:"condition" json:"condition"`
	Response   string `yaml:"response,omitempty" json:"response,omitempty"`
	JumpTo     string `yaml:"jump_to,omitempty" json:"jump_to,omitempty"`
	Transition string `yaml:"transition,omitempty" json:"transition,omitempty"`
}

// SettingsDef carries per-node behavior knobs, decoded further by the
// compiler (mapstructure) so new settings don't touch the YAML surface.
type SettingsDef map[string]any

// RPCDef declares a webhook-style trigger method and its params.
type RPCDef struct {
	Method string     `yaml:"method" json:"method"`
	Params []ParamDef `yaml:"params,omitempty" json:"params,omitempty"`
}

// ParamDef is one named RPC param with a required flag.
type ParamDef struct {
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}
