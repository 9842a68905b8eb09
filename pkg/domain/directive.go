package domain

// DirectiveType identifies one of the four control signals a template may
// emit. Directives are structured signals returned alongside rendered
// text, never parsed out of free text by the engine core.
type DirectiveType string

const (
	// DirectiveListenAgain aborts the remainder of the current found or
	// not_found branch, unmarks the slot, and re-runs the slot step.
	DirectiveListenAgain DirectiveType = "listen_again"

	// DirectiveJump transfers control to the labeled node.
	DirectiveJump DirectiveType = "jump_to"

	// DirectiveRespond short-circuits slot-filling and followup traversal
	// and renders the owning node's top-level response directly.
	DirectiveRespond DirectiveType = "response"

	// DirectiveEnd terminates the active multi-turn flow.
	DirectiveEnd DirectiveType = "end"
)

// JumpTransition selects how a jump enters its target.
type JumpTransition string

const (
	// JumpCondition re-evaluates the target's own condition (and its
	// following siblings, in order) before entering.
	JumpCondition JumpTransition = "condition"

	// JumpBody enters the target's body unconditionally, skipping its
	// top-level condition check.
	JumpBody JumpTransition = "body"
)

// Directive is one control signal emitted as a side effect of template
// evaluation. Target and Transition are set for jumps only.
type Directive struct {
	Type       DirectiveType  `json:"type"`
	Target     string         `json:"target,omitempty"`
	Transition JumpTransition `json:"transition,omitempty"`
}

// MutationOp is the kind of slot change a template requested.
type MutationOp string

const (
	MutationSet    MutationOp = "set"
	MutationDelete MutationOp = "delete"
)

// Mutation is one explicit state-mutation statement emitted by template
// evaluation. The evaluator never touches the session itself; it reports
// requested mutations for the engine to apply.
type Mutation struct {
	Op    MutationOp `json:"op"`
	Slot  string     `json:"slot"`
	Value any        `json:"value,omitempty"`
}
