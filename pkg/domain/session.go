package domain

// ResumePolicy controls what happens to a suspended node after a
// digression into another node completes.
type ResumePolicy string

const (
	// ResumeReturn restores the suspended node and re-prompts its pending
	// slot once the digression finishes. This is the default.
	ResumeReturn ResumePolicy = "return"

	// ResumeNever discards the suspended node path; the original flow is
	// abandoned for the remainder of the session.
	ResumeNever ResumePolicy = "never_return"
)

// NodePath identifies the position a session is suspended at: a node in
// the compiled graph and, when mid slot-filling, the slot awaiting input.
type NodePath struct {
	Node int    `json:"node"`
	Slot string `json:"slot,omitempty"`
}

// DigressionFrame is one suspended node path pushed when the conversation
// digresses into a different top-level node.
type DigressionFrame struct {
	Path   NodePath     `json:"path"`
	Policy ResumePolicy `json:"policy"`
}

// Session is the persisted per-(channel,user) conversational state.
// Slot values persist across turns until explicitly unset; ActivePath
// marks the node currently awaiting input, if any.
type Session struct {
	Key         string            `json:"key"`
	Slots       map[string]any    `json:"slots"`
	ActivePath  *NodePath         `json:"active_path,omitempty"`
	Digressions []DigressionFrame `json:"digression_stack,omitempty"`
	Retries     map[string]int    `json:"retry_counters,omitempty"`
}

// NewSession creates an empty session for the given key.
func NewSession(key string) *Session {
	return &Session{
		Key:     key,
		Slots:   make(map[string]any),
		Retries: make(map[string]int),
	}
}

// Clone returns a deep copy of the session. The engine mutates only the
// copy during a turn so that a late fatal error rolls back to the
// pre-turn snapshot.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := &Session{
		Key:     s.Key,
		Slots:   make(map[string]any, len(s.Slots)),
		Retries: make(map[string]int, len(s.Retries)),
	}
	for k, v := range s.Slots {
		next.Slots[k] = v
	}
	for k, v := range s.Retries {
		next.Retries[k] = v
	}
	if s.ActivePath != nil {
		path := *s.ActivePath
		next.ActivePath = &path
	}
	if len(s.Digressions) > 0 {
		next.Digressions = make([]DigressionFrame, len(s.Digressions))
		copy(next.Digressions, s.Digressions)
	}
	return next
}

// TurnOutput is the result of processing one turn: the rendered response
// segments in emission order plus the committed session snapshot.
type TurnOutput struct {
	TurnID  string   `json:"turn_id"`
	Texts   []string `json:"texts"`
	Session *Session `json:"session"`
}

// Text joins the response segments into the single message handed to the
// channel layer. Inline media directives are preserved literally.
func (o *TurnOutput) Text() string {
	switch len(o.Texts) {
	case 0:
		return ""
	case 1:
		return o.Texts[0]
	}
	out := o.Texts[0]
	for _, t := range o.Texts[1:] {
		out += "\n" + t
	}
	return out
}
