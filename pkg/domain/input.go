package domain

// Intents is the set of intent classifications for a single turn.
// Multiple intents may be simultaneously true; the engine only consumes
// the boolean signal, never training data or confidence internals.
type Intents map[string]bool

// Has reports whether the named intent was recognized this turn.
func (i Intents) Has(name string) bool {
	return i[name]
}

// EntityKind describes the typed value carried by an entity match.
type EntityKind string

const (
	KindDate   EntityKind = "date"
	KindTime   EntityKind = "time"
	KindNumber EntityKind = "number"
	KindEnum   EntityKind = "enum"
	KindRegex  EntityKind = "regex"
)

// EntityMatch is one extraction result: the literal surface form plus the
// typed value the NLU layer derived from it.
type EntityMatch struct {
	Literal string     `json:"literal"`
	Kind    EntityKind `json:"kind"`
	Value   any        `json:"value"`
}

// Entities maps an entity name to its ordered matches for the turn.
type Entities map[string][]EntityMatch

// First returns the first match for the named entity, if any.
func (e Entities) First(name string) (EntityMatch, bool) {
	matches := e[name]
	if len(matches) == 0 {
		return EntityMatch{}, false
	}
	return matches[0], true
}

// TurnInput is one natural-language turn as resolved by the external NLU
// component. The engine never sees raw classification internals, only the
// boolean intent set and the typed entity matches.
type TurnInput struct {
	SessionKey string         `json:"session_key"`
	Text       string         `json:"text"`
	Intents    Intents        `json:"intents,omitempty"`
	Entities   Entities       `json:"entities,omitempty"`
	Profile    map[string]any `json:"profile,omitempty"`
}

// RPCInput is a webhook-style trigger targeting a session. Params are
// validated against the declared method signature before the dialog graph
// is entered.
type RPCInput struct {
	SessionKey string         `json:"session_key"`
	Method     string         `json:"method"`
	Params     map[string]any `json:"params,omitempty"`
}
