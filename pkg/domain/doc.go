/*
Package domain contains the core data model of the dialog engine.

It defines the turn inputs handed over by the NLU layer, entity matches,
persisted session snapshots, digression frames, and the typed directives
and state mutations surfaced by template evaluation. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - TurnInput / RPCInput: One unit of external input targeting a session.
  - Session: The persisted per-user conversational state spanning turns.
  - Directive: A control-flow signal emitted from template evaluation.
  - Mutation: A slot change requested by a template, applied by the engine.
*/
package domain
