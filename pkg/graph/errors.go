package graph

import "fmt"

// DuplicateLabelError is a fatal configuration error: two nodes share a
// label, so jump targets would be ambiguous.
type DuplicateLabelError struct {
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate node label %q", e.Label)
}

// UnknownTargetError is a fatal configuration error: a statically
// declared jump names a label that no node carries.
type UnknownTargetError struct {
	Label string
	From  string // location of the referencing handler
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("%s: jump target %q does not exist", e.From, e.Label)
}
