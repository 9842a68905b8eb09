package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownMethod is returned for RPC triggers naming an undeclared method.
var ErrUnknownMethod = errors.New("unknown rpc method")

// ErrMissingSessionKey rejects turn and RPC inputs without a session key.
var ErrMissingSessionKey = errors.New("session key is required")

// RequiredParamError rejects an RPC trigger missing declared required
// params. It is surfaced to the caller before any session state is touched.
type RequiredParamError struct {
	Method string
	Params []string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("rpc method %q missing required params: %v", e.Method, e.Params)
}
