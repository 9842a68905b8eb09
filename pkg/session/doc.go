/*
Package session implements session management and persistence orchestration.

It serializes concurrent access to per-session dialog state, combining an
in-process reference-counted lock table with an optional distributed
locker for multi-replica deployments, on top of a pluggable store.
*/
package session
