/*
Package graph compiles a declarative bot definition into the immutable
rule graph the runtime walks: a flat arena of nodes addressed by integer
identity, a label index for jumps, and the RPC trigger table.

Followup and jump edges are references into the arena, never embedded
owning pointers, so backward edges and cycles are representable and
traversal stays iterative. A compiled Graph is read-only and safely
shared across all sessions.
*/
package graph
