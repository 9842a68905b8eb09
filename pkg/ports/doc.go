/*
Package ports defines the narrow contracts between the dialog engine core
and its collaborators: session persistence, distributed locking, and the
condition/template evaluator.

The engine core never depends on a concrete store or on the template
language's implementation, only on these interfaces.
*/
package ports
