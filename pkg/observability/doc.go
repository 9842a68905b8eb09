/*
Package observability provides consumers for the engine's lifecycle
hooks: a multiplexer that fans events out to several hook sets, and an
in-process stats collector for dashboards and tests.
*/
package observability
