// Package memory provides in-memory implementations of the driven store
// ports. They back unit tests and the --ephemeral CLI mode and mirror the
// semantics of the SQLite adapter.
package memory
