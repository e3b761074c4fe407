// Package snapshot persists and restores full simulation state.
//
// The Store interface is the storage contract; implementations (in-memory,
// SQLite, object stores) can be swapped without touching calling code.
// Callers should depend on the interface rather than concrete types so they
// can substitute alternative persistence layers in tests or production.
//
// A snapshot is a canonical JSON encoding of work.State keyed by a token of
// the form "<projectID>@<date>". Saving the same state twice yields identical
// bytes, and a save/restore round trip reproduces the state exactly.
package snapshot
