// Package core provides the foundational domain types shared across CrewSim.
// It defines:
//
//   - Events (typed envelopes carried by the bus between participants)
//   - Priorities (delivery ordering bands)
//   - Directives (operator commands consumed by the interrupt controller)
//   - The error taxonomy for recoverable and fatal simulation failures
//
// The package intentionally keeps implementation concerns (bus mechanics,
// scheduling, persistence, concrete behavior generators) out of scope so that
// every other package can depend on it without cycles.
package core
