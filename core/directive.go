package core

import "time"

// DirectiveKind enumerates the operator commands understood by the interrupt
// controller.
type DirectiveKind string

const (
	// DirectivePause suspends execution at the next round boundary.
	DirectivePause DirectiveKind = "pause"
	// DirectiveResume continues a paused run unchanged.
	DirectiveResume DirectiveKind = "resume"
	// DirectiveRedirect resumes with a steering message injected as a
	// high-priority broadcast before the next round.
	DirectiveRedirect DirectiveKind = "redirect"
	// DirectiveTerminate stops the active task, leaving it blocked so it can
	// be resumed manually later.
	DirectiveTerminate DirectiveKind = "terminate"
	// DirectiveStatus requests a status report without changing execution.
	DirectiveStatus DirectiveKind = "status"
)

// Directive is a transient operator command. It is consumed by the interrupt
// controller within the round it was raised and never persisted.
type Directive struct {
	Kind    DirectiveKind `json:"kind"`
	Payload string        `json:"payload,omitempty"`
	Issued  time.Time     `json:"issued"`
}

// NewDirective creates a directive stamped with the current UTC time.
func NewDirective(kind DirectiveKind, payload string) Directive {
	return Directive{Kind: kind, Payload: payload, Issued: time.Now().UTC()}
}
