// Package modal defines the push-only notification surface the session
// controller uses for user prompts.
package modal

import "pkt.systems/parley/internal/api"

// Type names a modal.
type Type string

// Modal types pushed by the session controller.
const (
	TypeSignedOut Type = "signed_out"
	TypeError     Type = "error"
	TypeMFAFlow   Type = "mfa_flow"
)

// MFAState is the verification step shown by an mfa_flow modal.
type MFAState string

// MFAStateUnknown asks the user to pick from the available methods.
const MFAStateUnknown MFAState = "unknown"

// Modal is a single prompt or notification.
type Modal struct {
	Type Type

	// Error carries the error class for TypeError.
	Error string

	// State, AvailableMethods and Callback are set for TypeMFAFlow. Callback
	// must be called exactly once, with nil when the user cancels.
	State            MFAState
	AvailableMethods []api.MFAMethod
	Callback         func(*api.MFAResponse)
}

// Surface accepts modals. Implementations must not block in Push; an
// mfa_flow answer is delivered later through the callback.
type Surface interface {
	Push(Modal)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Modal)

// Push calls f(m).
func (f SurfaceFunc) Push(m Modal) { f(m) }
