package scheduling

import "fmt"

// PolicyError reports an operation blocked by business policy, e.g. booking
// for a client without an active contract. Maps to HTTP 403.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

// ConflictError reports an overlapping blocking appointment. Maps to HTTP 409.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// NotFoundError reports a missing entity scoped to the caller. Maps to HTTP 404.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found", e.Entity) }

// ValidationError reports a malformed request, raised before any lookup.
// Maps to HTTP 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ErrNoActiveContract is the policy failure shared by Book, Reschedule and
// Complete.
func ErrNoActiveContract() *PolicyError {
	return &PolicyError{Reason: "client has no active contract for this service"}
}
