package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOrderNo signals an order_no collision on insert; callers
	// regenerate the number and retry.
	ErrDuplicateOrderNo = errors.New("duplicate order number")
)

// ValidationError reports missing or malformed input (bad date range,
// bad phone, unknown action).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// AuthorizationError reports a role or ownership mismatch.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func Forbidden(msg string) error { return &AuthorizationError{Msg: msg} }

// StateConflictError reports a transition attempted from a state that does
// not permit it. The entity is left unchanged.
type StateConflictError struct {
	Entity string
	From   string
	Action string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %q", e.Entity, e.Action, e.From)
}

// PolicyViolationError reports a business rule breach that is not a pure
// state problem (rejecting without a reason, a stay over the night cap).
type PolicyViolationError struct {
	Msg string
}

func (e *PolicyViolationError) Error() string { return e.Msg }

func Policy(msg string) error { return &PolicyViolationError{Msg: msg} }
