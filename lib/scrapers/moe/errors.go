package moe

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is the explicit wrong-username-or-password
// signal from the identity provider's sign-in endpoint. It is the
// only user-facing failure of the flow.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ProtocolError means the identity provider no longer serves the
// page shape the flow expects (missing form, field or redirect).
// These are never retried: they indicate the upstream changed its
// contract, not a transient fault.
type ProtocolError struct {
	Step   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("moe login %s: %s", e.Step, e.Reason)
}

func protocolErr(step, format string, args ...any) error {
	return &ProtocolError{Step: step, Reason: fmt.Sprintf(format, args...)}
}

func stepErr(step string, err error) error {
	return fmt.Errorf("moe login %s: %w", step, err)
}
