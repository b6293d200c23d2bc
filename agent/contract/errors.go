package contract

import "errors"

var (
	ErrModelInvoke           = errors.New("model invoke failed")
	ErrSchemaViolation       = errors.New("model response violates schema")
	ErrValidation            = errors.New("validation failed")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionClosed         = errors.New("session is closed")
	ErrProcedureNotFound     = errors.New("procedure not found")
)
