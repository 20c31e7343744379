package contract

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("agent configuration invalid")
	ErrProcessing      = errors.New("agent processing failed")
	ErrTimeout         = errors.New("agent processing timed out")
	ErrCanceled        = errors.New("agent processing canceled")
	ErrNotImplemented  = errors.New("agent processing not implemented")
	ErrNotInitialized  = errors.New("agent is not initialized")
	ErrAgentNotFound   = errors.New("agent not found")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("agent output violates contract")
	ErrValidation      = errors.New("validation failed")
	ErrUnavailable     = errors.New("capability unavailable")
)

// ErrorKind classifies a failed Process call.
type ErrorKind string

const (
	KindFailed            ErrorKind = "failed"
	KindTimeout           ErrorKind = "timeout"
	KindCanceled          ErrorKind = "canceled"
	KindPanic             ErrorKind = "panic"
	KindNotImplemented    ErrorKind = "not_implemented"
	KindContractViolation ErrorKind = "contract_violation"
)

// ProcessingError reports a per-request failure. It is never a scored result:
// callers receive either an AgentOutput or a ProcessingError, not both.
type ProcessingError struct {
	Kind      ErrorKind
	AgentName string
	RequestID string
	Err       error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent=%s request=%s: %s", e.AgentName, e.RequestID, e.Kind)
	}
	return fmt.Sprintf("agent=%s request=%s: %s: %v", e.AgentName, e.RequestID, e.Kind, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is matches ErrProcessing for every kind, plus the sentinel of its own kind.
func (e *ProcessingError) Is(target error) bool {
	if target == ErrProcessing {
		return true
	}
	switch e.Kind {
	case KindTimeout:
		return target == ErrTimeout
	case KindCanceled:
		return target == ErrCanceled
	case KindNotImplemented:
		return target == ErrNotImplemented
	case KindContractViolation:
		return target == ErrSchemaViolation
	}
	return false
}

// KindOf classifies an arbitrary Process error.
func KindOf(err error) ErrorKind {
	var perr *ProcessingError
	switch {
	case errors.As(err, &perr):
		return perr.Kind
	case errors.Is(err, ErrNotImplemented):
		return KindNotImplemented
	case errors.Is(err, ErrSchemaViolation):
		return KindContractViolation
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	default:
		return KindFailed
	}
}
