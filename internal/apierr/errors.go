// Package apierr defines the failure taxonomy shared by every component that
// builds, submits or sequences mutation batches, and the classifier that turns
// raw remote failures into actionable categories.
package apierr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the position of a failure in the orchestrator's error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	// KindLocalValidation is a malformed request rejected before any network call.
	KindLocalValidation
	// KindConnectorInit is a connector that could not be constructed within its retry budget.
	KindConnectorInit
	// KindRemoteBatch is a batch rejected as a whole; nothing was applied.
	KindRemoteBatch
	// KindPartialFailure is a batch that applied some operations and failed others.
	KindPartialFailure
	// KindStageAbort is a staged pipeline that stopped after earlier stages committed.
	KindStageAbort
)

func (k Kind) String() string {
	switch k {
	case KindLocalValidation:
		return "local_validation"
	case KindConnectorInit:
		return "connector_init"
	case KindRemoteBatch:
		return "remote_batch"
	case KindPartialFailure:
		return "partial_failure"
	case KindStageAbort:
		return "stage_abort"
	}
	return "unknown"
}

// Error is the typed failure returned by every network-calling function.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Codes holds the vendor error codes carried by the remote response.
	Codes []string
	// Failures lists per-operation causes for partial failures and for
	// whole-batch rejections that point at a specific operation.
	Failures []OperationFailure
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		if e.Message != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the identical request is safe.
// Only whole-batch rejections qualify; a partially applied batch would
// duplicate the operations that already succeeded.
func (e *Error) Retryable() bool {
	return e.Kind == KindRemoteBatch
}

// Validationf returns a local validation error for op.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindLocalValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ConnectorInit wraps the last construction failure after attempts were exhausted.
func ConnectorInit(attempts int, err error) *Error {
	return &Error{
		Kind:    KindConnectorInit,
		Op:      "connector",
		Message: fmt.Sprintf("initialization failed after %d attempts", attempts),
		Err:     err,
	}
}

// RemoteBatch returns a whole-batch rejection.
func RemoteBatch(op, message string, err error) *Error {
	return &Error{Kind: KindRemoteBatch, Op: op, Message: message, Err: err}
}

// Partial returns the error describing a partially applied batch.
func Partial(op string, failures []OperationFailure) *Error {
	return &Error{
		Kind:     KindPartialFailure,
		Op:       op,
		Message:  fmt.Sprintf("%d operations failed", len(failures)),
		Failures: failures,
	}
}

// StageAbort marks a pipeline that stopped at stage after earlier stages committed.
func StageAbort(stage string, err error) *Error {
	return &Error{
		Kind:    KindStageAbort,
		Op:      "pipeline",
		Message: fmt.Sprintf("stage %q failed after earlier stages committed; partially completed", stage),
		Err:     err,
	}
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
