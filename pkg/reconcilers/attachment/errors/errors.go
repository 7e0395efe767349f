package errors

import "fmt"

const (
	// UnknownError is used for non specific errors that don't
	// require special treatment or are yet unknown
	UnknownError ErrorReason = "Unknown"

	// NotFoundError means that the target Deployment or Service is
	// missing from the cluster. The caller must fix the input.
	NotFoundError ErrorReason = "NotFound"

	// AlreadyPresentError means the sidecar container is already
	// attached to the workload. It signals an idempotent skip, not
	// a failure.
	AlreadyPresentError ErrorReason = "AlreadyPresent"

	// MissingCredentialsError means the credentials Secret does not
	// exist in the workload's namespace. The caller must provision
	// the Secret first.
	MissingCredentialsError ErrorReason = "MissingCredentials"

	// PortConflictError means the Service already binds the sidecar
	// port number to a different target. Requires manual
	// disambiguation, a silent overwrite would break an unrelated
	// listener.
	PortConflictError ErrorReason = "PortConflict"

	// PartialApplyError means the patch sequence failed mid-way.
	// The error carries the steps that completed. Every step is
	// idempotent so a blind retry is always safe.
	PartialApplyError ErrorReason = "PartialApply"

	// RolloutTimeoutError means the patches were applied but the
	// workload's pods did not report ready within the deadline.
	// Nothing is rolled back, cluster reconciliation will
	// eventually converge.
	RolloutTimeoutError ErrorReason = "RolloutTimeout"
)

// ErrorReason is an enum of possible errors for the attachment reconciler
type ErrorReason string

// Error custom error type for the attachment reconciler
type Error struct {
	Reason  ErrorReason
	Step    string
	Message string
	// CompletedSteps is only populated for PartialApply errors and
	// names the patch steps that succeeded before the failure
	CompletedSteps []string
}

// New returns a new Error struct
func New(t ErrorReason, step string, msg string) Error {
	return Error{Reason: t, Step: step, Message: msg}
}

// NewPartialApply returns a PartialApply Error recording the steps
// that completed before the failing one
func NewPartialApply(step string, msg string, completed []string) Error {
	return Error{Reason: PartialApplyError, Step: step, Message: msg, CompletedSteps: completed}
}

func (e Error) Error() string {
	return fmt.Sprintf("error in %s: %s", e.Step, e.Message)
}

// ReasonForError returns the ErrorReason for a given error
func ReasonForError(err error) ErrorReason {
	switch t := err.(type) {
	case Error:
		return t.Reason
	}
	return UnknownError
}

// CompletedStepsForError returns the completed steps recorded in a
// PartialApply error, nil for any other error
func CompletedStepsForError(err error) []string {
	switch t := err.(type) {
	case Error:
		return t.CompletedSteps
	}
	return nil
}

// IsNotFound returns true if the Reason field of an Error is a
// NotFoundError. Returns false otherwise.
func IsNotFound(err error) bool {
	return ReasonForError(err) == NotFoundError
}

// IsAlreadyPresent returns true if the Reason field of an Error is an
// AlreadyPresentError. Returns false otherwise.
func IsAlreadyPresent(err error) bool {
	return ReasonForError(err) == AlreadyPresentError
}

// IsMissingCredentials returns true if the Reason field of an Error is
// a MissingCredentialsError. Returns false otherwise.
func IsMissingCredentials(err error) bool {
	return ReasonForError(err) == MissingCredentialsError
}

// IsPortConflict returns true if the Reason field of an Error is a
// PortConflictError. Returns false otherwise.
func IsPortConflict(err error) bool {
	return ReasonForError(err) == PortConflictError
}

// IsPartialApply returns true if the Reason field of an Error is a
// PartialApplyError. Returns false otherwise.
func IsPartialApply(err error) bool {
	return ReasonForError(err) == PartialApplyError
}

// IsRolloutTimeout returns true if the Reason field of an Error is a
// RolloutTimeoutError. Returns false otherwise.
func IsRolloutTimeout(err error) bool {
	return ReasonForError(err) == RolloutTimeoutError
}
