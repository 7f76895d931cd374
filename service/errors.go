package services

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrorKind classifies service failures without committing to an HTTP status.
// The controller layer owns the mapping to response codes.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"    // malformed input, bad enum value, empty patch
	KindMembership   ErrorKind = "membership"    // referenced user is not a project member
	KindNotFound     ErrorKind = "not_found"     // entity missing or not in the given project
	KindWorkflow     ErrorKind = "workflow"      // illegal status transition
	KindConflict     ErrorKind = "conflict"      // unique-key collision, rolled back
	KindUnresolvable ErrorKind = "unresolvable"  // inbound email could not be resolved
	KindInternal     ErrorKind = "internal"
)

// ServiceError carries a kind plus a caller-facing message across layers.
type ServiceError struct {
	Kind    ErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func newServiceError(kind ErrorKind, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from any error chain; wrapped or plain
// errors from gorm and collaborators come back as internal.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// validationErrors accumulates per-field problems so a caller gets every
// complaint in one round trip instead of one at a time.
type validationErrors struct {
	merr *multierror.Error
}

func (v *validationErrors) addf(format string, args ...interface{}) {
	v.merr = multierror.Append(v.merr, fmt.Errorf(format, args...))
}

// result collapses the accumulated problems into a single validation-kind
// ServiceError, or nil when nothing was recorded.
func (v *validationErrors) result() error {
	if v.merr == nil || v.merr.Len() == 0 {
		return nil
	}
	return newServiceError(KindValidation, "%s", v.merr.Error())
}
