package logs

import (
	"errors"
	"fmt"
)

// Error taxonomy for log operations. Handlers map these onto HTTP
// statuses; none of them are retried automatically.
var (
	// ErrValidation covers malformed payloads and disallowed attachments.
	ErrValidation = errors.New("logs: validation failed")
	// ErrOwnership signals an attempt to submit under another identity's email.
	ErrOwnership = errors.New("logs: cannot act on another identity's records")
	// ErrStorage covers listing and upload failures against the object store.
	ErrStorage = errors.New("logs: storage operation failed")
)

// ServiceError carries an operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "logs.service.new"
	opCreateLog  = "logs.create"
	opListOwn    = "logs.list_own"
	opAnalytics  = "logs.analytics"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
