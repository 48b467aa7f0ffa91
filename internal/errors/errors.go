package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Fields flattens the details into a field -> message map, keeping the first
// message reported for each field.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Details))
	for _, d := range e.Details {
		if _, ok := fields[d.Field]; !ok {
			fields[d.Field] = d.Message
		}
	}
	return fields
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// UnsupportedMediaError is returned for uploads whose content is not an accepted type.
type UnsupportedMediaError struct {
	Message string
}

func (e *UnsupportedMediaError) Error() string {
	return e.Message
}

func NewUnsupportedMediaError(message string) *UnsupportedMediaError {
	return &UnsupportedMediaError{Message: message}
}

func IsUnsupportedMediaError(err error) (*UnsupportedMediaError, bool) {
	var ue *UnsupportedMediaError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

type TooLargeError struct {
	Message string
	Limit   int64
}

func (e *TooLargeError) Error() string {
	return e.Message
}

func NewTooLargeError(message string, limit int64) *TooLargeError {
	return &TooLargeError{Message: message, Limit: limit}
}

func IsTooLargeError(err error) (*TooLargeError, bool) {
	var te *TooLargeError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
