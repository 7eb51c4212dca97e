package core

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// AuthError is a failed credentials check. Message is generic.
type AuthError struct {
	Message string
}

func NewAuthError(msg string) error {
	return &AuthError{Message: msg}
}

func (err AuthError) Error() string { return err.Message }

// RateLimitError is returned while an identity or origin is locked out.
type RateLimitError struct {
	RetryAfter time.Duration
}

func NewRateLimitError(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}

func (err RateLimitError) Error() string {
	mins := int(math.Ceil(err.RetryAfter.Minutes()))
	if mins < 1 {
		mins = 1
	}
	unit := "minutes"
	if mins == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many login attempts. Please wait %d %s before trying again.", mins, unit)
}

// AuthorizationError is an authenticated Actor trying something its role does not allow.
type AuthorizationError struct {
	Actor  Actor
	Reason string
}

func NewAuthorizationError(actor Actor, reason string) error {
	return &AuthorizationError{Actor: actor, Reason: reason}
}

func (err AuthorizationError) Error() string {
	return "permission denied: " + err.Reason
}

type NotFoundError struct {
	Message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

func (err NotFoundError) Error() string { return err.Message }

type ConflictError struct {
	Message string
}

func NewConflictError(msg string) error {
	return &ConflictError{Message: msg}
}

func (err ConflictError) Error() string { return err.Message }

// PersistenceError wraps a storage failure. The details are for logs only.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: errors.WithStack(err)}
}

func (err PersistenceError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
