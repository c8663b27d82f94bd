// Package services holds the business logic for contact submissions, admin
// replies and the conversation views assembled from them.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrContactNotFound indicates that the referenced contact id does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrEmptyReply is returned when a reply body is blank after trimming.
	ErrEmptyReply = errors.New("reply message is empty")

	// ErrReplyTooLong is returned when a reply body exceeds the configured limit.
	ErrReplyTooLong = errors.New("reply message too long")

	// ErrSendFailed is returned when the outbound mail transport rejects a
	// reply. Nothing is stored in that case.
	ErrSendFailed = errors.New("failed to send email")
)

// StorageError wraps a persistence failure from the contact or reply store.
// The wrapped error is kept for logs and errors.Is; it must not be echoed to
// end users.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports invalid user input. Field and Message describe the
// first failure; Fields lists all of them in check order.
type ValidationError struct {
	Field   string
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// add records a failure and keeps Field/Message pointing at the first one.
func (e *ValidationError) add(field, msg string) {
	if len(e.Fields) == 0 {
		e.Field, e.Message = field, msg
	}
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
