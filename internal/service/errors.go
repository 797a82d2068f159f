package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("you do not have permission to perform this action")
	ErrAlreadyExists      = errors.New("already exists")
	ErrRelationNotFound   = errors.New("relation not found")
	ErrSelfSubscription   = errors.New("you cannot subscribe to yourself")
	ErrEmptyShoppingCart  = errors.New("shopping cart is empty")
	ErrConflict           = errors.New("conflicting concurrent change, please retry")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrShortLinkExhausted = errors.New("could not allocate a unique short link")
	ErrNoAvatar           = errors.New("user has no avatar")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// DetailError carries a user-facing message for one of the sentinel errors above.
type DetailError struct {
	Kind   error
	Detail string
}

func (e *DetailError) Error() string { return e.Detail }
func (e *DetailError) Unwrap() error { return e.Kind }

func detail(kind error, msg string) error {
	return &DetailError{Kind: kind, Detail: msg}
}

// ValidationError collects field-scoped messages from a single validation pass.
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Err returns e when at least one message was recorded, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// fieldError is a shorthand for a validation error on a single field.
func fieldError(field, msg string) error {
	v := NewValidationError()
	v.Add(field, msg)
	return v
}
