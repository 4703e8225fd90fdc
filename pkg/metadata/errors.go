package metadata

import (
	"errors"
	"fmt"
)

// StoreError represents a domain error from a BlockFS operation.
//
// These are business logic errors (file not found, table full, etc.) as well
// as the two infrastructure kinds the engine distinguishes: an unavailable
// backing store and a corrupt metadata record. Callers branch on Code; the
// underlying cause, if any, stays reachable through errors.Is/As.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Name is the file name related to the error (if applicable)
	Name string

	// Err is the underlying cause (if any)
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a StoreError.
type ErrorCode int

const (
	// ErrNotFound indicates no used entry has the requested name
	ErrNotFound ErrorCode = iota + 1

	// ErrNameExists indicates another used entry already has the name
	ErrNameExists

	// ErrNameTooLong indicates the name does not fit the on-disk name field
	ErrNameTooLong

	// ErrInvalidName indicates an empty name or one containing NUL bytes
	ErrInvalidName

	// ErrTableFull indicates all MaxFiles slots are used
	ErrTableFull

	// ErrNoSpace indicates no contiguous run of free blocks fits the request
	ErrNoSpace

	// ErrOutOfRange indicates a read past the end of a file
	ErrOutOfRange

	// ErrInvalidSize indicates a truncate that does not shrink the file
	ErrInvalidSize

	// ErrStoreUnavailable indicates the backing container cannot be
	// opened, sized, read or written
	ErrStoreUnavailable

	// ErrCorrupt indicates the metadata record is short or inconsistent
	ErrCorrupt
)

// String returns the name of the error kind.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrNameExists:
		return "NameExists"
	case ErrNameTooLong:
		return "NameTooLong"
	case ErrInvalidName:
		return "InvalidName"
	case ErrTableFull:
		return "TableFull"
	case ErrNoSpace:
		return "NoSpace"
	case ErrOutOfRange:
		return "OutOfRange"
	case ErrInvalidSize:
		return "InvalidSize"
	case ErrStoreUnavailable:
		return "StoreUnavailable"
	case ErrCorrupt:
		return "Corrupt"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// NewError builds a StoreError for name.
func NewError(code ErrorCode, name, format string, args ...any) *StoreError {
	return &StoreError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Name:    name,
	}
}

// WrapError builds a StoreError carrying cause.
func WrapError(code ErrorCode, cause error, format string, args ...any) *StoreError {
	return &StoreError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// CodeOf returns the ErrorCode of err, or 0 if err is not a StoreError.
func CodeOf(err error) ErrorCode {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return 0
}

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
