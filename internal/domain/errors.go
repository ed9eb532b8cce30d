package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog and artwork operations
var (
	// ErrIndexOutOfRange indicates a catalog index outside [0, length)
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNothingToUndo indicates an undo request on an empty stack
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrStorageCorrupt indicates persisted catalog bytes could not be decoded
	ErrStorageCorrupt = errors.New("stored catalog is corrupt")

	// ErrFetchFailed indicates the artwork source was unreachable or returned bad bytes
	ErrFetchFailed = errors.New("cover fetch failed")

	// ErrInvalidRecord indicates a record failed construction-time validation
	ErrInvalidRecord = errors.New("invalid record")

	// ErrCacheClosed indicates the artwork cache no longer accepts lookups
	ErrCacheClosed = errors.New("artwork cache is closed")
)

// IndexError reports the offending index and the catalog length at the time.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

// Is implements errors.Is support
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// NewIndexError creates a new IndexError
func NewIndexError(index, length int) *IndexError {
	return &IndexError{Index: index, Len: length}
}

// ValidationError names the record field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CorruptError wraps the decode failure of a persisted blob.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("stored %s is corrupt: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *CorruptError) Is(target error) bool {
	return target == ErrStorageCorrupt
}

// FetchError wraps a failed artwork fetch for one cache key.
type FetchError struct {
	Key string
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch cover %s (%s): %v", e.Key, e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}
