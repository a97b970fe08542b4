package walker

import (
	"errors"
	"fmt"
)

// ErrRootNotReadable indicates the walk root cannot be opened or listed.
// Every root-level failure matches it under errors.Is.
var ErrRootNotReadable = errors.New("root is not readable")

// ErrRootNotFound indicates the walk root does not exist.
var ErrRootNotFound error = &rootFailure{msg: "root does not exist"}

// ErrRootNotDirectory indicates the walk root exists but is not a directory.
var ErrRootNotDirectory error = &rootFailure{msg: "root is not a directory"}

// rootFailure is a more specific root error that still matches
// ErrRootNotReadable.
type rootFailure struct {
	msg string
}

func (e *rootFailure) Error() string { return e.msg }

func (e *rootFailure) Unwrap() error { return ErrRootNotReadable }

// RootError reports a failure to open a walk root. It is fatal to the walk.
type RootError struct {
	// Root is the root path as given by the caller.
	Root string

	// Kind is one of ErrRootNotFound, ErrRootNotDirectory or ErrRootNotReadable.
	Kind error

	// Err is the underlying cause, if any.
	Err error
}

func (e *RootError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Root, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Root, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *RootError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func rootError(root string, kind, cause error) *RootError {
	return &RootError{Root: root, Kind: kind, Err: cause}
}
