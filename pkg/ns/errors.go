package ns

import (
	"errors"
	"fmt"
)

// Reasons of a DeclError.
var (
	ErrInvalidName = errors.New("invalid package name")
	ErrConflict    = errors.New("conflicts with an existing member")
)

// DeclError is returned when declaring a package or exporting a value fails.
type DeclError struct {
	Name   string
	Member string
	Err    error
}

func (e *DeclError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("package %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("package %q: %s %v", e.Name, e.Member, e.Err)
}

func (e *DeclError) Unwrap() error { return e.Err }

// LookupError is returned when a path cannot be resolved.
type LookupError struct {
	What string
	Path string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q cannot be found", e.What, e.Path)
}
