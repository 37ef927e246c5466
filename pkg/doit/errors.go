package doit

import "fmt"

// PanicError records a panic recovered from a step or a catch step.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in step: %v", e.Value)
}

// Unwrap returns the value panicked with, if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
