// Package testutil contains common test utilities.
package testutil

// Cleanuper wraps the Cleanup method. It is a subset of [testing.TB], thus
// satisfied by [*testing.T] and [*testing.B].
type Cleanuper interface {
	Cleanup(func())
}

// Recover calls f and returns the value it panicked with, or nil if it
// returned normally.
func Recover(f func()) (r any) {
	defer func() { r = recover() }()
	f()
	return nil
}
