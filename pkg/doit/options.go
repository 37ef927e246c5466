package doit

import "go.uber.org/zap"

// Option configures a Sequence.
type Option func(*Sequence)

// IgnoreErrors makes the sequence log errors instead of faulting.
func IgnoreErrors() Option {
	return func(s *Sequence) { s.ignoreErrors = true }
}

// RethrowUnhandled makes End, or Recover with a nil handler, panic with the
// pending error instead of logging it.
func RethrowUnhandled() Option {
	return func(s *Sequence) { s.rethrowUnhandled = true }
}

// WithLogger sets the logger for the diagnostics of the sequence.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Sequence) { s.logger = l }
}
