// Package must contains simple functions that panic on errors.
//
// It should only be used in tests and in package-level declarations whose
// errors are provably impossible, such as declaring a class from a fixed
// method list.
package must

// OK panics if the error value is not nil. It is intended for use with
// functions that return just an error.
func OK(err error) {
	if err != nil {
		panic(err)
	}
}

// OK1 panics if the error value is not nil. It is intended for use with
// functions that return one value and an error.
func OK1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
