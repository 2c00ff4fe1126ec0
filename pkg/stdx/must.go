// Package stdx carries tiny generic helpers with no better home.
package stdx

// Must0 panics if err is non-nil. For operations whose failure is a
// programming error, not a runtime condition.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 returns v, panicking if err is non-nil.
func Must1[T any](v T, err error) T {
	Must0(err)
	return v
}
