// Package ptr builds pointers to literal values for optional configuration
// fields.
package ptr

// To creates a pointer to the given value.
// This is a generic utility function that works with any type.
func To[T any](v T) *T {
	return &v
}

// Bool creates a pointer to the given bool value.
func Bool(b bool) *bool {
	return &b
}

