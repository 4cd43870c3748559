package models

// Status describes how a pipeline operation completed.
type Status int

const (
	// StatusOK means the value was computed from available data.
	StatusOK Status = iota
	// StatusEmpty means the input source was absent; the value is an empty default.
	StatusEmpty
	// StatusDegraded means a failure occurred and the value is a fallback default.
	StatusDegraded
)

// String returns the display name for a status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Result carries a best-effort value together with how it was obtained.
// Value is always usable, even when Status is StatusDegraded.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

// OK wraps a successfully computed value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

// Empty wraps a default value produced because the source was missing.
func Empty[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusEmpty}
}

// Degraded wraps a fallback value produced after err.
func Degraded[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Status: StatusDegraded, Err: err}
}

// IsDegraded reports whether the value is a fallback.
func (r Result[T]) IsDegraded() bool {
	return r.Status == StatusDegraded
}
