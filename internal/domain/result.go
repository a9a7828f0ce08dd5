package domain

// Result is the outcome of one fetch: either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// OK creates a successful result.
func OK[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

// Failed creates a failed result. A nil err is replaced with ErrInternal.
func Failed[T any](err error) Result[T] {
	if err == nil {
		err = ErrInternal
	}
	return Result[T]{err: err}
}

// Value returns the value and whether the fetch succeeded.
func (r Result[T]) Value() (T, bool) { return r.value, r.ok }

// Err returns the error, if any.
func (r Result[T]) Err() error { return r.err }

// Succeeded reports whether the result carries a value.
func (r Result[T]) Succeeded() bool { return r.ok }
