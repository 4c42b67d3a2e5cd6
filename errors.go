package memarena

import "github.com/cockroachdb/errors"

// Recoverable allocation failures. Call sites wrap these with context, so
// compare with errors.Is.
var (
	// ErrOutOfMemory is returned when a Block cannot be acquired or a pool
	// may not grow far enough to satisfy a request.
	ErrOutOfMemory = errors.New("memarena: out of memory")

	// ErrAllocationTooLarge is returned when count*sizeof(T) overflows.
	ErrAllocationTooLarge = errors.New("memarena: allocation too large")

	// ErrStaleRef is returned when a Ref minted before the last Reset of its
	// pool is dereferenced.
	ErrStaleRef = errors.New("memarena: stale ref")
)

// violation panics with an assertion failure. Used for contract breaches
// (negative sizes, bad alignment, use after teardown, attach cycles) that
// are programming errors rather than runtime conditions.
func violation(format string, args ...any) {
	panic(errors.AssertionFailedf("memarena: "+format, args...))
}
