package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered panic value into an internal error
// carrying the stack at the point of recovery.
func RecoverPanic(r interface{}) *Error {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	return ErrInternal.WithCause(err).WithDetail("stack", string(debug.Stack()))
}
