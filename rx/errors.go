package rx

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is the error a Fiber's Join observes when the fiber was
// cancelled before its Stream completed, distinguishing cancellation
// from a regular upstream failure per spec section 7.
var ErrCancelled = errors.New("rx: fiber cancelled")

// SuppressedError attaches one or more cleanup-path errors (from a
// Resource's release or finalizers) to a primary cause, following spec
// section 4.7.5's suppressed-exception chaining: Primary is whichever
// error actually failed the overall operation (the body's error, if it
// failed; otherwise the first cleanup error), and Suppressed holds the
// rest.
type SuppressedError struct {
	Primary    error
	Suppressed []error
}

func (e *SuppressedError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Primary.Error()
	}
	var b strings.Builder
	b.WriteString(e.Primary.Error())
	for _, s := range e.Suppressed {
		fmt.Fprintf(&b, " (suppressed: %s)", s)
	}
	return b.String()
}

// Unwrap exposes the primary cause for errors.Is/errors.As.
func (e *SuppressedError) Unwrap() error { return e.Primary }
