package params

import (
	"errors"
	"fmt"
)

// ErrMissing is wrapped by every error caused by a lookup of a parameter
// path that does not exist. Optional accessors test for it with errors.Is.
var ErrMissing = errors.New("parameter missing")

// TypeError reports a parameter whose value cannot be converted to the type
// an accessor requires.
type TypeError struct {
	Path string
	Want string
	Got  string
	Err  error
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parameter %q: cannot read %s as %s: %v", e.Path, e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("parameter %q: cannot read %s as %s", e.Path, e.Got, e.Want)
}

// Unwrap exposes the underlying conversion error.
func (e *TypeError) Unwrap() error { return e.Err }

// missingErr builds the canonical missing-parameter error for a path.
func missingErr(path string) error {
	return fmt.Errorf("%w: %q", ErrMissing, path)
}
