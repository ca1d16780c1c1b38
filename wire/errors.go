package wire

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrMalformedInput marks every decode failure caused by the buffer itself:
	// truncation, overlong varints, bad length prefixes and invalid tags.
	ErrMalformedInput = errors.New("malformed input")

	// ErrTypeMismatch is returned in strict mode when a known field arrives
	// with a wire type that does not match its declared kind.
	ErrTypeMismatch = errors.New("wire type mismatch")
)

// malformed builds an error marked as ErrMalformedInput.
func malformed(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedInput)
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["locations", "labels"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for compatibility.
func (e *FieldError) Is(target error) bool {
	_, ok := target.(*FieldError)
	return ok
}

// newFieldError creates a leaf error for a field value problem.
func newFieldError(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// wrapWithField prefixes the error's field path with fieldName.
func wrapWithField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
