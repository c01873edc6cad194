package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInput is matched by every normalization failure.
var ErrInput = errors.New("invalid balance record")

var (
	errEmptyValue = errors.New("empty value")
	errOutOfRange = errors.New("value out of range")
	errTooPrecise = errors.New("too many significant digits")
)

// InputError reports a raw record field that could not be normalized.
type InputError struct {
	Field string
	Value string
	Err   error
}

func newInputError(field, value string, err error) *InputError {
	return &InputError{Field: field, Value: value, Err: err}
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: field %s has invalid value %q: %v", ErrInput, e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Is reports ErrInput as the category of every InputError.
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}
