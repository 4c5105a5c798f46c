package markup

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOperation is returned when an operation does not match the body variant
	ErrUnsupportedOperation = errors.New("operation not supported for this template body")

	// ErrParameterNotFound is returned when a named parameter is absent
	ErrParameterNotFound = errors.New("parameter does not exist")

	// ErrDuplicateParameter is returned when two parameters share a trimmed name
	ErrDuplicateParameter = errors.New("duplicate parameter")

	// ErrNestingTooDeep is returned when decoded input exceeds the nesting cap
	ErrNestingTooDeep = errors.New("template nesting too deep")
)

func errTextBody(op string) error {
	return fmt.Errorf("%s: %w: template is a string", op, ErrUnsupportedOperation)
}

func errParamBody(op string) error {
	return fmt.Errorf("%s: %w: template has parameters", op, ErrUnsupportedOperation)
}

func errNotFound(name string) error {
	return fmt.Errorf("parameter %q: %w", name, ErrParameterNotFound)
}
