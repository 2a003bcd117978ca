package notesolve

import (
	"errors"
	"fmt"
)

// Sentinel errors. Detail-carrying errors below unwrap to one of these, so
// callers test with errors.Is.
var (
	// ErrParse reports malformed expression or equation text.
	ErrParse = errors.New("notesolve: parse error")
	// ErrInvalidName reports an empty or non-identifier variable/formula name.
	ErrInvalidName = errors.New("notesolve: invalid name")
	// ErrReservedName reports a name that belongs to a built-in function or constant.
	ErrReservedName = errors.New("notesolve: reserved name")
	// ErrInvalidExpression reports a formula body that does not parse.
	ErrInvalidExpression = errors.New("notesolve: invalid expression")
	// ErrUnboundVariable reports evaluation of a name with no value in scope.
	ErrUnboundVariable = errors.New("notesolve: unbound variable")
	// ErrInvalidBounds reports a non-finite integration bound.
	ErrInvalidBounds = errors.New("notesolve: invalid integration bounds")
	// ErrUnsupportedOperation reports a form the engine does not evaluate,
	// such as an indefinite integral.
	ErrUnsupportedOperation = errors.New("notesolve: unsupported operation")
	// ErrDerivativeTooSmall reports a stalled Newton iteration.
	ErrDerivativeTooSmall = errors.New("notesolve: derivative too small")
	// ErrConvergenceFailure reports a Newton iteration that hit its cap.
	ErrConvergenceFailure = errors.New("notesolve: failed to converge")
)

// ParseError describes text that could not be parsed.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("notesolve: cannot parse %q: %s", e.Input, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// NameError is returned by the store guards. Err is ErrInvalidName or
// ErrReservedName.
type NameError struct {
	Name string
	Err  error
}

func (e *NameError) Error() string {
	if errors.Is(e.Err, ErrReservedName) {
		return fmt.Sprintf("notesolve: %q is a reserved name", e.Name)
	}
	return fmt.Sprintf("notesolve: %q is not a valid name", e.Name)
}

func (e *NameError) Unwrap() error { return e.Err }

// UnboundVariableError names the variable that had no value.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("notesolve: undefined symbol %s", e.Name)
}

func (e *UnboundVariableError) Unwrap() error { return ErrUnboundVariable }
