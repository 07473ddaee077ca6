package negotiation

import "fmt"

// ValidationError reports a value that violates a construction invariant.
// Values that fail validation never enter the engine.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationErr(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// SchemaError reports an advisory payload that failed to parse or revalidate
// into the Response/Offer schema. It is a hard failure for the round; the
// engine never repairs or coerces the payload.
type SchemaError struct {
	Msg string
	Err error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("advisory payload: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("advisory payload: %s", e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func schemaErr(err error, format string, args ...any) error {
	return &SchemaError{Msg: fmt.Sprintf(format, args...), Err: err}
}
