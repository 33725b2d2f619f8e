package codec

import (
	"errors"
	"fmt"
)

// Schema errors. Every encode or decode failure is a *FieldError whose Kind
// is one of these, so callers match with errors.Is.
var (
	ErrUnknownMessageType = errors.New("codec: unknown message type")
	ErrMissingField       = errors.New("codec: missing field")
	ErrUnmappedEnumValue  = errors.New("codec: enum value not mapped")
	ErrInvalidNumber      = errors.New("codec: invalid number")
	ErrShortBody          = errors.New("codec: body shorter than message layout")
)

// FieldError rejects a single encode or decode call.
type FieldError struct {
	Kind        error
	MessageType string
	Field       string
	Value       string
}

func (e *FieldError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("%v: %q", e.Kind, e.MessageType)
	case e.Value == "":
		return fmt.Sprintf("%v: %s.%s", e.Kind, e.MessageType, e.Field)
	default:
		return fmt.Sprintf("%v: %s.%s=%q", e.Kind, e.MessageType, e.Field, e.Value)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// IsSchemaError reports whether err came from the codec rejecting its input.
func IsSchemaError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
