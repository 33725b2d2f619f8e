package schema

import (
	"fmt"
	"unicode/utf8"
)

// ValidationError reports a schema definition the codec cannot honor.
type ValidationError struct {
	MessageType string
	Field       string
	Reason      string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message %q: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message %q field %q: %s", e.MessageType, e.Field, e.Reason)
}

func validateMessage(msgType string, msg *Message) error {
	if msgType == "" {
		return &ValidationError{Reason: "empty message type"}
	}
	if len(msg.Header)+len(msg.Body) == 0 {
		return &ValidationError{MessageType: msgType, Reason: "message has no fields"}
	}

	seen := make(map[string]struct{}, len(msg.Header)+len(msg.Body))
	for _, f := range msg.Fields() {
		if err := validateField(msgType, f); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return &ValidationError{MessageType: msgType, Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func validateField(msgType string, f Field) error {
	fail := func(format string, args ...interface{}) error {
		return &ValidationError{MessageType: msgType, Field: f.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if f.Name == "" {
		return &ValidationError{MessageType: msgType, Reason: "field without name"}
	}
	if f.Width <= 0 {
		return fail("width must be positive, got %d", f.Width)
	}
	if _, ok := fieldTypeNames[f.Type]; !ok {
		return fail("unsupported type %s", f.Type)
	}
	if f.Scale < 0 {
		return fail("scale must not be negative, got %d", f.Scale)
	}
	if f.Scale != 0 && !f.Type.Numeric() {
		return fail("scale is only valid for number and price fields")
	}
	switch f.Pad {
	case PadDefault, PadLeft, PadRight:
	default:
		return fail("pad must be left or right, got %q", f.Pad)
	}
	if f.Fill != "" && utf8.RuneCountInString(f.Fill) != 1 {
		return fail("fill must be a single character, got %q", f.Fill)
	}
	if f.Type == Enum && len(f.Map) == 0 {
		return fail("enum field needs a non-empty map")
	}
	return nil
}
