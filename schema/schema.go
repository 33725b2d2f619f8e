// Package schema describes fixed-width message layouts: the ordered header and
// body fields of every message type, and how each field is rendered on the
// wire (width, type, literal, decimal scale, padding and enum mapping).
//
// A Protocol is built once, validated, and treated as read-only afterwards;
// the codec and the transport share it between goroutines without locking.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// FieldType tags the variant of a field. Encoders and decoders switch on it
// exhaustively.
type FieldType int

const (
	// Char is free text, right padded with spaces by default.
	Char FieldType = iota
	// Fixed is a literal that ignores the payload.
	Fixed
	// Number is a decimal value rendered as scaled integer digits.
	Number
	// Price behaves like Number; it exists so schemas can tell prices apart.
	Price
	// Enum maps a payload symbol to its wire string.
	Enum
)

var fieldTypeNames = map[FieldType]string{
	Char:   "char",
	Fixed:  "fixed",
	Number: "number",
	Price:  "price",
	Enum:   "enum",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Numeric reports whether the type is rendered as scaled digits.
func (t FieldType) Numeric() bool {
	return t == Number || t == Price
}

// ParseFieldType converts a schema file type name. An empty name is Char.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "char", "ascii", "string":
		return Char, nil
	case "fixed":
		return Fixed, nil
	case "number", "num":
		return Number, nil
	case "price":
		return Price, nil
	case "enum":
		return Enum, nil
	default:
		return Char, fmt.Errorf("schema: unknown field type %q", s)
	}
}

// PadSide selects which end of a field receives padding. The zero value means
// "use the type default".
type PadSide string

const (
	PadDefault PadSide = ""
	PadLeft    PadSide = "left"
	PadRight   PadSide = "right"
)

// Field is one fixed-width slot of a message.
type Field struct {
	Name  string
	Width int
	Type  FieldType
	// Fixed is the literal emitted for Fixed fields.
	Fixed string
	// Scale is the decimal shift applied to Number and Price values.
	Scale int
	Pad   PadSide
	// Fill is the pad character; empty means the type default.
	Fill string
	// Map translates Enum symbols to wire strings.
	Map map[string]string
}

// Message is the ordered layout of one message type. Header fields come
// first on the wire, then body fields.
type Message struct {
	Header []Field
	Body   []Field
}

// Fields returns header and body fields in wire order.
func (m *Message) Fields() []Field {
	fields := make([]Field, 0, len(m.Header)+len(m.Body))
	fields = append(fields, m.Header...)
	return append(fields, m.Body...)
}

// Width is the total encoded size of the message in bytes.
func (m *Message) Width() int {
	total := 0
	for _, f := range m.Header {
		total += f.Width
	}
	for _, f := range m.Body {
		total += f.Width
	}
	return total
}

// Protocol maps message type identifiers to their layouts.
type Protocol struct {
	messages map[string]*Message
	types    []string
}

// New validates the given layouts and returns an immutable Protocol.
func New(messages map[string]*Message) (*Protocol, error) {
	p := &Protocol{
		messages: make(map[string]*Message, len(messages)),
		types:    make([]string, 0, len(messages)),
	}
	for name, msg := range messages {
		if msg == nil {
			return nil, &ValidationError{MessageType: name, Reason: "empty message definition"}
		}
		if err := validateMessage(name, msg); err != nil {
			return nil, err
		}
		p.messages[name] = msg
		p.types = append(p.types, name)
	}
	sort.Strings(p.types)
	return p, nil
}

// Message looks up the layout of a message type.
func (p *Protocol) Message(msgType string) (*Message, bool) {
	msg, ok := p.messages[msgType]
	return msg, ok
}

// Types returns every message type identifier in sorted order.
func (p *Protocol) Types() []string {
	out := make([]string, len(p.types))
	copy(out, p.types)
	return out
}
