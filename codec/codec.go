// Package codec packs payloads into fixed-width message bodies and unpacks
// them again, following a schema.Protocol.
//
// Every field occupies exactly its declared width. Text is converted to the
// configured charset one character at a time and a character that would
// overflow the field is dropped whole; the remainder is padded. Number and
// Price values are scaled by 10^scale and rounded half away from zero before
// they are rendered as digits.
//
// A Codec holds no mutable state and may be shared between goroutines.
package codec

import (
	"golang.org/x/text/unicode/norm"

	"github.com/Zereker/tradewire/schema"
)

// Payload maps field names to values. Values are strings or numbers.
type Payload map[string]interface{}

// Lookup returns the value of a field; nil values count as absent.
func (p Payload) Lookup(name string) (interface{}, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// options holds the codec configuration.
type options struct {
	charset   Charset
	normalize bool
}

// Option configures a Codec.
type Option func(*options)

// CharsetOption selects the wire charset. Default is UTF-8.
func CharsetOption(c Charset) Option {
	return func(o *options) {
		o.charset = c
	}
}

// NormalizeOption toggles NFC normalization of text before encoding.
// Default is on.
func NormalizeOption(on bool) Option {
	return func(o *options) {
		o.normalize = on
	}
}

// Codec encodes and decodes the message types of one protocol.
type Codec struct {
	protocol *schema.Protocol
	opts     options
}

// New returns a Codec for the protocol.
func New(protocol *schema.Protocol, opt ...Option) *Codec {
	opts := options{charset: UTF8, normalize: true}
	for _, o := range opt {
		o(&opts)
	}
	return &Codec{protocol: protocol, opts: opts}
}

// Charset returns the configured wire charset.
func (c *Codec) Charset() Charset {
	return c.opts.charset
}

// Protocol returns the schema the codec follows.
func (c *Codec) Protocol() *schema.Protocol {
	return c.protocol
}

func (c *Codec) message(msgType string) (*schema.Message, error) {
	msg, ok := c.protocol.Message(msgType)
	if !ok {
		return nil, &FieldError{Kind: ErrUnknownMessageType, MessageType: msgType}
	}
	return msg, nil
}

// Width returns the encoded body size of a message type.
func (c *Codec) Width(msgType string) (int, error) {
	msg, err := c.message(msgType)
	if err != nil {
		return 0, err
	}
	return msg.Width(), nil
}

// Encode renders payload as the body of msgType. On error no bytes are
// returned.
func (c *Codec) Encode(msgType string, payload Payload) ([]byte, error) {
	msg, err := c.message(msgType)
	if err != nil {
		return nil, err
	}

	enc := newRuneEncoder(c.opts.charset)
	out := make([]byte, 0, msg.Width())
	for _, f := range msg.Fields() {
		text, err := fieldText(msgType, f, payload)
		if err != nil {
			return nil, err
		}
		out = c.appendField(out, enc, f, text)
	}
	return out, nil
}

// fieldText resolves the string a field carries before charset conversion.
func fieldText(msgType string, f schema.Field, payload Payload) (string, error) {
	switch f.Type {
	case schema.Fixed:
		return f.Fixed, nil

	case schema.Enum:
		v, ok := payload.Lookup(f.Name)
		if !ok {
			return "", &FieldError{Kind: ErrMissingField, MessageType: msgType, Field: f.Name}
		}
		symbol := stringify(v)
		wire, ok := f.Map[symbol]
		if !ok {
			return "", &FieldError{Kind: ErrUnmappedEnumValue, MessageType: msgType, Field: f.Name, Value: symbol}
		}
		return wire, nil

	case schema.Number, schema.Price:
		v, ok := payload.Lookup(f.Name)
		if !ok {
			return "", &FieldError{Kind: ErrMissingField, MessageType: msgType, Field: f.Name}
		}
		digits, err := scaleDigits(v, f.Scale)
		if err != nil {
			return "", &FieldError{Kind: ErrInvalidNumber, MessageType: msgType, Field: f.Name, Value: stringify(v)}
		}
		return digits, nil

	default:
		v, ok := payload.Lookup(f.Name)
		if !ok {
			return "", nil
		}
		return stringify(v), nil
	}
}

// appendField writes text into exactly f.Width bytes at the end of out.
func (c *Codec) appendField(out []byte, enc *runeEncoder, f schema.Field, text string) []byte {
	if c.opts.normalize {
		text = norm.NFC.String(text)
	}

	start := len(out)
	for _, r := range text {
		b := enc.encode(r)
		if len(out)-start+len(b) > f.Width {
			break
		}
		out = append(out, b...)
	}

	used := len(out) - start
	missing := f.Width - used
	if missing == 0 {
		return out
	}

	side, fill := padding(f)
	pad := enc.padByte(fill)
	for i := 0; i < missing; i++ {
		out = append(out, pad)
	}
	if side == schema.PadLeft {
		copy(out[start+missing:], out[start:start+used])
		for i := start; i < start+missing; i++ {
			out[i] = pad
		}
	}
	return out
}

// padding returns the effective pad side and character of a field.
func padding(f schema.Field) (schema.PadSide, string) {
	side, fill := schema.PadRight, " "
	if f.Type.Numeric() {
		side, fill = schema.PadLeft, "0"
	}
	if f.Pad != schema.PadDefault {
		side = f.Pad
	}
	if f.Fill != "" {
		fill = f.Fill
	}
	return side, fill
}
