package codec

import (
	"bytes"
	"strings"

	"github.com/Zereker/tradewire/schema"
)

// Decode slices body by the layout of msgType. Text fields come back with
// their padding trimmed; numeric fields have leading pad and zero characters
// stripped and an all-pad field reads as "0". Scale is not reversed and enum
// wire strings are returned as they are.
func (c *Codec) Decode(msgType string, body []byte) (Payload, error) {
	msg, err := c.message(msgType)
	if err != nil {
		return nil, err
	}
	if len(body) < msg.Width() {
		return nil, &FieldError{Kind: ErrShortBody, MessageType: msgType}
	}

	enc := newRuneEncoder(c.opts.charset)
	payload := make(Payload, len(msg.Header)+len(msg.Body))
	offset := 0
	for _, f := range msg.Fields() {
		raw := body[offset : offset+f.Width]
		offset += f.Width

		side, fill := padding(f)
		pad := string(enc.padByte(fill))
		text := decodeText(c.opts.charset, raw)
		if f.Type.Numeric() {
			payload[f.Name] = trimNumber(text, side, pad)
		} else {
			payload[f.Name] = trimText(text, side, pad)
		}
	}
	return payload, nil
}

func trimText(s string, side schema.PadSide, pad string) string {
	s = strings.Trim(s, " \x00")
	if pad == " " {
		return s
	}
	if side == schema.PadLeft {
		return strings.TrimLeft(s, pad)
	}
	return strings.TrimRight(s, pad)
}

func trimNumber(s string, side schema.PadSide, pad string) string {
	s = strings.TrimLeft(s, "0 \x00"+pad)
	s = strings.TrimRight(s, " \x00")
	if side == schema.PadRight && pad != "0" {
		s = strings.TrimRight(s, pad)
	}
	if s == "" {
		return "0"
	}
	return s
}

// Identify finds the message type of a received body. A type matches when
// its width equals the body length and every Fixed literal sits at its
// offset. When several types match, the one with the most literals wins and
// ties go to the first type in sorted order.
func (c *Codec) Identify(body []byte) (string, error) {
	enc := newRuneEncoder(c.opts.charset)
	best, bestLiterals := "", -1
	for _, name := range c.protocol.Types() {
		msg, _ := c.protocol.Message(name)
		if msg.Width() != len(body) {
			continue
		}
		literals, ok := c.matchLiterals(enc, msg, body)
		if ok && literals > bestLiterals {
			best, bestLiterals = name, literals
		}
	}
	if bestLiterals < 0 {
		return "", &FieldError{Kind: ErrUnknownMessageType}
	}
	return best, nil
}

func (c *Codec) matchLiterals(enc *runeEncoder, msg *schema.Message, body []byte) (int, bool) {
	literals, offset := 0, 0
	for _, f := range msg.Fields() {
		if f.Type == schema.Fixed {
			want := c.appendField(nil, enc, f, f.Fixed)
			if !bytes.Equal(want, body[offset:offset+f.Width]) {
				return 0, false
			}
			literals++
		}
		offset += f.Width
	}
	return literals, true
}
