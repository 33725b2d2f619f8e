package tradewire

import "github.com/Zereker/tradewire/codec"

// Message is one frame received from the peer.
//
// Body is the frame body without its length header. When a Codec is
// configured, Type and Payload hold the identified message type and the
// decoded fields; otherwise, or when decoding failed and the error handler
// chose to continue, they are empty.
type Message struct {
	Type    string
	Payload codec.Payload
	Body    []byte
}

// Length returns the length of the message body.
func (m Message) Length() int {
	return len(m.Body)
}

// Codec turns payloads into fixed-width bodies and back.
// *codec.Codec implements it.
type Codec interface {
	// Encode renders payload as the body of msgType.
	Encode(msgType string, payload codec.Payload) ([]byte, error)
	// Decode slices body by the layout of msgType.
	Decode(msgType string, body []byte) (codec.Payload, error)
	// Identify resolves the message type of a received body.
	Identify(body []byte) (string, error)
}
