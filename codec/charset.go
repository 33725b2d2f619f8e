package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// Charset is a supported wire text encoding.
type Charset string

const (
	UTF8  Charset = "UTF-8"
	EUCKR Charset = "EUC-KR"
)

// ParseCharset accepts the usual spellings of the supported charsets.
func ParseCharset(s string) (Charset, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return UTF8, nil
	case "EUC-KR", "EUCKR", "CP949":
		return EUCKR, nil
	default:
		return "", fmt.Errorf("codec: unsupported charset %q", s)
	}
}

func (c Charset) encoding() encoding.Encoding {
	if c == EUCKR {
		return korean.EUCKR
	}
	return unicode.UTF8
}

// replacement is written for characters the charset cannot represent.
const replacement = '?'

// runeEncoder turns single characters into charset bytes. It is not safe for
// concurrent use; the codec creates one per call.
type runeEncoder struct {
	enc *encoding.Encoder
	buf [utf8.UTFMax]byte
}

func newRuneEncoder(c Charset) *runeEncoder {
	return &runeEncoder{enc: c.encoding().NewEncoder()}
}

func (e *runeEncoder) encode(r rune) []byte {
	n := utf8.EncodeRune(e.buf[:], r)
	out, err := e.enc.Bytes(e.buf[:n])
	if err != nil {
		return []byte{replacement}
	}
	return out
}

// padByte returns the single wire byte for fill. A fill character that does
// not encode to exactly one byte falls back to an ASCII space.
func (e *runeEncoder) padByte(fill string) byte {
	out, err := e.enc.String(fill)
	if err != nil || len(out) != 1 {
		return ' '
	}
	return out[0]
}

func decodeText(c Charset, raw []byte) string {
	out, err := c.encoding().NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
