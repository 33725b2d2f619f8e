// Package frame wraps message bodies in a 4-byte length header and turns a
// chunked byte stream back into complete bodies.
//
// The header is either four ASCII decimal digits or a uint32 in big or little
// endian order, and may or may not count its own four bytes.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// HeaderLen is the size of the length header.
const HeaderLen = 4

// maxASCIILength is the largest length four decimal digits can carry.
const maxASCIILength = 9999

// Framing selects how the length header is rendered.
type Framing string

const (
	ASCII  Framing = "ascii"
	Binary Framing = "binary"
)

// ParseFraming accepts "ascii" or "binary"; empty means binary.
func ParseFraming(s string) (Framing, error) {
	switch Framing(strings.ToLower(strings.TrimSpace(s))) {
	case ASCII:
		return ASCII, nil
	case Binary, "":
		return Binary, nil
	default:
		return "", fmt.Errorf("frame: unknown framing %q", s)
	}
}

// Endian is the byte order of a binary header.
type Endian string

const (
	BigEndian    Endian = "BE"
	LittleEndian Endian = "LE"
)

// ParseEndian accepts "BE" or "LE"; empty means big endian.
func ParseEndian(s string) (Endian, error) {
	switch Endian(strings.ToUpper(strings.TrimSpace(s))) {
	case BigEndian, "":
		return BigEndian, nil
	case LittleEndian:
		return LittleEndian, nil
	default:
		return "", fmt.Errorf("frame: unknown endian %q", s)
	}
}

// Config describes the length header.
type Config struct {
	Framing              Framing
	Endian               Endian
	LengthIncludesHeader bool
}

// DefaultConfig is a big endian binary header that counts only the body.
func DefaultConfig() Config {
	return Config{Framing: Binary, Endian: BigEndian}
}

func (c Config) byteOrder() binary.ByteOrder {
	if c.Endian == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

var (
	// ErrLengthOverflow is returned by Wrap when the length does not fit the header.
	ErrLengthOverflow = errors.New("frame: length overflows header")
	// ErrFraming matches every *FramingError.
	ErrFraming = errors.New("frame: corrupt length header")
	// ErrInvalidLength is the cause of a header that is not a usable length.
	ErrInvalidLength = errors.New("frame: invalid length")
	// ErrFrameTooLarge is the cause of a header announcing more than the
	// reassembler accepts.
	ErrFrameTooLarge = errors.New("frame: frame too large")
)

// FramingError reports a length header that cannot be interpreted.
type FramingError struct {
	Header []byte
	Err    error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("%v % x: %v", ErrFraming, e.Header, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrFraming) match any framing error.
func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}

func framingError(hdr []byte, cause error) *FramingError {
	h := make([]byte, len(hdr))
	copy(h, hdr)
	return &FramingError{Header: h, Err: cause}
}

// Wrap prefixes body with its length header. Nothing is produced when the
// length does not fit.
func Wrap(body []byte, cfg Config) ([]byte, error) {
	total := len(body)
	if cfg.LengthIncludesHeader {
		total += HeaderLen
	}

	out := make([]byte, HeaderLen, HeaderLen+len(body))
	if err := putHeader(out, total, cfg); err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

func putHeader(dst []byte, n int, cfg Config) error {
	if cfg.Framing == ASCII {
		if n > maxASCIILength {
			return fmt.Errorf("%w: %d needs more than %d digits", ErrLengthOverflow, n, HeaderLen)
		}
		for i := HeaderLen - 1; i >= 0; i-- {
			dst[i] = byte('0' + n%10)
			n /= 10
		}
		return nil
	}

	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: %d", ErrLengthOverflow, n)
	}
	cfg.byteOrder().PutUint32(dst, uint32(n))
	return nil
}

// ParseHeader reads the length carried by a 4-byte header. ASCII headers must
// be exactly four decimal digits; binary headers always parse.
func ParseHeader(hdr []byte, cfg Config) (int, error) {
	if len(hdr) != HeaderLen {
		return 0, framingError(hdr, ErrInvalidLength)
	}

	if cfg.Framing == ASCII {
		n := 0
		for _, b := range hdr {
			if b < '0' || b > '9' {
				return 0, framingError(hdr, ErrInvalidLength)
			}
			n = n*10 + int(b-'0')
		}
		return n, nil
	}
	return int(cfg.byteOrder().Uint32(hdr)), nil
}

// FrameLen returns the full frame size (header included) announced by hdr.
// A length that counts the header but is smaller than it is a framing error.
func FrameLen(hdr []byte, cfg Config) (int, error) {
	n, err := ParseHeader(hdr, cfg)
	if err != nil {
		return 0, err
	}
	if !cfg.LengthIncludesHeader {
		return n + HeaderLen, nil
	}
	if n < HeaderLen {
		return 0, framingError(hdr, ErrInvalidLength)
	}
	return n, nil
}
