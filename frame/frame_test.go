package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapBinary(t *testing.T) {
	body := bytes.Repeat([]byte{'x'}, 42)

	out, err := Wrap(body, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, out, 46)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x2A}, out[:4])
	assert.Equal(t, body, out[4:])

	out, err = Wrap(body, Config{Framing: Binary, Endian: LittleEndian})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2A, 0x00, 0x00, 0x00}, out[:4])

	out, err = Wrap(body, Config{Framing: Binary, Endian: BigEndian, LengthIncludesHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x2E}, out[:4])
}

func TestWrapASCII(t *testing.T) {
	cfg := Config{Framing: ASCII}

	out, err := Wrap(bytes.Repeat([]byte{'x'}, 42), cfg)
	require.NoError(t, err)
	assert.Equal(t, "0042", string(out[:4]))

	out, err = Wrap(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, "0000", string(out))

	cfg.LengthIncludesHeader = true
	out, err = Wrap([]byte("abc"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "0007abc", string(out))
}

func TestWrapOverflow(t *testing.T) {
	out, err := Wrap(make([]byte, 10000), Config{Framing: ASCII})
	assert.True(t, errors.Is(err, ErrLengthOverflow))
	assert.Nil(t, out)

	_, err = Wrap(make([]byte, 9996), Config{Framing: ASCII, LengthIncludesHeader: true})
	assert.True(t, errors.Is(err, ErrLengthOverflow))

	out, err = Wrap(make([]byte, 9999), Config{Framing: ASCII})
	require.NoError(t, err)
	assert.Equal(t, "9999", string(out[:4]))
}

func TestParseHeader(t *testing.T) {
	n, err := ParseHeader([]byte{0, 0, 1, 0}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	n, err = ParseHeader([]byte{0, 1, 0, 0}, Config{Endian: LittleEndian})
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	n, err = ParseHeader([]byte("0123"), Config{Framing: ASCII})
	require.NoError(t, err)
	assert.Equal(t, 123, n)

	for _, hdr := range []string{"abcd", " 123", "12-3", "+123"} {
		_, err = ParseHeader([]byte(hdr), Config{Framing: ASCII})
		assert.True(t, errors.Is(err, ErrFraming), hdr)
		assert.True(t, errors.Is(err, ErrInvalidLength), hdr)

		var fe *FramingError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, []byte(hdr), fe.Header)
	}
}

func TestFrameLen(t *testing.T) {
	n, err := FrameLen([]byte("0010"), Config{Framing: ASCII})
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	n, err = FrameLen([]byte("0010"), Config{Framing: ASCII, LengthIncludesHeader: true})
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = FrameLen([]byte{0, 0, 0, 3}, Config{LengthIncludesHeader: true})
	assert.True(t, errors.Is(err, ErrFraming))
}

func TestParseFramingAndEndian(t *testing.T) {
	f, err := ParseFraming("ASCII")
	require.NoError(t, err)
	assert.Equal(t, ASCII, f)

	f, err = ParseFraming("")
	require.NoError(t, err)
	assert.Equal(t, Binary, f)

	_, err = ParseFraming("varint")
	assert.Error(t, err)

	e, err := ParseEndian("le")
	require.NoError(t, err)
	assert.Equal(t, LittleEndian, e)

	e, err = ParseEndian("")
	require.NoError(t, err)
	assert.Equal(t, BigEndian, e)

	_, err = ParseEndian("middle")
	assert.Error(t, err)
}
