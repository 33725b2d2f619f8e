package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/tradewire/codec"
	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/schema"
)

func TestParseYAML(t *testing.T) {
	cfg, err := Parse([]byte(`
host: 10.0.0.5
port: 7001
framing: ascii
length_includes_header: true
charset: EUC-KR
normalize: false
log_recv_hex: true
idle_timeout: 30s
max_frame_length: 4096
`), schema.YAML)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:7001", cfg.Addr())
	assert.Equal(t, frame.Config{Framing: frame.ASCII, Endian: frame.BigEndian, LengthIncludesHeader: true}, cfg.Frame())
	assert.Equal(t, "EUC-KR", cfg.Charset)
	require.NotNil(t, cfg.Normalize)
	assert.False(t, *cfg.Normalize)
	assert.True(t, cfg.LogRecvHex)
	assert.False(t, cfg.LogSendHex)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 4096, cfg.MaxFrameLength)
	assert.Equal(t, DefaultSchemaFile, cfg.Schema)
}

func TestParseTOML(t *testing.T) {
	cfg, err := Parse([]byte(`
host = "exchange.local"
port = 9100
framing = "binary"
endian = "LE"
charset = "UTF-8"
log_send_hex = true
schema = "specs/orders.toml"
`), schema.TOML)
	require.NoError(t, err)

	assert.Equal(t, "exchange.local:9100", cfg.Addr())
	assert.Equal(t, frame.Config{Framing: frame.Binary, Endian: frame.LittleEndian}, cfg.Frame())
	assert.True(t, cfg.LogSendHex)
	assert.True(t, *cfg.Normalize)
	assert.Equal(t, "specs/orders.toml", cfg.Schema)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"), schema.YAML)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, frame.DefaultConfig(), cfg.Frame())
	assert.Equal(t, "UTF-8", cfg.Charset)
	assert.True(t, *cfg.Normalize)
	assert.Zero(t, cfg.IdleTimeout)
}

func TestParseEmptyStringsFallBack(t *testing.T) {
	cfg, err := Parse([]byte(`
host: ""
framing: ""
endian: ""
charset: ""
`), schema.YAML)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, frame.DefaultConfig(), cfg.Frame())
	assert.Equal(t, "UTF-8", cfg.Charset)
}

func TestParseInvalid(t *testing.T) {
	cases := map[string]string{
		"framing":  "framing: varint",
		"endian":   "endian: middle",
		"charset":  "charset: latin1",
		"port":     "port: 70000",
		"idle":     "idle_timeout: -1s",
		"maxframe": "max_frame_length: -1",
		"syntax":   "port: [",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc), schema.YAML)
		assert.Error(t, err, name)
	}
}

func TestCodecOptions(t *testing.T) {
	cfg, err := Parse([]byte("charset: euc-kr\nnormalize: false\n"), schema.YAML)
	require.NoError(t, err)

	p, err := schema.New(map[string]*schema.Message{
		"M": {Body: []schema.Field{{Name: "NAME", Width: 4}}},
	})
	require.NoError(t, err)

	c := codec.New(p, cfg.CodecOptions()...)
	assert.Equal(t, codec.EUCKR, c.Charset())

	body, err := c.Encode("M", codec.Payload{"NAME": "가"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xB0, 0xA1, ' ', ' '}, body)
}

const testSchema = `
messages:
  PING:
    header:
      - { name: TR_CODE, len: 4, fixed: "PING" }
    body:
      - { name: SEQ, len: 6, type: number }
`

func TestLoadResolvesSchemaNextToConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "specs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "specs", "ping.yaml"), []byte(testSchema), 0o644))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9001\nschema: specs/ping.yaml\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "specs", "ping.yaml"), cfg.SchemaPath())

	c, err := cfg.Codec()
	require.NoError(t, err)

	body, err := c.Encode("PING", codec.Payload{"SEQ": 42})
	require.NoError(t, err)
	assert.Equal(t, "PING000042", string(body))
}

func TestLoadTOMLByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = 9002\nframing = \"ascii\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9002, cfg.Port)
	assert.Equal(t, frame.ASCII, cfg.Frame().Framing)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchemaPathAbsolute(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.yaml")
	cfg := Default()
	cfg.Schema = abs
	cfg.dir = "/somewhere/else"
	assert.Equal(t, abs, cfg.SchemaPath())
}

func TestCodecMissingSchema(t *testing.T) {
	cfg := Default()
	cfg.Schema = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := cfg.Codec()
	assert.Error(t, err)
}
