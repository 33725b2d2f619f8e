// Package config loads the runtime settings of a tester session: where the
// peer lives, how frames are delimited and how text is encoded.
package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/tradewire/codec"
	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/schema"
)

// DefaultSchemaFile is the schema looked up next to the configuration file
// when none is named.
const DefaultSchemaFile = "order_spec.yaml"

// Config mirrors the configuration file. Zero values mean "use the default"
// except for the booleans, where normalize defaults to on.
type Config struct {
	Host                 string `yaml:"host" toml:"host"`
	Port                 int    `yaml:"port" toml:"port"`
	Framing              string `yaml:"framing" toml:"framing"`
	Endian               string `yaml:"endian" toml:"endian"`
	LengthIncludesHeader bool   `yaml:"length_includes_header" toml:"length_includes_header"`
	Charset              string `yaml:"charset" toml:"charset"`
	Normalize            *bool  `yaml:"normalize" toml:"normalize"`
	LogRecvHex           bool   `yaml:"log_recv_hex" toml:"log_recv_hex"`
	LogSendHex           bool   `yaml:"log_send_hex" toml:"log_send_hex"`

	// Schema is the message schema file, relative to the configuration file.
	Schema         string        `yaml:"schema" toml:"schema"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	MaxFrameLength int           `yaml:"max_frame_length" toml:"max_frame_length"`

	dir string
}

// Default returns the settings used when no file is given: a local peer on
// port 9000, binary big endian headers that exclude themselves, UTF-8 text
// with NFC normalization.
func Default() *Config {
	on := true
	return &Config{
		Host:      "127.0.0.1",
		Port:      9000,
		Framing:   string(frame.Binary),
		Endian:    string(frame.BigEndian),
		Charset:   string(codec.UTF8),
		Normalize: &on,
		Schema:    DefaultSchemaFile,
	}
}

// Load reads a YAML or TOML file (chosen by extension) over the defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	cfg, err := Parse(data, schema.FormatOf(path))
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte, format schema.Format) (*Config, error) {
	cfg := Default()
	if err := schema.Unmarshal(data, format, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Framing == "" {
		c.Framing = def.Framing
	}
	if c.Endian == "" {
		c.Endian = def.Endian
	}
	if c.Charset == "" {
		c.Charset = def.Charset
	}
	if c.Normalize == nil {
		c.Normalize = def.Normalize
	}
	if c.Schema == "" {
		c.Schema = def.Schema
	}
}

// Validate checks every enumerated value and range.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if _, err := frame.ParseFraming(c.Framing); err != nil {
		return err
	}
	if _, err := frame.ParseEndian(c.Endian); err != nil {
		return err
	}
	if _, err := codec.ParseCharset(c.Charset); err != nil {
		return err
	}
	if c.IdleTimeout < 0 {
		return errors.Errorf("idle_timeout %s is negative", c.IdleTimeout)
	}
	if c.MaxFrameLength < 0 {
		return errors.Errorf("max_frame_length %d is negative", c.MaxFrameLength)
	}
	return nil
}

// Addr is the peer address as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Frame returns the length header settings. Values were checked by Validate.
func (c *Config) Frame() frame.Config {
	framing, _ := frame.ParseFraming(c.Framing)
	endian, _ := frame.ParseEndian(c.Endian)
	return frame.Config{
		Framing:              framing,
		Endian:               endian,
		LengthIncludesHeader: c.LengthIncludesHeader,
	}
}

// CodecOptions returns the charset and normalization settings.
func (c *Config) CodecOptions() []codec.Option {
	charset, _ := codec.ParseCharset(c.Charset)
	normalize := c.Normalize == nil || *c.Normalize
	return []codec.Option{
		codec.CharsetOption(charset),
		codec.NormalizeOption(normalize),
	}
}

// SchemaPath resolves Schema against the directory of the loaded file.
func (c *Config) SchemaPath() string {
	if filepath.IsAbs(c.Schema) || c.dir == "" {
		return c.Schema
	}
	return filepath.Join(c.dir, c.Schema)
}

// Codec loads the schema and builds a codec with the configured text
// settings.
func (c *Config) Codec() (*codec.Codec, error) {
	p, err := schema.Load(c.SchemaPath())
	if err != nil {
		return nil, err
	}
	return codec.New(p, c.CodecOptions()...), nil
}
