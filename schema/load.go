package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a schema or configuration file.
type Format int

const (
	YAML Format = iota
	TOML
)

// FormatOf picks the file format from a path extension. Anything that is not
// .toml is read as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}
	return YAML
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(data []byte, format Format, v interface{}) error {
	switch format {
	case TOML:
		_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(v)
		return err
	default:
		return yaml.Unmarshal(data, v)
	}
}

type fileField struct {
	Name  string            `yaml:"name" toml:"name"`
	Len   int               `yaml:"len" toml:"len"`
	Type  string            `yaml:"type" toml:"type"`
	Fixed *string           `yaml:"fixed" toml:"fixed"`
	Scale int               `yaml:"scale" toml:"scale"`
	Pad   string            `yaml:"pad" toml:"pad"`
	Fill  string            `yaml:"fill" toml:"fill"`
	Map   map[string]string `yaml:"map" toml:"map"`
}

type fileMessage struct {
	Header []fileField `yaml:"header" toml:"header"`
	Body   []fileField `yaml:"body" toml:"body"`
}

type fileProtocol struct {
	Messages map[string]fileMessage `yaml:"messages" toml:"messages"`
}

// Load reads and validates a schema file.
func Load(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema")
	}
	p, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %s", path)
	}
	return p, nil
}

// Parse decodes and validates a schema document.
func Parse(data []byte, format Format) (*Protocol, error) {
	var raw fileProtocol
	if err := Unmarshal(data, format, &raw); err != nil {
		return nil, errors.Wrap(err, "decode schema")
	}
	if len(raw.Messages) == 0 {
		return nil, errors.New("schema: no messages defined")
	}

	messages := make(map[string]*Message, len(raw.Messages))
	for name, rm := range raw.Messages {
		msg := &Message{}
		for _, rf := range rm.Header {
			f, err := rf.field(name)
			if err != nil {
				return nil, err
			}
			msg.Header = append(msg.Header, f)
		}
		for _, rf := range rm.Body {
			f, err := rf.field(name)
			if err != nil {
				return nil, err
			}
			msg.Body = append(msg.Body, f)
		}
		messages[name] = msg
	}
	return New(messages)
}

// field resolves a file entry into a Field. A literal turns any field into a
// Fixed one; a literal declared on a number or price field keeps the numeric
// padding defaults unless the file overrides them.
func (rf fileField) field(msgType string) (Field, error) {
	declared, err := ParseFieldType(rf.Type)
	if err != nil {
		return Field{}, &ValidationError{MessageType: msgType, Field: rf.Name, Reason: err.Error()}
	}

	f := Field{
		Name:  strings.TrimSpace(rf.Name),
		Width: rf.Len,
		Type:  declared,
		Scale: rf.Scale,
		Pad:   PadSide(strings.ToLower(strings.TrimSpace(rf.Pad))),
		Fill:  rf.Fill,
		Map:   rf.Map,
	}

	if rf.Fixed != nil {
		f.Type = Fixed
		f.Fixed = *rf.Fixed
		if declared.Numeric() {
			f.Scale = 0
			if f.Pad == PadDefault {
				f.Pad = PadLeft
			}
			if f.Fill == "" {
				f.Fill = "0"
			}
		}
	} else if declared == Fixed {
		return Field{}, &ValidationError{MessageType: msgType, Field: rf.Name, Reason: "fixed field without literal"}
	}
	return f, nil
}
