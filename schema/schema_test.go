package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderYAML = `
messages:
  NEW_ORDER:
    header:
      - { name: TR_CODE, len: 4, type: char, fixed: "NO01" }
      - { name: SEQ, len: 6, type: number, fixed: "1" }
    body:
      - { name: ACNT_NO, len: 12, type: char }
      - { name: SIDE, len: 1, type: enum, map: { BUY: "1", SELL: "2" } }
      - { name: QTY, len: 10, type: number }
      - { name: PRICE, len: 13, type: price, scale: 2 }
  CANCEL:
    header:
      - { name: TR_CODE, len: 4, fixed: "CN01" }
    body:
      - { name: ORIG_CL_ID, len: 20 }
`

const orderTOML = `
[messages.CANCEL]
header = [ { name = "TR_CODE", len = 4, fixed = "CN01" } ]
body = [
  { name = "ORIG_CL_ID", len = 20, type = "char", pad = "left", fill = "_" },
  { name = "REASON", len = 1, type = "enum", map = { USER = "U" } },
]
`

func TestParseYAML(t *testing.T) {
	p, err := Parse([]byte(orderYAML), YAML)
	require.NoError(t, err)
	assert.Equal(t, []string{"CANCEL", "NEW_ORDER"}, p.Types())

	msg, ok := p.Message("NEW_ORDER")
	require.True(t, ok)
	assert.Equal(t, 4+6+12+1+10+13, msg.Width())

	fields := msg.Fields()
	require.Len(t, fields, 6)
	assert.Equal(t, "TR_CODE", fields[0].Name)
	assert.Equal(t, Fixed, fields[0].Type)
	assert.Equal(t, "NO01", fields[0].Fixed)

	// a literal on a number field keeps numeric padding
	assert.Equal(t, Fixed, fields[1].Type)
	assert.Equal(t, PadLeft, fields[1].Pad)
	assert.Equal(t, "0", fields[1].Fill)

	assert.Equal(t, Enum, fields[3].Type)
	assert.Equal(t, "2", fields[3].Map["SELL"])
	assert.Equal(t, Price, fields[5].Type)
	assert.Equal(t, 2, fields[5].Scale)

	cancel, ok := p.Message("CANCEL")
	require.True(t, ok)
	assert.Equal(t, Char, cancel.Body[0].Type)
}

func TestParseTOML(t *testing.T) {
	p, err := Parse([]byte(orderTOML), TOML)
	require.NoError(t, err)

	msg, ok := p.Message("CANCEL")
	require.True(t, ok)
	require.Len(t, msg.Body, 2)
	assert.Equal(t, PadLeft, msg.Body[0].Pad)
	assert.Equal(t, "_", msg.Body[0].Fill)
	assert.Equal(t, "U", msg.Body[1].Map["USER"])
}

func TestLoadPicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "spec.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(orderTOML), 0o600))
	yamlPath := filepath.Join(dir, "spec.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(orderYAML), 0o600))

	p, err := Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"CANCEL"}, p.Types())

	p, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Len(t, p.Types(), 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseRejectsInvalidFields(t *testing.T) {
	cases := map[string]string{
		"zero width":       `messages: { A: { body: [ { name: X, len: 0 } ] } }`,
		"unknown type":     `messages: { A: { body: [ { name: X, len: 1, type: float } ] } }`,
		"enum without map": `messages: { A: { body: [ { name: X, len: 1, type: enum } ] } }`,
		"duplicate name":   `messages: { A: { header: [ { name: X, len: 1 } ], body: [ { name: X, len: 2 } ] } }`,
		"bad pad":          `messages: { A: { body: [ { name: X, len: 1, pad: middle } ] } }`,
		"long fill":        `messages: { A: { body: [ { name: X, len: 1, fill: "ab" } ] } }`,
		"scale on char":    `messages: { A: { body: [ { name: X, len: 1, scale: 2 } ] } }`,
		"negative scale":   `messages: { A: { body: [ { name: X, len: 4, type: number, scale: -1 } ] } }`,
		"fixed no literal": `messages: { A: { body: [ { name: X, len: 1, type: fixed } ] } }`,
		"empty message":    `messages: { A: { body: [] } }`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), YAML)
			require.Error(t, err)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		})
	}
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("messages: {}"), YAML)
	assert.Error(t, err)
}

func TestFieldTypeNames(t *testing.T) {
	for _, name := range []string{"char", "fixed", "number", "price", "enum"} {
		ft, err := ParseFieldType(name)
		require.NoError(t, err)
		assert.Equal(t, name, ft.String())
	}
	assert.True(t, Number.Numeric())
	assert.True(t, Price.Numeric())
	assert.False(t, Enum.Numeric())
}

func TestNewRejectsNilMessage(t *testing.T) {
	_, err := New(map[string]*Message{"A": nil})
	assert.Error(t, err)
}
