package main

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/Zereker/tradewire/codec"
	"github.com/Zereker/tradewire/schema"
)

// buildPayload merges the payload file (if any) with NAME=VALUE pairs.
// Pairs override file values.
func buildPayload(file string, pairs []string) (codec.Payload, error) {
	payload := codec.Payload{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "read payload")
		}
		if err := schema.Unmarshal(data, schema.FormatOf(file), &payload); err != nil {
			return nil, errors.Wrapf(err, "payload %s", file)
		}
	}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("invalid --set %q, want NAME=VALUE", pair)
		}
		payload[name] = value
	}
	return payload, nil
}

// parseHex accepts hex with optional spaces, colons or a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hex")
	}
	return b, nil
}
