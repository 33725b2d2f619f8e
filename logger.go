package tradewire

import (
	"encoding/hex"
	"log/slog"
	"strings"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default slog logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// defaultHexDumpLimit is how many bytes HexDump renders before eliding.
const defaultHexDumpLimit = 256

// HexDump renders b as space separated hex pairs. Output stops after max
// bytes and ends with "..." when b is longer; max <= 0 means no limit.
func HexDump(b []byte, max int) string {
	more := max > 0 && len(b) > max
	if more {
		b = b[:max]
	}

	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(hex.EncodeToString(b[i : i+1]))
	}
	if more {
		sb.WriteString(" ...")
	}
	return sb.String()
}

// ASCIIDump renders b as text, with every byte outside printable ASCII shown
// as '.'. Output stops after max bytes like HexDump.
func ASCIIDump(b []byte, max int) string {
	more := max > 0 && len(b) > max
	if more {
		b = b[:max]
	}

	out := make([]byte, len(b), len(b)+4)
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		out[i] = c
	}
	if more {
		out = append(out, " ..."...)
	}
	return string(out)
}
