package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// zeroLogger adapts a zerolog.Logger to the key/value Logger interface of
// the transport.
type zeroLogger struct {
	z zerolog.Logger
}

func newLogger(level string, json bool, out io.Writer) (*zeroLogger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	if out == nil {
		out = os.Stderr
	}
	if !json {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &zeroLogger{z: z}, nil
}

func (l *zeroLogger) Debug(msg string, args ...any) { l.emit(l.z.Debug(), msg, args) }
func (l *zeroLogger) Info(msg string, args ...any)  { l.emit(l.z.Info(), msg, args) }
func (l *zeroLogger) Warn(msg string, args ...any)  { l.emit(l.z.Warn(), msg, args) }
func (l *zeroLogger) Error(msg string, args ...any) { l.emit(l.z.Error(), msg, args) }

func (l *zeroLogger) emit(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 == len(args) {
			e = e.Str("!BADKEY", key)
			break
		}
		switch v := args[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
