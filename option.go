package tradewire

import (
	"time"

	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/metrics"
)

// ErrorAction defines the action to take when an error occurs.
type ErrorAction int

const (
	// Disconnect closes the connection when an error occurs.
	Disconnect ErrorAction = iota
	// Continue suppresses the error and continues processing.
	Continue
)

// options holds the configuration for a connection.
type options struct {
	codec   Codec
	framing frame.Config
	logger  Logger
	metrics *metrics.Metrics

	onMessage func(message Message) error
	// onError is called for framing, decode, read and write errors.
	// Returns Disconnect to close the connection, Continue to suppress the error.
	onError func(error) ErrorAction

	bufferSize     int           // size of the send queue
	maxFrameLength int           // largest accepted frame, header included
	readBufferSize int           // size of a single socket read
	idleTimeout    time.Duration // read/write deadline; zero disables it

	logSendHex bool
	logRecvHex bool

	raw bool // no length headers in either direction
}

// Option is a function that configures connection options.
type Option func(*options)

// CodecOption sets the message codec used by Send and to decode received
// frames. Without a codec the connection moves raw bodies only.
func CodecOption(codec Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

// FramingOption sets the length header format. The default is a big endian
// binary header that excludes itself.
func FramingOption(cfg frame.Config) Option {
	return func(o *options) {
		o.framing = cfg
	}
}

// BufferSizeOption returns an Option that sets the size of the send queue.
// A larger buffer allows more frames to be queued before Write reports
// ErrBufferFull.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// IdleTimeoutOption closes the connection when nothing is read or written
// for the given duration. Zero, the default, waits forever.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// MessageMaxSize sets the largest frame, header included, the connection
// accepts. A header announcing more is treated as a framing error.
func MessageMaxSize(size int) Option {
	return func(o *options) {
		o.maxFrameLength = size
	}
}

// ReadBufferSizeOption sets how many bytes a single socket read may return.
func ReadBufferSizeOption(size int) Option {
	return func(o *options) {
		o.readBufferSize = size
	}
}

// OnErrorOption returns an Option that sets the error callback.
// Return Disconnect to close the connection, or Continue to suppress the error.
func OnErrorOption(cb func(error) ErrorAction) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// OnMessageOption returns an Option that sets the message handler callback.
// This callback is required and is invoked for each received frame, in
// stream order.
func OnMessageOption(cb func(Message) error) Option {
	return func(o *options) {
		o.onMessage = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// MetricsOption records frames, bytes and errors in m.
func MetricsOption(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// HexLogOption logs a hex dump of every frame sent and/or received at info
// level.
func HexLogOption(send, recv bool) Option {
	return func(o *options) {
		o.logSendHex = send
		o.logRecvHex = recv
	}
}

// RawOption turns framing off. Every chunk read from the socket is delivered
// as one Message with no type, and writes go out exactly as given. The
// codec, if any, is used by Send only.
func RawOption() Option {
	return func(o *options) {
		o.raw = true
	}
}
