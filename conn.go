// Package tradewire connects to a trading peer over TCP and exchanges
// fixed-width messages wrapped in 4-byte length frames.
//
// A Conn reads the socket in chunks, reassembles complete frames regardless
// of how the stream was split, identifies and decodes each body with the
// configured codec, and hands the result to the message callback. Writes go
// through a bounded send queue drained by a single writer goroutine.
package tradewire

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/tradewire/codec"
	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/metrics"
)

// Errors returned by connection operations.
var (
	// ErrInvalidCodec is returned by Send when no codec is configured.
	ErrInvalidCodec = errors.New("invalid codec callback")
	// ErrInvalidOnMessage is returned when no message handler is provided.
	ErrInvalidOnMessage = errors.New("invalid on message callback")
)

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrBufferFull is returned when the send queue is full and cannot accept
// more frames. The peer is not reading fast enough; use WriteBlocking or
// WriteTimeout to wait for room.
var ErrBufferFull = errors.New("send buffer full")

// Conn is a single framed TCP connection to a trading peer.
type Conn struct {
	rawConn     *net.TCPConn
	reassembler *frame.Reassembler
	logger      Logger
	metrics     *metrics.Metrics

	opts options

	sendMsg  chan []byte
	closed   atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

// Default configuration values.
const (
	// defaultBufferSize is the default size of the send queue.
	defaultBufferSize = 16
	// defaultMaxFrameLength is the default maximum size of a single frame (1MB).
	defaultMaxFrameLength = 1024 * 1024
	// defaultReadBufferSize is the default size of a single socket read.
	defaultReadBufferSize = 4096
)

// Dial connects to addr and wraps the socket in a Conn. The connection does
// nothing until Run is called.
func Dial(ctx context.Context, addr string, opt ...Option) (*Conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	tcp, ok := raw.(*net.TCPConn)
	if !ok {
		raw.Close()
		return nil, errors.New("dial: not a TCP connection")
	}
	_ = tcp.SetNoDelay(true)

	conn, err := NewConn(tcp, opt...)
	if err != nil {
		tcp.Close()
		return nil, err
	}
	return conn, nil
}

// NewConn creates a new connection wrapper around the given TCP connection.
// It applies the provided options and validates them before returning.
// Returns an error if the required onMessage option is missing.
func NewConn(conn *net.TCPConn, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	err := checkOptions(&opts)
	if err != nil {
		return nil, err
	}

	return newConnWithOptions(conn, opts), nil
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.bufferSize <= 0 {
		opts.bufferSize = defaultBufferSize
	}

	if opts.maxFrameLength <= 0 {
		opts.maxFrameLength = defaultMaxFrameLength
	}

	if opts.readBufferSize <= 0 {
		opts.readBufferSize = defaultReadBufferSize
	}

	if opts.onMessage == nil {
		return ErrInvalidOnMessage
	}

	if opts.idleTimeout < 0 {
		opts.idleTimeout = 0
	}

	if opts.framing.Framing == "" {
		opts.framing.Framing = frame.Binary
	}

	if opts.framing.Endian == "" {
		opts.framing.Endian = frame.BigEndian
	}

	if opts.onError == nil {
		opts.onError = func(err error) ErrorAction { return Disconnect }
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

// newConnWithOptions creates a new Conn with the given options.
func newConnWithOptions(c *net.TCPConn, opts options) *Conn {
	return &Conn{
		rawConn:     c,
		reassembler: frame.NewReassembler(opts.framing, frame.MaxFrameLen(opts.maxFrameLength)),
		logger:      opts.logger,
		metrics:     opts.metrics,
		opts:        opts,
		sendMsg:     make(chan []byte, opts.bufferSize),
		done:        make(chan struct{}),
	}
}

// Run starts the connection's read and write loops.
// It blocks until the peer closes the connection, an error is not
// suppressed by the error callback, or the context is canceled.
// The connection is closed when Run returns.
func (c *Conn) Run(ctx context.Context) error {
	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options", "addr", c.Addr(),
		"framing", c.opts.framing.Framing,
		"endian", c.opts.framing.Endian,
		"length_includes_header", c.opts.framing.LengthIncludesHeader,
		"buffer_size", c.opts.bufferSize,
		"max_frame_length", c.opts.maxFrameLength,
		"idle_timeout", c.opts.idleTimeout)

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	group, child := errgroup.WithContext(ctx)

	// a blocked Read only returns once its deadline passes; queued writers
	// give up once the loops are stopping
	stop := context.AfterFunc(child, func() {
		c.shutdown()
		_ = c.rawConn.SetReadDeadline(time.Now())
	})
	defer stop()

	group.Go(func() error {
		return c.readLoop(child)
	})

	group.Go(func() error {
		return c.writeLoop(child)
	})

	err := group.Wait()
	if err != nil && c.closed.Load() && parent.Err() == nil {
		err = ErrConnectionClosed
	}
	c.closeConn()

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, ErrConnectionClosed):
		c.logger.Info("connection closed", "addr", c.Addr())
	case errors.Is(err, io.EOF):
		c.logger.Info("connection closed by peer", "addr", c.Addr())
	default:
		c.logger.Info("connection closed with error", "addr", c.Addr(), "error", err)
	}

	return err
}

// Close gracefully closes the connection.
// It stops Run, which then returns ErrConnectionClosed, wakes writers
// waiting for room in the send queue and closes the underlying TCP
// connection. Safe to call multiple times and before Run.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	c.shutdown()
	return c.rawConn.Close()
}

// shutdown releases everything waiting on the connection.
func (c *Conn) shutdown() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Send encodes payload as msgType, wraps it in a frame and waits until the
// frame is queued or ctx is done. The frame bytes are returned so callers
// can log exactly what went on the wire.
func (c *Conn) Send(ctx context.Context, msgType string, payload codec.Payload) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	if c.opts.codec == nil {
		return nil, ErrInvalidCodec
	}

	body, err := c.opts.codec.Encode(msgType, payload)
	if err != nil {
		c.metrics.Error(metrics.KindEncode)
		return nil, err
	}

	data, err := c.wrap(body)
	if err != nil {
		c.metrics.Error(metrics.KindEncode)
		return nil, err
	}

	select {
	case c.sendMsg <- data:
		return data, nil
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write frames body and queues it without blocking.
//
// Returns:
//   - nil: frame was queued (not yet sent)
//   - ErrBufferFull: send queue is full, frame was NOT queued
//   - ErrConnectionClosed: connection is closed
//   - frame.ErrLengthOverflow: body does not fit the length header
func (c *Conn) Write(body []byte) error {
	data, err := c.wrap(body)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// WriteBlocking frames body and blocks until it is queued or the context is
// canceled.
func (c *Conn) WriteBlocking(ctx context.Context, body []byte) error {
	data, err := c.wrap(body)
	if err != nil {
		return err
	}

	select {
	case c.sendMsg <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WriteTimeout frames body and waits up to timeout for room in the send
// queue. ErrBufferFull is returned when the timeout expires.
func (c *Conn) WriteTimeout(body []byte, timeout time.Duration) error {
	data, err := c.wrap(body)
	if err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sendMsg <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-timer.C:
		return ErrBufferFull
	}
}

func (c *Conn) wrap(body []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	if c.opts.raw {
		return append([]byte(nil), body...), nil
	}
	return frame.Wrap(body, c.opts.framing)
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// readLoop reads the socket in chunks and dispatches every frame completed
// by a chunk before reading the next one.
func (c *Conn) readLoop(ctx context.Context) error {
	buf := make([]byte, c.opts.readBufferSize)
	for {
		// the idle deadline goes first so it cannot override the immediate
		// deadline set on cancellation
		if c.opts.idleTimeout > 0 {
			_ = c.rawConn.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := c.rawConn.Read(buf)
		if n > 0 {
			c.metrics.BytesReceived(n)
			if ferr := c.feed(buf[:n]); ferr != nil {
				return ferr
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.closed.Load() {
				return ErrConnectionClosed
			}
			if errors.Is(err, io.EOF) {
				return io.EOF
			}

			c.logger.Debug("read error", "addr", c.Addr(), "error", err)
			c.metrics.Error(metrics.KindRead)
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && c.opts.onError(err) == Continue {
				continue
			}
			return err
		}
	}
}

// feed runs chunk through the reassembler. Frames completed before a
// corrupt header are still delivered.
func (c *Conn) feed(chunk []byte) error {
	if c.opts.raw {
		c.metrics.FrameReceived()
		if c.opts.logRecvHex {
			c.logger.Info("recv", "addr", c.Addr(), "len", len(chunk), "hex", HexDump(chunk, defaultHexDumpLimit))
		}
		return c.opts.onMessage(Message{Body: append([]byte(nil), chunk...)})
	}

	bodies, ferr := c.reassembler.Feed(chunk)
	for _, body := range bodies {
		if err := c.dispatch(body); err != nil {
			return err
		}
	}

	if ferr != nil {
		c.logger.Warn("framing error, receive buffer discarded", "addr", c.Addr(), "error", ferr)
		c.metrics.Error(metrics.KindFraming)
		if c.opts.onError(ferr) == Disconnect {
			return ferr
		}
	}
	return nil
}

// dispatch decodes one body and passes it to the message callback. A body
// that cannot be decoded is delivered raw when the error callback continues.
func (c *Conn) dispatch(body []byte) error {
	c.metrics.FrameReceived()
	if c.opts.logRecvHex {
		c.logger.Info("recv", "addr", c.Addr(), "len", len(body), "hex", HexDump(body, defaultHexDumpLimit))
	}

	msg := Message{Body: body}
	if c.opts.codec != nil {
		msgType, err := c.opts.codec.Identify(body)
		if err == nil {
			msg.Payload, err = c.opts.codec.Decode(msgType, body)
		}
		if err != nil {
			c.logger.Debug("decode error", "addr", c.Addr(), "error", err)
			c.metrics.Error(metrics.KindDecode)
			if c.opts.onError(err) == Disconnect {
				return err
			}
			msg.Payload = nil
		} else {
			msg.Type = msgType
		}
	}

	return c.opts.onMessage(msg)
}

// writeLoop continuously sends frames from the send queue to the connection.
// Returns when the context is canceled or an unrecoverable error occurs.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data := <-c.sendMsg:
			if err := c.write(data); err != nil {
				return err
			}
		}
	}
}

// write sends one frame to the connection with a deadline.
// If an error occurs and onError returns Disconnect, the error is propagated.
// Otherwise, the error is suppressed and writing continues.
func (c *Conn) write(data []byte) error {
	if c.opts.idleTimeout > 0 {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout))
	}

	_, err := c.rawConn.Write(data)
	if err != nil {
		c.logger.Debug("write error", "addr", c.Addr(), "error", err)
		c.metrics.Error(metrics.KindWrite)
		if c.opts.onError(err) == Disconnect {
			return err
		}
		return nil
	}

	c.metrics.FrameSent(len(data))
	if c.opts.logSendHex {
		c.logger.Info("send", "addr", c.Addr(), "len", len(data), "hex", HexDump(data, defaultHexDumpLimit))
	}
	return nil
}

// closeConn marks the connection as closed and closes the underlying TCP connection.
func (c *Conn) closeConn() {
	c.closed.Store(true)
	c.shutdown()
	c.rawConn.Close()
}
