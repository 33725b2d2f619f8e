package tradewire

import (
	"context"
	"net"
	"sync"
)

// EchoHandler is a mock exchange that sends every received frame body back
// to its sender, wrapped in the connection's framing. With RawOption among
// its options it echoes every chunk byte for byte instead, whatever it
// holds. It keeps a single client: a new connection drops the previous one.
type EchoHandler struct {
	ctx    context.Context
	logger Logger
	opts   []Option

	mu      sync.Mutex
	current *Conn
}

// NewEchoHandler returns a handler whose connections run until ctx is done.
// opts configure every accepted connection; the message callback is
// provided by the handler and must not be among them.
func NewEchoHandler(ctx context.Context, logger Logger, opts ...Option) *EchoHandler {
	if logger == nil {
		logger = defaultLogger()
	}
	return &EchoHandler{ctx: ctx, logger: logger, opts: opts}
}

// Handle serves raw until the peer disconnects or a newer client arrives.
func (h *EchoHandler) Handle(raw *net.TCPConn) {
	var conn *Conn
	echo := OnMessageOption(func(m Message) error {
		switch {
		case conn.opts.raw:
			h.logger.Info("echo", "addr", conn.Addr(), "len", m.Length(),
				"hex", HexDump(m.Body, defaultHexDumpLimit),
				"ascii", ASCIIDump(m.Body, defaultHexDumpLimit))
		case m.Type != "":
			h.logger.Info("echo", "addr", conn.Addr(), "type", m.Type, "len", m.Length())
		default:
			h.logger.Info("echo", "addr", conn.Addr(), "len", m.Length())
		}
		// returns ErrConnectionClosed once conn is dropped or stopping
		return conn.WriteBlocking(h.ctx, m.Body)
	})

	opts := append(append([]Option{}, h.opts...), LoggerOption(h.logger), echo)
	conn, err := NewConn(raw, opts...)
	if err != nil {
		h.logger.Error("rejecting connection", "addr", raw.RemoteAddr(), "error", err)
		raw.Close()
		return
	}

	h.mu.Lock()
	prev := h.current
	h.current = conn
	h.mu.Unlock()

	if prev != nil {
		h.logger.Warn("dropping previous connection", "addr", prev.Addr())
		prev.Close()
	}

	_ = conn.Run(h.ctx)

	h.mu.Lock()
	if h.current == conn {
		h.current = nil
	}
	h.mu.Unlock()
}

// Active returns the connection currently served, or nil.
func (h *EchoHandler) Active() *Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}
