package tradewire

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/Zereker/tradewire/metrics"
)

// Handler is the interface for handling incoming TCP connections.
type Handler interface {
	// Handle is called in its own goroutine for each new connection and
	// owns the connection until it returns.
	Handle(conn *net.TCPConn)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(conn *net.TCPConn)

// Handle calls f(conn).
func (f HandlerFunc) Handle(conn *net.TCPConn) {
	f(conn)
}

// Server accepts connections for a mock exchange or echo peer.
type Server struct {
	listener        *net.TCPListener
	logger          Logger
	metrics         *metrics.Metrics
	shutdownTimeout time.Duration

	mu          sync.Mutex
	shutdown    bool
	shutdownNow chan struct{} // closed by Close to bypass the shutdown timeout
	closeOnce   sync.Once
	handlers    sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerMetricsOption tracks the number of connections being handled.
func ServerMetricsOption(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout.
// When the context is canceled, the server waits up to this duration for
// running handlers to return before Serve returns. Default is 0
// (return as soon as the listener is closed).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// NewServer creates a new TCP server bound to the specified address.
// Returns an error if the address cannot be bound.
func NewServer(addr *net.TCPAddr, opts ...ServerOption) (*Server, error) {
	listener, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		listener:    listener,
		logger:      defaultLogger(),
		shutdownNow: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Serve starts accepting connections and dispatching them to the handler.
// It blocks until the context is canceled or an unrecoverable error occurs.
// Handlers should watch the same context to finish their connections. Call
// Close to stop without waiting for the shutdown timeout.
func (s *Server) Serve(ctx context.Context, handler Handler) error {
	s.logger.Info("server started", "addr", s.listener.Addr())

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = s.listener.SetDeadline(time.Now())
	}()

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			s.mu.Lock()
			isShutdown := s.shutdown
			s.mu.Unlock()

			if isShutdown {
				s.drain()
				s.logger.Info("server stopped", "addr", s.listener.Addr())
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			s.logger.Error("accept error", "error", err)
			return err
		}

		s.logger.Debug("accepted connection", "remote_addr", conn.RemoteAddr())
		_ = conn.SetNoDelay(true)

		s.handlers.Add(1)
		s.metrics.ConnOpened()
		go func() {
			defer s.handlers.Done()
			defer s.metrics.ConnClosed()
			handler.Handle(conn)
		}()
	}
}

// drain waits for running handlers, bounded by the shutdown timeout.
func (s *Server) drain() {
	if s.shutdownTimeout <= 0 {
		return
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.Warn("shutdown timeout expired with handlers still running")
	case <-s.shutdownNow:
		s.logger.Debug("shutdown timeout bypassed via Close()")
	}
}

// Close stops the server by closing the underlying listener.
// If a shutdown timeout is pending, Close bypasses it.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		close(s.shutdownNow)
	})

	return s.listener.Close()
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
