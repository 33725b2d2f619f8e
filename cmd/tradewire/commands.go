package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/Zereker/tradewire"
	"github.com/Zereker/tradewire/codec"
	"github.com/Zereker/tradewire/config"
	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/metrics"
	"github.com/Zereker/tradewire/schema"
)

// env is what every command needs: settings, a logger and optional metrics.
type env struct {
	cfg     *config.Config
	logger  *zeroLogger
	metrics *metrics.Metrics
	out     io.Writer
}

func setup(ctx context.Context, c *cli.Context) (*env, error) {
	logger, err := newLogger(c.String("log-level"), c.Bool("log-json"), c.App.ErrWriter)
	if err != nil {
		return nil, err
	}

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if s := c.String("schema"); s != "" {
		cfg.Schema = s
	}

	e := &env{cfg: cfg, logger: logger, out: c.App.Writer}
	if addr := c.String("metrics"); addr != "" {
		srv, err := metrics.NewServer(addr)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "metrics listener")
		}
		e.metrics, err = metrics.New(srv.Registry())
		if err != nil {
			return nil, err
		}
		srv.Start(ctx, func(err error) {
			logger.Error("metrics server stopped", "error", err)
		})
		logger.Info("serving metrics", "addr", srv.Addr())
	}
	return e, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func encodeCmd(c *cli.Context) error {
	e, err := setup(c.Context, c)
	if err != nil {
		return err
	}
	cd, err := e.cfg.Codec()
	if err != nil {
		return err
	}

	payload, err := buildPayload(c.String("payload"), c.StringSlice("set"))
	if err != nil {
		return err
	}

	msgType := c.String("type")
	body, err := cd.Encode(msgType, payload)
	if err != nil {
		return err
	}
	data, err := frame.Wrap(body, e.cfg.Frame())
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "type:  %s\n", msgType)
	fmt.Fprintf(e.out, "width: %d\n", len(body))
	fmt.Fprintf(e.out, "body:  %s\n", tradewire.HexDump(body, 0))
	fmt.Fprintf(e.out, "frame: %s\n", tradewire.HexDump(data, 0))
	return nil
}

func decodeCmd(c *cli.Context) error {
	e, err := setup(c.Context, c)
	if err != nil {
		return err
	}
	cd, err := e.cfg.Codec()
	if err != nil {
		return err
	}

	if c.NArg() == 0 {
		return cli.Exit("decode needs a HEX argument", 2)
	}
	data, err := parseHex(strings.Join(c.Args().Slice(), ""))
	if err != nil {
		return err
	}

	body := data
	if !c.Bool("body") {
		body, err = unwrapOne(data, e.cfg.Frame())
		if err != nil {
			return err
		}
	}

	msgType := c.String("type")
	if msgType == "" {
		msgType, err = cd.Identify(body)
		if err != nil {
			return err
		}
	}

	payload, err := cd.Decode(msgType, body)
	if err != nil {
		return err
	}
	return printPayload(e.out, cd.Protocol(), msgType, payload, c.Bool("unscale"))
}

// unwrapOne returns the body of the single frame held in data.
func unwrapOne(data []byte, cfg frame.Config) ([]byte, error) {
	bodies, err := frame.NewReassembler(cfg).Feed(data)
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, pkgerrors.Errorf("incomplete frame: %d bytes", len(data))
	}
	if len(bodies) > 1 {
		return nil, pkgerrors.Errorf("input holds %d frames, want one", len(bodies))
	}
	total, _ := frame.FrameLen(data[:frame.HeaderLen], cfg)
	if total != len(data) {
		return nil, pkgerrors.Errorf("%d trailing bytes after the frame", len(data)-total)
	}
	return bodies[0], nil
}

// printPayload writes one NAME=VALUE line per field in wire order.
func printPayload(w io.Writer, p *schema.Protocol, msgType string, payload codec.Payload, unscale bool) error {
	msg, ok := p.Message(msgType)
	if !ok {
		return codec.ErrUnknownMessageType
	}

	fmt.Fprintf(w, "type: %s\n", msgType)
	for _, f := range msg.Fields() {
		value := fmt.Sprint(payload[f.Name])
		if unscale && f.Type.Numeric() && f.Scale > 0 {
			if v, err := codec.Unscale(value, f.Scale); err == nil {
				value = v
			}
		}
		fmt.Fprintf(w, "  %s=%s\n", f.Name, value)
	}
	return nil
}

func sendCmd(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx, c)
	if err != nil {
		return err
	}
	cd, err := e.cfg.Codec()
	if err != nil {
		return err
	}

	payload, err := buildPayload(c.String("payload"), c.StringSlice("set"))
	if err != nil {
		return err
	}

	conn, err := tradewire.Dial(ctx, e.cfg.Addr(), append(connOptions(e),
		tradewire.CodecOption(cd),
		tradewire.OnMessageOption(func(m tradewire.Message) error {
			if m.Type == "" {
				fmt.Fprintf(e.out, "recv unidentified body: %s\n", tradewire.HexDump(m.Body, 0))
				return nil
			}
			return printPayload(e.out, cd.Protocol(), m.Type, m.Payload, false)
		}),
	)...)
	if err != nil {
		return pkgerrors.Wrapf(err, "connect %s", e.cfg.Addr())
	}

	msgType := c.String("type")
	return exchange(ctx, conn, c.Int("count"), c.Duration("wait"), func(ctx context.Context) error {
		data, err := conn.Send(ctx, msgType, payload)
		if err != nil {
			return err
		}
		e.logger.Debug("queued", "type", msgType, "len", len(data))
		return nil
	})
}

// exchange runs conn, calls send count times and then keeps reading until
// wait elapses, the peer disconnects or ctx is done.
func exchange(ctx context.Context, conn *tradewire.Conn, count int, wait time.Duration, send func(context.Context) error) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan error, 1)
	go func() {
		done <- conn.Run(runCtx)
	}()

	var err error
	sent := 0
	for ; sent < count; sent++ {
		if err = send(runCtx); err != nil {
			break
		}
	}
	if err != nil {
		stop()
		<-done
		if errors.Is(err, tradewire.ErrConnectionClosed) {
			return pkgerrors.Errorf("connection closed after %d of %d sends", sent, count)
		}
		return err
	}

	select {
	case err = <-done:
	case <-ctx.Done():
		err = <-done
	case <-time.After(wait):
		stop()
		err = <-done
	}

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func rawCmd(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx, c)
	if err != nil {
		return err
	}

	data, err := rawData(c.String("hex"), c.String("text"))
	if err != nil {
		return err
	}
	if c.Bool("frame") {
		if data, err = frame.Wrap(data, e.cfg.Frame()); err != nil {
			return err
		}
	}
	return rawExchange(ctx, e, data, c.Int("count"), c.Duration("wait"))
}

// rawData returns the bytes given either as hex or as text.
func rawData(hexData, text string) ([]byte, error) {
	switch {
	case hexData != "" && text != "":
		return nil, pkgerrors.New("--hex and --text are mutually exclusive")
	case hexData != "":
		return parseHex(hexData)
	case text != "":
		return []byte(text), nil
	default:
		return nil, pkgerrors.New("nothing to send, use --hex or --text")
	}
}

// rawExchange writes data unframed and prints every chunk the peer returns.
func rawExchange(ctx context.Context, e *env, data []byte, count int, wait time.Duration) error {
	conn, err := tradewire.Dial(ctx, e.cfg.Addr(), append(connOptions(e),
		tradewire.RawOption(),
		tradewire.OnMessageOption(func(m tradewire.Message) error {
			printChunk(e.out, m.Body)
			return nil
		}),
	)...)
	if err != nil {
		return pkgerrors.Wrapf(err, "connect %s", e.cfg.Addr())
	}

	return exchange(ctx, conn, count, wait, func(ctx context.Context) error {
		if err := conn.WriteBlocking(ctx, data); err != nil {
			return err
		}
		e.logger.Info("sent", "len", len(data), "hex", tradewire.HexDump(data, 0))
		return nil
	})
}

func printChunk(w io.Writer, b []byte) {
	fmt.Fprintf(w, "recv %d bytes\n  hex:   %s\n  ascii: %s\n", len(b), tradewire.HexDump(b, 0), tradewire.ASCIIDump(b, 0))
}

func serveCmd(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	e, err := setup(ctx, c)
	if err != nil {
		return err
	}

	listen := c.String("listen")
	if listen == "" {
		listen = e.cfg.Addr()
	}
	addr, err := net.ResolveTCPAddr("tcp", listen)
	if err != nil {
		return pkgerrors.Wrap(err, "listen address")
	}

	opts := connOptions(e)
	if c.Bool("raw") {
		opts = append(opts, tradewire.RawOption())
		e.logger.Info("raw mode, echoing chunks byte for byte")
	} else if cd, err := e.cfg.Codec(); err == nil {
		// a schema is optional for the echo peer; with one, received types are logged
		opts = append(opts, tradewire.CodecOption(cd))
	} else if c.String("schema") != "" {
		return err
	} else {
		e.logger.Info("no schema loaded, echoing frames undecoded", "error", err)
	}

	server, err := tradewire.NewServer(addr,
		tradewire.ServerLoggerOption(e.logger),
		tradewire.ServerMetricsOption(e.metrics),
		tradewire.ServerShutdownTimeoutOption(c.Duration("shutdown-timeout")),
	)
	if err != nil {
		return err
	}
	defer server.Close()

	err = server.Serve(ctx, tradewire.NewEchoHandler(ctx, e.logger, opts...))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// connOptions maps the configuration onto connection options. Codec errors
// are logged and the raw body delivered; framing and I/O errors disconnect.
func connOptions(e *env) []tradewire.Option {
	return []tradewire.Option{
		tradewire.FramingOption(e.cfg.Frame()),
		tradewire.LoggerOption(e.logger),
		tradewire.MetricsOption(e.metrics),
		tradewire.IdleTimeoutOption(e.cfg.IdleTimeout),
		tradewire.MessageMaxSize(e.cfg.MaxFrameLength),
		tradewire.HexLogOption(e.cfg.LogSendHex, e.cfg.LogRecvHex),
		tradewire.OnErrorOption(func(err error) tradewire.ErrorAction {
			if codec.IsSchemaError(err) {
				e.logger.Warn("cannot decode message", "error", err)
				return tradewire.Continue
			}
			return tradewire.Disconnect
		}),
	}
}
