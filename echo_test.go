package tradewire

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Zereker/tradewire/frame"
	"github.com/Zereker/tradewire/metrics"
)

func startEcho(t *testing.T, ctx context.Context, opts ...Option) (*Server, *EchoHandler) {
	t.Helper()

	server := newTestServer(t)
	handler := NewEchoHandler(ctx, &mockLogger{}, opts...)
	go server.Serve(ctx, handler)
	return server, handler
}

func TestEchoHandler_EchoesFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, _ := startEcho(t, ctx)
	defer server.Close()

	client, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	// one frame split across writes, then two frames in a single write
	stream := wrap(t, "hello")
	if _, err := client.Write(stream[:3]); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := client.Write(append(stream[3:], append(wrap(t, "a"), wrap(t, "b")...)...)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for _, want := range []string{"hello", "a", "b"} {
		if got := readFrame(t, client); string(got) != want {
			t.Errorf("echo = %q, want %q", got, want)
		}
	}
}

func TestEchoHandler_ASCIIFraming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, _ := startEcho(t, ctx, FramingOption(frame.Config{Framing: frame.ASCII}))
	defer server.Close()

	client, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("0003abc")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 7)
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != "0003abc" {
		t.Errorf("echo = %q, want 0003abc", buf)
	}
}

func TestEchoHandler_DropsPreviousConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, handler := startEcho(t, ctx)
	defer server.Close()

	first, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer first.Close()

	if _, err := first.Write(wrap(t, "one")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	readFrame(t, first)

	second, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer second.Close()

	if _, err := second.Write(wrap(t, "two")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readFrame(t, second); string(got) != "two" {
		t.Errorf("echo = %q, want two", got)
	}

	// the first client is disconnected by the server
	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := first.Read(make([]byte, 1)); err == nil {
		t.Error("expected the previous connection to be closed")
	}

	active := handler.Active()
	if active == nil || active.Addr().String() != second.LocalAddr().String() {
		t.Errorf("active connection = %v, want %v", active, second.LocalAddr())
	}
}

func TestEchoHandler_RawEchoesChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := &mockLogger{}
	server := newTestServer(t)
	defer server.Close()
	go server.Serve(ctx, NewEchoHandler(ctx, logger, RawOption()))

	client, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()

	// no length header; a framed peer would reject this
	sent := []byte("ab\x00\x01cd")
	if _, err := client.Write(sent); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, len(sent))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(buf) != string(sent) {
		t.Errorf("echo = %q, want %q", buf, sent)
	}

	entry, ok := logger.find("info", "echo")
	if !ok {
		t.Fatal("expected an echo log entry")
	}
	if got := entry.arg("hex"); got != "61 62 00 01 63 64" {
		t.Errorf("hex = %v", got)
	}
	if got := entry.arg("ascii"); got != "ab..cd" {
		t.Errorf("ascii = %v", got)
	}
}

func TestEchoHandler_ReleasesFloodingClientOnReplace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics.New failed: %v", err)
	}

	server := newTestServer(t, ServerMetricsOption(m))
	defer server.Close()
	go server.Serve(ctx, NewEchoHandler(ctx, &mockLogger{}, BufferSizeOption(1)))

	flooder, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer flooder.Close()

	// writes large frames and never reads the echoes
	chunk := wrap(t, strings.Repeat("x", 60*1024))
	go func() {
		for i := 0; i < 400; i++ {
			if _, err := flooder.Write(chunk); err != nil {
				return
			}
		}
	}()
	time.Sleep(300 * time.Millisecond)

	second, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer second.Close()

	if _, err := second.Write(wrap(t, "ping")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readFrame(t, second); string(got) != "ping" {
		t.Errorf("echo = %q, want ping", got)
	}

	// only the second client is still being served
	expected := `
# HELP tradewire_connections_active Connections currently being served.
# TYPE tradewire_connections_active gauge
tradewire_connections_active 1
`
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "tradewire_connections_active")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("replaced handler still running: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
