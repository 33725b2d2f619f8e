// Package metrics exposes Prometheus counters for frames and bytes moving
// through a connection, the errors seen on the way, and the number of open
// connections.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tradewire"

// Error kinds used as the "kind" label of the errors counter.
const (
	KindFraming = "framing"
	KindDecode  = "decode"
	KindEncode  = "encode"
	KindRead    = "read"
	KindWrite   = "write"
)

// Metrics groups the collectors of one process. A nil *Metrics is valid and
// records nothing, so callers never need to check whether metrics are on.
type Metrics struct {
	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	connections    prometheus.Gauge
	errors         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames written to the peer.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Complete frames reassembled from the peer.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Bytes written to the peer, headers included.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Bytes read from the peer, headers included.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.framesSent, m.framesReceived,
		m.bytesSent, m.bytesReceived,
		m.connections, m.errors,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FrameSent records one frame of n bytes written.
func (m *Metrics) FrameSent(n int) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.bytesSent.Add(float64(n))
}

// FrameReceived records one complete frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

// BytesReceived records n bytes read from the socket.
func (m *Metrics) BytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesReceived.Add(float64(n))
}

// Error counts one error of the given kind.
func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// ConnOpened increments the active connection gauge.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnClosed decrements the active connection gauge.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
