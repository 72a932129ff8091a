// Package coremetrics wires the core's observable counters and
// histograms to Prometheus, following the shape of a dialog metrics
// collector. A nil *Collector is safe to call methods on: every
// method is a no-op when c == nil, so components can accept an
// optional collector without branching on every call site.
package coremetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	CallsInitiated *prometheus.CounterVec
	CallsEstablished prometheus.Counter
	CallsTerminated *prometheus.CounterVec
	CallSetupDuration prometheus.Histogram

	TransferBytesSent prometheus.Counter
	TransferBytesReceived prometheus.Counter
	TransfersCancelled *prometheus.CounterVec

	RelayCredentialRequests prometheus.Gauge
}

// NewCollector registers every metric against reg. Pass
// prometheus.NewRegistry in tests to avoid colliding with the
// global default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		CallsInitiated: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "call",
				Name: "initiated_total",
				Help: "Calls initiated, labeled by ICE version.",
			}, []string{"ice_version"}),
		CallsEstablished: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "call",
				Name: "established_total",
				Help: "Calls that reached the Established state.",
			}),
		CallsTerminated: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "call",
				Name: "terminated_total",
				Help: "Calls terminated, labeled by reason.",
			}, []string{"reason"}),
		CallSetupDuration: factory.NewHistogram(prometheus.HistogramOpts{
				Namespace: "mediacore",
				Subsystem: "call",
				Name: "setup_duration_seconds",
				Help: "Time from INVITE to Established.",
				Buckets: []float64{.1,.25,.5, 1, 2, 5, 10, 30},
			}),
		TransferBytesSent: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "filetransfer",
				Name: "bytes_sent_total",
				Help: "Bytes written to the data stream across all transfers.",
			}),
		TransferBytesReceived: factory.NewCounter(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "filetransfer",
				Name: "bytes_received_total",
				Help: "Bytes read from the data stream across all transfers.",
			}),
		TransfersCancelled: factory.NewCounterVec(prometheus.CounterOpts{
				Namespace: "mediacore",
				Subsystem: "filetransfer",
				Name: "cancelled_total",
				Help: "File transfers cancelled, labeled by initiator (local/remote).",
			}, []string{"initiator"}),
		RelayCredentialRequests: factory.NewGauge(prometheus.GaugeOpts{
				Namespace: "mediacore",
				Subsystem: "avedge",
				Name: "credential_requests_in_flight",
				Help: "A/V Edge SERVICE credential requests currently awaiting a response.",
			}),
	}
}

func (c *Collector) CallInitiated(iceVersion string) {
	if c == nil {
		return
	}
	c.CallsInitiated.WithLabelValues(iceVersion).Inc()
}

func (c *Collector) CallEstablished(setupSeconds float64) {
	if c == nil {
		return
	}
	c.CallsEstablished.Inc()
	c.CallSetupDuration.Observe(setupSeconds)
}

func (c *Collector) CallTerminated(reason string) {
	if c == nil {
		return
	}
	c.CallsTerminated.WithLabelValues(reason).Inc()
}

func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.TransferBytesSent.Add(float64(n))
}

func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.TransferBytesReceived.Add(float64(n))
}

func (c *Collector) TransferCancelled(initiator string) {
	if c == nil {
		return
	}
	c.TransfersCancelled.WithLabelValues(initiator).Inc()
}

func (c *Collector) RelayRequestStarted() {
	if c == nil {
		return
	}
	c.RelayCredentialRequests.Inc()
}

func (c *Collector) RelayRequestFinished() {
	if c == nil {
		return
	}
	c.RelayCredentialRequests.Dec()
}
