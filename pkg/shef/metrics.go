package shef

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the optional Prometheus instrumentation for a decoding
// run. A nil *Metrics is valid everywhere it's accepted and simply turns
// instrumentation into a no-op, so callers that don't run a metrics server
// (the common case for a one-shot CLI invocation) pay nothing.
type Metrics struct {
	valuesDecoded   prometheus.Counter
	messagesSeen    *prometheus.CounterVec
	recoverableErrs *prometheus.CounterVec
}

// NewMetrics registers the decoder's counters against reg and returns a
// Metrics instance. Pass prometheus.NewRegistry() for an isolated registry,
// or prometheus.DefaultRegisterer to expose via the default /metrics path.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		valuesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shefgo",
			Name:      "values_decoded_total",
			Help:      "Total number of ShefValue records successfully decoded.",
		}),
		messagesSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shefgo",
			Name:      "messages_seen_total",
			Help:      "Total number of SHEF messages seen by kind.",
		}, []string{"kind"}),
		recoverableErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shefgo",
			Name:      "recoverable_errors_total",
			Help:      "Total number of recoverable diagnostics by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.valuesDecoded, m.messagesSeen, m.recoverableErrs)
	return m
}

func (m *Metrics) observeValue() {
	if m == nil {
		return
	}
	m.valuesDecoded.Inc()
}

func (m *Metrics) observeMessage(kind MessageKind) {
	if m == nil {
		return
	}
	m.messagesSeen.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeDiagnostic(kind Kind) {
	if m == nil {
		return
	}
	m.recoverableErrs.WithLabelValues(kind.String()).Inc()
}

// InstrumentedNext wraps Decoder.Next, feeding its outcome to m. Call this
// in place of Next when metrics are enabled.
func (d *Decoder) InstrumentedNext(m *Metrics) bool {
	before := len(d.diags)
	ok := d.Next()
	for _, diag := range d.diags[before:] {
		m.observeDiagnostic(diag.Kind)
	}
	if d.newMsg {
		m.observeMessage(d.lastKind)
		d.newMsg = false
	}
	if ok {
		m.observeValue()
	}
	return ok
}
