package shef

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedNextCountsValuesMessagesAndDiagnostics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	dec := newDecoder(t, ".A LOC1 20250101 Z /HG 5.0/XX bad/TA 72/\n.A LOC1 20250101 Z /TA 73/\n", Mode{Strict: false})

	var values []*Value
	for dec.InstrumentedNext(m) {
		values = append(values, dec.Value())
	}
	require.NoError(t, dec.Err())
	require.Len(t, values, 3, "one RegistryMissError among otherwise-good tokens across two .A messages")

	assert.Equal(t, float64(3), testutil.ToFloat64(m.valuesDecoded))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.messagesSeen.WithLabelValues("A")), "one increment per message pulled from the tokenizer, not per value")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.recoverableErrs.WithLabelValues(KindRegistryMiss.String())))
}

func TestNilMetricsObserversAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeValue()
		m.observeMessage(KindA)
		m.observeDiagnostic(KindSyntax)
	})
}
