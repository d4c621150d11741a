package shef

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// §8 property 1: decode(emit_format1([v])) == [v], modulo the fields
// Format 1 doesn't carry (Qualifier, TimeSeries letter, Revised, source
// zone) which the layout intentionally omits or normalizes.
func TestProcessedDecoderRoundTripsFormat1(t *testing.T) {
	dec := newDecoder(t, ".E KEYO2 20251107 Z DH1400/HT/DIH01/637.74/637.73\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 2)

	emitter := NewEmitter(Format1)
	text := emitter.EmitAll(values)

	pdec := NewProcessedDecoder(strings.NewReader(text), Format1, NewParamRegistry())
	var got []*Value
	for pdec.Next() {
		got = append(got, pdec.Value())
	}
	require.NoError(t, pdec.Err())
	require.Empty(t, pdec.Diagnostics())
	require.Len(t, got, 2)

	for i, v := range values {
		assert.Equal(t, v.Location, got[i].Location)
		assert.True(t, v.ObsTime.Equal(got[i].ObsTime))
		assert.Equal(t, v.ParamCode, got[i].ParamCode)
		assert.Equal(t, v.DurationValue, got[i].DurationValue)
		assert.InDelta(t, v.Value, got[i].Value, 1e-6)
		assert.Equal(t, v.TimeSeriesCode, got[i].TimeSeriesCode)
		assert.InDelta(t, v.Probability, got[i].Probability, 1e-9, "the Z probability bucket survives via ParamCode even though its numeric column prints 0000")
	}
}

// §8 property 2: same round-trip for Format 2, whose comment column is
// truncated at 66 characters by the emitter itself.
func TestProcessedDecoderRoundTripsFormat2(t *testing.T) {
	dec := newDecoder(t, ".A TNSO2 20240630 DH0000/PC 0.00\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 1)

	emitter := NewEmitter(Format2)
	text := emitter.EmitAll(values)

	pdec := NewProcessedDecoder(strings.NewReader(text), Format2, NewParamRegistry())
	require.True(t, pdec.Next())
	got := pdec.Value()
	require.NoError(t, pdec.Err())

	assert.Equal(t, values[0].Location, got.Location)
	assert.True(t, values[0].ObsTime.Equal(got.ObsTime))
	assert.Equal(t, values[0].ParamCode, got.ParamCode)
	assert.InDelta(t, values[0].Value, got.Value, 1e-6)
	assert.Equal(t, values[0].TimeSeriesCode, got.TimeSeriesCode)
}

func TestProcessedDecoderSkipsUnparseableLineAndRecordsDiagnostic(t *testing.T) {
	pdec := NewProcessedDecoder(strings.NewReader("not a format 1 line\n"), Format1, NewParamRegistry())
	assert.False(t, pdec.Next())
	require.Len(t, pdec.Diagnostics(), 1)
	assert.Equal(t, KindSyntax, pdec.Diagnostics()[0].Kind)
}
