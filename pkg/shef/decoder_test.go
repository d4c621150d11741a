package shef

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDecoder(t *testing.T, input string, mode Mode) *Decoder {
	t.Helper()
	tok := NewTokenizer(strings.NewReader(input))
	reg := NewParamRegistry()
	tm := NewTimeModel(TimeModeModern)
	return NewDecoder(tok, reg, tm, mode)
}

func decodeAll(t *testing.T, dec *Decoder) []*Value {
	t.Helper()
	var out []*Value
	for dec.Next() {
		out = append(out, dec.Value())
	}
	return out
}

// S1: an equal-interval .E series expands to one Value per listed reading,
// each offset by i*DI from the header time, with an instantaneous ('I')
// reading's duration resolved to the variable sentinel.
func TestDecodeScenarioS1EqualIntervalSeries(t *testing.T) {
	dec := newDecoder(t, ".E KEYO2 20251107 Z DH1400/HT/DIH01/637.74/637.73\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 2)

	v0 := values[0]
	assert.Equal(t, "KEYO2", v0.Location)
	assert.True(t, time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC).Equal(v0.ObsTime))
	assert.Equal(t, "HTRZZZ", v0.ParamCode)
	assert.Equal(t, -1, v0.DurationValue, "an instantaneous reading has no duration window")
	assert.InDelta(t, 637.74, v0.Value, 1e-9)
	assert.Equal(t, byte('Z'), v0.Qualifier)
	assert.Equal(t, 1, v0.TimeSeriesCode)

	v1 := values[1]
	assert.True(t, time.Date(2025, 11, 7, 15, 0, 0, 0, time.UTC).Equal(v1.ObsTime), "second reading is one DIH01 step later")
	assert.InDelta(t, 637.73, v1.Value, 1e-9)
	assert.Equal(t, 2, v1.TimeSeriesCode)
}

// S3: a retained comment attached to one value in a .A body carries forward
// to later values in the same message that don't supply their own.
func TestDecodeScenarioS3RetainedCommentCarriesForward(t *testing.T) {
	dec := newDecoder(t, ".A TNSO2 20240630 DH0000/PC 0.00\"15:OKMN\"/TA 78.5\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 2)

	assert.Equal(t, "PCRZZZ", values[0].ParamCode)
	assert.InDelta(t, 0.0, values[0].Value, 1e-9)
	assert.Equal(t, "15:OKMN", values[0].Comment)

	assert.Equal(t, "TARZZZ", values[1].ParamCode)
	assert.InDelta(t, 78.5, values[1].Value, 1e-9)
	assert.Equal(t, "15:OKMN", values[1].Comment, "TA inherits PC's retained comment")
}

// S4: an explicit "M" token decodes to the missing sentinel, not a parse
// error, and carries the FlagMissing bit.
func TestDecodeScenarioS4MissingSentinel(t *testing.T) {
	dec := newDecoder(t, ".A ABCD1 20250101 Z DH12/PC M\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 1)

	v := values[0]
	assert.InDelta(t, Sentinel, v.Value, 1e-9)
	assert.True(t, v.Flags.Has(FlagMissing))
	assert.True(t, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).Equal(v.ObsTime))
}

// S5: in permissive mode, a body with one unregistered PE token among
// otherwise-good tokens yields every decodable value plus one recoverable
// RegistryMissError diagnostic, never a SyntaxError, for the bad token.
func TestDecodeScenarioS5PermissiveRecoversUnknownPE(t *testing.T) {
	dec := newDecoder(t, ".A LOC1 20250101 Z /HG 5.0/XX bad/TA 72/\n", Mode{Strict: false})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 2)
	assert.Equal(t, "HGRZZZ", values[0].ParamCode)
	assert.Equal(t, "TARZZZ", values[1].ParamCode)

	diags := dec.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindRegistryMiss, diags[0].Kind)
	assert.Equal(t, "XX", diags[0].PECode)
	assert.True(t, diags[0].Recoverable())
}

// S6: the same input under strict mode rejects the entire message on any
// diagnostic, producing zero values.
func TestDecodeScenarioS6StrictRejectsMessageWithDiagnostic(t *testing.T) {
	dec := newDecoder(t, ".A LOC1 20250101 Z /HG 5.0/XX bad/TA 72/\n", Mode{Strict: true})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	assert.Empty(t, values)
}

func TestDecodeMaxErrorsStopsDecoding(t *testing.T) {
	tok := NewTokenizer(strings.NewReader(
		".A L1 20250101 Z /TA 72/XX bad/\n" +
			".A L2 20250101 Z /TA 73/XX bad/\n" +
			".A L3 20250101 Z /TA 74/XX bad/\n",
	))
	reg := NewParamRegistry()
	_, err := reg.MergeSHEFPARM("Max Number Of Errors\n2\n")
	require.NoError(t, err)
	dec := NewDecoder(tok, reg, NewTimeModel(TimeModeModern), Mode{})

	values := decodeAll(t, dec)
	assert.True(t, errors.Is(dec.Err(), ErrMaxErrors))
	assert.Len(t, values, 2, "decoding stops once the threshold is reached, after flushing values already decoded")
}

func TestParseHeaderLineDoesNotConsumeDFieldAsZone(t *testing.T) {
	dec := newDecoder(t, "", Mode{})
	rec := MessageRecord{Kind: KindA, Header: ".A LOC 20240630 DH0000/PC 1.0", StartLine: 1}
	ctx, _, rest, diag := dec.parseHeaderLine(rec)
	require.Nil(t, diag)
	assert.Equal(t, "Z", ctx.Zone, "no zone token present, defaults to Z")
	assert.Equal(t, "DH0000/PC 1.0", rest, "the D-field's leading letters must not be consumed as a zone")
}

// A send code ("HN") expands to a different PE than its own two letters
// (registry table "HN" -> "HGIRZNZ") and implies its own duration letter,
// both of which a plain PE-prefixed token would have to spell out (§4.1
// "Send Codes Or Duration Defaults Other Than I").
func TestDecodeSendCodeExpandsToDifferentPEAndDuration(t *testing.T) {
	dec := newDecoder(t, ".A KEYO2 20250101 Z DH12/HN 58.2\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 1)

	v := values[0]
	assert.Equal(t, "HGRZNZ", v.ParamCode, "HN send code maps to PE HG, extremum N")
	assert.Equal(t, byte('I'), v.DurationCode)
	assert.Equal(t, -1, v.DurationValue, "the send code's implied duration letter is instantaneous")
	assert.InDelta(t, 58.2, v.Value, 1e-9)
}

// A send code whose implied duration is not "I" (e.g. "PF" -> "PPTCF") feeds
// that letter into resolveDuration ahead of the PE's own registry default.
func TestDecodeSendCodeImpliedDurationLetter(t *testing.T) {
	dec := newDecoder(t, ".A KEYO2 20250101 Z DH12/PF 10.5\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 1)
	assert.Equal(t, byte('T'), values[0].DurationCode)
	assert.Equal(t, "PPCFZZ", values[0].ParamCode)
}

func TestParseHeaderLineWithExplicitZone(t *testing.T) {
	dec := newDecoder(t, "", Mode{})
	rec := MessageRecord{Kind: KindE, Header: ".E KEYO2 20251107 Z DH1400/HT", StartLine: 1}
	ctx, _, rest, diag := dec.parseHeaderLine(rec)
	require.Nil(t, diag)
	assert.Equal(t, "Z", ctx.Zone)
	assert.Equal(t, "DH1400/HT", rest)
}
