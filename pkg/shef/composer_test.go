package shef

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tv(loc, param string, qualifier byte, obs time.Time, value float64) *Value {
	return &Value{
		Location:       loc,
		ParamCode:      param,
		Qualifier:      qualifier,
		ObsTime:        obs,
		Value:          value,
		TimeSeriesCode: 1,
	}
}

func TestGroupByLocationParamPartitionsByQualifier(t *testing.T) {
	base := time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC)
	values := []*Value{
		tv("KEYO2", "HGRZZZ", 'Z', base, 637.74),
		tv("KEYO2", "HGRZZZ", 'E', base, 637.90),
	}
	groups := GroupByLocationParam(values)
	require.Len(t, groups, 2, "same location/parameter but different qualifiers must not merge into one series")
	assert.ElementsMatch(t, []byte{'Z', 'E'}, []byte{groups[0].Qualifier, groups[1].Qualifier})
}

func TestGroupByLocationParamMergesSameQualifier(t *testing.T) {
	base := time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC)
	values := []*Value{
		tv("KEYO2", "HGRZZZ", 'Z', base, 1.0),
		tv("KEYO2", "HGRZZZ", 'Z', base.Add(time.Hour), 2.0),
		tv("ABCD1", "TARZZZ", 'Z', base, 3.0),
	}
	groups := GroupByLocationParam(values)
	require.Len(t, groups, 2)
}

func TestGroupByLocationParamSortsByObsTime(t *testing.T) {
	base := time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC)
	values := []*Value{
		tv("KEYO2", "HGRZZZ", 'Z', base.Add(2*time.Hour), 3.0),
		tv("KEYO2", "HGRZZZ", 'Z', base, 1.0),
		tv("KEYO2", "HGRZZZ", 'Z', base.Add(time.Hour), 2.0),
	}
	groups := GroupByLocationParam(values)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Values, 3)
	assert.InDelta(t, 1.0, groups[0].Values[0].Value, 1e-9)
	assert.InDelta(t, 2.0, groups[0].Values[1].Value, 1e-9)
	assert.InDelta(t, 3.0, groups[0].Values[2].Value, 1e-9)
}

func TestComposeUniformIntervalProducesE(t *testing.T) {
	base := time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC)
	g := seriesGroup{
		Location: "KEYO2",
		Param:    "HGRZZZ",
		Values: []*Value{
			tv("KEYO2", "HGRZZZ", 'Z', base, 637.74),
			tv("KEYO2", "HGRZZZ", 'Z', base.Add(time.Hour), 637.73),
			tv("KEYO2", "HGRZZZ", 'Z', base.Add(2*time.Hour), 637.70),
		},
	}
	out := NewComposer().Compose(g)
	assert.True(t, strings.HasPrefix(out, ".E KEYO2 20251107 Z DH1400/HG/DIH01/"), out)
	assert.Contains(t, out, "637.74")
	assert.Contains(t, out, "637.73")
	assert.Contains(t, out, "637.70")
}

func TestComposeUniformIntervalSplitsContinuationEvery12Values(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var values []*Value
	for i := 0; i < 13; i++ {
		values = append(values, tv("LOC1", "TARZZZ", 'Z', base.Add(time.Duration(i)*time.Hour), float64(i)))
	}
	g := seriesGroup{Location: "LOC1", Param: "TARZZZ", Values: values}
	out := NewComposer().Compose(g)
	assert.Contains(t, out, "\n.E01", "a 13-value uniform series continues onto a .E01 line after 12 values")
}

func TestComposeIrregularIntervalProducesOneALinePerObsTime(t *testing.T) {
	base := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	g := seriesGroup{
		Location: "TNSO2",
		Param:    "PCRZZZ",
		Values: []*Value{
			tv("TNSO2", "PCRZZZ", 'Z', base, 0.0),
			tv("TNSO2", "PCRZZZ", 'Z', base.Add(37*time.Minute), 0.02),
		},
	}
	out := NewComposer().Compose(g)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2, "two irregularly-spaced values produce two separate .A lines")
	assert.True(t, strings.HasPrefix(lines[0], ".A TNSO2 20250630 Z DH0000/PC "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], ".A TNSO2 20250630 Z DH0037/PC "), lines[1])
}

func TestComposeACombinesValuesSharingOneObsTimeOntoOneLine(t *testing.T) {
	base := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	g := seriesGroup{
		Location: "TNSO2",
		Param:    "PCRZZZ",
		Values: []*Value{
			tv("TNSO2", "PCRZZZ", 'Z', base, 1.0),
			tv("TNSO2", "PCRZZZ", 'Z', base, 2.0),
		},
	}
	out := NewComposer().Compose(g)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 1, "values sharing one obs_time are combined onto a single .A line")
	assert.Equal(t, 2, strings.Count(lines[0], "/PC "))
}

func TestComposeAllRendersGroupsInOrder(t *testing.T) {
	base := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	groups := []seriesGroup{
		{Location: "A1", Param: "TARZZZ", Values: []*Value{tv("A1", "TARZZZ", 'Z', base, 70.0)}},
		{Location: "A2", Param: "PCRZZZ", Values: []*Value{tv("A2", "PCRZZZ", 'Z', base, 0.5)}},
	}
	out := NewComposer().ComposeAll(groups)
	assert.True(t, strings.Index(out, "A1") < strings.Index(out, "A2"))
}

func TestFormatComposedValueMissingSentinel(t *testing.T) {
	v := tv("LOC", "PCRZZZ", 'Z', time.Now(), Sentinel)
	v.Flags |= FlagMissing
	assert.Equal(t, "M", formatComposedValue(v))
}

func TestFormatComposedValueTrace(t *testing.T) {
	v := tv("LOC", "PCRZZZ", 'Z', time.Now(), TraceValue)
	v.Flags |= FlagTrace
	assert.Equal(t, "T", formatComposedValue(v))
}

func TestFormatComposedValueQualifierSuffix(t *testing.T) {
	v := tv("LOC", "TARZZZ", 'E', time.Now(), 72.5)
	assert.Equal(t, "72.50E", formatComposedValue(v))
}

func TestFormatComposedValueDefaultQualifierOmitted(t *testing.T) {
	v := tv("LOC", "TARZZZ", 'Z', time.Now(), 72.5)
	assert.Equal(t, "72.50", formatComposedValue(v))
}

func TestFormatComposedValueRetainsComment(t *testing.T) {
	v := tv("LOC", "PCRZZZ", 'Z', time.Now(), 1.0)
	v.Comment = "15:OKMN"
	assert.Equal(t, `1.00"15:OKMN"`, formatComposedValue(v))
}

// §8 round trip: composing a decoded series and decoding it again yields
// values equal in the fields the text format carries.
func TestDecodeComposeRoundTripsEqualIntervalSeries(t *testing.T) {
	dec := newDecoder(t, ".E KEYO2 20251107 Z DH1400/HT/DIH01/637.74/637.73/637.70\n", Mode{})
	values := decodeAll(t, dec)
	require.NoError(t, dec.Err())
	require.Len(t, values, 3)

	composed := NewComposer().ComposeAll(GroupByLocationParam(values))

	dec2 := newDecoder(t, composed, Mode{})
	roundTripped := decodeAll(t, dec2)
	require.NoError(t, dec2.Err())
	require.Len(t, roundTripped, 3)
	for i, v := range values {
		assert.Equal(t, v.Location, roundTripped[i].Location)
		assert.True(t, v.ObsTime.Equal(roundTripped[i].ObsTime))
		assert.InDelta(t, v.Value, roundTripped[i].Value, 1e-6)
	}
}
