package shef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParamRegistryBuiltins(t *testing.T) {
	r := NewParamRegistry()

	pe, ok := r.LookupPE("HT")
	require.True(t, ok)
	assert.Equal(t, "HT", pe.Code)
	assert.InDelta(t, 3.2808399, pe.EnglishFactor, 1e-6)
	assert.Equal(t, byte('I'), pe.DefaultDuration)

	_, ok = r.LookupPE("XX")
	assert.False(t, ok, "XX is not a registered PE code")

	assert.True(t, r.LookupTypeSource("RZ"))
	assert.False(t, r.LookupTypeSource("IR"), "IR is not a registered type+source pair")

	mins, ok := r.LookupDurationCode('I')
	require.True(t, ok)
	assert.Equal(t, -1, mins, "instantaneous duration code has no duration window")

	assert.Equal(t, uint(defaultMaxErrors), r.MaxErrors())
}

func TestLookupExtremumUnspecifiedDefaultsValid(t *testing.T) {
	r := NewParamRegistry()
	assert.True(t, r.LookupExtremum(0), "an unspecified extremum byte defaults to valid")
	assert.True(t, r.LookupExtremum('Z'))
	assert.False(t, r.LookupExtremum('9'))
}

func TestLookupQualifierCaseInsensitive(t *testing.T) {
	r := NewParamRegistry()
	assert.True(t, r.LookupQualifier('Z'))
	assert.True(t, r.LookupQualifier('z'))
}

func TestMergeSHEFPARMAppliesOverrides(t *testing.T) {
	r := NewParamRegistry()
	text := "PE Codes And Conversion Factors\n" +
		"ZZ   1.500000\n" +
		"Max Number Of Errors\n" +
		"42\n"

	diags, err := r.MergeSHEFPARM(text)
	require.NoError(t, err)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, SeverityInfo, d.Severity)
	}

	pe, ok := r.LookupPE("zz")
	require.True(t, ok, "PE lookups are case-insensitive")
	assert.InDelta(t, 1.5, pe.EnglishFactor, 1e-9)
	assert.EqualValues(t, 42, r.MaxErrors())
}

func TestMergeSHEFPARMSkipsBadLinesWithoutAborting(t *testing.T) {
	r := NewParamRegistry()
	text := "PE Codes And Conversion Factors\n" +
		"BADLINE\n" +
		"QQ 2.000000\n"

	diags, err := r.MergeSHEFPARM(text)
	require.Error(t, err, "a malformed line is reported, not silently dropped")
	require.Len(t, diags, 2)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Equal(t, SeverityInfo, diags[1].Severity)

	_, ok := r.LookupPE("QQ")
	assert.True(t, ok, "the bad line does not stop later lines in the same section from applying")
}

func TestMergeSHEFPARMLineOutsideSection(t *testing.T) {
	r := NewParamRegistry()
	_, err := r.MergeSHEFPARM("ZZ 1.0\n")
	assert.Error(t, err, "a line before any section header is rejected")
}

func TestEmitSHEFPARMRoundTrips(t *testing.T) {
	r := NewParamRegistry()
	text, err := r.EmitSHEFPARM()
	require.NoError(t, err)

	fresh := NewParamRegistry()
	fresh.peConversions = map[string]float64{}
	fresh.durationLetters = map[byte]int{}
	fresh.tsCodes = map[string]bool{}
	fresh.extremumCodes = map[byte]bool{}
	fresh.probCodes = map[byte]float64{}
	fresh.qualifierCodes = map[byte]bool{}
	fresh.sendCodes = map[string]sendCodeDefault{}

	_, err = fresh.MergeSHEFPARM(text)
	require.NoError(t, err)

	pe, ok := fresh.LookupPE("HT")
	require.True(t, ok)
	assert.InDelta(t, 3.2808399, pe.EnglishFactor, 1e-5)
	assert.Equal(t, r.MaxErrors(), fresh.MaxErrors())
}
