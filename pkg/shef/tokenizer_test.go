package shef

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizerSingleMessage(t *testing.T) {
	tok := NewTokenizer(strings.NewReader(".A TNSO2 20240630 DH0000/PC 0.00\n"))
	require.True(t, tok.Next())
	rec := tok.Record()
	assert.Equal(t, KindA, rec.Kind)
	assert.False(t, rec.Revised)
	assert.Equal(t, ".A TNSO2 20240630 DH0000/PC 0.00", rec.Header)
	assert.Equal(t, 1, rec.StartLine)
	assert.Empty(t, rec.Body)

	assert.False(t, tok.Next())
	assert.NoError(t, tok.Err())
}

func TestTokenizerRevisedSuffix(t *testing.T) {
	tok := NewTokenizer(strings.NewReader(".AR TNSO2 20240630 DH0000/PC 0.00\n"))
	require.True(t, tok.Next())
	assert.True(t, tok.Record().Revised)
}

func TestTokenizerDigitContinuations(t *testing.T) {
	input := ".A LOCID 20250101 DH00/PC 1.0\n" +
		".A1 /PC 2.0\n" +
		".A2 /PC 3.0\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	rec := tok.Record()
	require.Len(t, rec.Body, 2)
	assert.Equal(t, ".A1 /PC 2.0", rec.Body[0].Text)
	assert.False(t, rec.Body[0].NoSeq)
	assert.Equal(t, ".A2 /PC 3.0", rec.Body[1].Text)
}

func TestTokenizerStopsAtNextMessageOfDifferentKind(t *testing.T) {
	input := ".A LOC1 20250101 DH00/PC 1.0\n" +
		".E LOC2 20250101 DH00/HT/DIH01/1.0\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	assert.Empty(t, tok.Record().Body)

	require.True(t, tok.Next())
	rec := tok.Record()
	assert.Equal(t, KindE, rec.Kind)
	assert.Contains(t, rec.Header, "LOC2")
}

func TestTokenizerBMessageTerminatesAtEND(t *testing.T) {
	input := ".B LOCID 20250101 DH00/PC/TA\n" +
		"1.0/72.5\n" +
		".END\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	rec := tok.Record()
	assert.Equal(t, KindB, rec.Kind)
	require.Len(t, rec.Body, 1)
	assert.Equal(t, "1.0/72.5", rec.Body[0].Text)

	assert.False(t, tok.Next())
}

func TestTokenizerStripsThrowawayComment(t *testing.T) {
	input := ".A LOC 20250101 DH00/PC 1.0:this is dropped:/TA 2.0\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	assert.Equal(t, ".A LOC 20250101 DH00/PC 1.0/TA 2.0", tok.Record().Header)
}

func TestTokenizerPreservesRetainedCommentSpacing(t *testing.T) {
	input := ".A LOC 20250101 DH00/PC 1.0\"a   b\"/TA 2.0\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	assert.Equal(t, ".A LOC 20250101 DH00/PC 1.0\"a   b\"/TA 2.0", tok.Record().Header)
}

func TestTokenizerUnrecognizedLine(t *testing.T) {
	tok := NewTokenizer(strings.NewReader("garbage line\n"))
	require.True(t, tok.Next())
	rec := tok.Record()
	assert.Equal(t, KindUnrecognized, rec.Kind)
	require.NotNil(t, rec.Diagnostic)
	assert.Equal(t, KindSyntax, rec.Diagnostic.Kind)
}

func TestTokenizerCollapsesExtraWhitespaceOutsideQuotes(t *testing.T) {
	input := ".A   LOC   20250101   DH00/PC   1.0\n"
	tok := NewTokenizer(strings.NewReader(input))
	require.True(t, tok.Next())
	assert.Equal(t, ".A LOC 20250101 DH00/PC 1.0", tok.Record().Header)
}
