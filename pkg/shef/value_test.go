package shef

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validValue() *Value {
	return &Value{
		Location:       "KEYO2",
		ObsTime:        time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC),
		ParamCode:      "HTRZZZ",
		DurationValue:  -1,
		Value:          637.74,
		Qualifier:      'Z',
		TimeSeriesCode: 1,
	}
}

func TestValueAccessors(t *testing.T) {
	v := validValue()
	assert.Equal(t, "HT", v.PECode())
	assert.Equal(t, "RZ", v.TypeSource())
	assert.Equal(t, "Z", v.Extremum())
	assert.Equal(t, "Z", v.ProbCode())
}

func TestValueAccessorsOnShortParamCode(t *testing.T) {
	v := &Value{ParamCode: "H"}
	assert.Empty(t, v.PECode())
	assert.Empty(t, v.TypeSource())
	assert.Empty(t, v.Extremum())
	assert.Empty(t, v.ProbCode())
}

func TestValueValidateAcceptsWellFormedValue(t *testing.T) {
	assert.NoError(t, validValue().Validate())
}

func TestValueValidateRejectsShortParamCode(t *testing.T) {
	v := validValue()
	v.ParamCode = "HT"
	assert.Error(t, v.Validate())
}

func TestValueValidateRejectsNonUTCTime(t *testing.T) {
	v := validValue()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	v.ObsTime = v.ObsTime.In(loc)
	assert.Error(t, v.Validate())
}

func TestValueValidateRejectsDurationBelowVariableSentinel(t *testing.T) {
	v := validValue()
	v.DurationValue = -2
	assert.Error(t, v.Validate())
}
