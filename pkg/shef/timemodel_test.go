package shef

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUTCModernZZone(t *testing.T) {
	tm := NewTimeModel(TimeModeModern)
	got, err := tm.ToUTC("Z", 2025, 11, 7, 14, 0, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 11, 7, 14, 0, 0, 0, time.UTC).Equal(got))
}

func TestToUTCHour24RollsOverToNextDay(t *testing.T) {
	tm := NewTimeModel(TimeModeModern)
	got, err := tm.ToUTC("Z", 2025, 1, 1, 24, 0, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC).Equal(got))
}

func TestToUTCHour24RejectsNonZeroMinute(t *testing.T) {
	tm := NewTimeModel(TimeModeModern)
	_, err := tm.ToUTC("Z", 2025, 1, 1, 24, 5, 0)
	assert.Error(t, err)
}

func TestToUTCModernUnrecognizedZone(t *testing.T) {
	tm := NewTimeModel(TimeModeModern)
	_, err := tm.ToUTC("ZZ", 2025, 1, 1, 0, 0, 0)
	assert.Error(t, err)
}

func TestToUTCLegacyWinterOffset(t *testing.T) {
	tm := NewTimeModel(TimeModeLegacy)
	got, err := tm.ToUTC("E", 2025, 1, 15, 12, 0, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC).Equal(got), "EST is UTC-5 in winter")
}

func TestToUTCLegacySummerAppliesDST(t *testing.T) {
	tm := NewTimeModel(TimeModeLegacy)
	got, err := tm.ToUTC("E", 2025, 7, 15, 12, 0, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 7, 15, 16, 0, 0, 0, time.UTC).Equal(got), "EDT is UTC-4 in summer")
}

func TestToUTCLegacyFixedZoneNeverShiftsForDST(t *testing.T) {
	tm := NewTimeModel(TimeModeLegacy)
	got, err := tm.ToUTC("Z", 2025, 7, 15, 12, 0, 0)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC).Equal(got))
}

func TestAddMonthsClampsAtEndOfMonth(t *testing.T) {
	start := time.Date(2025, 1, 31, 6, 0, 0, 0, time.UTC)
	got := AddMonths(start, MonthsDelta{Months: 1})
	assert.Equal(t, time.Date(2025, 2, 28, 6, 0, 0, 0, time.UTC), got, "Feb 2025 has no 31st")
}

func TestAddMonthsClampsToLeapDay(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got := AddMonths(start, MonthsDelta{Months: 1})
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got, "2024 is a leap year")
}

func TestAddMonthsNoClampWhenDayFits(t *testing.T) {
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	got := AddMonths(start, MonthsDelta{Months: -2})
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestAddMonthsExplicitEOMForcesClamp(t *testing.T) {
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	got := AddMonths(start, MonthsDelta{Months: 1, EOM: true})
	assert.Equal(t, time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC), got)
}

func TestValidateZone(t *testing.T) {
	modern := NewTimeModel(TimeModeModern)
	assert.NoError(t, modern.ValidateZone("Z"))
	assert.NoError(t, modern.ValidateZone("N"))
	assert.Error(t, modern.ValidateZone("ZZ"))

	legacy := NewTimeModel(TimeModeLegacy)
	assert.NoError(t, legacy.ValidateZone("E"))
	assert.Error(t, legacy.ValidateZone("ZZ"))
}
