package shef

import (
	"time"

	"github.com/cockroachdb/errors"
)

// TimeMode selects how zone-relative calendar triplets are converted to UTC.
type TimeMode int

const (
	// TimeModeModern resolves SHEF zone mnemonics against the IANA tzdata
	// database via time.LoadLocation, honoring the system's DST transition
	// rules for the target date (§4.5, default mode).
	TimeModeModern TimeMode = iota
	// TimeModeLegacy reproduces the bug-compatible fixed-offset/fixed-DST-
	// window arithmetic of the reference shefit program, for byte-for-byte
	// compatibility with its output (§4.5, --shefit_times equivalent).
	TimeModeLegacy
)

// zoneIANA maps a SHEF zone mnemonic to the tzdata zone used in modern mode.
// Ported verbatim from the reference parser's TZ_NAMES table (§4.5).
var zoneIANA = map[string]string{
	"J": "PRC",

	"HS": "US/Hawaii", "HD": "US/Hawaii", "H": "US/Hawaii",
	"BS": "Etc/GMT+11", "BD": "Etc/GMT+10", "B": "Pacific/Midway",
	"LS": "Etc/GMT+9", "LD": "Etc/GMT+8", "L": "US/Alaska",
	"YS": "Etc/GMT+8", "YD": "Etc/GMT+7", "Y": "Canada/Yukon",
	"PS": "Etc/GMT+8", "PD": "Etc/GMT+7", "P": "US/Pacific",
	"MS": "Etc/GMT+7", "MD": "Etc/GMT+6", "M": "US/Mountain",
	"CS": "Etc/GMT+6", "CD": "Etc/GMT+5", "C": "US/Central",
	"ES": "Etc/GMT+5", "ED": "Etc/GMT+4", "E": "US/Eastern",
	"AS": "Etc/GMT+4", "AD": "Etc/GMT+3", "A": "Canada/Atlantic",
	"NS": "", "ND": "", "N": "Canada/Newfoundland", // fixed half-hour offsets, handled specially below
	"Z": "UTC",
}

// newfoundlandFixedOffsets holds the fixed NS/ND minute offsets from UTC, since
// they are not whole hours and aren't cleanly expressed as an Etc/GMT zone.
var newfoundlandFixedOffsets = map[string]int{
	"NS": -210,
	"ND": -150,
}

// zoneLegacyOffsets are the fixed UTC offsets in minutes used by legacy mode
// for the zones that carry an explicit standard/daylight letter, and the
// base local offset for the single-letter "local" zones (DST-adjusted by
// isSHEFSummerTime). Ported verbatim from DateTime.TZ_OFFSETS.
var zoneLegacyOffsets = map[string]int{
	"Z": 0,
	"N": 210, "NS": 210, "ND": 210,
	"A": 240, "AS": 240, "AD": 180,
	"E": 300, "ES": 300, "ED": 240,
	"C": 360, "CS": 360, "CD": 300,
	"M": 420, "MS": 420, "MD": 360,
	"P": 480, "PS": 480, "PD": 420,
	"Y": 540, "YS": 540, "YD": 480,
	"L": 540, "LS": 540, "LD": 480,
	"H": 600, "HS": 600, "HD": 600,
	"B": 660, "BS": 660, "BD": 600,
	"J": -480,
}

// dstDOMTable holds, for each year 1976-2040 (index 0 = 1976), the day of
// month of the spring-forward and fall-back transitions used by the shefit
// reference program's simplified DST rule. Ported verbatim from DST_DATES.
var dstDOMTable = [...][2]int{
	{26, 31}, {24, 30}, {30, 29}, {29, 28}, {27, 26}, {26, 25},
	{25, 31}, {24, 30}, {29, 28}, {28, 27}, {27, 26}, {5, 25},
	{3, 30}, {2, 29}, {1, 28}, {7, 27}, {5, 25}, {4, 31},
	{3, 30}, {2, 29}, {7, 27}, {6, 26}, {5, 25}, {4, 31},
	{2, 29}, {1, 28}, {7, 27}, {6, 26}, {4, 31}, {3, 30},
	{2, 29}, {11, 4}, {9, 2}, {8, 1}, {14, 7}, {13, 6},
	{11, 4}, {10, 3}, {9, 2}, {8, 1}, {13, 6}, {12, 5},
	{11, 4}, {10, 3}, {8, 1}, {14, 7}, {13, 6}, {12, 5},
	{10, 3}, {9, 2}, {8, 1}, {14, 7}, {12, 5}, {11, 4},
	{10, 3}, {9, 2}, {14, 7}, {13, 6}, {12, 5}, {11, 4},
	{9, 2}, {8, 1}, {14, 7}, {13, 6}, {11, 4},
}

// zonesWithLocalDST are the single-letter "local" zone mnemonics whose
// legacy-mode offset depends on isSHEFSummerTime.
var zonesWithLocalDST = map[string]bool{
	"N": true, "A": true, "E": true, "C": true, "M": true,
	"P": true, "Y": true, "L": true, "H": true, "B": true,
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isSHEFSummerTime reproduces the shefit reference program's simplified
// daylight-saving-time predicate for a naive (y,m,d,h,n) instant (§4.5).
func isSHEFSummerTime(y, m, d, h, n int) bool {
	y = clampInt(y, 1976, 2040)
	if y < 1976 || y > 2040 || m < 3 || m > 10 {
		return false
	}
	dom := dstDOMTable[y-1976]
	var springMonth, fallMonth int
	if y < 2007 {
		springMonth, fallMonth = 4, 10
	} else {
		springMonth, fallMonth = 3, 11
	}
	switch {
	case springMonth < m && m < fallMonth:
		return true
	case m == springMonth && (d > dom[0] || (d == dom[0] && h > 2) || (d == dom[0] && h == 2 && n > 0)):
		return true
	case m == fallMonth && (d < dom[1] || (d == dom[1] && h < 2) || (d == dom[1] && h == 2 && n == 0)):
		return true
	default:
		return false
	}
}

// TimeModel converts SHEF zone-relative calendar fields to UTC time.Time
// values, per the selected TimeMode (§4.5).
type TimeModel struct {
	Mode TimeMode
}

// NewTimeModel returns a TimeModel in the given mode.
func NewTimeModel(mode TimeMode) *TimeModel {
	return &TimeModel{Mode: mode}
}

// ToUTC converts a naive (year, month, day, hour, minute, second) instant in
// the named SHEF zone to UTC. hour may be 24 to mean midnight at the end of
// the given day (§4.5 "DH24"), which this function normalizes to 00:00 of
// the following day before applying the zone offset, matching the
// reference parser's handling of hour==24.
func (tm *TimeModel) ToUTC(zone string, year, month, day, hour, minute, second int) (time.Time, error) {
	if hour == 24 {
		if minute != 0 || second != 0 {
			return time.Time{}, TimeErrorf("", 0, "non-zero minute/second with hour=24", nil)
		}
		hour = 0
		naive := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		year, month, day = naive.Year(), int(naive.Month()), naive.Day()
	}

	switch tm.Mode {
	case TimeModeModern:
		return tm.toUTCModern(zone, year, month, day, hour, minute, second)
	default:
		return tm.toUTCLegacy(zone, year, month, day, hour, minute, second)
	}
}

func (tm *TimeModel) toUTCModern(zone string, year, month, day, hour, minute, second int) (time.Time, error) {
	if off, ok := newfoundlandFixedOffsets[zone]; ok {
		loc := time.FixedZone(zone, off*60)
		return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc).UTC(), nil
	}
	name, ok := zoneIANA[zone]
	if !ok || name == "" {
		return time.Time{}, TimeErrorf("", 0, "unrecognized time zone mnemonic: "+zone, nil)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Time{}, TimeErrorf("", 0, "loading tzdata zone "+name, err)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc).UTC(), nil
}

func (tm *TimeModel) toUTCLegacy(zone string, year, month, day, hour, minute, second int) (time.Time, error) {
	offset, ok := zoneLegacyOffsets[zone]
	if !ok {
		if off, ok2 := newfoundlandFixedOffsets[zone]; ok2 {
			offset = -off
		} else {
			return time.Time{}, TimeErrorf("", 0, "unrecognized time zone mnemonic: "+zone, nil)
		}
	}
	if zonesWithLocalDST[zone] && isSHEFSummerTime(year, month, day, hour, minute) {
		offset -= 60
	}
	naive := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return naive.Add(time.Duration(offset) * time.Minute), nil
}

// MonthsDelta is a calendar increment of whole months, optionally pinned to
// the end of the resulting month (§4.5 "DR" relative date arithmetic,
// ported from the reference parser's MonthsDelta helper).
type MonthsDelta struct {
	Months int
	EOM    bool
}

// AddMonths applies a MonthsDelta to t, clamping the result's day-of-month
// to the last day of the target month when either the source date was
// already at end-of-month or EOM is explicitly set (§9 Open Question:
// DR month/leap-day tie-breaks resolve by clamping, matching the
// reference implementation's calendar.monthrange behavior).
func AddMonths(t time.Time, delta MonthsDelta) time.Time {
	y, m, d := t.Date()
	wasEOM := d == lastDayOfMonth(y, int(m))

	totalMonths := int(m) - 1 + delta.Months
	ny := y + totalMonths/12
	nm := totalMonths%12 + 1
	if nm <= 0 {
		nm += 12
		ny--
	}

	nd := d
	last := lastDayOfMonth(ny, nm)
	if delta.EOM || wasEOM || nd > last {
		nd = last
	}
	return time.Date(ny, time.Month(nm), nd, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func isLeapYear(y int) bool {
	return (y%4 == 0 && y%100 != 0) || y%400 == 0
}

func lastDayOfMonth(y, m int) int {
	switch m {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(y) {
			return 29
		}
		return 28
	default:
		return 30
	}
}

// ValidateZone reports whether zone is a recognized SHEF zone mnemonic in
// the model's mode.
func (tm *TimeModel) ValidateZone(zone string) error {
	if tm.Mode == TimeModeModern {
		if _, ok := newfoundlandFixedOffsets[zone]; ok {
			return nil
		}
		if name, ok := zoneIANA[zone]; ok && name != "" {
			return nil
		}
		return errors.Newf("unrecognized time zone mnemonic: %s", zone)
	}
	if _, ok := zoneLegacyOffsets[zone]; ok {
		return nil
	}
	if _, ok := newfoundlandFixedOffsets[zone]; ok {
		return nil
	}
	return errors.Newf("unrecognized time zone mnemonic: %s", zone)
}
