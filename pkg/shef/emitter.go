package shef

import (
	"fmt"
	"strings"
)

// Format selects one of the two fixed-column text renderings (§4.4, §6.2/6.3).
type Format int

const (
	// Format1 is the long-form, one-line-per-value layout (§6.2).
	Format1 Format = 1
	// Format2 is the compact layout (§6.3).
	Format2 Format = 2
)

const zeroStamp = "0000-00-00 00:00:00"

// Emitter renders Values in Format 1 or Format 2 text (C4).
type Emitter struct {
	Format Format
}

// NewEmitter returns an Emitter for the given output format.
func NewEmitter(format Format) *Emitter {
	return &Emitter{Format: format}
}

// EmitLine renders one Value as a single line of text, without a trailing
// newline.
func (e *Emitter) EmitLine(v *Value) string {
	if e.Format == Format2 {
		return emitFormat2(v)
	}
	return emitFormat1(v)
}

// flagsString renders a Value's Flags bitset as the 10-character flags
// column used by Format 1 (§6.2). Each position is a fixed letter slot,
// blank when the corresponding bit is unset.
func flagsString(f Flag) string {
	var b [10]byte
	for i := range b {
		b[i] = ' '
	}
	if f.Has(FlagMissing) {
		b[0] = 'M'
	}
	if f.Has(FlagTrace) {
		b[1] = 'T'
	}
	if f.Has(FlagRevised) {
		b[2] = 'R'
	}
	if f.Has(FlagEstimated) {
		b[3] = 'E'
	}
	return string(b[:])
}

// emitFormat1 renders a Value per the §6.2 layout:
//
//	<loc:10><obs-dt:19>  <cre-dt:19>  <param:6><4sp><value:12.4f><1sp>
//	<zone:2><1sp><dur:8.3f><1sp><prob4><1sp><ts_code:1><1sp><flags:10><1sp><"comment">
func emitFormat1(v *Value) string {
	obs := v.ObsTime.UTC().Format("2006-01-02 15:04:05")
	cre := zeroStamp
	if !v.CreationTime.IsZero() {
		cre = v.CreationTime.UTC().Format("2006-01-02 15:04:05")
	}
	dur := -1.000
	if v.DurationValue >= 0 {
		dur = float64(v.DurationValue)
	}
	comment := v.Comment
	if comment == "" {
		comment = " "
	}
	prob := v.Probability * 10000
	if prob < 0 {
		// Z ("not probabilistic") and M are sentinel buckets, not exceedance
		// fractions; the 4-digit column has no sign position for them. The
		// probability bucket survives anyway as ParamCode's sixth character.
		prob = 0
	}
	return fmt.Sprintf("%-10s%s  %s  %-6s    %12.4f %-2s %8.3f %04.0f %1d %10s \"%s\"",
		v.Location, obs, cre, v.ParamCode, v.Value, zoneCodeForValue(v),
		dur, prob, v.TimeSeriesCode, flagsString(v.Flags), comment)
}

// zoneCodeForValue is a placeholder accessor; the Value type doesn't carry
// its source zone once resolved to UTC, so composed/re-emitted text always
// renders "Z"; there is no way to supply the original zone (§4.4.3 notes the
// composer chooses its own zone).
func zoneCodeForValue(v *Value) string {
	return "Z"
}

// emitFormat2 renders a Value per the §6.3 layout:
//
//	<loc:8><1sp><YYYYMM:6><1sp><DD:2><1sp><HH:2><1sp><MM:2><4sp>...<PE:2><1sp>
//	<TS+Ext+Prob:4><1sp><value:10.3f><1sp><zone:1><1sp><dur:5.2f><4sp><flags><1sp><ts_code>
//
// Retained comments are truncated to 66 characters and appended after
// ts_code with a leading space.
func emitFormat2(v *Value) string {
	y, mo, d := v.ObsTime.UTC().Date()
	h, mi, _ := v.ObsTime.UTC().Clock()
	dur := -1.0
	if v.DurationValue >= 0 {
		dur = float64(v.DurationValue)
	}
	line := fmt.Sprintf("%-8s %04d%02d %02d %02d %02d    %s %s %10.3f %s %5.2f    %-4s %d",
		v.Location, y, int(mo), d, h, mi,
		v.PECode(), v.ParamCode[2:], v.Value, "Z", dur, flagsString(v.Flags)[:4], v.TimeSeriesCode)
	if v.Comment != "" {
		c := v.Comment
		if len(c) > 66 {
			c = c[:66]
		}
		line += " " + c
	}
	return line
}

// EmitAll renders every Value in order, one per line, joined by newlines,
// with a trailing newline.
func (e *Emitter) EmitAll(values []*Value) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(e.EmitLine(v))
		b.WriteByte('\n')
	}
	return b.String()
}
