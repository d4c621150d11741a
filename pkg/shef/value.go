package shef

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Flag is a bit in Value.Flags describing how a decoded value was derived.
type Flag uint8

const (
	// FlagMissing marks the SHEF "M"/"MSG" sentinel (-9999).
	FlagMissing Flag = 1 << iota
	// FlagTrace marks a precipitation trace value ("T", rendered as 0.001).
	FlagTrace
	// FlagRevised marks a value from a .AR/.BR/.ER message.
	FlagRevised
	// FlagEstimated marks a value whose qualifier is 'E' (estimated).
	FlagEstimated
)

// Has reports whether f includes bit.
func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Sentinel is the SHEF missing-value numeric placeholder.
const Sentinel = -9999.0

// TraceValue is the numeric value substituted for a precipitation trace token.
const TraceValue = 0.001

// Value is a single decoded SHEF observation, the unit the Decoder produces
// and the Emitter and Composer consume. All time fields are UTC once they
// leave the Decoder.
type Value struct {
	Location      string    `validate:"required,max=8,alphanum"`
	ObsTime       time.Time `validate:"required"`
	CreationTime  time.Time // zero value means "no creation time" (§3 null time)
	ParamCode     string    `validate:"required,len=6"`
	DurationCode  byte
	DurationValue int // minutes, or -1 for variable/unknown
	Value         float64
	Qualifier     byte `validate:"required"`
	Probability   float64
	Revised       bool
	Comment       string
	TimeSeriesCode int `validate:"oneof=1 2"`
	Flags          Flag
}

// PECode returns the 2-character Physical Element part of ParamCode.
func (v *Value) PECode() string {
	if len(v.ParamCode) < 2 {
		return ""
	}
	return v.ParamCode[:2]
}

// TypeSource returns the 2-character Type+Source part of ParamCode.
func (v *Value) TypeSource() string {
	if len(v.ParamCode) < 4 {
		return ""
	}
	return v.ParamCode[2:4]
}

// Extremum returns the 1-character Extremum part of ParamCode.
func (v *Value) Extremum() string {
	if len(v.ParamCode) < 5 {
		return ""
	}
	return v.ParamCode[4:5]
}

// ProbCode returns the 1-character probability-bucket part of ParamCode.
func (v *Value) ProbCode() string {
	if len(v.ParamCode) < 6 {
		return ""
	}
	return v.ParamCode[5:6]
}

// seriesKey groups values for the time_series_code and composer grouping
// rules: (location, PE+TypeSrc+Extremum+Prob, qualifier).
func (v *Value) seriesKey() string {
	return v.Location + "|" + v.ParamCode + "|" + string(v.Qualifier)
}

// valueValidator backs Validate, which callers can use to reject a
// structurally broken Value before using it; mirrors the teacher's
// Site.Validate() pattern of a single package-level *validator.Validate.
var valueValidator = validator.New()

// Validate checks the struct tags above and the invariants from §3 that
// tags alone can't express (duration_value range, UTC obs/creation times).
func (v *Value) Validate() error {
	if err := valueValidator.Struct(v); err != nil {
		return err
	}
	if v.DurationValue < -1 {
		return ConfigErrorf("duration_value must be >= -1 or the variable sentinel", nil)
	}
	if !v.CreationTime.IsZero() && v.CreationTime.Location() != time.UTC {
		return ConfigErrorf("creation_time must be UTC", nil)
	}
	if v.ObsTime.Location() != time.UTC {
		return ConfigErrorf("obs_time must be UTC", nil)
	}
	return nil
}
