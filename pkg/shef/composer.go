package shef

import (
	"fmt"
	"sort"
	"strings"
)

// Composer is the inverse of the Decoder: given Values sharing a
// (location, parameter), it re-emits conforming SHEF `.A`/`.E` text (§4.4.3).
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// seriesGroup is one (location, parameter_code, qualifier) run of
// time-ordered Values, the unit the Composer operates on.
type seriesGroup struct {
	Location  string
	Param     string
	Qualifier byte
	Values    []*Value
}

// GroupByLocationParam partitions an arbitrary Value slice into ordered
// series groups, each internally sorted by obs_time (§4.4.3 precondition:
// "given a sequence of ShefValue sharing (location, parameter, qualifier)").
// Values that share a location and parameter but carry different
// qualifiers (e.g. a default 'Z' reading and a 'R'evised or 'E'stimated
// override) belong to different series and must not be interleaved into
// one composed run, so the grouping key matches Value.seriesKey().
func GroupByLocationParam(values []*Value) []seriesGroup {
	index := make(map[string]int)
	var groups []seriesGroup
	for _, v := range values {
		key := v.seriesKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, seriesGroup{Location: v.Location, Param: v.ParamCode, Qualifier: v.Qualifier})
		}
		groups[i].Values = append(groups[i].Values, v)
	}
	for i := range groups {
		sort.SliceStable(groups[i].Values, func(a, b int) bool {
			return groups[i].Values[a].ObsTime.Before(groups[i].Values[b].ObsTime)
		})
	}
	return groups
}

// Compose renders one series group as SHEF text: an `.E` message if the
// group has at least 3 uniformly-spaced samples, otherwise one `.A` per
// value (adjacent values sharing an obs_time are grouped into one `.A`
// line, per §4.4.3).
func (c *Composer) Compose(g seriesGroup) string {
	if isUniformInterval(g.Values) {
		return composeE(g)
	}
	return composeA(g)
}

// ComposeAll renders every group, in the order given.
func (c *Composer) ComposeAll(groups []seriesGroup) string {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString(c.Compose(g))
	}
	return b.String()
}

func isUniformInterval(values []*Value) bool {
	if len(values) < 3 {
		return false
	}
	step := values[1].ObsTime.Sub(values[0].ObsTime)
	if step <= 0 {
		return false
	}
	for i := 2; i < len(values); i++ {
		if values[i].ObsTime.Sub(values[i-1].ObsTime) != step {
			return false
		}
	}
	return true
}

// composeE renders a uniformly-spaced series as a single `.E` message,
// using `DIN<n>` (minutes) / `DIH<n>` / `DID<n>` for the interval and splitting the
// value list across 12-value continuation lines (§4.4.3).
func composeE(g seriesGroup) string {
	first := g.Values[0]
	step := g.Values[1].ObsTime.Sub(g.Values[0].ObsTime)
	intervalToken := formatIntervalToken(step)

	var b strings.Builder
	fmt.Fprintf(&b, ".E %s %s Z DH%s/%s/%s",
		g.Location,
		first.ObsTime.UTC().Format("20060102"),
		first.ObsTime.UTC().Format("1504"),
		g.Param[:2],
		intervalToken,
	)

	const perLine = 12
	seq := 1
	for i, v := range g.Values {
		b.WriteString("/")
		b.WriteString(formatComposedValue(v))
		if (i+1)%perLine == 0 && i+1 < len(g.Values) {
			fmt.Fprintf(&b, "\n.E%02d", seq)
			seq++
		}
	}
	b.WriteString("\n")
	return b.String()
}

func formatIntervalToken(step interface {
	Minutes() float64
}) string {
	mins := int(step.Minutes())
	switch {
	case mins%1440 == 0:
		return fmt.Sprintf("DID%02d", mins/1440)
	case mins%60 == 0:
		return fmt.Sprintf("DIH%02d", mins/60)
	default:
		return fmt.Sprintf("DIN%02d", mins)
	}
}

// composeA renders a group as one `.A` message per distinct obs_time,
// combining values that share both location and obs_time onto one line
// (§4.4.3).
func composeA(g seriesGroup) string {
	var b strings.Builder
	var i int
	for i < len(g.Values) {
		j := i + 1
		for j < len(g.Values) && g.Values[j].ObsTime.Equal(g.Values[i].ObsTime) {
			j++
		}
		batch := g.Values[i:j]
		fmt.Fprintf(&b, ".A %s %s Z DH%s",
			batch[0].Location,
			batch[0].ObsTime.UTC().Format("20060102"),
			batch[0].ObsTime.UTC().Format("1504"))
		for _, v := range batch {
			fmt.Fprintf(&b, "/%s %s", v.ParamCode[:2], formatComposedValue(v))
		}
		b.WriteString("\n")
		i = j
	}
	return b.String()
}

// formatComposedValue renders one Value's numeric payload for composed
// text: "M" for missing, "T" for trace, else a plain decimal, each
// optionally suffixed by its qualifier when non-default and a trailing
// retained-comment quote (§4.4.3 "missing ShefValues ... emitted as M").
func formatComposedValue(v *Value) string {
	var tok string
	switch {
	case v.Flags.Has(FlagMissing):
		tok = "M"
	case v.Flags.Has(FlagTrace):
		tok = "T"
	default:
		tok = fmt.Sprintf("%.2f", v.Value)
	}
	if v.Qualifier != 0 && v.Qualifier != 'Z' {
		tok += string(v.Qualifier)
	}
	if v.Comment != "" {
		tok += fmt.Sprintf(`"%s"`, v.Comment)
	}
	return tok
}
