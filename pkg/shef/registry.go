package shef

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	multierror "github.com/hashicorp/go-multierror"
)

// PEEntry is one Physical-Element registry entry.
type PEEntry struct {
	Code            string
	EnglishFactor   float64 // SI -> English conversion factor (-1 means non-linear, e.g. C->F)
	DefaultDuration byte    // 'I' unless overridden by defaultDurationForPE
}

// Severity is the level at which a SHEFPARM override diagnostic is logged.
type Severity int

const (
	// SeverityInfo marks an accepted override.
	SeverityInfo Severity = iota
	// SeverityWarning marks a rejected, illegal SHEFPARM line.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "WARNING"
	}
	return "INFO"
}

// OverrideDiagnostic reports one line's outcome from ParamRegistry.MergeSHEFPARM.
type OverrideDiagnostic struct {
	Severity Severity
	Section  string
	Line     int
	Text     string
}

func (d OverrideDiagnostic) String() string {
	return fmt.Sprintf("%s: %s:%d: %s", d.Severity, d.Section, d.Line, d.Text)
}

// Section header strings recognized verbatim in a SHEFPARM file (§4.1).
const (
	sectionPE          = "PE Codes And Conversion Factors"
	sectionDuration    = "Duration Codes And Associated Values"
	sectionTS          = "TS Codes"
	sectionExtremum    = "Extremum Codes"
	sectionProbability = "Probability Codes And Associated Values"
	sectionSendCodes   = "Send Codes Or Duration Defaults Other Than I"
	sectionQualifier   = "Data Qualifier Codes"
	sectionMaxErrors   = "Max Number Of Errors"
)

var shefparmSectionOrder = []string{
	sectionPE, sectionDuration, sectionTS, sectionExtremum,
	sectionProbability, sectionSendCodes, sectionQualifier, sectionMaxErrors,
}

// ParamRegistry holds the canonical SHEF code tables (C1). It is built once
// and is safe for concurrent read-only use by multiple Decoder runs
// thereafter (§5 shared resources).
type ParamRegistry struct {
	peConversions   map[string]float64
	durationLetters map[byte]int // letter -> internal numeric duration code
	tsCodes         map[string]bool
	extremumCodes   map[byte]bool
	probCodes       map[byte]float64
	qualifierCodes  map[byte]bool
	defaultDurForPE map[string]byte
	sendCodes       map[string]sendCodeDefault
	maxErrors       uint
}

// NewParamRegistry returns a registry seeded with the decoder's built-in
// defaults (equivalent to running shefit with no SHEFPARM file).
func NewParamRegistry() *ParamRegistry {
	r := &ParamRegistry{
		peConversions:   make(map[string]float64, len(defaultPEConversions)),
		durationLetters: make(map[byte]int, len(defaultDurationCodes)),
		tsCodes:         make(map[string]bool, len(defaultTypeSourceCodes)),
		extremumCodes:   make(map[byte]bool, len(defaultExtremumCodes)),
		probCodes:       make(map[byte]float64, len(defaultProbabilityCodes)),
		qualifierCodes:  make(map[byte]bool, len(defaultQualifierCodes)),
		defaultDurForPE: make(map[string]byte, len(defaultDurationForPE)),
		sendCodes:       make(map[string]sendCodeDefault, len(defaultSendCodes)),
		maxErrors:       defaultMaxErrors,
	}
	for k, v := range defaultPEConversions {
		r.peConversions[k] = v
	}
	for k, v := range defaultDurationCodes {
		r.durationLetters[k] = v
	}
	for k, v := range defaultTypeSourceCodes {
		r.tsCodes[k] = v
	}
	for k, v := range defaultExtremumCodes {
		r.extremumCodes[k] = v
	}
	for k, v := range defaultProbabilityCodes {
		r.probCodes[k] = v
	}
	for k, v := range defaultQualifierCodes {
		r.qualifierCodes[k] = v
	}
	for k, v := range defaultDurationForPE {
		r.defaultDurForPE[k] = v
	}
	for k, v := range defaultSendCodes {
		r.sendCodes[k] = v
	}
	return r
}

// LookupPE returns the registry entry for a 2-letter PE code.
func (r *ParamRegistry) LookupPE(code string) (PEEntry, bool) {
	factor, ok := r.peConversions[strings.ToUpper(code)]
	if !ok {
		return PEEntry{}, false
	}
	dur := byte('I')
	if d, ok := r.defaultDurForPE[strings.ToUpper(code)]; ok {
		dur = d
	}
	return PEEntry{Code: strings.ToUpper(code), EnglishFactor: factor, DefaultDuration: dur}, true
}

// LookupDurationCode returns the duration in minutes for a 1-letter SHEF
// duration code, or -1 if the code maps to a variable/unknown duration.
func (r *ParamRegistry) LookupDurationCode(c byte) (int, bool) {
	code, ok := r.durationLetters[c]
	if !ok {
		return 0, false
	}
	return durationMinutes(code), true
}

// LookupTypeSource reports whether a 2-character Type+Source code is valid.
func (r *ParamRegistry) LookupTypeSource(code string) bool {
	return r.tsCodes[strings.ToUpper(code)]
}

// LookupExtremum reports whether a 1-character Extremum code is valid.
func (r *ParamRegistry) LookupExtremum(c byte) bool {
	if c == 0 {
		return true // unspecified defaults to 'Z', validated by caller
	}
	return r.extremumCodes[upperByte(c)]
}

// LookupProbability returns the numeric exceedance value for a probability code.
func (r *ParamRegistry) LookupProbability(c byte) (float64, bool) {
	v, ok := r.probCodes[upperByte(c)]
	return v, ok
}

// LookupQualifier reports whether a 1-character data-qualifier code is valid.
func (r *ParamRegistry) LookupQualifier(c byte) bool {
	return r.qualifierCodes[upperByte(c)]
}

// LookupSendCode returns the parameter-code expansion for a 2-letter
// "send code" shorthand (a 2-letter body token that is not a registered PE).
func (r *ParamRegistry) LookupSendCode(pe string) (sendCodeDefault, bool) {
	v, ok := r.sendCodes[strings.ToUpper(pe)]
	return v, ok
}

// MaxErrors returns the configured maximum recoverable-error threshold.
func (r *ParamRegistry) MaxErrors() uint {
	return r.maxErrors
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// MergeSHEFPARM applies one SHEFPARM override file's text to the registry in
// place, returning a diagnostic per changed or rejected line. An illegal
// line is logged and skipped; it never aborts the merge (§4.1 failure mode).
func (r *ParamRegistry) MergeSHEFPARM(text string) ([]OverrideDiagnostic, error) {
	var diags []OverrideDiagnostic
	var merr *multierror.Error

	section := ""
	sc := bufio.NewScanner(strings.NewReader(text))
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), " \t")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isSHEFPARMSectionHeader(trimmed) {
			section = trimmed
			continue
		}
		if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "#") {
			continue
		}

		d, err := r.applySHEFPARMLine(section, lineNum, trimmed)
		if err != nil {
			merr = multierror.Append(merr, err)
			diags = append(diags, OverrideDiagnostic{Severity: SeverityWarning, Section: section, Line: lineNum, Text: err.Error()})
			continue
		}
		diags = append(diags, d)
	}
	if err := sc.Err(); err != nil {
		return diags, IOErrorf("reading SHEFPARM text", err)
	}
	return diags, merr.ErrorOrNil()
}

func isSHEFPARMSectionHeader(line string) bool {
	for _, s := range shefparmSectionOrder {
		if strings.EqualFold(line, s) {
			return true
		}
	}
	return false
}

func (r *ParamRegistry) applySHEFPARMLine(section string, lineNum int, line string) (OverrideDiagnostic, error) {
	fields := strings.Fields(line)
	switch section {
	case sectionPE:
		if len(fields) < 2 {
			return OverrideDiagnostic{}, errors.Newf("malformed PE line %q", line)
		}
		factor, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return OverrideDiagnostic{}, errors.Wrapf(err, "parsing PE conversion factor %q", line)
		}
		code := strings.ToUpper(fields[0])
		r.peConversions[code] = factor
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("PE %s factor -> %g", code, factor)}, nil

	case sectionDuration:
		if len(fields) < 2 || len(fields[0]) != 1 {
			return OverrideDiagnostic{}, errors.Newf("malformed duration line %q", line)
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return OverrideDiagnostic{}, errors.Wrapf(err, "parsing duration code %q", line)
		}
		letter := strings.ToUpper(fields[0])[0]
		r.durationLetters[letter] = code
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("duration %c -> %d", letter, code)}, nil

	case sectionTS:
		if len(fields) < 1 || len(fields[0]) != 2 {
			return OverrideDiagnostic{}, errors.Newf("malformed TS line %q", line)
		}
		code := strings.ToUpper(fields[0])
		r.tsCodes[code] = true
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("TS %s added", code)}, nil

	case sectionExtremum:
		if len(fields) < 1 || len(fields[0]) != 1 {
			return OverrideDiagnostic{}, errors.Newf("malformed extremum line %q", line)
		}
		code := upperByte(fields[0][0])
		r.extremumCodes[code] = true
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("extremum %c added", code)}, nil

	case sectionProbability:
		if len(fields) < 2 || len(fields[0]) != 1 {
			return OverrideDiagnostic{}, errors.Newf("malformed probability line %q", line)
		}
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return OverrideDiagnostic{}, errors.Wrapf(err, "parsing probability value %q", line)
		}
		code := upperByte(fields[0][0])
		r.probCodes[code] = val
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("probability %c -> %g", code, val)}, nil

	case sectionSendCodes:
		if len(fields) < 2 || len(fields[0]) != 2 {
			return OverrideDiagnostic{}, errors.Newf("malformed send-code line %q", line)
		}
		code := strings.ToUpper(fields[0])
		reset := len(fields) >= 3 && strings.EqualFold(fields[2], "true")
		r.sendCodes[code] = sendCodeDefault{ParamCode: strings.ToUpper(fields[1]), Reset0700: reset}
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("send code %s -> %s", code, fields[1])}, nil

	case sectionQualifier:
		if len(fields) < 1 || len(fields[0]) != 1 {
			return OverrideDiagnostic{}, errors.Newf("malformed qualifier line %q", line)
		}
		code := upperByte(fields[0][0])
		r.qualifierCodes[code] = true
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("qualifier %c added", code)}, nil

	case sectionMaxErrors:
		if len(fields) < 1 {
			return OverrideDiagnostic{}, errors.Newf("malformed max-errors line %q", line)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return OverrideDiagnostic{}, errors.Wrapf(err, "parsing max errors %q", line)
		}
		r.maxErrors = uint(n)
		return OverrideDiagnostic{Severity: SeverityInfo, Section: section, Line: lineNum,
			Text: fmt.Sprintf("max errors -> %d", n)}, nil

	default:
		return OverrideDiagnostic{}, errors.Newf("line outside any recognized section: %q", line)
	}
}

// EmitSHEFPARM serializes the current registry state back to SHEFPARM text,
// in the section order listed in §4.1, such that re-merging the output into
// a fresh built-in registry reproduces this registry's state (§8 property 7).
func (r *ParamRegistry) EmitSHEFPARM() (string, error) {
	var b strings.Builder

	b.WriteString(sectionPE + "\n")
	for _, code := range sortedKeys(r.peConversions) {
		fmt.Fprintf(&b, "%-2s %10.6f\n", code, r.peConversions[code])
	}

	b.WriteString(sectionDuration + "\n")
	for _, letter := range sortedByteKeys(r.durationLetters) {
		fmt.Fprintf(&b, "%c   %04d\n", letter, r.durationLetters[letter])
	}

	b.WriteString(sectionTS + "\n")
	for _, code := range sortedStringSet(r.tsCodes) {
		fmt.Fprintf(&b, "%s\n", code)
	}

	b.WriteString(sectionExtremum + "\n")
	for _, c := range sortedByteSet(r.extremumCodes) {
		fmt.Fprintf(&b, "%c\n", c)
	}

	b.WriteString(sectionProbability + "\n")
	for _, c := range sortedByteFloatKeys(r.probCodes) {
		fmt.Fprintf(&b, "%c  %.4f\n", c, r.probCodes[c])
	}

	b.WriteString(sectionSendCodes + "\n")
	for _, code := range sortedSendCodeKeys(r.sendCodes) {
		fmt.Fprintf(&b, "%s %s %t\n", code, r.sendCodes[code].ParamCode, r.sendCodes[code].Reset0700)
	}

	b.WriteString(sectionQualifier + "\n")
	for _, c := range sortedByteSet(r.qualifierCodes) {
		fmt.Fprintf(&b, "%c\n", c)
	}

	b.WriteString(sectionMaxErrors + "\n")
	fmt.Fprintf(&b, "%d\n", r.maxErrors)

	return b.String(), nil
}

// WriteSHEFPARM writes EmitSHEFPARM's output to w, used by the CLI's
// --make_shefparm flag.
func (r *ParamRegistry) WriteSHEFPARM(w io.Writer) error {
	text, err := r.EmitSHEFPARM()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedByteKeys(m map[byte]int) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedStringSet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedByteSet(m map[byte]bool) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedByteFloatKeys(m map[byte]float64) []byte {
	keys := make([]byte, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedSendCodeKeys(m map[string]sendCodeDefault) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
