package shef

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// ProcessedDecoder re-parses text previously emitted by Emitter (Format 1 or
// Format 2) back into Values, the inverse of EmitLine (§6.2, §6.3,
// "both formats are self-parseable: the decoder accepts either via a
// --processed flag"). It shares the Tokenizer/Decoder pull-API shape:
// advance with Next, read the current value with Value.
type ProcessedDecoder struct {
	scan     *bufio.Scanner
	format   Format
	registry *ParamRegistry
	cur      *Value
	diags    []*Diagnostic
	line     int
	err      error
}

// NewProcessedDecoder returns a ProcessedDecoder reading format-tagged lines
// from r. format must be Format1 or Format2; the caller is expected to know
// which format the stream was produced in since neither layout carries a
// self-describing tag (§6.1 --processed works together with --format). reg
// supplies the probability-bucket lookup used to restore Probability from
// ParamCode's sixth character; a nil reg falls back to NewParamRegistry().
func NewProcessedDecoder(r io.Reader, format Format, reg *ParamRegistry) *ProcessedDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if reg == nil {
		reg = NewParamRegistry()
	}
	return &ProcessedDecoder{scan: sc, format: format, registry: reg}
}

// Diagnostics returns every diagnostic accumulated so far.
func (p *ProcessedDecoder) Diagnostics() []*Diagnostic {
	return p.diags
}

// Err returns the first fatal I/O error encountered, if any.
func (p *ProcessedDecoder) Err() error {
	return p.err
}

// Next advances to the next Value, skipping and recording a diagnostic for
// any line that fails to parse (mirroring the Decoder's permissive
// recovery: one bad line never stops the run).
func (p *ProcessedDecoder) Next() bool {
	for p.scan.Scan() {
		p.line++
		text := p.scan.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		var v *Value
		var err error
		if p.format == Format2 {
			v, err = parseFormat2Line(text, p.registry)
		} else {
			v, err = parseFormat1Line(text, p.registry)
		}
		if err != nil {
			p.diags = append(p.diags, SyntaxErrorf("", p.line, text, err))
			continue
		}
		p.cur = v
		return true
	}
	if err := p.scan.Err(); err != nil {
		p.err = IOErrorf("reading processed SHEF input", err)
	}
	return false
}

// Value returns the current Value after a successful Next.
func (p *ProcessedDecoder) Value() *Value {
	return p.cur
}

// parseFormat1Line is the inverse of emitFormat1 (§6.2 layout, §8 property
// 1: decode(emit_format1([v])) == [v]). It slices fixed byte columns rather
// than splitting on whitespace because the flags column (§6.2 "flags:10")
// is itself a run of letter-or-blank positions — a naive field split would
// fracture it at its own embedded blanks.
func parseFormat1Line(line string, reg *ParamRegistry) (*Value, error) {
	const (
		locEnd   = 10
		obsEnd   = locEnd + 19
		creStart = obsEnd + 2
		creEnd   = creStart + 19
		prmStart = creEnd + 2
		prmEnd   = prmStart + 6
		valStart = prmEnd + 4
		valEnd   = valStart + 12
		znStart  = valEnd + 1
		znEnd    = znStart + 2
		durStart = znEnd + 1
		durEnd   = durStart + 8
		prbStart = durEnd + 1
		prbEnd   = prbStart + 4
		tscStart = prbEnd + 1
		tscEnd   = tscStart + 1
		flgStart = tscEnd + 1
		flgEnd   = flgStart + 10
	)
	if len(line) < flgEnd {
		return nil, NumericErrorf("", 0, "", line, nil)
	}

	loc := strings.TrimSpace(line[0:locEnd])
	obsStr := strings.TrimSpace(line[locEnd:obsEnd])
	creStr := strings.TrimSpace(line[creStart:creEnd])
	paramCode := strings.TrimSpace(line[prmStart:prmEnd])
	valStr := strings.TrimSpace(line[valStart:valEnd])
	durStr := strings.TrimSpace(line[durStart:durEnd])
	prbStr := strings.TrimSpace(line[prbStart:prbEnd])
	tscStr := strings.TrimSpace(line[tscStart:tscEnd])
	flagsStr := line[flgStart:flgEnd]

	obs, err := time.ParseInLocation("2006-01-02 15:04:05", obsStr, time.UTC)
	if err != nil {
		return nil, err
	}
	var cre time.Time
	if creStr != "" && creStr != zeroStamp {
		cre, err = time.ParseInLocation("2006-01-02 15:04:05", creStr, time.UTC)
		if err != nil {
			return nil, err
		}
	}
	value, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return nil, err
	}
	dur, err := strconv.ParseFloat(durStr, 64)
	if err != nil {
		return nil, err
	}
	if _, err := strconv.ParseFloat(prbStr, 64); err != nil {
		// The numeric probability column is display-only (emitFormat1 clamps
		// sentinel buckets like Z/M to "0000"); Probability itself is
		// restored below from ParamCode's probability-bucket character.
		return nil, err
	}
	tsCode, err := strconv.Atoi(tscStr)
	if err != nil {
		return nil, err
	}

	comment := ""
	if rest := line[flgEnd:]; len(rest) > 0 {
		quoteStart := strings.IndexByte(rest, '"')
		quoteEnd := strings.LastIndexByte(rest, '"')
		if quoteStart >= 0 && quoteEnd > quoteStart {
			comment = rest[quoteStart+1 : quoteEnd]
		}
	}
	if comment == " " {
		comment = ""
	}

	durVal := int(dur)
	if dur < 0 {
		durVal = -1
	}
	var prob float64
	if len(paramCode) == 6 {
		prob, _ = reg.LookupProbability(paramCode[5])
	}

	v := &Value{
		Location:       loc,
		ObsTime:        obs,
		CreationTime:   cre,
		ParamCode:      paramCode,
		DurationValue:  durVal,
		Value:          value,
		Probability:    prob,
		TimeSeriesCode: tsCode,
		Comment:        comment,
		Flags:          parseFlagsString(flagsStr),
	}
	v.Qualifier = 'Z'
	if v.Flags.Has(FlagMissing) {
		v.Value = Sentinel
	}
	if v.Flags.Has(FlagTrace) {
		v.Value = TraceValue
	}
	return v, nil
}

// parseFormat2Line is the inverse of emitFormat2 (§6.3 layout, §8 property
// 2, modulo the retained-comment truncation emitFormat2 already applied).
// Like parseFormat1Line, it slices fixed columns rather than splitting on
// whitespace because the 4-character flags column can itself contain
// embedded blanks between flag letters.
func parseFormat2Line(line string, reg *ParamRegistry) (*Value, error) {
	const (
		locEnd  = 8
		ymStart = locEnd + 1
		ymEnd   = ymStart + 6
		ddStart = ymEnd + 1
		ddEnd   = ddStart + 2
		hhStart = ddEnd + 1
		hhEnd   = hhStart + 2
		mmStart = hhEnd + 1
		mmEnd   = mmStart + 2
		peStart = mmEnd + 4
		peEnd   = peStart + 2
		tepStart = peEnd + 1
		tepEnd   = tepStart + 4
		valStart = tepEnd + 1
		valEnd   = valStart + 10
		znStart  = valEnd + 1
		znEnd    = znStart + 1
		durStart = znEnd + 1
		durEnd   = durStart + 5
		flgStart = durEnd + 4
		flgEnd   = flgStart + 4
		tscStart = flgEnd + 1
		tscEnd   = tscStart + 1
	)
	if len(line) < tscEnd {
		return nil, NumericErrorf("", 0, "", line, nil)
	}

	loc := strings.TrimSpace(line[0:locEnd])
	ymStr := line[ymStart:ymEnd]
	ddStr := strings.TrimSpace(line[ddStart:ddEnd])
	hhStr := strings.TrimSpace(line[hhStart:hhEnd])
	mmStr := strings.TrimSpace(line[mmStart:mmEnd])
	pe := line[peStart:peEnd]
	tsExtProb := line[tepStart:tepEnd]
	valStr := strings.TrimSpace(line[valStart:valEnd])
	durStr := strings.TrimSpace(line[durStart:durEnd])
	flagsStr := line[flgStart:flgEnd]
	tscStr := strings.TrimSpace(line[tscStart:tscEnd])

	if len(ymStr) != 6 {
		return nil, NumericErrorf("", 0, "", line, nil)
	}
	year, err := strconv.Atoi(ymStr[:4])
	if err != nil {
		return nil, err
	}
	month, err := strconv.Atoi(ymStr[4:6])
	if err != nil {
		return nil, err
	}
	day, err := strconv.Atoi(ddStr)
	if err != nil {
		return nil, err
	}
	hour, err := strconv.Atoi(hhStr)
	if err != nil {
		return nil, err
	}
	minute, err := strconv.Atoi(mmStr)
	if err != nil {
		return nil, err
	}
	obs := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)

	value, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return nil, err
	}
	dur, err := strconv.ParseFloat(durStr, 64)
	if err != nil {
		return nil, err
	}
	tsCode, err := strconv.Atoi(tscStr)
	if err != nil {
		return nil, err
	}

	durVal := int(dur)
	if dur < 0 {
		durVal = -1
	}

	comment := ""
	if rest := strings.TrimPrefix(line[tscEnd:], " "); rest != "" {
		comment = rest
	}

	paramCode := pe + tsExtProb
	var prob float64
	if len(paramCode) == 6 {
		prob, _ = reg.LookupProbability(paramCode[5])
	}

	v := &Value{
		Location:       loc,
		ObsTime:        obs,
		ParamCode:      paramCode,
		DurationValue:  durVal,
		Value:          value,
		Probability:    prob,
		TimeSeriesCode: tsCode,
		Comment:        comment,
		Flags:          parseFlagsString(flagsStr),
	}
	v.Qualifier = 'Z'
	if v.Flags.Has(FlagMissing) {
		v.Value = Sentinel
	}
	if v.Flags.Has(FlagTrace) {
		v.Value = TraceValue
	}
	return v, nil
}

// parseFlagsString is the inverse of flagsString: each fixed slot maps back
// to its Flag bit, ignoring blanks.
func parseFlagsString(s string) Flag {
	var f Flag
	if len(s) > 0 && s[0] == 'M' {
		f |= FlagMissing
	}
	if len(s) > 1 && s[1] == 'T' {
		f |= FlagTrace
	}
	if len(s) > 2 && s[2] == 'R' {
		f |= FlagRevised
	}
	if len(s) > 3 && s[3] == 'E' {
		f |= FlagEstimated
	}
	return f
}
