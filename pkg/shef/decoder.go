package shef

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Mode bundles the run-time switches that affect decode behavior (§4.3.4).
type Mode struct {
	// Strict selects strict error recovery: any error invalidates the
	// enclosing message instead of skipping to the next delimiter.
	Strict bool
}

// Decoder turns MessageRecords pulled from a Tokenizer into a flat,
// document-ordered stream of Values (C3). It tracks a running recoverable-
// error count against the registry's max_errors threshold across the
// lifetime of one Decoder (§4.3.4, §5).
type Decoder struct {
	tok       *Tokenizer
	registry  *ParamRegistry
	timeModel *TimeModel
	clock     clockwork.Clock
	mode      Mode

	errCount uint
	buf      []*Value
	bufIdx   int
	diags    []*Diagnostic
	cur      *Value
	fatal    error
	lastKind MessageKind
	newMsg   bool
}

// NewDecoder returns a Decoder reading MessageRecords from tok.
func NewDecoder(tok *Tokenizer, registry *ParamRegistry, timeModel *TimeModel, mode Mode) *Decoder {
	return &Decoder{
		tok:       tok,
		registry:  registry,
		timeModel: timeModel,
		clock:     clockwork.NewRealClock(),
		mode:      mode,
	}
}

// WithClock overrides the Decoder's time source, used by tests to make the
// year chosen for an MMDD obs-date deterministic.
func (d *Decoder) WithClock(c clockwork.Clock) *Decoder {
	d.clock = c
	return d
}

// Diagnostics returns every diagnostic accumulated so far, recoverable and
// fatal alike, in emission order.
func (d *Decoder) Diagnostics() []*Diagnostic {
	return d.diags
}

// Err returns the fatal error that stopped decoding, if any (ErrMaxErrors,
// an IOError from the underlying Tokenizer, or a ConfigError).
func (d *Decoder) Err() error {
	if d.fatal != nil {
		return d.fatal
	}
	return d.tok.Err()
}

// Next advances to the next Value. It returns false when the input is
// exhausted or a fatal error stops the run; check Err to distinguish them.
func (d *Decoder) Next() bool {
	for {
		if d.bufIdx < len(d.buf) {
			d.cur = d.buf[d.bufIdx]
			d.bufIdx++
			return true
		}
		if d.fatal != nil {
			return false
		}
		if !d.tok.Next() {
			return false
		}
		rec := d.tok.Record()
		d.lastKind = rec.Kind
		d.newMsg = true
		values, diags, fatal := d.decodeMessage(rec)
		d.diags = append(d.diags, diags...)
		d.buf = values
		d.bufIdx = 0
		if fatal != nil {
			d.fatal = fatal
			if len(d.buf) == 0 {
				return false
			}
		}
	}
}

// Value returns the current Value after a successful Next.
func (d *Decoder) Value() *Value {
	return d.cur
}

func (d *Decoder) recordDiagnostic(diag *Diagnostic) (fatal error) {
	if diag.Recoverable() {
		d.errCount++
		if d.errCount >= d.registry.MaxErrors() {
			return ErrMaxErrors
		}
		return nil
	}
	return diag
}

// decodeMessage decodes one MessageRecord into an ordered slice of Values
// plus its own diagnostics (§4.3.3, §5 ordering rule).
func (d *Decoder) decodeMessage(rec MessageRecord) ([]*Value, []*Diagnostic, error) {
	var diags []*Diagnostic
	emit := func(diag *Diagnostic) error {
		diags = append(diags, diag)
		if fatal := d.recordDiagnostic(diag); fatal != nil {
			return fatal
		}
		return nil
	}

	if rec.Kind == KindUnrecognized {
		_ = emit(rec.Diagnostic)
		return nil, diags, nil
	}

	ctx, paramHint, rest, err := d.parseHeaderLine(rec)
	if err != nil {
		if fatalErr := emit(err); fatalErr != nil {
			return nil, diags, fatalErr
		}
		if d.mode.Strict {
			return nil, diags, nil
		}
	}
	ctx.Revised = rec.Revised

	for _, bl := range rec.Body {
		if bl.NoSeq && rec.Kind != KindB {
			diags = append(diags, SyntaxErrorf("", bl.LineNum, "continuation without sequence number", nil))
		}
	}

	var values []*Value
	var msgErr error
	switch rec.Kind {
	case KindA:
		tokens := splitSlash(rest)
		for _, bl := range rec.Body {
			tokens = append(tokens, splitSlash(bl.Text)...)
		}
		values, msgErr = d.decodeA(rec, ctx, tokens, emit)
	case KindE:
		tokens := splitSlash(rest)
		for _, bl := range rec.Body {
			tokens = append(tokens, splitSlash(bl.Text)...)
		}
		values, msgErr = d.decodeE(rec, ctx, paramHint, tokens, emit)
	case KindB:
		values, msgErr = d.decodeB(rec, ctx, rest, emit)
	}
	if d.mode.Strict && len(diags) > 0 {
		// In strict mode any diagnostic for this message invalidates it.
		return nil, diags, msgErr
	}
	return values, diags, msgErr
}

var (
	// The revised-suffix "R" and the mandatory separator are two different
	// things sharing one character class position would wrongly conflate:
	// ".AR LOC" has "R" then a space, ".A LOC" has only the space. Consuming
	// "R or one whitespace char" and then zero-or-more more whitespace
	// matches both without requiring two separator characters in the
	// unrevised case.
	headerPrefixRe = regexp.MustCompile(`^\.[ABE](?:R|\s)\s*(\S+)\s+(\S+)\s*(.*)$`)
	zoneTokenRe    = regexp.MustCompile(`^[A-Z]{1,2}$`)
)

// parseHeaderLine parses the `.<Type>[R] <location> <obs-date> [<zone>]
// [D*...]` prefix of a MessageRecord's header and returns the resulting
// HeaderContext, a parameter-hint string that is always empty (no caller
// uses it), and the unconsumed remainder of the line to be tokenized as
// body (§4.3.1).
//
// The optional zone token is recognized by splitting off the first
// whitespace-delimited word after the obs-date and checking it against
// ValidateZone, rather than by a single greedy regexp: a naive
// "1-2 uppercase letters" pattern matched against the unsplit remainder
// would also match the leading "DH"/"DM"/... of a D-field token whenever a
// message omits the zone (e.g. ".A LOC 20240630 DH0000/PC ..."), silently
// truncating the D-field. None of the D-field letter pairs collide with a
// real zone mnemonic, so splitting on the word boundary first removes the
// ambiguity entirely.
func (d *Decoder) parseHeaderLine(rec MessageRecord) (HeaderContext, string, string, *Diagnostic) {
	var ctx HeaderContext
	m := headerPrefixRe.FindStringSubmatch(rec.Header)
	if m == nil {
		return ctx, "", "", SyntaxErrorf("", rec.StartLine, rec.Header, nil)
	}
	ctx.Location = m[1]
	ctx.Zone = "Z"

	rest := m[3]
	firstTok := rest
	tail := ""
	if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
		firstTok = rest[:sp]
		tail = strings.TrimLeft(rest[sp:], " \t")
	}
	if firstTok != "" && zoneTokenRe.MatchString(firstTok) {
		if err := d.timeModel.ValidateZone(firstTok); err == nil {
			ctx.Zone = firstTok
			rest = tail
		}
	}

	obsDate, err := parseObsDate(m[2], d.clock.Now())
	if err != nil {
		return ctx, "", "", TimeErrorf("", rec.StartLine, m[2], err)
	}
	ctx.ObsDate = obsDate

	return ctx, "", rest, nil
}

// parseObsDate parses a YYMMDD, YYYYMMDD, or MMDD header obs-date token.
// A bare two-digit year maps to 2000+YY if YY<70 else 1900+YY (§4.5).
func parseObsDate(tok string, now time.Time) (time.Time, error) {
	digits := tok
	switch len(digits) {
	case 8: // YYYYMMDD
		y, err := strconv.Atoi(digits[0:4])
		if err != nil {
			return time.Time{}, err
		}
		mo, err := strconv.Atoi(digits[4:6])
		if err != nil {
			return time.Time{}, err
		}
		da, err := strconv.Atoi(digits[6:8])
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(y, time.Month(mo), da, 0, 0, 0, 0, time.UTC), nil
	case 6: // YYMMDD
		yy, err := strconv.Atoi(digits[0:2])
		if err != nil {
			return time.Time{}, err
		}
		mo, err := strconv.Atoi(digits[2:4])
		if err != nil {
			return time.Time{}, err
		}
		da, err := strconv.Atoi(digits[4:6])
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(expandYear(yy), time.Month(mo), da, 0, 0, 0, 0, time.UTC), nil
	case 4: // MMDD, inherits the current year
		mo, err := strconv.Atoi(digits[0:2])
		if err != nil {
			return time.Time{}, err
		}
		da, err := strconv.Atoi(digits[2:4])
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(now.Year(), time.Month(mo), da, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, errBadDateLength
	}
}

var errBadDateLength = &strconv.NumError{Func: "parseObsDate", Num: "", Err: strconv.ErrSyntax}

func expandYear(yy int) int {
	if yy < 70 {
		return 2000 + yy
	}
	return 1900 + yy
}

// dField holds a parsed D* token's letter and digit payload.
type dField struct {
	Letter byte
	Value  string
}

var dFieldRe = regexp.MustCompile(`^D([HMDCIUVQRT])(.*)$`)

func parseDField(tok string) (dField, bool) {
	m := dFieldRe.FindStringSubmatch(tok)
	if m == nil {
		return dField{}, false
	}
	return dField{Letter: m[1][0], Value: m[2]}, true
}

// applyDField mutates ctx in place according to one D* token (§4.3.1). It
// returns a diagnostic on malformed input; the caller decides recoverability.
func (d *Decoder) applyDField(ctx *HeaderContext, f dField, lineNum int) *Diagnostic {
	switch f.Letter {
	case 'H': // DH: hour-of-day, HH/HHMM/HHMMSS
		h, mnt, sec, err := parseHMS(f.Value)
		if err != nil {
			return TimeErrorf("", lineNum, "D"+string(f.Letter)+f.Value, err)
		}
		base := ctx.ObsDate
		ctx.ObsDate = time.Date(base.Year(), base.Month(), base.Day(), h, mnt, sec, 0, time.UTC)
	case 'M': // DM: month+day(+year) override
		switch len(f.Value) {
		case 2:
			mo, err := strconv.Atoi(f.Value)
			if err != nil {
				return TimeErrorf("", lineNum, "DM"+f.Value, err)
			}
			ctx.ObsDate = time.Date(ctx.ObsDate.Year(), time.Month(mo), ctx.ObsDate.Day(), ctx.ObsDate.Hour(), ctx.ObsDate.Minute(), ctx.ObsDate.Second(), 0, time.UTC)
		case 4:
			mo, err1 := strconv.Atoi(f.Value[0:2])
			da, err2 := strconv.Atoi(f.Value[2:4])
			if err1 != nil || err2 != nil {
				return TimeErrorf("", lineNum, "DM"+f.Value, nil)
			}
			ctx.ObsDate = time.Date(ctx.ObsDate.Year(), time.Month(mo), da, ctx.ObsDate.Hour(), ctx.ObsDate.Minute(), ctx.ObsDate.Second(), 0, time.UTC)
		case 6:
			yy, err1 := strconv.Atoi(f.Value[0:2])
			mo, err2 := strconv.Atoi(f.Value[2:4])
			da, err3 := strconv.Atoi(f.Value[4:6])
			if err1 != nil || err2 != nil || err3 != nil {
				return TimeErrorf("", lineNum, "DM"+f.Value, nil)
			}
			ctx.ObsDate = time.Date(expandYear(yy), time.Month(mo), da, ctx.ObsDate.Hour(), ctx.ObsDate.Minute(), ctx.ObsDate.Second(), 0, time.UTC)
		default:
			return TimeErrorf("", lineNum, "DM"+f.Value, nil)
		}
	case 'D': // DD: day-of-month override
		da, err := strconv.Atoi(f.Value)
		if err != nil {
			return TimeErrorf("", lineNum, "DD"+f.Value, err)
		}
		ctx.ObsDate = time.Date(ctx.ObsDate.Year(), ctx.ObsDate.Month(), da, ctx.ObsDate.Hour(), ctx.ObsDate.Minute(), ctx.ObsDate.Second(), 0, time.UTC)
	case 'C': // DC: creation date/time
		ct, err := parseCreationDate(f.Value, ctx.ObsDate)
		if err != nil {
			return TimeErrorf("", lineNum, "DC"+f.Value, err)
		}
		ctx.CreationDate = ct
	case 'I': // DI: .E expansion interval, letter + signed magnitude
		if len(f.Value) < 2 {
			return ContextErrorf("", lineNum, "malformed DI token: "+f.Value)
		}
		ctx.TimeSeries = f.Value
	case 'U': // DU: units system
		switch strings.ToUpper(f.Value) {
		case "E":
			ctx.UnitsEnglish = true
		case "S":
			ctx.UnitsEnglish = false
		default:
			return SyntaxErrorf("", lineNum, "DU"+f.Value, nil)
		}
	case 'V': // DV: variable duration override, <letter><int>
		if len(f.Value) < 2 {
			return ContextErrorf("", lineNum, "malformed DV token: "+f.Value)
		}
		ctx.DurationCode = f.Value[0]
	case 'Q': // DQ: qualifier letter
		if len(f.Value) != 1 {
			return ContextErrorf("", lineNum, "malformed DQ token: "+f.Value)
		}
		ctx.DataValueQualifier = f.Value[0]
	case 'R': // DR: relative date offset, <unit><+-int>
		nt, err := applyRelativeOffset(ctx.ObsDate, f.Value)
		if err != nil {
			return TimeErrorf("", lineNum, "DR"+f.Value, err)
		}
		ctx.ObsDate = nt
	case 'T': // DT: creation time, same formats as DH but stamps CreationDate
		h, mnt, sec, err := parseHMS(f.Value)
		if err != nil {
			return TimeErrorf("", lineNum, "DT"+f.Value, err)
		}
		base := ctx.CreationDate
		if base.IsZero() {
			base = ctx.ObsDate
		}
		ctx.CreationDate = time.Date(base.Year(), base.Month(), base.Day(), h, mnt, sec, 0, time.UTC)
	}
	return nil
}

func parseHMS(v string) (h, m, s int, err error) {
	switch len(v) {
	case 2:
		h, err = strconv.Atoi(v)
	case 4:
		h, err = strconv.Atoi(v[0:2])
		if err == nil {
			m, err = strconv.Atoi(v[2:4])
		}
	case 6:
		h, err = strconv.Atoi(v[0:2])
		if err == nil {
			m, err = strconv.Atoi(v[2:4])
		}
		if err == nil {
			s, err = strconv.Atoi(v[4:6])
		}
	default:
		err = errBadDateLength
	}
	return
}

func parseCreationDate(v string, fallback time.Time) (time.Time, error) {
	switch len(v) {
	case 10: // YYMMDDHHMM
		yy, e1 := strconv.Atoi(v[0:2])
		mo, e2 := strconv.Atoi(v[2:4])
		da, e3 := strconv.Atoi(v[4:6])
		hh, e4 := strconv.Atoi(v[6:8])
		mi, e5 := strconv.Atoi(v[8:10])
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
			return time.Time{}, errBadDateLength
		}
		return time.Date(expandYear(yy), time.Month(mo), da, hh, mi, 0, 0, time.UTC), nil
	case 12, 14: // YYYYMMDDHHMM; in a 14-digit form the trailing seconds are ignored
		y, e1 := strconv.Atoi(v[0:4])
		mo, e2 := strconv.Atoi(v[4:6])
		da, e3 := strconv.Atoi(v[6:8])
		hh, e4 := strconv.Atoi(v[8:10])
		mi, e5 := strconv.Atoi(v[10:12])
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
			return time.Time{}, errBadDateLength
		}
		return time.Date(y, time.Month(mo), da, hh, mi, 0, 0, time.UTC), nil
	default:
		return time.Time{}, errBadDateLength
	}
}

// applyRelativeOffset applies a DR `<unit><+-int>` token to t. Units are
// n(minute), h(hour), d(day), m(month), y(year); month/year offsets clamp
// at end-of-month (§4.5, §9 Open Question on DR tie-breaks: modern mode
// clamps to the last valid day of the target month).
func applyRelativeOffset(t time.Time, v string) (time.Time, error) {
	if len(v) < 2 {
		return t, errBadDateLength
	}
	unit := v[0]
	n, err := strconv.Atoi(v[1:])
	if err != nil {
		return t, err
	}
	switch unit {
	case 'n', 'N':
		return t.Add(time.Duration(n) * time.Minute), nil
	case 'h', 'H':
		return t.Add(time.Duration(n) * time.Hour), nil
	case 'd', 'D':
		return t.AddDate(0, 0, n), nil
	case 'm', 'M':
		return AddMonths(t, MonthsDelta{Months: n}), nil
	case 'y', 'Y':
		return AddMonths(t, MonthsDelta{Months: n * 12}), nil
	default:
		return t, errBadDateLength
	}
}

// splitSlash splits a normalized token run on '/', dropping empty leading
// and trailing fields produced by a line that itself starts or ends with a
// delimiter.
func splitSlash(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var paramCodeTokenRe = regexp.MustCompile(`^([A-Z0-9]{2,6})(?:\s+(.*))?$`)

// isParamToken reports whether tok begins with a registered PE code or send
// code, returning the parameter code text and any trailing value text. When
// tok has the shape of a parameter code but its PE prefix isn't registered
// and its 2-letter form isn't a registered send code either, ok is false and
// unknownPE is true so callers can tell "not a parameter token at all" apart
// from "unknown PE code" (§7, RegistryMissError). isSendCode tells the
// caller to expand code via the registry's send-code table instead of the
// plain PE/TypeSrc/Extremum/Prob layout (§4.1 "Send codes... Other Than I").
func (d *Decoder) isParamToken(tok string) (code string, rest string, ok bool, unknownPE bool, isSendCode bool) {
	m := paramCodeTokenRe.FindStringSubmatch(tok)
	if m == nil {
		return "", "", false, false, false
	}
	pe := m[1][:2]
	if _, found := d.registry.LookupPE(pe); found {
		return m[1], m[2], true, false, false
	}
	if len(m[1]) == 2 {
		if _, found := d.registry.LookupSendCode(m[1]); found {
			return m[1], m[2], true, false, true
		}
	}
	return "", "", false, true, false
}

// expandParamCode fills the 6-character parameter code from a partial PE/
// TypeSrc/Extremum/Prob token, defaulting TypeSrc=RZ, Extremum=Z, Prob=Z
// (§3 invariant).
func expandParamCode(code string) string {
	paramCode, _ := expandLayeredCode(code, 0)
	return paramCode
}

// expandSendCode resolves a 2-letter send-code shorthand (§4.1, e.g. "HN" ->
// the reference decoder's "HGIRZNZ") to its full 6-character parameter code
// plus the duration letter it implies, by reusing expandLayeredCode against
// the registry's send-code table entry — which is laid out PE(2)+Dur(1)+
// TypeSrc(2)+Extremum(1)+Prob(1), one letter wider than a plain body token
// because it also carries the duration override a plain token leaves to the
// PE's registry default.
func (d *Decoder) expandSendCode(code string) (paramCode string, durLetter byte) {
	sc, ok := d.registry.LookupSendCode(code)
	if !ok {
		return expandParamCode(code), 0
	}
	return expandLayeredCode(sc.ParamCode, 1)
}

// expandLayeredCode is the shared layout walk behind expandParamCode and
// expandSendCode: PE(2), then durSkip bytes of leading duration letter
// (0 for a plain body token, 1 for a send-code table entry), then
// TypeSrc(2)/Extremum(1)/Prob(1), each defaulting to RZ/Z/Z when the token
// ran out of characters before it.
func expandLayeredCode(code string, durSkip int) (paramCode string, durLetter byte) {
	code = strings.ToUpper(code)
	pe := code
	rest := ""
	if len(code) >= 2 {
		pe = code[:2]
		rest = code[2:]
	}
	if durSkip > 0 && len(rest) >= durSkip {
		durLetter = rest[0]
		rest = rest[durSkip:]
	}
	ts := "RZ"
	ext := "Z"
	prob := "Z"
	if len(rest) >= 2 {
		ts = rest[:2]
	} else if len(rest) == 1 {
		ts = rest + "Z"
	}
	if len(rest) >= 3 {
		ext = rest[2:3]
	}
	if len(rest) >= 4 {
		prob = rest[3:4]
	}
	return pe + ts + ext + prob, durLetter
}

// parseValueToken parses a SHEF body value, returning the numeric value,
// flags, qualifier byte (0 if absent from the token), retained comment, and
// whether the token resolved to "null" (§4.3.3 step 7, §9 trace/missing/null).
func parseValueToken(tok string) (value float64, flags Flag, qualifier byte, comment string, isNull bool, err error) {
	tok = strings.TrimSpace(tok)
	if m := retainedCommentRe.FindString(tok); m != "" {
		comment = strings.Trim(m, `"`)
		tok = strings.TrimSpace(strings.Replace(tok, m, "", 1))
	}
	if tok == "" {
		return 0, 0, 0, comment, false, NumericErrorf("", 0, "", "empty value token", nil)
	}
	if tok == "+" {
		return 0, 0, 0, comment, true, nil
	}
	if tok == "M" || tok == "MSG" {
		return Sentinel, FlagMissing, 0, comment, false, nil
	}

	body := tok
	var q byte
	last := body[len(body)-1]
	if (last >= 'A' && last <= 'Z') && len(body) > 1 {
		q = last
		body = body[:len(body)-1]
	}
	if body == "T" {
		return TraceValue, FlagTrace, q, comment, false, nil
	}
	v, perr := strconv.ParseFloat(body, 64)
	if perr != nil {
		return 0, 0, 0, comment, false, NumericErrorf("", 0, "", tok, perr)
	}
	return v, 0, q, comment, false, nil
}

// decodeA decodes a .A message body: a slash-separated list of
// "<paramcode> <value>[<qualifier>][<retained-comment>]" fields with
// interleaved D* overrides (§4.3.2).
func (d *Decoder) decodeA(rec MessageRecord, ctx HeaderContext, tokens []string, emit func(*Diagnostic) error) ([]*Value, error) {
	var values []*Value
	lastComment := ""
	var lastKey string
	tsCode := 1

	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if f, ok := parseDField(tok); ok {
			if diag := d.applyDField(&ctx, f, rec.StartLine); diag != nil {
				if fatal := emit(diag); fatal != nil {
					return values, fatal
				}
			}
			continue
		}

		code, rest, ok, unknownPE, isSendCode := d.isParamToken(tok)
		if !ok {
			diag := SyntaxErrorf("", rec.StartLine, tok, nil)
			if unknownPE {
				diag = RegistryMissErrorf("", rec.StartLine, tok[:2], tok)
			}
			if fatal := emit(diag); fatal != nil {
				return values, fatal
			}
			continue
		}
		var paramCode string
		var sendDur byte
		if isSendCode {
			paramCode, sendDur = d.expandSendCode(code)
		} else {
			paramCode = expandParamCode(code)
		}
		val, flags, qual, comment, isNull, perr := parseValueToken(rest)
		if perr != nil {
			if diag, isDiag := perr.(*Diagnostic); isDiag {
				diag.PECode = code
				if fatal := emit(diag); fatal != nil {
					return values, fatal
				}
			}
			continue
		}
		if isNull {
			continue
		}
		if qual == 0 {
			qual = ctx.DataValueQualifier
		}
		if qual == 0 {
			qual = 'Z'
		}
		if comment != "" {
			lastComment = comment
		}

		obsUTC, terr := d.timeModel.ToUTC(ctx.Zone, ctx.ObsDate.Year(), int(ctx.ObsDate.Month()), ctx.ObsDate.Day(), ctx.ObsDate.Hour(), ctx.ObsDate.Minute(), ctx.ObsDate.Second())
		if terr != nil {
			if fatal := emit(TimeErrorf("", rec.StartLine, tok, terr)); fatal != nil {
				return values, fatal
			}
			continue
		}
		var creationUTC time.Time
		if !ctx.CreationDate.IsZero() {
			creationUTC, _ = d.timeModel.ToUTC(ctx.Zone, ctx.CreationDate.Year(), int(ctx.CreationDate.Month()), ctx.CreationDate.Day(), ctx.CreationDate.Hour(), ctx.CreationDate.Minute(), ctx.CreationDate.Second())
		}

		durCode, durMinutes := d.resolveDuration(paramCode[:2], ctx, sendDur)
		prob, _ := d.registry.LookupProbability(paramCode[5])
		if flags&FlagMissing != 0 {
			val = Sentinel
		}

		v := &Value{
			Location:      ctx.Location,
			ObsTime:       obsUTC,
			CreationTime:  creationUTC,
			ParamCode:     paramCode,
			DurationCode:  durCode,
			DurationValue: durMinutes,
			Value:         val,
			Qualifier:     qual,
			Probability:   prob,
			Revised:       ctx.Revised,
			Comment:       lastComment,
			Flags:         flags,
		}
		key := v.seriesKey()
		if key != lastKey {
			tsCode = 1
			lastKey = key
		} else {
			tsCode = 2
		}
		v.TimeSeriesCode = tsCode
		values = append(values, v)
	}
	return values, nil
}

// decodeE decodes a .E message body: a single parameter with a value list,
// each successive value offset from the header time by i*DI (§4.3.2,
// §3 monotonicity invariant).
func (d *Decoder) decodeE(rec MessageRecord, ctx HeaderContext, _ string, tokens []string, emit func(*Diagnostic) error) ([]*Value, error) {
	var values []*Value
	var paramCode string
	var sendDur byte
	var index int
	var lastComment string

	intervalMinutes := 0
	intervalTok := ""
	haveInterval := false

	for _, raw := range tokens {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		if f, ok := parseDField(tok); ok {
			if f.Letter == 'I' {
				mins, ierr := parseIntervalToken(f.Value)
				if ierr != nil {
					if fatal := emit(ContextErrorf("", rec.StartLine, "bad DI token: "+f.Value)); fatal != nil {
						return values, fatal
					}
					continue
				}
				intervalMinutes = mins
				intervalTok = f.Value
				haveInterval = true
				continue
			}
			if diag := d.applyDField(&ctx, f, rec.StartLine); diag != nil {
				if fatal := emit(diag); fatal != nil {
					return values, fatal
				}
			}
			continue
		}

		if code, _, ok, _, isSendCode := d.isParamToken(tok); ok {
			if isSendCode {
				paramCode, sendDur = d.expandSendCode(code)
			} else {
				paramCode = expandParamCode(code)
				sendDur = 0
			}
			continue
		}

		if paramCode == "" {
			if fatal := emit(ContextErrorf("", rec.StartLine, "value with no preceding parameter code: "+tok)); fatal != nil {
				return values, fatal
			}
			continue
		}
		if !haveInterval {
			if fatal := emit(ContextErrorf("", rec.StartLine, "E body with no DI interval")); fatal != nil {
				return values, fatal
			}
			continue
		}

		val, flags, qual, comment, isNull, perr := parseValueToken(tok)
		if perr != nil {
			index++
			continue
		}
		if isNull {
			index++
			continue
		}
		if qual == 0 {
			qual = ctx.DataValueQualifier
		}
		if qual == 0 {
			qual = 'Z'
		}
		if comment != "" {
			lastComment = comment
		}

		obsTime := ctx.ObsDate.Add(time.Duration(index) * time.Duration(intervalMinutes) * time.Minute)
		if u := intervalTok[0]; u == 'm' || u == 'M' || u == 'y' || u == 'Y' {
			// Month and year steps are calendar steps with end-of-month clamping.
			n, _ := strconv.Atoi(intervalTok[1:])
			obsTime, _ = applyRelativeOffset(ctx.ObsDate, intervalTok[:1]+strconv.Itoa(index*n))
		}
		obsUTC, terr := d.timeModel.ToUTC(ctx.Zone, obsTime.Year(), int(obsTime.Month()), obsTime.Day(), obsTime.Hour(), obsTime.Minute(), obsTime.Second())
		if terr != nil {
			if fatal := emit(TimeErrorf("", rec.StartLine, tok, terr)); fatal != nil {
				return values, fatal
			}
			index++
			continue
		}
		var creationUTC time.Time
		if !ctx.CreationDate.IsZero() {
			creationUTC, _ = d.timeModel.ToUTC(ctx.Zone, ctx.CreationDate.Year(), int(ctx.CreationDate.Month()), ctx.CreationDate.Day(), ctx.CreationDate.Hour(), ctx.CreationDate.Minute(), ctx.CreationDate.Second())
		}

		durCode, durMinutes := d.resolveDuration(paramCode[:2], ctx, sendDur)
		prob, _ := d.registry.LookupProbability(paramCode[5])
		if flags&FlagMissing != 0 {
			val = Sentinel
		}

		tsCode := 1
		if index > 0 {
			tsCode = 2
		}
		v := &Value{
			Location:       ctx.Location,
			ObsTime:        obsUTC,
			CreationTime:   creationUTC,
			ParamCode:      paramCode,
			DurationCode:   durCode,
			DurationValue:  durMinutes,
			Value:          val,
			Qualifier:      qual,
			Probability:    prob,
			Revised:        ctx.Revised,
			Comment:        lastComment,
			Flags:          flags,
			TimeSeriesCode: tsCode,
		}
		values = append(values, v)
		index++
	}
	return values, nil
}

// decodeB decodes a .B tabular message: a header-declared column list
// followed by one row per line, each row supplying one value per column
// (§4.3.2 Supplemented Features: full .B tabular decoding).
func (d *Decoder) decodeB(rec MessageRecord, ctx HeaderContext, columnText string, emit func(*Diagnostic) error) ([]*Value, error) {
	columns := splitSlash(columnText)
	var paramColumns []string
	var paramColumnDur []byte
	for _, c := range columns {
		if f, ok := parseDField(c); ok {
			if diag := d.applyDField(&ctx, f, rec.StartLine); diag != nil {
				if fatal := emit(diag); fatal != nil {
					return nil, fatal
				}
			}
			continue
		}
		if code, _, ok, _, isSendCode := d.isParamToken(c); ok {
			var pc string
			var dur byte
			if isSendCode {
				pc, dur = d.expandSendCode(code)
			} else {
				pc = expandParamCode(code)
			}
			paramColumns = append(paramColumns, pc)
			paramColumnDur = append(paramColumnDur, dur)
		}
	}

	var values []*Value
	lastKeys := make(map[string]int)
	for _, bl := range rec.Body {
		rowCtx := ctx.Clone()
		fields := splitSlash(bl.Text)
		if len(fields) == 0 {
			continue
		}
		col := 0
		idx := 0
		if !looksLikeValue(fields[0]) {
			rowCtx.Location = fields[0]
			idx = 1
		}
		for ; idx < len(fields); idx++ {
			field := strings.TrimSpace(fields[idx])
			if f, ok := parseDField(field); ok {
				if diag := d.applyDField(&rowCtx, f, bl.LineNum); diag != nil {
					if fatal := emit(diag); fatal != nil {
						return values, fatal
					}
				}
				continue
			}
			if col >= len(paramColumns) {
				if fatal := emit(SyntaxErrorf("", bl.LineNum, "row has more values than declared columns", nil)); fatal != nil {
					return values, fatal
				}
				break
			}
			paramCode := paramColumns[col]
			colDur := paramColumnDur[col]
			col++

			val, flags, qual, comment, isNull, perr := parseValueToken(field)
			if perr != nil {
				continue
			}
			if isNull {
				continue
			}
			if qual == 0 {
				qual = rowCtx.DataValueQualifier
			}
			if qual == 0 {
				qual = 'Z'
			}

			obsUTC, terr := d.timeModel.ToUTC(rowCtx.Zone, rowCtx.ObsDate.Year(), int(rowCtx.ObsDate.Month()), rowCtx.ObsDate.Day(), rowCtx.ObsDate.Hour(), rowCtx.ObsDate.Minute(), rowCtx.ObsDate.Second())
			if terr != nil {
				continue
			}
			var creationUTC time.Time
			if !rowCtx.CreationDate.IsZero() {
				creationUTC, _ = d.timeModel.ToUTC(rowCtx.Zone, rowCtx.CreationDate.Year(), int(rowCtx.CreationDate.Month()), rowCtx.CreationDate.Day(), rowCtx.CreationDate.Hour(), rowCtx.CreationDate.Minute(), rowCtx.CreationDate.Second())
			}
			durCode, durMinutes := d.resolveDuration(paramCode[:2], rowCtx, colDur)
			prob, _ := d.registry.LookupProbability(paramCode[5])
			if flags&FlagMissing != 0 {
				val = Sentinel
			}

			v := &Value{
				Location:      rowCtx.Location,
				ObsTime:       obsUTC,
				CreationTime:  creationUTC,
				ParamCode:     paramCode,
				DurationCode:  durCode,
				DurationValue: durMinutes,
				Value:         val,
				Qualifier:     qual,
				Probability:   prob,
				Revised:       rowCtx.Revised,
				Comment:       comment,
			}
			key := v.seriesKey()
			lastKeys[key]++
			if lastKeys[key] == 1 {
				v.TimeSeriesCode = 1
			} else {
				v.TimeSeriesCode = 2
			}
			values = append(values, v)
		}
	}
	return values, nil
}

func looksLikeValue(s string) bool {
	if s == "" {
		return false
	}
	if s == "M" || s == "MSG" || s == "T" || s == "+" {
		return true
	}
	_, err := strconv.ParseFloat(strings.TrimRight(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"), 64)
	return err == nil
}

// resolveDuration returns the active duration code letter and its minute
// value. Precedence, highest first: an explicit DV override in ctx, a send
// code's own implied duration letter (sendDur, 0 when the token wasn't a
// send code), the PE's registry default, and finally 'I' (§9 "DV duration
// override vs. registry default precedence").
func (d *Decoder) resolveDuration(pe string, ctx HeaderContext, sendDur byte) (byte, int) {
	letter := ctx.DurationCode
	if letter == 0 {
		letter = sendDur
	}
	if letter == 0 {
		if entry, ok := d.registry.LookupPE(pe); ok {
			letter = entry.DefaultDuration
		} else {
			letter = 'I'
		}
	}
	minutes, ok := d.registry.LookupDurationCode(letter)
	if !ok {
		return letter, -1
	}
	return letter, minutes
}

// parseIntervalToken parses a DI interval value: a 1-letter unit
// (n=minutes, h=hours, d=days, m=months, y=years) plus a signed integer
// magnitude, returning the equivalent number of minutes (§4.3.1). In that
// figure a month counts as 30 days and a year as 365 days; decodeE steps
// month and year intervals on the calendar instead.
func parseIntervalToken(v string) (int, error) {
	if len(v) < 2 {
		return 0, errBadDateLength
	}
	unit := v[0]
	n, err := strconv.Atoi(v[1:])
	if err != nil {
		return 0, err
	}
	switch unit {
	case 'n', 'N':
		return n, nil
	case 'h', 'H':
		return n * 60, nil
	case 'd', 'D':
		return n * 1440, nil
	case 'm', 'M':
		return n * 43200, nil
	case 'y', 'Y':
		return n * 525600, nil
	default:
		return 0, errBadDateLength
	}
}
