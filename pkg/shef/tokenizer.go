package shef

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// MessageKind is the SHEF message type carried by a MessageRecord.
type MessageKind byte

const (
	// KindA is a single-time, multi-parameter message.
	KindA MessageKind = 'A'
	// KindB is a tabular message.
	KindB MessageKind = 'B'
	// KindE is an equal-interval series message.
	KindE MessageKind = 'E'
	// KindUnrecognized marks a line the tokenizer could not classify.
	KindUnrecognized MessageKind = 0
)

// String renders a MessageKind as its single-letter mnemonic, or
// "unrecognized" for KindUnrecognized.
func (k MessageKind) String() string {
	if k == KindUnrecognized {
		return "unrecognized"
	}
	return string(rune(k))
}

// BodyLine is one continuation or tabular-row line belonging to a
// MessageRecord, in source order.
type BodyLine struct {
	Text       string
	LineNum    int
	NoSeq      bool // continuation token carried no sequence digits, e.g. bare ".A"
}

// MessageRecord is one complete SHEF message: its header line plus all
// continuation lines, comment-stripped and whitespace-normalized, ready
// for the Decoder (§4.2).
type MessageRecord struct {
	Kind       MessageKind
	Revised    bool // suffix "R" on the opening token, e.g. ".AR"
	Header     string
	Body       []BodyLine
	StartLine  int // 1-based source line number of the header
	Diagnostic *Diagnostic
}

var (
	msgStartRe        = regexp.MustCompile(`^\.([ABE])(R| )`)
	continuationRe    = regexp.MustCompile(`^\.([ABE])([0-9]{1,2})?\b`)
	retainedCommentRe = regexp.MustCompile(`"[^"]*"`)
)

// Tokenizer segments a byte stream into MessageRecords, mirroring the
// teacher's pull-API decoder shape: advance with Next, read the current
// record with Record.
type Tokenizer struct {
	scan    *bufio.Scanner
	lineNum int
	cur     MessageRecord
	pending string // a physical line read ahead to detect the next message's start
	havePending bool
	err     error
}

// NewTokenizer returns a Tokenizer reading from r.
func NewTokenizer(r io.Reader) *Tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Tokenizer{scan: sc}
}

// Err returns the first I/O error encountered, if any.
func (t *Tokenizer) Err() error {
	return t.err
}

// Record returns the most recently decoded MessageRecord.
func (t *Tokenizer) Record() MessageRecord {
	return t.cur
}

func (t *Tokenizer) readPhysicalLine() (string, bool) {
	if t.havePending {
		t.havePending = false
		line := t.pending
		t.pending = ""
		return line, true
	}
	if !t.scan.Scan() {
		if err := t.scan.Err(); err != nil {
			t.err = IOErrorf("reading SHEF input", err)
		}
		return "", false
	}
	t.lineNum++
	return t.scan.Text(), true
}

func (t *Tokenizer) pushBack(line string) {
	t.pending = line
	t.havePending = true
}

// Next advances to the next MessageRecord. It returns false at end of
// stream or on a fatal I/O error (check Err).
func (t *Tokenizer) Next() bool {
	for {
		line, ok := t.readPhysicalLine()
		if !ok {
			return false
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}

		m := msgStartRe.FindStringSubmatch(trimmed)
		if m == nil {
			t.cur = MessageRecord{
				Kind:       KindUnrecognized,
				Header:     trimmed,
				StartLine:  t.lineNum,
				Diagnostic: SyntaxErrorf("", t.lineNum, trimmed, nil),
			}
			return true
		}

		kind := MessageKind(m[1][0])
		revised := m[2] == "R"
		rec := MessageRecord{
			Kind:      kind,
			Revised:   revised,
			Header:    normalizeLine(stripThrowawayComment(trimmed)),
			StartLine: t.lineNum,
		}
		t.readContinuations(&rec, kind)
		t.cur = rec
		return true
	}
}

// readContinuations consumes every ".Xn" continuation line and, for .B
// bodies, every row up to ".END", appending each to rec.Body.
func (t *Tokenizer) readContinuations(rec *MessageRecord, kind MessageKind) {
	for {
		line, ok := t.readPhysicalLine()
		if !ok {
			return
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}

		if kind == KindB && strings.EqualFold(strings.TrimSpace(trimmed), ".END") {
			return
		}

		if msgStartRe.MatchString(trimmed) {
			// A new top-level message started without a matching continuation
			// or .END; push it back for the next Next() call.
			t.pushBack(line)
			return
		}

		cm := continuationRe.FindStringSubmatch(trimmed)
		if cm != nil && MessageKind(cm[1][0]) == kind {
			rec.Body = append(rec.Body, BodyLine{
				Text:    normalizeLine(stripThrowawayComment(trimmed)),
				LineNum: t.lineNum,
				NoSeq:   cm[2] == "",
			})
			continue
		}

		if kind == KindB {
			// A .B body row with no ".Bn" prefix: a raw tabular data row.
			rec.Body = append(rec.Body, BodyLine{Text: normalizeLine(stripThrowawayComment(trimmed)), LineNum: t.lineNum})
			continue
		}

		// Anything else trailing a non-.B message without a recognized
		// continuation prefix ends this record; push the line back.
		t.pushBack(line)
		return
	}
}

// stripThrowawayComment removes ':...:'-delimited throwaway comments while
// preserving double-quoted retained-comment spans verbatim (§4.2 rule 1).
func stripThrowawayComment(line string) string {
	var b strings.Builder
	inQuote := false
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			b.WriteByte(c)
			i++
		case c == ':' && !inQuote:
			j := strings.IndexByte(line[i+1:], ':')
			if j == -1 {
				// runs to end of line
				return b.String()
			}
			i = i + 1 + j + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

var wsRunRe = regexp.MustCompile(`[ \t]+`)

// normalizeLine collapses runs of spaces/tabs to a single space, except
// inside retained-comment double quotes (§4.2 rule 5).
func normalizeLine(line string) string {
	var b strings.Builder
	spans := retainedCommentRe.FindAllStringIndex(line, -1)
	last := 0
	for _, sp := range spans {
		b.WriteString(wsRunRe.ReplaceAllString(line[last:sp[0]], " "))
		b.WriteString(line[sp[0]:sp[1]])
		last = sp[1]
	}
	b.WriteString(wsRunRe.ReplaceAllString(line[last:], " "))
	return strings.TrimSpace(b.String())
}
