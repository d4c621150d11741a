package shef

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind is the closed set of SHEF error categories from the decoder's error
// handling design. SyntaxError, RegistryMissError, NumericError, TimeError
// and ContextError are recoverable in permissive mode; IOError and
// ConfigError are always fatal.
type Kind int

const (
	// KindSyntax is a token that doesn't match the grammar at the current cursor.
	KindSyntax Kind = iota
	// KindRegistryMiss is a PE/duration/TS/extremum/qualifier code not in the registry.
	KindRegistryMiss
	// KindNumeric is a value token that fails numeric parse and isn't a recognized sentinel.
	KindNumeric
	// KindTime is an invalid or ambiguous date/time triplet.
	KindTime
	// KindContext is a required inherited default that is missing.
	KindContext
	// KindIO is a read/write failure on the input or output stream.
	KindIO
	// KindConfig is contradictory flags or an invalid SHEFPARM override.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindRegistryMiss:
		return "RegistryMissError"
	case KindNumeric:
		return "NumericError"
	case KindTime:
		return "TimeError"
	case KindContext:
		return "ContextError"
	case KindIO:
		return "IOError"
	case KindConfig:
		return "ConfigError"
	default:
		return "UnknownError"
	}
}

// Recoverable reports whether errors of this kind may be recovered from in
// permissive mode (§7 propagation policy). IOError and ConfigError are
// always fatal regardless of mode.
func (k Kind) Recoverable() bool {
	switch k {
	case KindIO, KindConfig:
		return false
	default:
		return true
	}
}

// Diagnostic is one decode- or registry-time error, carrying enough
// context (source location, offending text, PE code) to let a caller
// print "file:line: kind: text" without re-deriving it.
type Diagnostic struct {
	Kind   Kind
	File   string
	Line   int
	PECode string
	Text   string
	cause  error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	loc := d.File
	if loc == "" {
		loc = "<input>"
	}
	if d.PECode != "" {
		return fmt.Sprintf("%s:%d: %s: %s: %q", loc, d.Line, d.Kind, d.PECode, d.Text)
	}
	return fmt.Sprintf("%s:%d: %s: %q", loc, d.Line, d.Kind, d.Text)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (d *Diagnostic) Unwrap() error {
	return d.cause
}

// Recoverable reports whether this diagnostic's kind is recoverable.
func (d *Diagnostic) Recoverable() bool {
	return d.Kind.Recoverable()
}

// newDiagnostic builds a Diagnostic, wrapping cause with a stack trace via
// cockroachdb/errors so that %+v on the returned error shows the origin of
// the failure inside the decoder.
func newDiagnostic(kind Kind, file string, line int, peCode, text string, cause error) *Diagnostic {
	if cause == nil {
		cause = errors.Newf("%s: %s", kind, text)
	} else {
		cause = errors.Wrapf(cause, "%s", kind)
	}
	return &Diagnostic{Kind: kind, File: file, Line: line, PECode: peCode, Text: text, cause: cause}
}

// SyntaxErrorf builds a recoverable KindSyntax diagnostic.
func SyntaxErrorf(file string, line int, text string, cause error) *Diagnostic {
	return newDiagnostic(KindSyntax, file, line, "", text, cause)
}

// RegistryMissErrorf builds a recoverable KindRegistryMiss diagnostic.
func RegistryMissErrorf(file string, line int, peCode, text string) *Diagnostic {
	return newDiagnostic(KindRegistryMiss, file, line, peCode, text, nil)
}

// NumericErrorf builds a recoverable KindNumeric diagnostic.
func NumericErrorf(file string, line int, peCode, text string, cause error) *Diagnostic {
	return newDiagnostic(KindNumeric, file, line, peCode, text, cause)
}

// TimeErrorf builds a recoverable KindTime diagnostic.
func TimeErrorf(file string, line int, text string, cause error) *Diagnostic {
	return newDiagnostic(KindTime, file, line, "", text, cause)
}

// ContextErrorf builds a recoverable KindContext diagnostic.
func ContextErrorf(file string, line int, text string) *Diagnostic {
	return newDiagnostic(KindContext, file, line, "", text, nil)
}

// IOErrorf builds a fatal KindIO diagnostic.
func IOErrorf(text string, cause error) *Diagnostic {
	return newDiagnostic(KindIO, "", 0, "", text, cause)
}

// ConfigErrorf builds a fatal KindConfig diagnostic.
func ConfigErrorf(text string, cause error) *Diagnostic {
	return newDiagnostic(KindConfig, "", 0, "", text, cause)
}

// ErrMaxErrors is returned by the Decoder when the registry's max-errors
// threshold has been reached, which is a clean, fatal terminal transition.
var ErrMaxErrors = errors.New("shef: maximum recoverable error count reached")
