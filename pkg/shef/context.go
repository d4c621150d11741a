package shef

import "time"

// HeaderContext is the bag of header-derived defaults that a .A/.E message
// establishes and that its body tokens (and any .A2/.E2 continuations)
// inherit until explicitly overridden (§3 "Header context", §4.3.2).
//
// A Decoder clones the current HeaderContext by value at each new .A/.E
// message and at each .B station slot, so that mutating one message's
// context never leaks into the next.
type HeaderContext struct {
	Location     string
	ObsDate      time.Time // calendar date from the header, zone-naive
	Zone         string    // SHEF zone mnemonic, e.g. "Z", "E", "ES"
	CreationDate time.Time // DC value, zero if unset
	DurationCode byte      // DV duration letter, 0 if unset
	TimeSeries   string    // raw DI interval token (e.g. "H1"), empty if unset
	UnitsEnglish bool      // DU english/metric switch (true = English)
	DataValueQualifier byte // DQ value, 0 if unset
	Revised      bool      // message started with .AR/.ER/.BR
}

// Clone returns a value copy of c, safe for independent mutation. Used at
// each .B row boundary so that a row-local D* override can't leak into the
// next row's starting context (§3 "cloned at the boundary of each .E/.B
// slot").
func (c HeaderContext) Clone() HeaderContext {
	return c
}
