// Package shef implements a decoder and composer for the NOAA/NWS Standard
// Hydrometeorologic Exchange Format (SHEF), version 2.2 (2012).
//
// The package is organized as a small pipeline:
//
//   - ParamRegistry (registry.go) holds the canonical PE/duration/type-source/
//     extremum/probability/qualifier tables, optionally overridden from a
//     SHEFPARM file.
//   - Tokenizer (tokenizer.go) segments a byte stream into MessageRecords,
//     one per .A/.B/.E message and its continuations.
//   - Decoder (decoder.go) turns a MessageRecord into an ordered slice of
//     Value, consulting the registry and the time model.
//   - Emitter (emitter.go) renders a Value in Format 1 or Format 2, and the
//     inverse Composer re-emits SHEF text from a slice of Value.
//   - The time model (timemodel.go) converts SHEF zone-relative calendar
//     triplets to UTC, in modern (tzdata) or legacy (shefit bug-compatible)
//     mode.
package shef
