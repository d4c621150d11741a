// Package loader implements the external persistence contract for decoded
// SHEF values: a registration table of named factories, modeled on the
// standard library's database/sql driver registry, so the decoder core
// depends only on the Loader interface and never on a concrete backend
// (spec §6.4, design notes §9 "Plug-in loaders").
package loader

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/nws-owp/shefgo/pkg/shef"
)

// Loader is the contract a persistence backend implements to receive
// decoded values from the decoder, or to synthesize SHEF text from its
// store for the inverse `--unload` direction (§6.4).
type Loader interface {
	// SetShefValue pushes one decoded value to the loader.
	SetShefValue(v *shef.Value) error
	// TimeSeriesName returns the series identifier for v, used by the
	// decoder to detect a series boundary (a change in this name signals
	// LoadTimeSeries).
	TimeSeriesName(v *shef.Value) string
	// LoadTimeSeries is called when TimeSeriesName changes between two
	// consecutive pushed values, signaling end-of-series for the prior run,
	// and once more after the last value when any value was pushed.
	LoadTimeSeries() error
	// Done is called exactly once when the decoder run completes.
	Done() error
	// CanUnload reports whether this loader supports --unload.
	CanUnload() bool
	// Unload synthesizes SHEF text from the loader's backing store and
	// writes it to w, used for --unload instead of pushing values.
	Unload(w io.Writer) error
}

// Factory constructs a Loader from its bracketed CLI options, decoded by
// mapstructure into opts, plus the logger and output sink the decoder
// hands every loader (§6.4 "the decoder invokes the loader with (i) the
// logger, (ii) the current output sink, (iii) an append flag").
type Factory func(logger *slog.Logger, out io.Writer, appendMode bool, opts map[string]any) (Loader, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a named loader factory to the registry. It panics if name
// is already registered, matching database/sql.Register's contract.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("loader: Register called twice for loader %q", name))
	}
	registry[name] = factory
}

// Open builds a Loader for name, decoding rawOpts (the bracketed CLI
// argument list, already split into key=value or positional strings) into
// the loader's option struct via mapstructure.
func Open(name string, logger *slog.Logger, out io.Writer, appendMode bool, rawOpts []string) (Loader, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("loader: unknown loader %q, registered: %v", name, Names())
	}
	opts, err := decodeOpts(rawOpts)
	if err != nil {
		return nil, fmt.Errorf("loader: decoding options for %q: %w", name, err)
	}
	return factory(logger, out, appendMode, opts)
}

// decodeOpts turns a flat `key=value` option list into the map passed to a
// Factory; a bare flag with no `=` decodes to a boolean true.
func decodeOpts(rawOpts []string) (map[string]any, error) {
	raw := make(map[string]any, len(rawOpts))
	for _, o := range rawOpts {
		key, val, ok := splitOption(o)
		if !ok {
			raw[o] = true
			continue
		}
		raw[key] = val
	}
	return raw, nil
}

// DecodeOptions decodes a loader's raw option map into its own typed
// config struct, allowing "1"/"true" style CLI strings to coerce into bool
// and numeric struct fields. Loaders call this from their Factory.
func DecodeOptions(opts map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(opts)
}

func splitOption(o string) (key, val string, ok bool) {
	for i := 0; i < len(o); i++ {
		if o[i] == '=' {
			return o[:i], o[i+1:], true
		}
	}
	return "", "", false
}

// Names lists every registered loader, for --help and error messages.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// Run drives one decoder run through a loader: pushing every value,
// signaling series boundaries via LoadTimeSeries, and calling Done exactly
// once on completion (§6.4).
func Run(l Loader, values []*shef.Value) error {
	var prevSeries string
	first := true
	for _, v := range values {
		series := l.TimeSeriesName(v)
		if !first && series != prevSeries {
			if err := l.LoadTimeSeries(); err != nil {
				return fmt.Errorf("loader: LoadTimeSeries: %w", err)
			}
		}
		if err := l.SetShefValue(v); err != nil {
			return fmt.Errorf("loader: SetShefValue: %w", err)
		}
		prevSeries = series
		first = false
	}
	if !first {
		if err := l.LoadTimeSeries(); err != nil {
			return fmt.Errorf("loader: final LoadTimeSeries: %w", err)
		}
	}
	return l.Done()
}
