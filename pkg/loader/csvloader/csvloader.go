// Package csvloader is a reference Loader implementation: it persists
// decoded Values as CSV rows and can Unload them back to SHEF text. It
// exists to exercise the pkg/loader registration contract end to end; a
// real deployment would register a database- or message-bus-backed Loader
// the same way (§6.4).
package csvloader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/nws-owp/shefgo/pkg/loader"
	"github.com/nws-owp/shefgo/pkg/shef"
)

// Name is the loader's registration name, used as shefgo --loader csv[...].
const Name = "csv"

// Options configures the csv loader. Field names are lower-cased by
// mapstructure's weak decoding when read from the bracketed CLI options.
type Options struct {
	Header bool `mapstructure:"header"`
}

// Loader writes one CSV row per SetShefValue call, and separately retains
// every Value in memory so Unload can re-compose SHEF text from them
// (§6.4, §6.5). A database-backed loader would query its store here
// instead of replaying a buffer.
type Loader struct {
	logger   *slog.Logger
	w        *csv.Writer
	opts     Options
	buffered []*shef.Value
}

func init() {
	loader.Register(Name, newLoader)
}

func newLoader(logger *slog.Logger, out io.Writer, appendMode bool, rawOpts map[string]any) (loader.Loader, error) {
	var opts Options
	if err := loader.DecodeOptions(rawOpts, &opts); err != nil {
		return nil, fmt.Errorf("csvloader: decoding options: %w", err)
	}
	l := &Loader{
		logger: logger,
		w:      csv.NewWriter(out),
		opts:   opts,
	}
	if opts.Header && !appendMode {
		if err := l.w.Write([]string{"location", "obs_time", "param_code", "value", "qualifier", "duration_value", "ts_code"}); err != nil {
			return nil, fmt.Errorf("csvloader: writing header: %w", err)
		}
	}
	return l, nil
}

// SetShefValue writes v as one CSV row (§6.4).
func (l *Loader) SetShefValue(v *shef.Value) error {
	row := []string{
		v.Location,
		v.ObsTime.UTC().Format("2006-01-02T15:04:05Z"),
		v.ParamCode,
		strconv.FormatFloat(v.Value, 'f', 4, 64),
		string(v.Qualifier),
		strconv.Itoa(v.DurationValue),
		strconv.Itoa(v.TimeSeriesCode),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("csvloader: writing row: %w", err)
	}
	l.buffered = append(l.buffered, v)
	return nil
}

// TimeSeriesName groups rows by (location, parameter, qualifier), matching
// the composer's own grouping key.
func (l *Loader) TimeSeriesName(v *shef.Value) string {
	return v.Location + "|" + v.ParamCode + "|" + string(v.Qualifier)
}

// LoadTimeSeries flushes the buffered rows for the series just completed.
func (l *Loader) LoadTimeSeries() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("csvloader: flush: %w", err)
	}
	l.logger.Debug("csvloader: flushed series")
	return nil
}

// Done flushes any remaining buffered rows.
func (l *Loader) Done() error {
	l.w.Flush()
	return l.w.Error()
}

// CanUnload reports true: csvloader replays its in-memory buffer through
// the Composer to support --unload.
func (l *Loader) CanUnload() bool {
	return true
}

// Unload recomposes SHEF text from every Value seen this run via the
// package's Composer, grouping by (location, parameter, qualifier) exactly as
// TimeSeriesName does.
func (l *Loader) Unload(w io.Writer) error {
	composer := shef.NewComposer()
	groups := shef.GroupByLocationParam(l.buffered)
	_, err := io.WriteString(w, composer.ComposeAll(groups))
	return err
}
