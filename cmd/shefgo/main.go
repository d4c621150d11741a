// Command shefgo decodes SHEF text into ShefValues, re-emits it in Format 1
// or Format 2, and drives the optional loader/unload plug-in contract
// (spec §6.1).
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mholt/archiver/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/nws-owp/shefgo/pkg/loader"
	_ "github.com/nws-owp/shefgo/pkg/loader/csvloader"
	"github.com/nws-owp/shefgo/pkg/shef"
)

// exit codes per §6.1.
const (
	exitOK          = 0
	exitConfigError = 1
	exitIOError     = 2
	exitMaxErrors   = 3
	exitFatal       = 4
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := &cli.App{
		Name:        "shefgo",
		Usage:       "decode and compose Standard Hydrometeorologic Exchange Format text",
		Description: "shefgo decodes SHEF .A/.B/.E messages into structured observations and can compose them back to text.",
		Version:     "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "load a .env file into the environment after flags are parsed; no flag reads its values"},
			&cli.StringFlag{Name: "shefparm", Usage: "path to a SHEFPARM override file"},
			&cli.BoolFlag{Name: "make_shefparm", Usage: "emit the built-in SHEFPARM tables and exit"},
			&cli.StringFlag{Name: "defaults", Usage: "alias for --shefparm"},
			&cli.StringFlag{Name: "in", Usage: "input file (default stdin)"},
			&cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
			&cli.StringFlag{Name: "log", Usage: "diagnostic log file (default stderr)"},
			&cli.StringFlag{Name: "format", Value: "1", Usage: "output format: 1 or 2"},
			&cli.StringFlag{Name: "loglevel", Value: "info", Usage: "debug, info, warn, or error"},
			&cli.StringFlag{Name: "loader", Usage: "NAME[opt1=val1][opt2=val2]... registered loader to drive"},
			&cli.BoolFlag{Name: "processed", Usage: "input is already Format 1 or Format 2 text; re-parse and re-emit"},
			&cli.BoolFlag{Name: "timestamps", Usage: "prefix log lines with timestamps"},
			&cli.BoolFlag{Name: "shefit_times", Usage: "use legacy (shefit) time zone/DST resolution"},
			&cli.BoolFlag{Name: "reject_problematic", Usage: "strict mode: drop the whole message on any recoverable error"},
			&cli.BoolFlag{Name: "append_out", Usage: "append to --out instead of truncating"},
			&cli.BoolFlag{Name: "append_log", Usage: "append to --log instead of truncating"},
			&cli.BoolFlag{Name: "unload", Usage: "run the loader's Unload direction instead of decoding"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address (off by default)"},
			&cli.StringFlag{Name: "description", Usage: "print a one-line description and exit"},
		},
		Action: runAction,
	}
	if err := app.Run(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code, ok := err.(exitCoder); ok {
			return code.ExitCode()
		}
		return exitFatal
	}
	return exitOK
}

type exitCoder interface {
	ExitCode() int
}

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) ExitCode() int { return e.code }
func (e *cliError) Unwrap() error { return e.err }

func configErr(err error) error { return &cliError{code: exitConfigError, err: err} }
func ioErr(err error) error     { return &cliError{code: exitIOError, err: err} }
func fatalErr(err error) error  { return &cliError{code: exitFatal, err: err} }

func runAction(c *cli.Context) error {
	if env := c.String("env"); env != "" {
		if err := godotenv.Load(env); err != nil {
			return configErr(fmt.Errorf("loading --env file: %w", err))
		}
	}

	logger := newLogger(c.String("loglevel"), c.Bool("timestamps"))

	var metrics *shef.Metrics
	if addr := c.String("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		metrics = shef.NewMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if c.String("description") != "" {
		fmt.Println("shefgo: decode and compose Standard Hydrometeorologic Exchange Format text")
		return nil
	}

	registry := shef.NewParamRegistry()

	shefparmPath := c.String("shefparm")
	if shefparmPath == "" {
		shefparmPath = c.String("defaults")
	}
	if shefparmPath != "" {
		text, err := os.ReadFile(shefparmPath)
		if err != nil {
			return configErr(fmt.Errorf("reading --shefparm: %w", err))
		}
		diags, err := registry.MergeSHEFPARM(string(text))
		if err != nil {
			return configErr(fmt.Errorf("merging --shefparm: %w", err))
		}
		for _, d := range diags {
			logger.Warn("shefparm override", "detail", d.String())
		}
	}

	if c.Bool("make_shefparm") {
		out, err := openOutput(c)
		if err != nil {
			return ioErr(err)
		}
		defer out.Close()
		if err := registry.WriteSHEFPARM(out); err != nil {
			return ioErr(fmt.Errorf("writing shefparm: %w", err))
		}
		return nil
	}

	mode := shef.Mode{Strict: c.Bool("reject_problematic")}
	timeMode := shef.TimeModeModern
	if c.Bool("shefit_times") {
		timeMode = shef.TimeModeLegacy
	}
	timeModel := shef.NewTimeModel(timeMode)

	if c.Bool("unload") {
		return runUnload(c, logger)
	}

	in, err := openInput(c)
	if err != nil {
		return ioErr(err)
	}
	defer in.Close()

	format := shef.Format1
	if c.String("format") == "2" {
		format = shef.Format2
	}

	var ld loader.Loader
	if spec := c.String("loader"); spec != "" {
		out, err := openOutput(c)
		if err != nil {
			return ioErr(err)
		}
		defer out.Close()
		name, rawOpts := splitLoaderSpec(spec)
		ld, err = loader.Open(name, logger, out, c.Bool("append_out"), rawOpts)
		if err != nil {
			return configErr(err)
		}
	}

	var values []*shef.Value

	if c.Bool("processed") {
		pdec := shef.NewProcessedDecoder(in, format, registry)
		for pdec.Next() {
			values = append(values, pdec.Value())
		}
		for _, diag := range pdec.Diagnostics() {
			logger.Warn("reparse diagnostic", "detail", diag.Error())
		}
		if err := pdec.Err(); err != nil {
			return fatalErr(err)
		}
	} else {
		tok := shef.NewTokenizer(in)
		dec := shef.NewDecoder(tok, registry, timeModel, mode)

		next := dec.Next
		if metrics != nil {
			next = func() bool { return dec.InstrumentedNext(metrics) }
		}
		for next() {
			values = append(values, dec.Value())
		}

		for _, diag := range dec.Diagnostics() {
			logger.Warn("decode diagnostic", "detail", diag.Error())
		}

		if err := dec.Err(); err != nil {
			if errors.Is(err, shef.ErrMaxErrors) {
				logger.Error("aborting: maximum recoverable error count reached")
				return &cliError{code: exitMaxErrors, err: err}
			}
			return fatalErr(err)
		}
	}

	if ld != nil {
		if err := loader.Run(ld, values); err != nil {
			return fatalErr(err)
		}
		return nil
	}

	out, err := openOutput(c)
	if err != nil {
		return ioErr(err)
	}
	defer out.Close()

	emitter := shef.NewEmitter(format)
	if _, err := out.WriteString(emitter.EmitAll(values)); err != nil {
		return ioErr(fmt.Errorf("writing output: %w", err))
	}
	return nil
}

func runUnload(c *cli.Context, logger *slog.Logger) error {
	spec := c.String("loader")
	if spec == "" {
		return configErr(fmt.Errorf("--unload requires --loader"))
	}
	out, err := openOutput(c)
	if err != nil {
		return ioErr(err)
	}
	defer out.Close()
	name, rawOpts := splitLoaderSpec(spec)
	ld, err := loader.Open(name, logger, out, c.Bool("append_out"), rawOpts)
	if err != nil {
		return configErr(err)
	}
	if !ld.CanUnload() {
		return configErr(fmt.Errorf("loader %q does not support --unload", name))
	}
	if err := ld.Unload(out); err != nil {
		return fatalErr(err)
	}
	return nil
}

func newLogger(level string, timestamps bool) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if !timestamps {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openInput opens --in, transparently unpacking a zip- or tar.gz-wrapped
// input file first (distributed SHEF feeds are sometimes bundled this way)
// via mholt/archiver before handing a plain-text reader to the tokenizer. A
// bare .gz single-file compress is decompressed the same way.
func openInput(c *cli.Context) (*os.File, error) {
	path := c.String("in")
	if path == "" {
		return os.Stdin, nil
	}
	switch {
	case strings.HasSuffix(path, ".zip"), strings.HasSuffix(path, ".tar.gz"),
		strings.HasSuffix(path, ".tgz"), strings.HasSuffix(path, ".tar"):
		tmpDir, err := os.MkdirTemp("", "shefgo-in-*")
		if err != nil {
			return nil, fmt.Errorf("creating temp dir for --in: %w", err)
		}
		if err := archiver.Unarchive(path, tmpDir); err != nil {
			return nil, fmt.Errorf("unpacking --in: %w", err)
		}
		entries, err := os.ReadDir(tmpDir)
		if err != nil || len(entries) == 0 {
			return nil, fmt.Errorf("unpacking --in: no files extracted")
		}
		return os.Open(tmpDir + "/" + entries[0].Name())
	case strings.HasSuffix(path, ".gz"):
		tmpFile, err := os.CreateTemp("", "shefgo-in-*.txt")
		if err != nil {
			return nil, fmt.Errorf("creating temp file for --in: %w", err)
		}
		tmpFile.Close()
		if err := archiver.DecompressFile(path, tmpFile.Name()); err != nil {
			return nil, fmt.Errorf("unpacking --in: %w", err)
		}
		return os.Open(tmpFile.Name())
	default:
		return os.Open(path)
	}
}

func openOutput(c *cli.Context) (*outputWriter, error) {
	path := c.String("out")
	if path == "" {
		return &outputWriter{File: os.Stdout}, nil
	}
	flags := os.O_WRONLY | os.O_CREATE
	if c.Bool("append_out") {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &outputWriter{File: f}, nil
}

// outputWriter adapts *os.File to the io.Writer + WriteString shape used
// above, and is a no-op Close for os.Stdout.
type outputWriter struct {
	*os.File
}

func (w *outputWriter) WriteString(s string) (int, error) {
	return w.File.WriteString(s)
}

func (w *outputWriter) Close() error {
	if w.File == os.Stdout {
		return nil
	}
	return w.File.Close()
}

// splitLoaderSpec parses "NAME[opt1=val1][opt2=val2]" into the loader name
// and its raw option strings (§6.1, §6.4).
func splitLoaderSpec(spec string) (name string, opts []string) {
	i := 0
	for i < len(spec) && spec[i] != '[' {
		i++
	}
	name = spec[:i]
	for i < len(spec) {
		if spec[i] != '[' {
			break
		}
		j := i + 1
		for j < len(spec) && spec[j] != ']' {
			j++
		}
		if j >= len(spec) {
			break
		}
		opts = append(opts, spec[i+1:j])
		i = j + 1
	}
	return name, opts
}
