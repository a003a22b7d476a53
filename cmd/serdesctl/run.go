package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/danmuck/serdesctl/internal/layout"
	"github.com/danmuck/serdesctl/internal/logging"
	"github.com/danmuck/serdesctl/internal/observability"
	"github.com/danmuck/serdesctl/serdes"
)

const (
	formatHex    = "hex"
	formatBinary = "binary"
	formatRaw    = "raw"
)

var errUsage = errors.New("usage: serdesctl [-config serdesctl.toml] <encode|decode|describe|validate> -layout file [flags]")

func validFormat(f string) bool {
	switch f {
	case formatHex, formatBinary, formatRaw:
		return true
	default:
		return false
	}
}

type command struct {
	name    string
	codec   *layout.Codec
	cfg     cliConfig
	in      string
	hexIn   string
	format  string
	out     string
	opts    []serdes.Option
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	metrics bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("serdesctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "path to a serdesctl.toml")
	if err := global.Parse(args); err != nil {
		return err
	}

	logging.ConfigureRuntime()
	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}
	name := rest[0]
	switch name {
	case "encode", "decode", "describe", "validate":
	default:
		return fmt.Errorf("unknown command %q: %w", name, errUsage)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	layoutPath := fs.String("layout", "", "layout file (.toml, .yaml, .yml)")
	in := fs.String("in", "", "input file, - or empty for stdin")
	hexIn := fs.String("hex", "", "hex encoded buffer to decode")
	format := fs.String("format", cfg.Format, "encode output: hex|binary|raw")
	out := fs.String("out", "", "output file (default stdout)")
	metrics := fs.Bool("metrics", cfg.Metrics, "write metrics to stderr on exit")
	trace := fs.Bool("trace", cfg.Trace, "log every serialized item at trace level")
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}
	if *layoutPath == "" {
		return fmt.Errorf("%s: -layout is required", name)
	}
	if !validFormat(*format) {
		return fmt.Errorf("%s: unknown output format %q", name, *format)
	}

	codec, err := layout.LoadCodec(*layoutPath)
	if err != nil {
		return err
	}

	cmd := &command{
		name:    name,
		codec:   codec,
		cfg:     cfg,
		in:      *in,
		hexIn:   *hexIn,
		format:  *format,
		out:     *out,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		metrics: *metrics,
	}
	switch {
	case *trace:
		tracer := observability.NewTracer(codec.Name(), logging.Logger())
		if *metrics {
			tracer.WithMetrics()
		}
		cmd.opts = append(cmd.opts, serdes.WithObserver(tracer))
	case *metrics:
		cmd.opts = append(cmd.opts, serdes.WithObserver(observability.Observer(codec.Name())))
	}

	err = cmd.dispatch()
	if cmd.metrics {
		if werr := observability.WriteMetrics(stderr); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

func (c *command) dispatch() error {
	switch c.name {
	case "encode":
		return c.encode()
	case "decode":
		return c.decode()
	case "describe":
		return c.describe()
	default:
		return c.validate()
	}
}

func (c *command) encode() error {
	data, err := c.readInput()
	if err != nil {
		return err
	}
	rec, err := layout.UnmarshalRecord(data)
	if err != nil {
		return err
	}

	buf := c.codec.NewBuffer()
	if n := c.cfg.BufferElements; n > 0 {
		buf = c.codec.BufferFromBytes(make([]byte, n*int(c.codec.WordBits()/8)))
	}
	r, err := c.codec.Encode(rec, buf, c.opts...)
	if err != nil {
		return err
	}
	logging.Infof("serdesctl.encode layout=%s bits=%d", c.codec.Name(), r.Bits)

	wordBytes := int(c.codec.WordBits() / 8)
	elems := int((r.Bits + uint64(c.codec.WordBits()) - 1) / uint64(c.codec.WordBits()))
	raw := buf.AppendBytes(nil, 0, elems*wordBytes)

	var payload []byte
	switch c.format {
	case formatRaw:
		payload = raw
	case formatBinary:
		payload = []byte(serdes.FormatBinary(c.codec.BufferFromBytes(raw)) + "\n")
	default:
		payload = []byte(serdes.FormatHex(c.codec.BufferFromBytes(raw)) + "\n")
	}
	return c.writeOutput(payload)
}

func (c *command) decode() error {
	var raw []byte
	if c.hexIn != "" {
		b, err := parseHex(c.hexIn)
		if err != nil {
			return err
		}
		raw = b
	} else {
		b, err := c.readInput()
		if err != nil {
			return err
		}
		raw = b
	}

	rec, r, err := c.codec.Decode(c.codec.BufferFromBytes(raw), c.opts...)
	if err != nil {
		return err
	}
	logging.Infof("serdesctl.decode layout=%s bits=%d", c.codec.Name(), r.Bits)

	data, err := layout.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("render record: %w", err)
	}
	return c.writeOutput(append(data, '\n'))
}

func (c *command) describe() error {
	fmt.Fprintf(c.stdout, "layout=%s word=u%d max_bits=%d\n", c.codec.Name(), c.codec.WordBits(), c.codec.MaxBits())
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tSHAPE\tBITS\tLEN\tOFFSET")
	for _, f := range c.codec.Fields() {
		name := f.Name
		if name == "" {
			name = "-"
		}
		bits := "dyn"
		if f.Bits > 0 {
			bits = fmt.Sprint(f.Bits)
		}
		offset := "-"
		if f.Offset >= 0 {
			offset = fmt.Sprint(f.Offset)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", name, f.Type, f.Shape, bits, f.Length, offset)
	}
	return tw.Flush()
}

func (c *command) validate() error {
	fmt.Fprintf(c.stdout, "layout %s ok: %d fields, at most %d bits\n", c.codec.Name(), len(c.codec.Fields()), c.codec.MaxBits())
	return nil
}

func (c *command) readInput() ([]byte, error) {
	if c.in == "" || c.in == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(c.in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func (c *command) writeOutput(data []byte) error {
	if c.out == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// parseHex accepts plain hex as well as the grouped 0x form printed by encode.
func parseHex(s string) ([]byte, error) {
	var sb strings.Builder
	for _, group := range strings.Fields(s) {
		group = strings.TrimPrefix(strings.TrimPrefix(group, "0x"), "0X")
		sb.WriteString(group)
	}
	b, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return b, nil
}
