// Package driver reads scripts of semicolon-terminated instructions
// (from a file or an inline list), compiles each one through the parser,
// and paces emission of the resulting frames against a sink using a
// virtual clock built from the scripts' absolute and relative timestamps.
package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/parser"
	"github.com/pumptool/tcppump/internal/sink"
)

// Errors the driver can return in addition to a wrapped *ParseError.
var (
	// ErrReservedSyntax is returned for any `{ ... }` control block. The
	// brace counter recognizes them lexically (so a future loop syntax
	// will not need a rescan of already-shipped scripts) but no looping
	// semantics exist yet.
	ErrReservedSyntax = errors.New("driver: '{ ... }' control blocks are reserved syntax")

	// ErrUnbalancedBraces is returned when a script ends, or a '}' is
	// seen, without a matching '{'.
	ErrUnbalancedBraces = errors.New("driver: unbalanced '{' '}'")

	// ErrTimeRegression is returned when an absolute timestamp precedes
	// the virtual clock and the context's TimeRegression policy is
	// compilectx.PolicyError.
	ErrTimeRegression = errors.New("driver: absolute timestamp precedes current time")
)

// ParseError names the file, line, and offending instruction text a
// parse failure occurred at, wrapping the underlying error.
type ParseError struct {
	Path        string
	Line        int
	Instruction string
	Caret       int // byte offset into Instruction, or -1 if unknown
	Err         error
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%s:%d", e.Path, e.Line)
	if e.Caret >= 0 {
		return fmt.Sprintf("%s: %s\n\t%s\n\t%s^", loc, e.Err, e.Instruction, strings.Repeat(" ", e.Caret))
	}
	return fmt.Sprintf("%s: %s (in %q)", loc, e.Err, e.Instruction)
}

func (e *ParseError) Unwrap() error { return e.Err }

var offsetPattern = regexp.MustCompile(`offset (\d+)`)

func caretFromError(err error) int {
	m := offsetPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return -1
	}
	var n int
	if _, scanErr := fmt.Sscanf(m[1], "%d", &n); scanErr != nil {
		return -1
	}
	return n
}

// Options configures a Driver beyond what compilectx.Context carries.
type Options struct {
	// DefaultDelay is the relative delay applied to instructions that
	// carry no timestamp of their own.
	DefaultDelay time.Duration

	// DelayScale converts a script's bare timestamp integers into a
	// time.Duration; scripts write timestamps in this unit. Defaults to
	// time.Microsecond, matching the instruction grammar's "N" meaning
	// microseconds unless told otherwise.
	DelayScale time.Duration

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DelayScale == 0 {
		o.DelayScale = time.Microsecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Driver compiles instruction text and paces its frames into a Sink. One
// Driver owns one running virtual clock; reuse it across multiple
// CompileText/CompileFile/CompileInline calls to chain their timelines, or build a fresh
// one per independent run.
type Driver struct {
	ctx  *compilectx.Context
	sink sink.Sink
	opts Options

	clock time.Duration // cumulative time since this driver's first emission
}

// New builds a Driver. ctx supplies own-address defaults and the time
// regression policy; sk receives every compiled frame in turn.
func New(ctx *compilectx.Context, sk sink.Sink, opts Options) *Driver {
	return &Driver{ctx: ctx, sink: sk, opts: opts.withDefaults()}
}

// Clock returns the driver's current virtual-clock value.
func (d *Driver) Clock() time.Duration { return d.clock }

// CompileFile opens path and feeds its instructions through Compile,
// treating script-local absolute timestamps as offsets from the moment
// this call begins, matching the teacher's per-file scriptStartTime
// bookkeeping.
func (d *Driver) CompileFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("driver: open %s: %w", path, err)
	}
	defer f.Close()
	return d.compile(ctx, path, f)
}

// CompileText feeds the instructions in text (as if they were one
// script file) through the pipeline; label is used only in diagnostics.
func (d *Driver) CompileText(ctx context.Context, label, text string) error {
	return d.compile(ctx, label, strings.NewReader(text))
}

// CompileInline compiles a list of already-split instruction strings
// (no trailing ';', no comments), matching the teacher's "one packet per
// -p flag" input mode. Each carries its own timestamp semantics exactly
// as a script instruction would, but there is no virtual-clock chaining
// against a file's start time: a bare absolute timestamp is relative to
// this driver's current clock.
func (d *Driver) CompileInline(ctx context.Context, instructions []string) error {
	scriptStart := d.clock
	for _, text := range instructions {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := d.compileOne(ctx, "<inline>", 0, text, scriptStart); err != nil {
			return err
		}
	}
	return nil
}

// compile runs the character-level scanner over r, splitting on ';',
// stripping '#' comments, and rejecting any '{ ... }' control block.
func (d *Driver) compile(ctx context.Context, path string, r io.Reader) error {
	br := bufio.NewReader(r)
	scriptStart := d.clock

	var buf strings.Builder
	line := 1
	inComment := false
	braceDepth := 0

	flush := func() error {
		text := buf.String()
		buf.Reset()
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		return d.compileOne(ctx, path, line, text, scriptStart)
	}

	for {
		c, _, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("driver: read %s: %w", path, err)
		}

		if c == '\n' {
			line++
		}

		switch {
		case c == '#':
			inComment = true
		case inComment:
			if c == '\n' {
				inComment = false
			}
		case c == '{':
			braceDepth++
		case c == '}':
			braceDepth--
			if braceDepth < 0 {
				return &ParseError{Path: path, Line: line, Err: ErrUnbalancedBraces, Caret: -1}
			}
			return &ParseError{Path: path, Line: line, Err: ErrReservedSyntax, Caret: -1}
		case braceDepth > 0:
			// Inside a control block: lexically tracked but never
			// compiled, so its contents never reach the parser.
		case c == ';':
			if err := flush(); err != nil {
				return err
			}
		default:
			buf.WriteRune(c)
		}
	}

	if braceDepth > 0 {
		return &ParseError{Path: path, Line: line, Err: ErrUnbalancedBraces, Caret: -1}
	}
	// A trailing instruction without a terminating ';' is tolerated, same
	// as a file ending without a final newline.
	return flush()
}

// compileOne parses and emits a single instruction's text, advancing the
// virtual clock and applying the time-regression policy.
func (d *Driver) compileOne(ctx context.Context, path string, line int, text string, scriptStart time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := parser.Parse(d.ctx, text)
	if err != nil {
		return &ParseError{Path: path, Line: line, Instruction: text, Caret: caretFromError(err), Err: err}
	}

	var at time.Duration
	switch {
	case in.Timestamp == nil:
		d.clock += d.opts.DefaultDelay
		at = d.clock
	case in.Timestamp.Relative:
		d.clock += time.Duration(in.Timestamp.Value) * d.opts.DelayScale
		at = d.clock
	default:
		abs := scriptStart + time.Duration(in.Timestamp.Value)*d.opts.DelayScale
		if abs < d.clock {
			switch d.ctx.TimeRegression {
			case compilectx.PolicyClampToZero:
				abs = d.clock
			default:
				return &ParseError{Path: path, Line: line, Instruction: text, Caret: -1, Err: ErrTimeRegression}
			}
		}
		d.clock = abs
		at = d.clock
	}

	for _, frame := range in.Frames {
		if err := d.sink.Send(ctx, frame.Bytes(), at); err != nil {
			return fmt.Errorf("driver: send %s:%d: %w", path, line, err)
		}
	}

	d.opts.Logger.Debug("compiled instruction",
		slog.String("path", path),
		slog.Int("line", line),
		slog.String("identifier", in.Identifier),
		slog.Duration("at", at),
		slog.Int("frames", len(in.Frames)),
	)

	return nil
}
