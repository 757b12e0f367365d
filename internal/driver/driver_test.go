package driver

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
)

type recordedSend struct {
	frame  []byte
	offset time.Duration
}

type fakeSink struct {
	sends []recordedSend
	err   error
}

func (f *fakeSink) Send(_ context.Context, frame []byte, offset time.Duration) error {
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sends = append(f.sends, recordedSend{frame: cp, offset: offset})
	return nil
}

func newTestCtx() *compilectx.Context {
	mac := addr.MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	ip4, _ := addr.ParseIPv4("192.168.0.1", nil)
	return compilectx.NewDeterministic(mac, ip4, addr.IPv6{}, "eth0", compilectx.DefaultMTU, 1)
}

func TestCompileTextMonotonicRelativeOffsets(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{DelayScale: time.Microsecond})

	text := `+10: udp(dip=10.0.0.1, sport=1, dport=2);
+20: udp(dip=10.0.0.1, sport=1, dport=2);
+30: udp(dip=10.0.0.1, sport=1, dport=2);
+40: udp(dip=10.0.0.1, sport=1, dport=2);
`
	if err := d.CompileText(context.Background(), "t", text); err != nil {
		t.Fatalf("CompileText: %v", err)
	}
	if len(sk.sends) != 4 {
		t.Fatalf("sends = %d, want 4", len(sk.sends))
	}
	want := []time.Duration{10, 30, 60, 100}
	for i, w := range want {
		if sk.sends[i].offset != w*time.Microsecond {
			t.Fatalf("send[%d].offset = %v, want %v", i, sk.sends[i].offset, w*time.Microsecond)
		}
	}
}

func TestCompileTextStripsCommentsAndBlankLines(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	text := "# a leading comment\n" +
		"udp(dip=10.0.0.1, sport=1, dport=2); # trailing comment\n" +
		"\n"
	if err := d.CompileText(context.Background(), "t", text); err != nil {
		t.Fatalf("CompileText: %v", err)
	}
	if len(sk.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sk.sends))
	}
}

func TestCompileTextDefaultDelayAppliesWithoutTimestamp(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{DefaultDelay: 5 * time.Millisecond})

	text := `udp(dip=10.0.0.1, sport=1, dport=2);udp(dip=10.0.0.1, sport=1, dport=2);`
	if err := d.CompileText(context.Background(), "t", text); err != nil {
		t.Fatalf("CompileText: %v", err)
	}
	if len(sk.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(sk.sends))
	}
	if sk.sends[0].offset != 5*time.Millisecond || sk.sends[1].offset != 10*time.Millisecond {
		t.Fatalf("offsets = %v, %v, want 5ms, 10ms", sk.sends[0].offset, sk.sends[1].offset)
	}
}

func TestCompileTextRejectsControlBlock(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	text := `{ +10: udp(dip=10.0.0.1, sport=1, dport=2); }`
	err := d.CompileText(context.Background(), "t", text)
	if !errors.Is(err, ErrReservedSyntax) {
		t.Fatalf("err = %v, want ErrReservedSyntax", err)
	}
}

func TestCompileTextRejectsUnbalancedClosingBrace(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	err := d.CompileText(context.Background(), "t", `}`)
	if !errors.Is(err, ErrUnbalancedBraces) {
		t.Fatalf("err = %v, want ErrUnbalancedBraces", err)
	}
}

func TestCompileTextRejectsUnterminatedControlBlock(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	err := d.CompileText(context.Background(), "t", `{ udp(dip=10.0.0.1, sport=1, dport=2);`)
	if !errors.Is(err, ErrUnbalancedBraces) {
		t.Fatalf("err = %v, want ErrUnbalancedBraces", err)
	}
}

func TestCompileTextReportsParseErrorWithLineNumber(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	text := "udp(dip=10.0.0.1, sport=1, dport=2);\nbogus(foo=1);\n"
	err := d.CompileText(context.Background(), "script.pump", text)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Line != 2 {
		t.Fatalf("Line = %d, want 2", perr.Line)
	}
	if perr.Path != "script.pump" {
		t.Fatalf("Path = %s, want script.pump", perr.Path)
	}
}

func TestCompileTextAbsoluteTimestampRegressionErrors(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	text := `100: udp(dip=10.0.0.1, sport=1, dport=2);
50: udp(dip=10.0.0.1, sport=1, dport=2);
`
	err := d.CompileText(context.Background(), "t", text)
	if !errors.Is(err, ErrTimeRegression) {
		t.Fatalf("err = %v, want ErrTimeRegression", err)
	}
}

func TestCompileTextAbsoluteTimestampRegressionClamps(t *testing.T) {
	sk := &fakeSink{}
	ctx := newTestCtx()
	ctx.TimeRegression = compilectx.PolicyClampToZero
	d := New(ctx, sk, Options{})

	text := `100: udp(dip=10.0.0.1, sport=1, dport=2);
50: udp(dip=10.0.0.1, sport=1, dport=2);
`
	if err := d.CompileText(context.Background(), "t", text); err != nil {
		t.Fatalf("CompileText: %v", err)
	}
	if len(sk.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(sk.sends))
	}
	if sk.sends[1].offset != sk.sends[0].offset {
		t.Fatalf("offset[1] = %v, want clamp to offset[0] = %v", sk.sends[1].offset, sk.sends[0].offset)
	}
}

func TestCompileInlineListCompilesEachInstruction(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	instructions := []string{
		`udp(dip=10.0.0.1, sport=1, dport=2)`,
		`udp(dip=10.0.0.1, sport=3, dport=4)`,
	}
	if err := d.CompileInline(context.Background(), instructions); err != nil {
		t.Fatalf("CompileInline: %v", err)
	}
	if len(sk.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(sk.sends))
	}
}

func TestCompileFileReadsFromDisk(t *testing.T) {
	sk := &fakeSink{}
	d := New(newTestCtx(), sk, Options{})

	path := t.TempDir() + "/script.pump"
	text := `udp(dip=10.0.0.1, sport=1, dport=2);`
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := d.CompileFile(context.Background(), path); err != nil {
		t.Fatalf("CompileFile: %v", err)
	}
	if len(sk.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sk.sends))
	}
}

func TestSinkErrorPropagates(t *testing.T) {
	sendErr := errors.New("write failed")
	sk := &fakeSink{err: sendErr}
	d := New(newTestCtx(), sk, Options{})

	err := d.CompileText(context.Background(), "t", `udp(dip=10.0.0.1, sport=1, dport=2);`)
	if !errors.Is(err, sendErr) {
		t.Fatalf("err = %v, want %v", err, sendErr)
	}
}
