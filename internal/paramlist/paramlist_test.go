package paramlist

import (
	"errors"
	"testing"

	"github.com/pumptool/tcppump/internal/compilectx"
)

func TestParseBasic(t *testing.T) {
	pl, err := Parse(`dmac=11:22:33:44:55:66, ethertype=0x8123, payload=1234567890abcdef`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pl.Len())
	}
	if p := pl.Find("dmac"); p == nil {
		t.Fatal("dmac not found")
	}
}

func TestParseBooleanFlag(t *testing.T) {
	pl, err := Parse(`noEthHeader, dmac=11:22:33:44:55:66`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := pl.Find("noEthHeader")
	if p == nil {
		t.Fatal("not found")
	}
	v, err := p.AsBool()
	if err != nil || !v {
		t.Fatalf("AsBool() = %v, %v", v, err)
	}
}

func TestCheckUnusedReportsFirst(t *testing.T) {
	pl, err := Parse(`dmac=11:22:33:44:55:66, foo=1, payload=aa`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := compilectx.NewDeterministic(zeroMAC(), [4]byte{}, [16]byte{}, "eth0", 1500, 1)
	_, _ = pl.Find("dmac").AsMAC(ctx.Rand())
	_, _ = pl.Find("payload").AsStream(ctx.Rand())

	err = pl.CheckUnused()
	if err == nil || !errors.Is(err, ErrParamUnused) {
		t.Fatalf("CheckUnused() = %v, want ErrParamUnused", err)
	}
}

func TestRandomRangeMemoized(t *testing.T) {
	pl, err := Parse(`vid=*[10-11]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := compilectx.NewDeterministic(zeroMAC(), [4]byte{}, [16]byte{}, "eth0", 1500, 0)
	p := pl.Find("vid")
	v1, err := p.AsUint64(0, 4095, ctx.Rand())
	if err != nil {
		t.Fatalf("AsUint64: %v", err)
	}
	v2, _ := p.AsUint64(0, 4095, ctx.Rand())
	if v1 != v2 {
		t.Fatalf("repeated access not memoized: %d != %d", v1, v2)
	}
	if v1 != 10 && v1 != 11 {
		t.Fatalf("value %d outside [10,11]", v1)
	}
}

func TestAsFloat64ParsesLiteral(t *testing.T) {
	pl, err := Parse(`hello-time=2.5`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, err := pl.Find("hello-time").AsFloat64()
	if err != nil {
		t.Fatalf("AsFloat64: %v", err)
	}
	if v != 2.5 {
		t.Fatalf("AsFloat64() = %v, want 2.5", v)
	}
}

func zeroMAC() [6]byte { return [6]byte{} }
