package control

import "testing"

func TestJSONCodecRoundTrips(t *testing.T) {
	c := jsonCodec{}

	req := CompileRequest{ScriptText: "udp(dip=10.0.0.1, sport=1, dport=2);", Send: true}
	b, err := c.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got CompileRequest
	if err := c.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ScriptText != req.ScriptText || got.Send != req.Send {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestJSONCodecName(t *testing.T) {
	if (jsonCodec{}).Name() != "json" {
		t.Fatalf("Name() = %q, want json", (jsonCodec{}).Name())
	}
}
