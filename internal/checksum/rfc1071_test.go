package checksum

import "testing"

func TestRFC1071KnownVectors(t *testing.T) {
	t.Run("udp over ipv4", func(t *testing.T) {
		ipHeader := []byte{1, 2, 3, 4, 10, 20, 30, 40, 0, 17, 0, 24}
		udpHeader := []byte{0, 1, 0, 2, 0, 24, 0, 0}
		payload := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
		got := RFC1071(ipHeader, udpHeader, payload)
		if got != 0x2e97 {
			t.Fatalf("got %#04x, want 0x2e97", got)
		}
	})

	t.Run("odd payload", func(t *testing.T) {
		ipHeader := []byte{1, 2, 3, 4, 0xe0, 0x14, 0x1e, 0x28, 0, 17, 0, 39}
		udpHeader := []byte{0, 0, 0, 0, 0, 0x27, 0, 0}
		payload := []byte("There's no place like 127.0.0.1")
		got := RFC1071(ipHeader, udpHeader, payload)
		if got != 0xe023 {
			t.Fatalf("got %#04x, want 0xe023", got)
		}
	})

	t.Run("odd payload with skipped leading padding", func(t *testing.T) {
		ipHeader := []byte{1, 2, 3, 4, 0xe0, 0x14, 0x1e, 0x28, 0, 17, 0, 39}
		udpHeader := []byte{0, 0, 0, 0, 0, 0x27, 0, 0}
		padded := " There's no place like 127.0.0.1"
		payload := []byte(padded)[1:]
		got := RFC1071(ipHeader, udpHeader, payload)
		if got != 0xe023 {
			t.Fatalf("got %#04x, want 0xe023", got)
		}
	})
}

func TestRFC1071Associativity(t *testing.T) {
	whole := []byte("0123456789abcdefABCDEFGHIJKLMNOP")
	want := RFC1071(whole)

	for split := 0; split < len(whole); split += 2 {
		a, b := whole[:split], whole[split:]
		if got := RFC1071(a, b); got != want {
			t.Fatalf("split at %d: got %#04x, want %#04x", split, got, want)
		}
	}
}

func TestRFC1071SelfComplement(t *testing.T) {
	hd := []byte{0x45, 0x00, 0x02, 0x03, 0x16, 0xd1, 0x00, 0x00, 0x01, 0x11, 0, 0, 0xc0, 0xa8, 0x00, 0x88, 0xef, 0xff, 0xff, 0xfa}
	cs := RFC1071(hd)

	withChecksum := append([]byte(nil), hd[:10]...)
	withChecksum = append(withChecksum, byte(cs>>8), byte(cs))
	withChecksum = append(withChecksum, hd[12:]...)

	if got := RFC1071(withChecksum); got != 0 {
		t.Fatalf("checksum of self-checked header = %#04x, want 0", got)
	}
}
