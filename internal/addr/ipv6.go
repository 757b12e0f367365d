package addr

import (
	"errors"
	"fmt"
	"net/netip"
)

// Errors returned while parsing an IPv6 literal.
var ErrIPv6Format = errors.New("malformed IPv6 address")

// IPv6 is a 16-byte address.
type IPv6 [16]byte

// ParseIPv6 parses standard IPv6 text forms via net/netip (no per-segment
// random-wildcard grammar is defined for IPv6 in this system; random IPv6
// addresses are produced only via RandomIPv6).
func ParseIPv6(s string) (IPv6, error) {
	var ip IPv6
	a, err := netip.ParseAddr(s)
	if err != nil || !a.Is6() {
		return ip, fmt.Errorf("%w: %q", ErrIPv6Format, s)
	}
	copy(ip[:], a.AsSlice())
	return ip, nil
}

// Bytes returns the address as a fresh 16-byte slice.
func (ip IPv6) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, ip[:])
	return b
}

// String renders the canonical compressed form.
func (ip IPv6) String() string {
	a := netip.AddrFrom16(ip)
	return a.String()
}

// IsNull reports whether the address is the unspecified address ::.
func (ip IPv6) IsNull() bool {
	return ip == IPv6{}
}

// IsMulticast reports whether the first byte is 0xff.
func (ip IPv6) IsMulticast() bool {
	return ip[0] == 0xff
}

// RandomIPv6 draws a fully random address; a randomly produced multicast
// result is demoted to unicast by masking the top two bits of the first
// byte (so it can never equal 0xff).
func RandomIPv6(r interface{ Fill(buf []byte) }) IPv6 {
	var ip IPv6
	r.Fill(ip[:])
	if ip.IsMulticast() {
		ip[0] &^= 0xc0
	}
	return ip
}
