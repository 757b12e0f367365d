package addr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned while parsing an IPv4 literal.
var (
	ErrIPv4Format = errors.New("malformed IPv4 address")
	ErrIPv4Range  = errors.New("IPv4 octet out of range")
)

// IPv4 is a 4-byte big-endian network-order address.
type IPv4 [4]byte

// RangeRandomizer is the RNG surface needed to resolve `*`/`*[lo-hi]`
// octets; internal/compilectx.Random satisfies it.
type RangeRandomizer interface {
	Range(lo, hi uint64) uint64
}

// ParseIPv4 parses the dotted-decimal grammar, including per-octet random
// wildcards (`*` for a fully random octet, `*[lo-hi]` for a bounded random
// octet). Exactly four dot-separated octets are required; no octet may be
// empty, and `*[lo-hi]` tolerates no internal whitespace (see
// internal/lex.ParseRange).
func ParseIPv4(s string, rng RangeRandomizer) (IPv4, error) {
	var ip IPv4
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return ip, fmt.Errorf("%w: %q", ErrIPv4Format, s)
	}
	for i, p := range parts {
		if p == "" {
			return ip, fmt.Errorf("%w: %q", ErrIPv4Format, s)
		}
		v, err := resolveOctet(p, rng)
		if err != nil {
			return ip, fmt.Errorf("%w: %q: %w", ErrIPv4Format, s, err)
		}
		ip[i] = v
	}
	return ip, nil
}

func resolveOctet(p string, rng RangeRandomizer) (byte, error) {
	if p == "*" {
		if rng == nil {
			return 0, errors.New("random octet without a random source")
		}
		return byte(rng.Range(0, 255)), nil
	}
	if strings.HasPrefix(p, "*[") && strings.HasSuffix(p, "]") {
		lo, hi, err := parseBracketRange(p[1:])
		if err != nil {
			return 0, err
		}
		if lo > 255 || hi > 255 || lo > hi {
			return 0, ErrIPv4Range
		}
		if rng == nil {
			return 0, errors.New("random octet without a random source")
		}
		return byte(rng.Range(lo, hi)), nil
	}
	v, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return 0, err
	}
	if v > 255 {
		return 0, ErrIPv4Range
	}
	return byte(v), nil
}

// parseBracketRange parses exactly "[lo-hi]" with no internal whitespace.
func parseBracketRange(s string) (lo, hi uint64, err error) {
	if len(s) < 4 || s[0] != '[' || s[len(s)-1] != ']' {
		return 0, 0, ErrIPv4Format
	}
	inner := s[1 : len(s)-1]
	dash := strings.IndexByte(inner, '-')
	if dash <= 0 || dash == len(inner)-1 {
		return 0, 0, ErrIPv4Format
	}
	loS, hiS := inner[:dash], inner[dash+1:]
	if strings.ContainsAny(loS, " \t") || strings.ContainsAny(hiS, " \t") {
		return 0, 0, ErrIPv4Format
	}
	lo, err = strconv.ParseUint(loS, 10, 16)
	if err != nil {
		return 0, 0, ErrIPv4Format
	}
	hi, err = strconv.ParseUint(hiS, 10, 16)
	if err != nil {
		return 0, 0, ErrIPv4Format
	}
	return lo, hi, nil
}

// Bytes returns the address as a fresh 4-byte slice.
func (ip IPv4) Bytes() []byte {
	b := make([]byte, 4)
	copy(b, ip[:])
	return b
}

// String renders the dotted-decimal form.
func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// Uint32 returns the address as a big-endian uint32.
func (ip IPv4) Uint32() uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// IsNull reports whether the address is 0.0.0.0.
func (ip IPv4) IsNull() bool {
	return ip == IPv4{}
}

// IsMulticast reports membership in 224.0.0.0/4.
func (ip IPv4) IsMulticast() bool {
	return ip[0]&0xf0 == 0xe0
}

// RandomIPv4 draws a fully random address; a randomly produced multicast
// result is demoted to unicast by clearing the high bit of the first
// octet, mirroring the original's setRandom behavior.
func RandomIPv4(r interface {
	Range(lo, hi uint64) uint64
}) IPv4 {
	var ip IPv4
	for i := range ip {
		ip[i] = byte(r.Range(0, 255))
	}
	if ip.IsMulticast() {
		ip[0] &^= 0x80
	}
	return ip
}
