// Package paramlist implements the typed parameter list every protocol
// encoder consumes: `name=value, ...` parsing with positional ordering,
// a "used" bit per entry (to catch typos - an unused parameter after
// encoding is an error), default-value overloads, and random-wildcard
// expansion memoized per parameter.
package paramlist

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/lex"
)

// Errors surfaced by parameter list parsing and typed accessors. These
// name the four failure kinds spec.md §7 assigns to the parameter layer.
var (
	ErrParamUnknown = errors.New("paramlist: required parameter missing")
	ErrParamRange   = errors.New("paramlist: value outside expected range")
	ErrParamFormat  = errors.New("paramlist: value cannot be parsed as its declared type")
	ErrParamUnused  = errors.New("paramlist: parameter was never consumed")
	ErrSyntax       = errors.New("paramlist: malformed parameter syntax")
)

// Randomizer is the RNG surface parameter decoding needs.
type Randomizer interface {
	Range(lo, hi uint64) uint64
	Fill(buf []byte)
}

// Parameter is one `name=value` (or bare boolean `name`) entry.
type Parameter struct {
	Name string
	raw  string
	used bool

	decoded    bool
	value      rawValue
	randomized any // memoized materialized random value, once drawn
}

// Used reports whether this parameter has been consumed by an accessor.
func (p *Parameter) Used() bool { return p.used }

// MarkUnused resets the used bit; the `raw` encoder's positional loop
// re-walks every entry regardless of consumption by name, so it clears
// this after its own pass to avoid tripping the final unused-parameter
// check a second time for parameters it has already handled itself.
func (p *Parameter) MarkUnused() { p.used = false }

func (p *Parameter) ensureDecoded() error {
	if p.decoded {
		return nil
	}
	v, err := classify(p.raw)
	if err != nil {
		return err
	}
	p.value = v
	p.decoded = true
	return nil
}

// ParameterList is the ordered, positionally-addressable set of
// parameters parsed from one instruction's `(...)` body.
type ParameterList struct {
	params []*Parameter
}

// Len returns the number of parameters.
func (pl *ParameterList) Len() int { return len(pl.params) }

// At returns the parameter at position i (0-based, declaration order).
func (pl *ParameterList) At(i int) *Parameter { return pl.params[i] }

// Find returns the first unused parameter named name, or nil if none.
// Finding a parameter does not itself mark it used; accessors do that.
func (pl *ParameterList) Find(name string) *Parameter {
	for _, p := range pl.params {
		if p.Name == name && !p.used {
			return p
		}
	}
	return nil
}

// FindAfter returns the first unused parameter named name that appears
// strictly after cursor (nil means "from the start"), without crossing a
// parameter named stopAt. This supports iterating repeated groups (e.g.
// multiple `vid=`/`vrip=`/`rsip=` belonging to successive VLAN tags or
// route entries) in declaration order.
func (pl *ParameterList) FindAfter(cursor *Parameter, stopAt, name string) *Parameter {
	start := 0
	if cursor != nil {
		for i, p := range pl.params {
			if p == cursor {
				start = i + 1
				break
			}
		}
	}
	for i := start; i < len(pl.params); i++ {
		p := pl.params[i]
		if stopAt != "" && p.Name == stopAt && p != cursor {
			break
		}
		if p.Name == name && !p.used {
			return p
		}
	}
	return nil
}

// CheckUnused returns ErrParamUnused naming the first parameter (in
// declaration order) that was never consumed, or nil if all were used.
func (pl *ParameterList) CheckUnused() error {
	for _, p := range pl.params {
		if !p.used {
			return fmt.Errorf("%w: %s", ErrParamUnused, p.Name)
		}
	}
	return nil
}

// Parse parses the body of an instruction's parameter list - the text
// strictly between the outer `(` and its matching `)` - into a
// ParameterList. Embedded instructions (`<...>` values) are not
// recursively parsed here; their raw text is returned verbatim by
// Parameter.AsEmbedded for the instruction parser to recurse into.
func Parse(body string) (*ParameterList, error) {
	pl := &ParameterList{}
	i, n := 0, len(body)
	i = lex.SkipWhitespace(body, i)
	if i >= n {
		return pl, nil
	}
	for {
		i = lex.SkipWhitespace(body, i)
		keyStart := i
		if i >= n || !lex.IsKeyStart(body[i]) {
			return nil, fmt.Errorf("%w: expected parameter name at offset %d", ErrSyntax, i)
		}
		i++
		for i < n && lex.IsKeyChar(body[i]) {
			i++
		}
		name := body[keyStart:i]

		i = lex.SkipWhitespace(body, i)
		var value string
		if i < n && body[i] == '=' {
			i++
			i = lex.SkipWhitespace(body, i)
			valStart := i
			switch {
			case i < n && body[i] == '"':
				i++
				for i < n && body[i] != '"' {
					i++
				}
				if i >= n {
					return nil, fmt.Errorf("%w: unterminated string for %s", ErrSyntax, name)
				}
				i++ // consume closing quote
				value = body[valStart:i]
			case i < n && body[i] == '<':
				depth := 1
				i++
				for i < n && depth > 0 {
					switch body[i] {
					case '<':
						depth++
					case '>':
						depth--
					}
					i++
				}
				if depth != 0 {
					return nil, fmt.Errorf("%w: unterminated embedded instruction for %s", ErrSyntax, name)
				}
				value = body[valStart:i]
			default:
				for i < n && lex.IsValueChar(body[i]) {
					i++
				}
				value = body[valStart:i]
			}
		} else {
			value = `"1"`
		}

		pl.params = append(pl.params, &Parameter{Name: name, raw: value})

		i = lex.SkipWhitespace(body, i)
		if i >= n {
			break
		}
		if body[i] != ',' {
			return nil, fmt.Errorf("%w: expected ',' or end of list at offset %d", ErrSyntax, i)
		}
		i++
	}
	return pl, nil
}

// --- typed accessors -------------------------------------------------

// AsUint64 resolves p as an unsigned integer in [lo, hi], consulting rng
// for any random production. Literal values outside [lo, hi] fail with
// ErrParamRange.
func (p *Parameter) AsUint64(lo, hi uint64, rng Randomizer) (uint64, error) {
	if err := p.ensureDecoded(); err != nil {
		return 0, err
	}
	p.used = true
	switch p.value.kind {
	case kindRandomFull:
		if p.randomized == nil {
			p.randomized = rng.Range(lo, hi)
		}
		return p.randomized.(uint64), nil
	case kindRandomRange:
		if p.randomized == nil {
			rlo, rhi := uint64(p.value.lo), uint64(p.value.hi)
			if rlo < lo {
				rlo = lo
			}
			if rhi > hi {
				rhi = hi
			}
			p.randomized = rng.Range(rlo, rhi)
		}
		return p.randomized.(uint64), nil
	case kindRandomLen:
		return 0, fmt.Errorf("%w: *N form is not valid for integer parameters", ErrParamFormat)
	default:
		v, err := parseUnsignedLiteral(p.value.text)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%s", ErrParamFormat, p.Name, p.value.text)
		}
		if v < lo || v > hi {
			return 0, fmt.Errorf("%w: %s=%d not in [%d,%d]", ErrParamRange, p.Name, v, lo, hi)
		}
		return v, nil
	}
}

func parseUnsignedLiteral(s string) (uint64, error) {
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		return parseHexU64(s[2:])
	}
	var v uint64
	if s == "" {
		return 0, ErrParamFormat
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrParamFormat
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}

func parseHexU64(s string) (uint64, error) {
	if s == "" {
		return 0, ErrParamFormat
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return 0, ErrParamFormat
		}
		v = v*16 + d
	}
	return v, nil
}

// AsBool resolves a value-less (boolean-true) or literal "0"/"1" flag.
func (p *Parameter) AsBool() (bool, error) {
	if err := p.ensureDecoded(); err != nil {
		return false, err
	}
	p.used = true
	if p.value.kind != kindLiteral {
		return false, fmt.Errorf("%w: %s is not a boolean", ErrParamFormat, p.Name)
	}
	switch p.value.text {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s=%s", ErrParamFormat, p.Name, p.value.text)
	}
}

// AsFloat64 resolves p as a literal floating-point value (seconds for the
// IGMPv3/STP time fields, which have no random production in this grammar).
func (p *Parameter) AsFloat64() (float64, error) {
	if err := p.ensureDecoded(); err != nil {
		return 0, err
	}
	p.used = true
	if p.value.kind != kindLiteral {
		return 0, fmt.Errorf("%w: %s does not accept a random value", ErrParamFormat, p.Name)
	}
	v, err := strconv.ParseFloat(p.value.text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%s", ErrParamFormat, p.Name, p.value.text)
	}
	return v, nil
}

// AsMAC resolves p as a MAC address; `*` draws a random unicast address.
func (p *Parameter) AsMAC(rng Randomizer) (addr.MAC, error) {
	if err := p.ensureDecoded(); err != nil {
		return addr.MAC{}, err
	}
	p.used = true
	switch p.value.kind {
	case kindRandomFull:
		if p.randomized == nil {
			p.randomized = addr.RandomMAC(rng, false)
		}
		return p.randomized.(addr.MAC), nil
	default:
		m, err := addr.ParseMAC(p.value.text)
		if err != nil {
			return addr.MAC{}, err
		}
		return m, nil
	}
}

// AsIPv4 resolves p as an IPv4 address, including the per-octet
// random-wildcard grammar (spec.md §8.1).
func (p *Parameter) AsIPv4(rng Randomizer) (addr.IPv4, error) {
	if err := p.ensureDecoded(); err != nil {
		return addr.IPv4{}, err
	}
	p.used = true
	if p.value.kind == kindRandomFull {
		if p.randomized == nil {
			p.randomized = addr.RandomIPv4(rng)
		}
		return p.randomized.(addr.IPv4), nil
	}
	return addr.ParseIPv4(p.value.text, rng)
}

// AsIPv6 resolves p as an IPv6 address.
func (p *Parameter) AsIPv6(rng Randomizer) (addr.IPv6, error) {
	if err := p.ensureDecoded(); err != nil {
		return addr.IPv6{}, err
	}
	p.used = true
	if p.value.kind == kindRandomFull {
		if p.randomized == nil {
			p.randomized = addr.RandomIPv6(rng)
		}
		return p.randomized.(addr.IPv6), nil
	}
	return addr.ParseIPv6(p.value.text)
}

// AsStream resolves p as a byte stream: a quoted/embedded literal, a hex
// string, or a random fill (`*` defaults to 32 bytes, `*N` allocates
// exactly N bytes).
func (p *Parameter) AsStream(rng Randomizer) ([]byte, error) {
	if err := p.ensureDecoded(); err != nil {
		return nil, err
	}
	p.used = true
	switch p.value.kind {
	case kindRandomFull:
		if p.randomized == nil {
			buf := make([]byte, 32)
			rng.Fill(buf)
			p.randomized = buf
		}
		return p.randomized.([]byte), nil
	case kindRandomLen:
		if p.randomized == nil {
			buf := make([]byte, p.value.n)
			rng.Fill(buf)
			p.randomized = buf
		}
		return p.randomized.([]byte), nil
	case kindRandomRange:
		return nil, fmt.Errorf("%w: *[lo-hi] is not valid for stream parameters", ErrParamFormat)
	default:
		if p.value.quoted {
			return []byte(p.value.text), nil
		}
		b, err := lex.HexStringToBin(p.value.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%s", ErrParamFormat, p.Name, p.value.text)
		}
		return b, nil
	}
}

// AsEmbedded returns the raw instruction text of an embedded (`<...>`)
// value, for the instruction parser to recurse into under its depth
// counter. It does not mark the parameter used by itself in the same way
// as AsStream would re-decode; callers should treat it as a specialized
// accessor for `<...>`-typed parameters only.
func (p *Parameter) AsEmbedded() (string, bool) {
	if err := p.ensureDecoded(); err != nil {
		return "", false
	}
	if len(p.raw) >= 2 && p.raw[0] == '<' {
		p.used = true
		return p.value.text, true
	}
	return "", false
}
