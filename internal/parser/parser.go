// Package parser implements the top-level instruction grammar: an
// optional leading timestamp, an identifier, and a parenthesized
// parameter list, dispatched to one of the protocol encoders under
// internal/eth, internal/ip, internal/l4, and internal/l2ext. It is the
// piece that turns one line of script text into one or more compiled
// Ethernet frames, grounded on compiler/instructionparser.cpp's top-level
// dispatch loop and its per-protocol compile* helpers.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pumptool/tcppump/internal/addr"
	"github.com/pumptool/tcppump/internal/compilectx"
	"github.com/pumptool/tcppump/internal/eth"
	"github.com/pumptool/tcppump/internal/ip"
	"github.com/pumptool/tcppump/internal/l2ext/arp"
	"github.com/pumptool/tcppump/internal/l2ext/gre"
	"github.com/pumptool/tcppump/internal/l2ext/lldp"
	"github.com/pumptool/tcppump/internal/l2ext/stp"
	"github.com/pumptool/tcppump/internal/l2ext/vxlan"
	"github.com/pumptool/tcppump/internal/l4/icmp"
	"github.com/pumptool/tcppump/internal/l4/igmp"
	"github.com/pumptool/tcppump/internal/l4/tcp"
	"github.com/pumptool/tcppump/internal/l4/udp"
	"github.com/pumptool/tcppump/internal/l4/vrrp"
	"github.com/pumptool/tcppump/internal/lex"
	"github.com/pumptool/tcppump/internal/paramlist"
)

// Errors surfaced while locating and dispatching one instruction. Typed
// and parameter-level failures (paramlist.ErrParam*) propagate through
// unchanged; these name failures specific to the outer grammar.
var (
	ErrNoIdentifier = errors.New("parser: expected an identifier")
	ErrNoOpenParen  = errors.New("parser: expected '(' after identifier")
	ErrUnterminated = errors.New("parser: unterminated parameter list")
	ErrUnknownProto = errors.New("parser: unknown protocol identifier")
	ErrEmbedTooDeep = errors.New("parser: embedded instruction nesting too deep")
)

// Timestamp is a parsed leading "N:" or "+N:" prefix; nil on Instruction
// means the text carried no timestamp (the driver's virtual clock
// applies unchanged).
type Timestamp struct {
	Value    uint64
	Relative bool
}

// Instruction is one fully compiled "[time:] proto(params)" statement.
type Instruction struct {
	Timestamp  *Timestamp
	Identifier string
	Frames     []*eth.Frame
}

// options modulates how an encoder is invoked: set by embedded-packet
// recursion (spec.md §4.3's noEthHeader / depth-guard).
type options struct {
	noEthHeader bool
}

// Parse parses and compiles one instruction's text (without the
// trailing ';'). ctx supplies own-address defaults, the RNG, and the
// process-wide sequence/identification counters every encoder threads
// through.
func Parse(ctx *compilectx.Context, text string) (*Instruction, error) {
	i := lex.SkipWhitespace(text, 0)
	ts, i, err := parseTimestamp(text, i)
	if err != nil {
		return nil, err
	}
	ident, pl, _, err := parseIdentAndParams(text, i)
	if err != nil {
		return nil, err
	}
	frames, err := dispatch(ctx, ident, pl, options{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ident, err)
	}
	if err := pl.CheckUnused(); err != nil {
		return nil, fmt.Errorf("%s: %w", ident, err)
	}
	return &Instruction{Timestamp: ts, Identifier: ident, Frames: frames}, nil
}

func parseTimestamp(s string, i int) (*Timestamp, int, error) {
	i = lex.SkipWhitespace(s, i)
	start := i
	if i >= len(s) {
		return nil, i, ErrNoIdentifier
	}
	relative := s[i] == '+'
	j := i
	if relative {
		j++
	}
	if j >= len(s) || s[j] < '0' || s[j] > '9' {
		if relative {
			return nil, i, fmt.Errorf("parser: '+' must be followed by a timestamp digit")
		}
		return nil, start, nil
	}
	numStart := j
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	k := lex.SkipWhitespace(s, j)
	if k >= len(s) || s[k] != ':' {
		// No colon following: this was never a timestamp, just an
		// identifier that happens to start with a digit (not valid,
		// but that's the identifier parser's problem to report).
		return nil, start, nil
	}
	v, err := strconv.ParseUint(s[numStart:j], 10, 64)
	if err != nil {
		return nil, i, fmt.Errorf("parser: bad timestamp %q: %w", s[numStart:j], err)
	}
	return &Timestamp{Value: v, Relative: relative}, k + 1, nil
}

// parseIdentAndParams reads "ident(body)" starting at i and returns the
// identifier, the parsed parameter list, and the index just past the
// closing ')'.
func parseIdentAndParams(s string, i int) (string, *paramlist.ParameterList, int, error) {
	i = lex.SkipWhitespace(s, i)
	start := i
	if i >= len(s) || !lex.IsKeyStart(s[i]) {
		return "", nil, i, ErrNoIdentifier
	}
	for i < len(s) && lex.IsKeyChar(s[i]) {
		i++
	}
	ident := s[start:i]
	i = lex.SkipWhitespace(s, i)
	if i >= len(s) || s[i] != '(' {
		return "", nil, i, ErrNoOpenParen
	}
	bodyStart := i + 1
	end, err := findBodyEnd(s, bodyStart)
	if err != nil {
		return "", nil, i, err
	}
	pl, err := paramlist.Parse(s[bodyStart:end])
	if err != nil {
		return "", nil, i, err
	}
	return ident, pl, end + 1, nil
}

// findBodyEnd locates the ')' that closes the parameter list opened at
// start, tracking quoted strings and "<...>" embedded instructions (which
// may themselves contain parentheses) so it does not stop early.
func findBodyEnd(s string, start int) (int, error) {
	depth := 0
	inQuote := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ')':
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, ErrUnterminated
}

func dispatch(ctx *compilectx.Context, ident string, pl *paramlist.ParameterList, opts options) ([]*eth.Frame, error) {
	switch ident {
	case "raw":
		return compileRaw(ctx, pl, opts)
	case "eth":
		return compileEth(ctx, pl)
	case "arp":
		return compileARP(ctx, pl, arpModeNormal)
	case "arp-probe":
		return compileARP(ctx, pl, arpModeProbe)
	case "arp-announce":
		return compileARP(ctx, pl, arpModeAnnounce)
	case "ipv4":
		return compileIPv4Raw(ctx, pl)
	case "ipv6":
		return compileIPv6Raw(ctx, pl)
	case "udp":
		return compileUDP(ctx, pl, false)
	case "udp6":
		return compileUDP(ctx, pl, true)
	case "tcp":
		return compileTCP(ctx, pl, tcpShortcutNone)
	case "tcp-syn":
		return compileTCP(ctx, pl, tcpShortcutSYN)
	case "tcp-syn-ack":
		return compileTCP(ctx, pl, tcpShortcutSYNACK)
	case "tcp-syn-ack2":
		return compileTCP(ctx, pl, tcpShortcutSYNACK2)
	case "tcp-fin":
		return compileTCP(ctx, pl, tcpShortcutFIN)
	case "tcp-fin-ack":
		return compileTCP(ctx, pl, tcpShortcutFINACK)
	case "tcp-fin-ack2":
		return compileTCP(ctx, pl, tcpShortcutFINACK2)
	case "tcp-reset":
		return compileTCP(ctx, pl, tcpShortcutReset)
	case "icmp":
		return compileICMP(ctx, pl, icmpShortcutNone)
	case "icmp-unreachable":
		return compileICMP(ctx, pl, icmpShortcutUnreachable)
	case "icmp-src-quench":
		return compileICMP(ctx, pl, icmpShortcutSrcQuench)
	case "icmp-time-exceeded":
		return compileICMP(ctx, pl, icmpShortcutTimeExceeded)
	case "icmp-redirect":
		return compileICMP(ctx, pl, icmpShortcutRedirect)
	case "icmp-echo":
		return compileICMP(ctx, pl, icmpShortcutEcho)
	case "icmp-echo-reply":
		return compileICMP(ctx, pl, icmpShortcutEchoReply)
	case "igmp":
		return compileIGMP(ctx, pl, igmpShortcutLegacyQuery)
	case "igmp-query":
		return compileIGMP(ctx, pl, igmpShortcutQuery)
	case "igmp3-query":
		return compileIGMP(ctx, pl, igmpShortcutQueryV3)
	case "igmp-report":
		return compileIGMP(ctx, pl, igmpShortcutReport)
	case "igmp-leave":
		return compileIGMP(ctx, pl, igmpShortcutLeave)
	case "vrrp":
		return compileVRRP(ctx, pl, 2)
	case "vrrp3":
		return compileVRRP(ctx, pl, 3)
	case "stp":
		return compileSTP(ctx, pl, stpModeConfig)
	case "stp-tcn":
		return compileSTP(ctx, pl, stpModeTCN)
	case "rstp":
		return compileSTP(ctx, pl, stpModeRSTP)
	case "vxlan":
		return compileVXLAN(ctx, pl, false)
	case "vxlan6":
		return compileVXLAN(ctx, pl, true)
	case "gre":
		return compileGRE(ctx, pl, false)
	case "gre6":
		return compileGRE(ctx, pl, true)
	case "lldp":
		return compileLLDP(ctx, pl)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProto, ident)
	}
}

// --- shared helpers ----------------------------------------------------

func optUint(ctx *compilectx.Context, pl *paramlist.ParameterList, name string, lo, hi, def uint64) (uint64, error) {
	p := pl.Find(name)
	if p == nil {
		return def, nil
	}
	return p.AsUint64(lo, hi, ctx.Rand())
}

func optFloat(pl *paramlist.ParameterList, name string, def float64) (float64, error) {
	p := pl.Find(name)
	if p == nil {
		return def, nil
	}
	return p.AsFloat64()
}

func optBool(pl *paramlist.ParameterList, name string, def bool) (bool, error) {
	p := pl.Find(name)
	if p == nil {
		return def, nil
	}
	return p.AsBool()
}

func optStream(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) ([]byte, error) {
	p := pl.Find(name)
	if p == nil {
		return nil, nil
	}
	return p.AsStream(ctx.Rand())
}

func reqIPv4(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) (addr.IPv4, error) {
	p := pl.Find(name)
	if p == nil {
		return addr.IPv4{}, fmt.Errorf("%w: %s", paramlist.ErrParamUnknown, name)
	}
	return p.AsIPv4(ctx.Rand())
}

func optIPv4(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) (addr.IPv4, bool, error) {
	p := pl.Find(name)
	if p == nil {
		return addr.IPv4{}, false, nil
	}
	v, err := p.AsIPv4(ctx.Rand())
	return v, true, err
}

// applyEthernetHeader configures f's source/destination MAC and up to
// two VLAN tags from the common smac/dmac/vid[2]/prio[2]/vtype[2]/dei[2]
// parameter names every encoder accepts, per the original's shared
// compileMacHeader helper. dmacOptional lets IP-based encoders defer to
// their own multicast-derivation fallback.
func applyEthernetHeader(f *eth.Frame, ctx *compilectx.Context, pl *paramlist.ParameterList, dmacOptional bool) error {
	f.SetSourceMAC(ctx.OwnMAC)
	if p := pl.Find("smac"); p != nil {
		mac, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		f.SetSourceMAC(mac)
	}
	if p := pl.Find("dmac"); p != nil {
		mac, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		f.SetDestMAC(mac)
	} else if !dmacOptional {
		return fmt.Errorf("%w: dmac", paramlist.ErrParamUnknown)
	}

	if err := applyVLANTag(f, ctx, pl, "vid", "prio", "vtype", "dei"); err != nil {
		return err
	}
	if err := applyVLANTag(f, ctx, pl, "vid2", "prio2", "vtype2", "dei2"); err != nil {
		return err
	}
	return applyLLC(f, ctx, pl)
}

func applyVLANTag(f *eth.Frame, ctx *compilectx.Context, pl *paramlist.ParameterList, vidName, prioName, vtypeName, deiName string) error {
	vidP := pl.Find(vidName)
	if vidP == nil {
		return nil
	}
	vid, err := vidP.AsUint64(0, 4095, ctx.Rand())
	if err != nil {
		return err
	}
	tag := eth.VLANTag{TPID: eth.EthertypeVLAN, VID: uint16(vid)}
	if prio, err := optUint(ctx, pl, prioName, 0, 7, 0); err != nil {
		return err
	} else {
		tag.Prio = uint8(prio)
	}
	if vtype, err := optUint(ctx, pl, vtypeName, 1, 2, 1); err != nil {
		return err
	} else if vtype == 2 {
		tag.TPID = eth.EthertypeQinQ
	}
	if dei, err := optBool(pl, deiName, false); err != nil {
		return err
	} else {
		tag.DEI = dei
	}
	f.AddVLANTag(tag)
	return nil
}

func applyLLC(f *eth.Frame, ctx *compilectx.Context, pl *paramlist.ParameterList) error {
	dsapP, ssapP := pl.Find("dsap"), pl.Find("ssap")
	if dsapP == nil || ssapP == nil {
		return nil
	}
	dsap, err := dsapP.AsUint64(0, 255, ctx.Rand())
	if err != nil {
		return err
	}
	ssap, err := ssapP.AsUint64(0, 255, ctx.Rand())
	if err != nil {
		return err
	}
	llc := eth.LLC{DSAP: uint8(dsap), SSAP: uint8(ssap), Control: 0x03}
	if c, err := optUint(ctx, pl, "llc-control", 0, 0xffff, 0x03); err != nil {
		return err
	} else {
		llc.Control = uint16(c)
	}
	if p := pl.Find("oui"); p != nil {
		ouiBytes, err := p.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		if len(ouiBytes) != 3 {
			return fmt.Errorf("%w: oui must be 3 bytes", paramlist.ErrParamFormat)
		}
		llc.HasSNAP = true
		copy(llc.OUI[:], ouiBytes)
		if proto, err := optUint(ctx, pl, "snap-proto", 0, 0xffff, 0); err != nil {
			return err
		} else {
			llc.SNAPProto = uint16(proto)
		}
	}
	f.SetLLC(llc)
	return nil
}

func applyIPv4CommonParams(env *ip.V4, ctx *compilectx.Context, pl *paramlist.ParameterList) error {
	dip, err := reqIPv4(ctx, pl, "dip")
	if err != nil {
		return err
	}
	env.SetDestination(dip)
	if sip, ok, err := optIPv4(ctx, pl, "sip"); err != nil {
		return err
	} else if ok {
		env.SetSource(sip)
	}
	if v, err := optUint(ctx, pl, "ttl", 0, 255, 64); err != nil {
		return err
	} else {
		env.SetTTL(uint8(v))
	}
	if v, err := optUint(ctx, pl, "dscp", 0, 63, 0); err != nil {
		return err
	} else {
		env.SetDSCP(uint8(v))
	}
	if v, err := optUint(ctx, pl, "ecn", 0, 3, 0); err != nil {
		return err
	} else {
		env.SetECN(uint8(v))
	}
	if v, err := optBool(pl, "df", false); err != nil {
		return err
	} else {
		env.SetDontFragment(v)
	}
	if p := pl.Find("id"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return err
		}
		env.SetIdentification(uint16(v))
	}
	if v, err := optBool(pl, "router-alert", false); err != nil {
		return err
	} else if v {
		env.AddRouterAlertOption()
	}
	return nil
}

func applyIPv6CommonParams(env *ip.V6, ctx *compilectx.Context, pl *paramlist.ParameterList) error {
	dipP := pl.Find("dip")
	if dipP == nil {
		return fmt.Errorf("%w: dip", paramlist.ErrParamUnknown)
	}
	dip, err := dipP.AsIPv6(ctx.Rand())
	if err != nil {
		return err
	}
	env.SetDestination(dip)
	if p := pl.Find("sip"); p != nil {
		sip, err := p.AsIPv6(ctx.Rand())
		if err != nil {
			return err
		}
		env.SetSource(sip)
	}
	if v, err := optUint(ctx, pl, "ttl", 0, 255, 64); err != nil {
		return err
	} else {
		env.SetHopLimit(uint8(v))
	}
	if v, err := optUint(ctx, pl, "dscp", 0, 63, 0); err != nil {
		return err
	} else {
		env.SetDSCP(uint8(v))
	}
	if v, err := optUint(ctx, pl, "ecn", 0, 3, 0); err != nil {
		return err
	} else {
		env.SetECN(uint8(v))
	}
	if v, err := optUint(ctx, pl, "flow-label", 0, 0xfffff, 0); err != nil {
		return err
	} else {
		env.SetFlowLabel(uint32(v))
	}
	return nil
}

// embeddedBytes resolves name as either an embedded "<...>" instruction
// (recursively compiled under the depth guard, Ethernet header stripped)
// or a plain byte stream, matching the grammar's "value := ... | '<' ...
// '>'" production (spec.md §4.2) for parameters that accept either form.
func embeddedBytes(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) ([]byte, error) {
	p := pl.Find(name)
	if p == nil {
		return nil, nil
	}
	text, ok := p.AsEmbedded()
	if !ok {
		return p.AsStream(ctx.Rand())
	}
	if !ctx.EnterEmbedded() {
		return nil, ErrEmbedTooDeep
	}
	defer ctx.LeaveEmbedded()

	ident, inner, _, err := parseIdentAndParams(text, 0)
	if err != nil {
		return nil, err
	}
	frames, err := dispatch(ctx, ident, inner, options{noEthHeader: true})
	if err != nil {
		return nil, err
	}
	if err := inner.CheckUnused(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, nil
	}
	raw := frames[0].Bytes()
	if len(raw) >= 14 {
		return raw[14:], nil
	}
	return raw, nil
}

// --- eth -----------------------------------------------------------

func compileEth(ctx *compilectx.Context, pl *paramlist.ParameterList) ([]*eth.Frame, error) {
	f := eth.New()
	if err := applyEthernetHeader(f, ctx, pl, false); err != nil {
		return nil, err
	}
	if v, err := optUint(ctx, pl, "ethertype", 0, 0xffff, 0); err != nil {
		return nil, err
	} else if v != 0 {
		f.SetEthertype(uint16(v))
	}
	payload, err := optStream(ctx, pl, "data")
	if err != nil {
		return nil, err
	}
	f.SetPayload(payload)
	return []*eth.Frame{f}, nil
}

// --- arp -----------------------------------------------------------

type arpMode int

const (
	arpModeNormal arpMode = iota
	arpModeProbe
	arpModeAnnounce
)

func compileARP(ctx *compilectx.Context, pl *paramlist.ParameterList, mode arpMode) ([]*eth.Frame, error) {
	f := arp.New()
	smac := ctx.OwnMAC
	if p := pl.Find("smac"); p != nil {
		m, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return nil, err
		}
		smac = m
	}

	switch mode {
	case arpModeProbe:
		target, err := reqIPv4(ctx, pl, "dip")
		if err != nil {
			return nil, err
		}
		f.Probe(smac, target)
	case arpModeAnnounce:
		sip, err := reqIPv4(ctx, pl, "sip")
		if err != nil {
			return nil, err
		}
		f.Announce(smac, sip)
	default:
		opcode, err := optUint(ctx, pl, "op", 1, 2, uint64(arp.OpRequest))
		if err != nil {
			return nil, err
		}
		sip, err := reqIPv4(ctx, pl, "sip")
		if err != nil {
			return nil, err
		}
		dip, err := reqIPv4(ctx, pl, "dip")
		if err != nil {
			return nil, err
		}
		dmac := addr.MAC{}
		if p := pl.Find("dmac"); p != nil {
			dmac, err = p.AsMAC(ctx.Rand())
			if err != nil {
				return nil, err
			}
		}
		f.SetAll(uint16(opcode), smac, sip, dmac, dip)
	}

	if err := f.Compile(); err != nil {
		return nil, err
	}
	return []*eth.Frame{f.EthernetFrame()}, nil
}

// --- ipv4 / ipv6 raw datagrams --------------------------------------

func compileIPv4Raw(ctx *compilectx.Context, pl *paramlist.ParameterList) ([]*eth.Frame, error) {
	env := ip.NewV4(ctx)
	if err := applyIPv4CommonParams(env, ctx, pl); err != nil {
		return nil, err
	}
	if err := applyEthernetHeader(env.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}
	proto, err := optUint(ctx, pl, "proto", 0, 255, 0)
	if err != nil {
		return nil, err
	}
	payload, err := optStream(ctx, pl, "data")
	if err != nil {
		return nil, err
	}
	if err := env.Compile(uint8(proto), nil, payload); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

func compileIPv6Raw(ctx *compilectx.Context, pl *paramlist.ParameterList) ([]*eth.Frame, error) {
	env := ip.NewV6(ctx)
	if err := applyIPv6CommonParams(env, ctx, pl); err != nil {
		return nil, err
	}
	if err := applyEthernetHeader(env.EthernetFrame(), ctx, pl, false); err != nil {
		return nil, err
	}
	proto, err := optUint(ctx, pl, "proto", 0, 255, 0)
	if err != nil {
		return nil, err
	}
	payload, err := optStream(ctx, pl, "data")
	if err != nil {
		return nil, err
	}
	if err := env.Compile(uint8(proto), nil, payload); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- udp -------------------------------------------------------------

func compileUDP(ctx *compilectx.Context, pl *paramlist.ParameterList, v6 bool) ([]*eth.Frame, error) {
	var env ip.Envelope
	if v6 {
		e := ip.NewV6(ctx)
		if err := applyIPv6CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, false); err != nil {
			return nil, err
		}
		env = e
	} else {
		e := ip.NewV4(ctx)
		if err := applyIPv4CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, true); err != nil {
			return nil, err
		}
		env = e
	}

	seg := udp.New(env)
	sport, err := optUint(ctx, pl, "sport", 0, 0xffff, 0)
	if err != nil {
		return nil, err
	}
	dport, err := optUint(ctx, pl, "dport", 0, 0xffff, 0)
	if err != nil {
		return nil, err
	}
	seg.SetSourcePort(uint16(sport))
	seg.SetDestinationPort(uint16(dport))
	if p := pl.Find("chksum"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		seg.SetChecksum(uint16(v))
	}
	payload, err := optStream(ctx, pl, "data")
	if err != nil {
		return nil, err
	}
	if err := seg.Compile(payload); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- tcp -------------------------------------------------------------

type tcpShortcut int

const (
	tcpShortcutNone tcpShortcut = iota
	tcpShortcutSYN
	tcpShortcutSYNACK
	tcpShortcutSYNACK2
	tcpShortcutFIN
	tcpShortcutFINACK
	tcpShortcutFINACK2
	tcpShortcutReset
)

var tcpFlagParams = map[string]uint8{
	"flag-fin": tcp.FlagFIN,
	"flag-syn": tcp.FlagSYN,
	"flag-rst": tcp.FlagRST,
	"flag-psh": tcp.FlagPSH,
	"flag-ack": tcp.FlagACK,
	"flag-urg": tcp.FlagURG,
	"flag-ece": tcp.FlagECE,
	"flag-cwr": tcp.FlagCWR,
}

func compileTCP(ctx *compilectx.Context, pl *paramlist.ParameterList, shortcut tcpShortcut) ([]*eth.Frame, error) {
	env := ip.NewV4(ctx)
	if err := applyIPv4CommonParams(env, ctx, pl); err != nil {
		return nil, err
	}
	if err := applyEthernetHeader(env.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}

	seg := tcp.New(ctx, env)
	sport, err := optUint(ctx, pl, "sport", 0, 0xffff, 0)
	if err != nil {
		return nil, err
	}
	dport, err := optUint(ctx, pl, "dport", 0, 0xffff, 0)
	if err != nil {
		return nil, err
	}
	seg.SetSourcePort(uint16(sport))
	seg.SetDestinationPort(uint16(dport))

	switch shortcut {
	case tcpShortcutSYN:
		seg.ConfigureSYN()
	case tcpShortcutSYNACK:
		seg.ConfigureSYNACK()
	case tcpShortcutSYNACK2:
		seg.ConfigureSYNACK2()
	case tcpShortcutFIN:
		seg.ConfigureFIN()
	case tcpShortcutFINACK:
		seg.ConfigureFINACK()
	case tcpShortcutFINACK2:
		seg.ConfigureFINACK2()
	case tcpShortcutReset:
		seg.ConfigureReset()
	}

	if v, err := optUint(ctx, pl, "win", 0, 0xffff, 1024); err != nil {
		return nil, err
	} else {
		seg.SetWindow(uint16(v))
	}
	if p := pl.Find("seq"); p != nil {
		v, err := p.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		seg.SetSeqNumber(uint32(v))
	}
	if p := pl.Find("ack"); p != nil {
		v, err := p.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		seg.SetAckNumber(uint32(v))
	}
	if v, err := optUint(ctx, pl, "urg", 0, 0xffff, 0); err != nil {
		return nil, err
	} else {
		seg.SetUrgentPointer(uint16(v))
	}
	for name, mask := range tcpFlagParams {
		if p := pl.Find(name); p != nil {
			b, err := p.AsBool()
			if err != nil {
				return nil, err
			}
			seg.SetFlag(mask, b)
		}
	}
	if v, err := optBool(pl, "nonce", false); err != nil {
		return nil, err
	} else {
		seg.SetNonce(v)
	}
	chksumSet := false
	if p := pl.Find("chksum"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		seg.SetChecksum(uint16(v))
		chksumSet = true
	}
	payload, err := optStream(ctx, pl, "data")
	if err != nil {
		return nil, err
	}
	if err := seg.Compile(payload, !chksumSet); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- icmp --------------------------------------------------------------

type icmpShortcut int

const (
	icmpShortcutNone icmpShortcut = iota
	icmpShortcutUnreachable
	icmpShortcutSrcQuench
	icmpShortcutTimeExceeded
	icmpShortcutRedirect
	icmpShortcutEcho
	icmpShortcutEchoReply
)

func compileICMP(ctx *compilectx.Context, pl *paramlist.ParameterList, shortcut icmpShortcut) ([]*eth.Frame, error) {
	env := ip.NewV4(ctx)
	if err := applyIPv4CommonParams(env, ctx, pl); err != nil {
		return nil, err
	}
	if err := applyEthernetHeader(env.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}
	d := icmp.New(env)

	switch shortcut {
	case icmpShortcutEcho, icmpShortcutEchoReply:
		id, err := optUint(ctx, pl, "id", 0, 0xffff, 0)
		if err != nil {
			return nil, err
		}
		seq, err := optUint(ctx, pl, "seq", 0, 0xffff, 0)
		if err != nil {
			return nil, err
		}
		data, err := optStream(ctx, pl, "data")
		if err != nil {
			return nil, err
		}
		if err := d.CompilePing(shortcut == icmpShortcutEchoReply, uint16(id), uint16(seq), data); err != nil {
			return nil, err
		}
	case icmpShortcutRedirect:
		code, err := optUint(ctx, pl, "code", 0, 255, 0)
		if err != nil {
			return nil, err
		}
		gw, err := reqIPv4(ctx, pl, "gateway")
		if err != nil {
			return nil, err
		}
		embedded, err := embeddedBytes(ctx, pl, "embedded")
		if err != nil {
			return nil, err
		}
		if err := d.CompileRedirect(uint8(code), gw, embedded); err != nil {
			return nil, err
		}
	default:
		typ, err := icmpType(ctx, pl, shortcut)
		if err != nil {
			return nil, err
		}
		code, err := optUint(ctx, pl, "code", 0, 255, 0)
		if err != nil {
			return nil, err
		}
		if pl.Find("embedded") != nil {
			embedded, err := embeddedBytes(ctx, pl, "embedded")
			if err != nil {
				return nil, err
			}
			if err := d.CompileWithEmbedded(typ, uint8(code), embedded); err != nil {
				return nil, err
			}
		} else {
			var chksumOverride *uint16
			if p := pl.Find("chksum"); p != nil {
				v, err := p.AsUint64(0, 0xffff, ctx.Rand())
				if err != nil {
					return nil, err
				}
				u := uint16(v)
				chksumOverride = &u
			}
			if err := d.CompileRaw(typ, uint8(code), nil, chksumOverride); err != nil {
				return nil, err
			}
		}
	}
	return env.Frames(), nil
}

func icmpType(ctx *compilectx.Context, pl *paramlist.ParameterList, shortcut icmpShortcut) (uint8, error) {
	switch shortcut {
	case icmpShortcutUnreachable:
		return icmp.TypeUnreachable, nil
	case icmpShortcutSrcQuench:
		return icmp.TypeSourceQuench, nil
	case icmpShortcutTimeExceeded:
		return icmp.TypeTimeExceeded, nil
	default:
		v, err := optUint(ctx, pl, "type", 0, 255, 0)
		if err != nil {
			return 0, err
		}
		if pl.Find("type") == nil && v == 0 {
			return 0, fmt.Errorf("%w: type", paramlist.ErrParamUnknown)
		}
		return uint8(v), nil
	}
}

// --- igmp ----------------------------------------------------------

type igmpShortcut int

const (
	igmpShortcutLegacyQuery igmpShortcut = iota // bare "igmp": general query, version picked by v3 flag
	igmpShortcutQuery
	igmpShortcutQueryV3
	igmpShortcutReport
	igmpShortcutLeave
)

func compileIGMP(ctx *compilectx.Context, pl *paramlist.ParameterList, shortcut igmpShortcut) ([]*eth.Frame, error) {
	env := ip.NewV4(ctx)
	if err := applyEthernetHeader(env.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}
	if sip, ok, err := optIPv4(ctx, pl, "sip"); err != nil {
		return nil, err
	} else if ok {
		env.SetSource(sip)
	}

	d := igmp.New(env)
	for {
		p := pl.Find("source")
		if p == nil {
			break
		}
		src, err := p.AsIPv4(ctx.Rand())
		if err != nil {
			return nil, err
		}
		d.AddSource(src)
	}

	switch shortcut {
	case igmpShortcutReport:
		group, err := reqIPv4(ctx, pl, "group")
		if err != nil {
			return nil, err
		}
		if err := d.CompileReport(group); err != nil {
			return nil, err
		}
	case igmpShortcutLeave:
		group, err := reqIPv4(ctx, pl, "group")
		if err != nil {
			return nil, err
		}
		if err := d.CompileLeaveGroup(group); err != nil {
			return nil, err
		}
	default:
		v3 := shortcut == igmpShortcutQueryV3
		maxResp, err := optFloat(pl, "max-resp-time", 10)
		if err != nil {
			return nil, err
		}
		s, err := optBool(pl, "s-flag", false)
		if err != nil {
			return nil, err
		}
		qrv, err := optUint(ctx, pl, "qrv", 0, 7, 2)
		if err != nil {
			return nil, err
		}
		qqic, err := optFloat(pl, "qqic", 0)
		if err != nil {
			return nil, err
		}
		group, hasGroup, err := optIPv4(ctx, pl, "group")
		if err != nil {
			return nil, err
		}
		if hasGroup {
			if err := d.CompileGroupQuery(v3, maxResp, s, uint8(qrv), qqic, group); err != nil {
				return nil, err
			}
		} else {
			if err := d.CompileGeneralQuery(v3, maxResp, s, uint8(qrv), qqic); err != nil {
				return nil, err
			}
		}
	}
	return env.Frames(), nil
}

// --- vrrp ------------------------------------------------------------

func compileVRRP(ctx *compilectx.Context, pl *paramlist.ParameterList, version int) ([]*eth.Frame, error) {
	env := ip.NewV4(ctx)
	env.SetTTL(255)
	if sip, ok, err := optIPv4(ctx, pl, "sip"); err != nil {
		return nil, err
	} else if ok {
		env.SetSource(sip)
	}

	a := vrrp.New(env, version)
	vrid, err := optUint(ctx, pl, "vrid", 0, 255, 1)
	if err != nil {
		return nil, err
	}
	a.SetVRID(uint8(vrid))
	prio, err := optUint(ctx, pl, "prio", 0, 255, 100)
	if err != nil {
		return nil, err
	}
	a.SetPriority(uint8(prio))
	interval, err := optUint(ctx, pl, "interval", 0, 0xfff, 1)
	if err != nil {
		return nil, err
	}
	a.SetInterval(uint16(interval))
	if p := pl.Find("chksum"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		a.SetChecksum(uint16(v))
	}
	for {
		p := pl.Find("vip")
		if p == nil {
			break
		}
		vip, err := p.AsIPv4(ctx.Rand())
		if err != nil {
			return nil, err
		}
		a.AddVirtualIP(vip)
	}
	if err := a.Compile(); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- stp -------------------------------------------------------------

type stpMode int

const (
	stpModeConfig stpMode = iota
	stpModeTCN
	stpModeRSTP
)

func compileSTP(ctx *compilectx.Context, pl *paramlist.ParameterList, mode stpMode) ([]*eth.Frame, error) {
	var b *stp.BPDU
	if mode == stpModeRSTP {
		b = stp.NewRSTP()
	} else {
		b = stp.New()
	}
	if err := applyEthernetHeader(b.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}

	if mode == stpModeTCN {
		b.SetTCN()
		if err := b.Compile(); err != nil {
			return nil, err
		}
		return []*eth.Frame{b.EthernetFrame()}, nil
	}

	rootMAC, err := optMAC(ctx, pl, "root-mac")
	if err != nil {
		return nil, err
	}
	rootPrio, err := optUint(ctx, pl, "root-prio", 0, 15, 8)
	if err != nil {
		return nil, err
	}
	b.SetRoot(stp.BridgeID{Priority: uint8(rootPrio), MAC: rootMAC})

	cost, err := optUint(ctx, pl, "root-cost", 0, 0xffffffff, 0)
	if err != nil {
		return nil, err
	}
	b.SetRootPathCost(uint32(cost))

	bridgeMAC, err := optMAC(ctx, pl, "bridge-mac")
	if err != nil {
		return nil, err
	}
	bridgePrio, err := optUint(ctx, pl, "bridge-prio", 0, 15, 8)
	if err != nil {
		return nil, err
	}
	b.SetBridge(stp.BridgeID{Priority: uint8(bridgePrio), MAC: bridgeMAC})

	portPrio, err := optUint(ctx, pl, "port-prio", 0, 255, 128)
	if err != nil {
		return nil, err
	}
	portNum, err := optUint(ctx, pl, "port-id", 0, 0xffff, 1)
	if err != nil {
		return nil, err
	}
	b.SetPortID(uint8(portPrio), uint16(portNum))

	msgAge, err := optFloat(pl, "message-age", 0)
	if err != nil {
		return nil, err
	}
	b.SetMessageAge(msgAge)
	maxAge, err := optFloat(pl, "max-age", 20)
	if err != nil {
		return nil, err
	}
	b.SetMaxAge(maxAge)
	helloTime, err := optFloat(pl, "hello-time", 2)
	if err != nil {
		return nil, err
	}
	b.SetHelloTime(helloTime)
	fwdDelay, err := optFloat(pl, "forward-delay", 15)
	if err != nil {
		return nil, err
	}
	b.SetForwardDelay(fwdDelay)

	if v, err := optBool(pl, "topology-change", false); err != nil {
		return nil, err
	} else {
		b.SetTopologyChange(v)
	}
	if v, err := optBool(pl, "topology-change-ack", false); err != nil {
		return nil, err
	} else {
		b.SetTopologyChangeAck(v)
	}
	if mode == stpModeRSTP {
		if v, err := optBool(pl, "proposal", false); err != nil {
			return nil, err
		} else {
			b.SetProposal(v)
		}
		if v, err := optBool(pl, "agreement", false); err != nil {
			return nil, err
		} else {
			b.SetAgreement(v)
		}
		if v, err := optBool(pl, "learning", true); err != nil {
			return nil, err
		} else {
			b.SetLearning(v)
		}
		if v, err := optBool(pl, "forwarding", true); err != nil {
			return nil, err
		} else {
			b.SetForwarding(v)
		}
		role, err := optUint(ctx, pl, "port-role", 0, 3, uint64(stp.PortRoleDesignated))
		if err != nil {
			return nil, err
		}
		b.SetPortRole(uint8(role))
	}

	if err := b.Compile(); err != nil {
		return nil, err
	}
	return []*eth.Frame{b.EthernetFrame()}, nil
}

func optMAC(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) (addr.MAC, error) {
	p := pl.Find(name)
	if p == nil {
		return addr.MAC{}, nil
	}
	return p.AsMAC(ctx.Rand())
}

// --- vxlan -------------------------------------------------------------

func compileVXLAN(ctx *compilectx.Context, pl *paramlist.ParameterList, v6 bool) ([]*eth.Frame, error) {
	var env ip.Envelope
	if v6 {
		e := ip.NewV6(ctx)
		if err := applyIPv6CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, false); err != nil {
			return nil, err
		}
		env = e
	} else {
		e := ip.NewV4(ctx)
		if err := applyIPv4CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, true); err != nil {
			return nil, err
		}
		env = e
	}

	f := vxlan.New(env)
	sport, err := optUint(ctx, pl, "sport", 0, 0xffff, 0)
	if err != nil {
		return nil, err
	}
	if sport != 0 {
		f.SetSourcePort(uint16(sport))
	}
	dport, err := optUint(ctx, pl, "dport", 0, 0xffff, 4789)
	if err != nil {
		return nil, err
	}
	f.SetDestinationPort(uint16(dport))
	vni, err := optUint(ctx, pl, "vni", 0, 0xffffff, 0)
	if err != nil {
		return nil, err
	}
	if err := f.SetVNI(uint32(vni)); err != nil {
		return nil, err
	}

	inner, err := embeddedBytes(ctx, pl, "payload")
	if err != nil {
		return nil, err
	}
	if err := f.Compile(inner); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- gre -----------------------------------------------------------

func compileGRE(ctx *compilectx.Context, pl *paramlist.ParameterList, v6 bool) ([]*eth.Frame, error) {
	var env ip.Envelope
	if v6 {
		e := ip.NewV6(ctx)
		if err := applyIPv6CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, false); err != nil {
			return nil, err
		}
		env = e
	} else {
		e := ip.NewV4(ctx)
		if err := applyIPv4CommonParams(e, ctx, pl); err != nil {
			return nil, err
		}
		if err := applyEthernetHeader(e.EthernetFrame(), ctx, pl, true); err != nil {
			return nil, err
		}
		env = e
	}

	d := gre.New(env)
	proto, err := optUint(ctx, pl, "proto", 0, 0xffff, uint64(eth.EthertypeIPv4))
	if err != nil {
		return nil, err
	}
	d.SetProtocolType(uint16(proto))
	if p := pl.Find("key"); p != nil {
		v, err := p.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		d.SetKey(uint32(v))
	}
	if p := pl.Find("seq"); p != nil {
		v, err := p.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		d.SetSequence(uint32(v))
	}
	if p := pl.Find("chksum"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return nil, err
		}
		d.SetChecksum(uint16(v))
	}

	payload, err := embeddedBytes(ctx, pl, "payload")
	if err != nil {
		return nil, err
	}
	if err := d.Compile(payload); err != nil {
		return nil, err
	}
	return env.Frames(), nil
}

// --- lldp ----------------------------------------------------------

// compileLLDP wires the LLDP encoder's full TLV catalogue: chassis/port
// ID (explicit subtype or auto-detected IPv4/IPv6/MAC/raw),
// TTL, descriptions, system capabilities, management address, the 802.1
// TLV set (PVID, protocol-VID, VLAN name, protocol identity, VID-usage
// digest, management-VID, link aggregation, congestion notification,
// ETS config/recommendation, PFC, application priority, EVB, CDCP,
// application VLAN), the 802.3 set (MAC/PHY, power-via-MDI basic and
// extended, max frame size, EEE, EEE fast wake), the Profinet set (delay,
// port status, alias, MRP port status, chassis MAC, PTCP status,
// MAU-type extension, MRP-interconnect port status), and free-form raw
// and OUI TLVs for anything without a dedicated setter, grounded on
// compiler/lldpparser.cpp's per-TLV parameter groups.
func compileLLDP(ctx *compilectx.Context, pl *paramlist.ParameterList) ([]*eth.Frame, error) {
	f := lldp.New()
	if err := applyEthernetHeader(f.EthernetFrame(), ctx, pl, true); err != nil {
		return nil, err
	}

	if err := lldpChassisID(ctx, pl, f); err != nil {
		return nil, err
	}
	if err := lldpPortID(ctx, pl, f); err != nil {
		return nil, err
	}

	ttl, err := optUint(ctx, pl, "ttl", 0, 0xffff, 120)
	if err != nil {
		return nil, err
	}
	f.AddTTL(uint16(ttl))

	if sysName, err := optStream(ctx, pl, "sys-name"); err != nil {
		return nil, err
	} else if sysName != nil {
		f.AddSystemName(sysName)
	}
	if sysDescr, err := optStream(ctx, pl, "sys-descr"); err != nil {
		return nil, err
	} else if sysDescr != nil {
		f.AddSystemDescription(sysDescr)
	}
	if portDescr, err := optStream(ctx, pl, "port-descr"); err != nil {
		return nil, err
	} else if portDescr != nil {
		f.AddPortDescription(portDescr)
	}

	if err := lldpSystemCapabilities(ctx, pl, f); err != nil {
		return nil, err
	}
	if err := lldpManagementAddress(ctx, pl, f); err != nil {
		return nil, err
	}

	if err := lldp8021TLVs(ctx, pl, f); err != nil {
		return nil, err
	}
	if err := lldp8023TLVs(ctx, pl, f); err != nil {
		return nil, err
	}
	if err := lldpProfinetTLVs(ctx, pl, f); err != nil {
		return nil, err
	}
	if err := lldpRawAndOUITLVs(ctx, pl, f); err != nil {
		return nil, err
	}

	withEnd, err := optBool(pl, "end-tlv", true)
	if err != nil {
		return nil, err
	}
	if err := f.Compile(withEnd); err != nil {
		return nil, err
	}
	return []*eth.Frame{f.EthernetFrame()}, nil
}

// lldpAutoID resolves an LLDP chassis/port ID parameter whose subtype was
// not explicitly given: it tries IPv4, then IPv6, then MAC, falling back
// to a raw byte string (subtype 7), mirroring chassisID()/portID()'s
// cascade of format attempts in the original.
func lldpAutoID(ctx *compilectx.Context, p *paramlist.Parameter, addIPv4 func(addr.IPv4), addIPv6 func(addr.IPv6), addMAC func(addr.MAC), addRaw func(uint8, []byte)) error {
	if ip4, err := p.AsIPv4(ctx.Rand()); err == nil {
		addIPv4(ip4)
		return nil
	}
	if ip6, err := p.AsIPv6(ctx.Rand()); err == nil {
		addIPv6(ip6)
		return nil
	}
	if mac, err := p.AsMAC(ctx.Rand()); err == nil {
		addMAC(mac)
		return nil
	}
	raw, err := p.AsStream(ctx.Rand())
	if err != nil {
		return err
	}
	addRaw(7, raw)
	return nil
}

func lldpChassisID(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	if typeP := pl.Find("chassis-id-type"); typeP != nil {
		subtype, err := typeP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		id, err := reqStream(ctx, pl, "chassis-id")
		if err != nil {
			return err
		}
		f.AddChassisID(uint8(subtype), id)
		return nil
	}
	if p := pl.Find("chassis-mac"); p != nil {
		mac, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddChassisIDMAC(mac)
		return nil
	}
	if p := pl.Find("chassis-id"); p != nil {
		return lldpAutoID(ctx, p, f.AddChassisIDIPv4, f.AddChassisIDIPv6, f.AddChassisIDMAC, f.AddChassisID)
	}
	f.AddChassisIDMAC(ctx.OwnMAC)
	return nil
}

func lldpPortID(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	if typeP := pl.Find("port-id-type"); typeP != nil {
		subtype, err := typeP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		id, err := reqStream(ctx, pl, "port-id")
		if err != nil {
			return err
		}
		f.AddPortID(uint8(subtype), id)
		return nil
	}
	if p := pl.Find("port-mac"); p != nil {
		mac, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddPortIDMAC(mac)
		return nil
	}
	if p := pl.Find("port-id"); p != nil {
		return lldpAutoID(ctx, p, f.AddPortIDIPv4, f.AddPortIDIPv6, f.AddPortIDMAC, f.AddPortID)
	}
	f.AddPortIDMAC(ctx.OwnMAC)
	return nil
}

// lldpSystemCapabilities always emits the System Capabilities TLV, each
// bit independently settable the way the original exposes one parameter
// per capability; only the station bit (and its enabled counterpart)
// defaults on.
func lldpSystemCapabilities(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	bit := func(name string, def uint64) (uint16, error) {
		v, err := optUint(ctx, pl, name, 0, 1, def)
		return uint16(v), err
	}

	other, err := bit("sys-cap-other", 0)
	if err != nil {
		return err
	}
	repeater, err := bit("sys-cap-repeater", 0)
	if err != nil {
		return err
	}
	bridge, err := bit("sys-cap-bridge", 0)
	if err != nil {
		return err
	}
	wlan, err := bit("sys-cap-wlan", 0)
	if err != nil {
		return err
	}
	router, err := bit("sys-cap-router", 0)
	if err != nil {
		return err
	}
	phone, err := bit("sys-cap-phone", 0)
	if err != nil {
		return err
	}
	docsis, err := bit("sys-cap-docsis", 0)
	if err != nil {
		return err
	}
	station, err := bit("sys-cap-station", 1)
	if err != nil {
		return err
	}
	system := other | repeater<<1 | bridge<<2 | wlan<<3 | router<<4 | phone<<5 | docsis<<6 | station<<7

	otherEn, err := bit("sys-cap-other-en", 0)
	if err != nil {
		return err
	}
	repeaterEn, err := bit("sys-cap-repeater-en", 0)
	if err != nil {
		return err
	}
	bridgeEn, err := bit("sys-cap-bridge-en", 0)
	if err != nil {
		return err
	}
	wlanEn, err := bit("sys-cap-wlan-en", 0)
	if err != nil {
		return err
	}
	routerEn, err := bit("sys-cap-router-en", 0)
	if err != nil {
		return err
	}
	phoneEn, err := bit("sys-cap-phone-en", 0)
	if err != nil {
		return err
	}
	docsisEn, err := bit("sys-cap-docsis-en", 0)
	if err != nil {
		return err
	}
	stationEn, err := bit("sys-cap-station-en", 1)
	if err != nil {
		return err
	}
	enabled := otherEn | repeaterEn<<1 | bridgeEn<<2 | wlanEn<<3 | routerEn<<4 | phoneEn<<5 | docsisEn<<6 | stationEn<<7

	f.AddSystemCapabilities(system, enabled)
	return nil
}

// lldpManagementAddress adds the Management Address TLV only if the
// caller supplied one; an explicit subtype requires a raw address,
// otherwise the value is probed as IPv4, then IPv6, then MAC.
func lldpManagementAddress(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	ifNbSubtype, err := optUint(ctx, pl, "mgmt-if-subtype", 0, 255, 1)
	if err != nil {
		return err
	}
	ifNumber, err := optUint(ctx, pl, "mgmt-if-number", 0, 0xffffffff, 0)
	if err != nil {
		return err
	}
	oid, err := optStream(ctx, pl, "mgmt-oid")
	if err != nil {
		return err
	}

	if typeP := pl.Find("mgmt-addr-type"); typeP != nil {
		subtype, err := typeP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		mgmtAddr, err := reqStream(ctx, pl, "mgmt-addr")
		if err != nil {
			return err
		}
		f.AddManagementAddress(uint8(subtype), mgmtAddr, uint8(ifNbSubtype), uint32(ifNumber), oid)
		return nil
	}

	p := pl.Find("mgmt-addr")
	if p == nil {
		return nil
	}
	if ip4, err := p.AsIPv4(ctx.Rand()); err == nil {
		f.AddManagementAddressIPv4(ip4, uint8(ifNbSubtype), uint32(ifNumber), oid)
		return nil
	}
	if ip6, err := p.AsIPv6(ctx.Rand()); err == nil {
		f.AddManagementAddressIPv6(ip6, uint8(ifNbSubtype), uint32(ifNumber), oid)
		return nil
	}
	mac, err := p.AsMAC(ctx.Rand())
	if err != nil {
		return err
	}
	f.AddManagementAddressMAC(mac, uint8(ifNbSubtype), uint32(ifNumber), oid)
	return nil
}

// lldp8021TLVs wires the IEEE 802.1Q organization-specific TLVs.
func lldp8021TLVs(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	if p := pl.Find("pvid"); p != nil {
		v, err := p.AsUint64(0, 4095, ctx.Rand())
		if err != nil {
			return err
		}
		f.AddPortVID(uint16(v))
	}

	var cursor *paramlist.Parameter
	for {
		vidP := pl.FindAfter(cursor, "", "ppvid")
		if vidP == nil {
			break
		}
		cursor = vidP
		vid, err := vidP.AsUint64(0, 4095, ctx.Rand())
		if err != nil {
			return err
		}
		supported, err := optAfterBool(pl, vidP, "ppvid", "ppvid-sup", false)
		if err != nil {
			return err
		}
		enabled, err := optAfterBool(pl, vidP, "ppvid", "ppvid-en", false)
		if err != nil {
			return err
		}
		f.AddProtocolVID(uint16(vid), supported, enabled)
	}

	cursor = nil
	for {
		vidP := pl.FindAfter(cursor, "", "vlan-name-vid")
		if vidP == nil {
			break
		}
		cursor = vidP
		vid, err := vidP.AsUint64(0, 4095, ctx.Rand())
		if err != nil {
			return err
		}
		nameP := pl.FindAfter(vidP, "vlan-name-vid", "vlan-name")
		if nameP == nil {
			return fmt.Errorf("%w: vlan-name", paramlist.ErrParamUnknown)
		}
		name, err := nameP.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddVLANName(uint16(vid), name)
	}

	cursor = nil
	for {
		p := pl.FindAfter(cursor, "", "proto-id")
		if p == nil {
			break
		}
		cursor = p
		protocol, err := p.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddProtocolIdentity(protocol)
	}

	if p := pl.Find("vid-usage-digest"); p != nil {
		v, err := p.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return err
		}
		f.AddVIDUsageDigest(uint32(v))
	}

	cursor = nil
	for {
		p := pl.FindAfter(cursor, "", "mgmt-vid")
		if p == nil {
			break
		}
		cursor = p
		vid, err := p.AsUint64(0, 4095, ctx.Rand())
		if err != nil {
			return err
		}
		f.AddManagementVID(uint16(vid))
	}

	if capP := pl.Find("lag-cap"); capP != nil {
		cap, err := capP.AsUint64(0, 1, ctx.Rand())
		if err != nil {
			return err
		}
		status, err := optUint(ctx, pl, "lag-status", 0, 1, 0)
		if err != nil {
			return err
		}
		portType, err := optUint(ctx, pl, "lag-port-type", 0, 3, 0)
		if err != nil {
			return err
		}
		portID, err := optUint(ctx, pl, "lag-port-id", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		f.AddLinkAggregation(cap != 0, status != 0, uint8(portType), uint32(portID))
	}

	if cnpvP := pl.Find("cn-cnpv"); cnpvP != nil {
		cnpv, err := cnpvP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		ready, err := optUint(ctx, pl, "cn-ready", 0, 255, 0)
		if err != nil {
			return err
		}
		f.AddCongestionNotification(uint8(cnpv), uint8(ready))
	}

	if willingP := pl.Find("ets-cfg-willing"); willingP != nil {
		willing, err := willingP.AsUint64(0, 1, ctx.Rand())
		if err != nil {
			return err
		}
		cbs, err := optUint(ctx, pl, "ets-cfg-cbs", 0, 1, 0)
		if err != nil {
			return err
		}
		maxTC, err := optUint(ctx, pl, "ets-cfg-max-tc", 0, 7, 0)
		if err != nil {
			return err
		}
		prio, err := optUint(ctx, pl, "ets-cfg-prio", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		bw, err := optUint(ctx, pl, "ets-cfg-bw", 0, 0xffffffffffffffff, 0)
		if err != nil {
			return err
		}
		tsa, err := optUint(ctx, pl, "ets-cfg-tsa", 0, 0xffffffffffffffff, 0)
		if err != nil {
			return err
		}
		f.AddETSConfig(willing != 0, cbs != 0, uint8(maxTC), uint32(prio), bw, tsa)
	}

	if prioP := pl.Find("ets-rec-prio"); prioP != nil {
		prio, err := prioP.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return err
		}
		bw, err := optUint(ctx, pl, "ets-rec-bw", 0, 0xffffffffffffffff, 0)
		if err != nil {
			return err
		}
		tsa, err := optUint(ctx, pl, "ets-rec-tsa", 0, 0xffffffffffffffff, 0)
		if err != nil {
			return err
		}
		f.AddETSRecommendation(uint32(prio), bw, tsa)
	}

	if willingP := pl.Find("pfc-willing"); willingP != nil {
		willing, err := willingP.AsUint64(0, 1, ctx.Rand())
		if err != nil {
			return err
		}
		mbc, err := optUint(ctx, pl, "pfc-mbc", 0, 1, 0)
		if err != nil {
			return err
		}
		cap, err := optUint(ctx, pl, "pfc-cap", 0, 0x0f, 0)
		if err != nil {
			return err
		}
		enable, err := optUint(ctx, pl, "pfc-enable", 0, 0xff, 0)
		if err != nil {
			return err
		}
		f.AddPFCConfig(willing != 0, mbc != 0, uint8(cap), uint8(enable))
	}

	var prio, sel []uint8
	var proto []uint16
	cursor = nil
	for {
		prioP := pl.FindAfter(cursor, "", "appl-prio")
		if prioP == nil {
			break
		}
		cursor = prioP
		p, err := prioP.AsUint64(0, 7, ctx.Rand())
		if err != nil {
			return err
		}
		s, err := reqAfterUint(ctx, pl, prioP, "appl-prio", "appl-sel", 0, 7)
		if err != nil {
			return err
		}
		pr, err := reqAfterUint(ctx, pl, prioP, "appl-prio", "appl-proto", 0, 0xffff)
		if err != nil {
			return err
		}
		prio = append(prio, uint8(p))
		sel = append(sel, uint8(s))
		proto = append(proto, uint16(pr))
	}
	if len(prio) > 0 {
		f.AddApplicationPriority(prio, sel, proto)
	}

	if bridgeStatusP := pl.Find("evb-bridge-status"); bridgeStatusP != nil {
		bridgeStatus, err := bridgeStatusP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		stationStatus, err := optUint(ctx, pl, "evb-station-status", 0, 255, 0)
		if err != nil {
			return err
		}
		retries, err := optUint(ctx, pl, "evb-retries", 0, 7, 0)
		if err != nil {
			return err
		}
		rte, err := optUint(ctx, pl, "evb-rte", 0, 31, 0)
		if err != nil {
			return err
		}
		mode, err := optUint(ctx, pl, "evb-mode", 0, 3, 0)
		if err != nil {
			return err
		}
		rolRwd, err := optBool(pl, "evb-rol-rwd", false)
		if err != nil {
			return err
		}
		rwd, err := optUint(ctx, pl, "evb-rwd", 0, 31, 0)
		if err != nil {
			return err
		}
		rolRka, err := optBool(pl, "evb-rol-rka", false)
		if err != nil {
			return err
		}
		rka, err := optUint(ctx, pl, "evb-rka", 0, 31, 0)
		if err != nil {
			return err
		}
		f.AddEVB(uint8(bridgeStatus), uint8(stationStatus), uint8(retries), uint8(rte), uint8(mode), rolRwd, uint8(rwd), rolRka, uint8(rka))
	}

	if roleP := pl.Find("cdcp-role"); roleP != nil {
		role, err := roleP.AsUint64(0, 1, ctx.Rand())
		if err != nil {
			return err
		}
		sComp, err := optUint(ctx, pl, "cdcp-scomp", 0, 1, 0)
		if err != nil {
			return err
		}
		chnCap, err := optUint(ctx, pl, "cdcp-chn-cap", 0, 4095, 0)
		if err != nil {
			return err
		}
		var scidSvid [][2]uint16
		cursor = nil
		for {
			scidP := pl.FindAfter(cursor, "", "cdcp-scid")
			if scidP == nil {
				break
			}
			cursor = scidP
			scid, err := scidP.AsUint64(0, 4095, ctx.Rand())
			if err != nil {
				return err
			}
			svid, err := reqAfterUint(ctx, pl, scidP, "cdcp-scid", "cdcp-svid", 0, 4095)
			if err != nil {
				return err
			}
			scidSvid = append(scidSvid, [2]uint16{uint16(scid), uint16(svid)})
		}
		f.AddCDCP(role != 0, sComp != 0, uint16(chnCap), scidSvid)
	}

	var vid []uint16
	var vsel []uint8
	var vproto []uint16
	cursor = nil
	for {
		vidP := pl.FindAfter(cursor, "", "appl-vlan-vid")
		if vidP == nil {
			break
		}
		cursor = vidP
		v, err := vidP.AsUint64(0, 0x3ff, ctx.Rand())
		if err != nil {
			return err
		}
		s, err := reqAfterUint(ctx, pl, vidP, "appl-vlan-vid", "appl-vlan-sel", 0, 7)
		if err != nil {
			return err
		}
		pr, err := reqAfterUint(ctx, pl, vidP, "appl-vlan-vid", "appl-vlan-proto", 0, 0xffff)
		if err != nil {
			return err
		}
		vid = append(vid, uint16(v))
		vsel = append(vsel, uint8(s))
		vproto = append(vproto, uint16(pr))
	}
	if len(vid) > 0 {
		f.AddApplicationVLAN(vid, vsel, vproto)
	}

	return nil
}

// lldp8023TLVs wires the IEEE 802.3 organization-specific TLVs.
func lldp8023TLVs(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	if mauTypeP := pl.Find("macphy-mau-type"); mauTypeP != nil {
		mauType, err := mauTypeP.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return err
		}
		autonegSup, err := optBool(pl, "macphy-aneg-sup", false)
		if err != nil {
			return err
		}
		autonegEna, err := optBool(pl, "macphy-aneg-ena", false)
		if err != nil {
			return err
		}
		autonegCaps, err := optUint(ctx, pl, "macphy-aneg-caps", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		f.AddMacPhyStatus(autonegSup, autonegEna, uint16(autonegCaps), uint16(mauType))
	}

	if classP := pl.Find("poe-port-class"); classP != nil {
		portClassPSE, err := classP.AsBool()
		if err != nil {
			return err
		}
		mdiSup, err := optBool(pl, "poe-pse-mdi-sup", false)
		if err != nil {
			return err
		}
		mdiEna, err := optBool(pl, "poe-pse-mdi-ena", false)
		if err != nil {
			return err
		}
		pairCtrl, err := optBool(pl, "poe-pse-pair-ctrl", false)
		if err != nil {
			return err
		}
		powerPair, err := optUint(ctx, pl, "poe-pse-power-pair", 0, 255, 0)
		if err != nil {
			return err
		}
		powerClass, err := optUint(ctx, pl, "poe-power-class", 0, 255, 0)
		if err != nil {
			return err
		}

		if powerTypeP := pl.Find("poe-dll-power-type"); powerTypeP != nil {
			powerType, err := powerTypeP.AsUint64(0, 3, ctx.Rand())
			if err != nil {
				return err
			}
			powerSource, err := optUint(ctx, pl, "poe-dll-power-source", 0, 3, 0)
			if err != nil {
				return err
			}
			pd4pid, err := optUint(ctx, pl, "poe-dll-pd-4pid", 0, 1, 0)
			if err != nil {
				return err
			}
			powerPrio, err := optUint(ctx, pl, "poe-dll-power-prio", 0, 3, 0)
			if err != nil {
				return err
			}
			pdReq, err := optFloat(pl, "poe-dll-pd-req-power", 0)
			if err != nil {
				return err
			}
			pseReq, err := optFloat(pl, "poe-dll-pd-alloc-power", 0)
			if err != nil {
				return err
			}
			f.AddExtPowerViaMDI(portClassPSE, mdiSup, mdiEna, pairCtrl, uint8(powerPair), uint8(powerClass),
				uint8(powerType), uint8(powerSource), uint8(pd4pid), uint8(powerPrio), pdReq, pseReq)
		} else {
			f.AddBasicPowerViaMDI(portClassPSE, mdiSup, mdiEna, pairCtrl, uint8(powerPair), uint8(powerClass))
		}
	}

	frameSize, err := optUint(ctx, pl, "max-frame-size", 0, 0xffff, 0)
	if err != nil {
		return err
	}
	if frameSize != 0 {
		f.AddMaxFrameSize(uint16(frameSize))
	}

	if txP := pl.Find("eee-tx-tw"); txP != nil {
		tx, err := txP.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return err
		}
		rx, err := optUint(ctx, pl, "eee-rx-tw", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		fb, err := optUint(ctx, pl, "eee-fb-tw", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		echoTx, err := optUint(ctx, pl, "eee-echo-tx-tw", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		echoRx, err := optUint(ctx, pl, "eee-echo-rx-tw", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		f.AddEEE(uint16(tx), uint16(rx), uint16(fb), uint16(echoTx), uint16(echoRx))
	}

	if txP := pl.Find("eee-fw-tx"); txP != nil {
		tx, err := txP.AsBool()
		if err != nil {
			return err
		}
		rx, err := optBool(pl, "eee-fw-rx", false)
		if err != nil {
			return err
		}
		echoTx, err := optBool(pl, "eee-fw-echo-tx", false)
		if err != nil {
			return err
		}
		echoRx, err := optBool(pl, "eee-fw-echo-rx", false)
		if err != nil {
			return err
		}
		f.AddEEEFastWake(tx, rx, echoTx, echoRx)
	}

	return nil
}

// lldpProfinetTLVs wires the Profinet organization-specific TLVs.
func lldpProfinetTLVs(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	if rxLocP := pl.Find("pn-delay-rx-loc"); rxLocP != nil {
		rxLoc, err := rxLocP.AsUint64(0, 0xffffffff, ctx.Rand())
		if err != nil {
			return err
		}
		rxRem, err := optUint(ctx, pl, "pn-delay-rx-rem", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		txLoc, err := optUint(ctx, pl, "pn-delay-tx-loc", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		txRem, err := optUint(ctx, pl, "pn-delay-tx-rem", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		line, err := optUint(ctx, pl, "pn-delay-line", 0, 0xffffffff, 0)
		if err != nil {
			return err
		}
		f.AddPnDelay(uint32(rxLoc), uint32(rxRem), uint32(txLoc), uint32(txRem), uint32(line))
	}

	if stateP := pl.Find("pn-rtc3-state"); stateP != nil {
		state, err := stateP.AsUint64(0, 7, ctx.Rand())
		if err != nil {
			return err
		}
		frag, err := optBool(pl, "pn-rtc3-frag", false)
		if err != nil {
			return err
		}
		shortPreamble, err := optBool(pl, "pn-rtc3-short-preamble", false)
		if err != nil {
			return err
		}
		optimized, err := optBool(pl, "pn-rtc3-optimized", false)
		if err != nil {
			return err
		}
		rtc2, err := optUint(ctx, pl, "pn-rtc2-state", 0, 3, 0)
		if err != nil {
			return err
		}
		f.AddPnPortStatus(uint16(rtc2), uint8(state), frag, shortPreamble, optimized)
	}

	if alias, err := optStream(ctx, pl, "pn-alias"); err != nil {
		return err
	} else if alias != nil {
		f.AddPnAlias(alias)
	}

	mrpState, err := optUint(ctx, pl, "pn-mrp-state", 0, 3, 0)
	if err != nil {
		return err
	}
	if domain, err := optStream(ctx, pl, "pn-mrp-domain"); err != nil {
		return err
	} else if domain != nil {
		uuid := addr.MD5DomainUUID(string(domain))
		f.AddPnMrpPortStatus([16]byte(uuid), uint16(mrpState))
	} else if uuidBytes, err := optStream(ctx, pl, "pn-mrp-domain-uuid"); err != nil {
		return err
	} else if uuidBytes != nil {
		if len(uuidBytes) != 16 {
			return fmt.Errorf("%w: pn-mrp-domain-uuid must be 16 bytes", paramlist.ErrParamFormat)
		}
		var uuid [16]byte
		copy(uuid[:], uuidBytes)
		f.AddPnMrpPortStatus(uuid, uint16(mrpState))
	}

	if p := pl.Find("pn-chassis-mac"); p != nil {
		mac, err := p.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddPnChassisMAC(mac)
	}

	if macP := pl.Find("pn-ptcp-mac"); macP != nil {
		mac, err := macP.AsMAC(ctx.Rand())
		if err != nil {
			return err
		}
		domainUUID, err := optUUID(ctx, pl, "pn-ptcp-domain-uuid")
		if err != nil {
			return err
		}
		irdataUUID, err := optUUID(ctx, pl, "pn-ptcp-irdata-uuid")
		if err != nil {
			return err
		}
		period, err := optUint(ctx, pl, "pn-ptcp-period", 0, 0x7fffffff, 0)
		if err != nil {
			return err
		}
		redOrange, err := optUint(ctx, pl, "pn-ptcp-red-orange", 0, 0x7fffffff, 0)
		if err != nil {
			return err
		}
		orange, err := optUint(ctx, pl, "pn-ptcp-orange", 0, 0x7fffffff, 0)
		if err != nil {
			return err
		}
		green, err := optUint(ctx, pl, "pn-ptcp-green", 0, 0x7fffffff, 0)
		if err != nil {
			return err
		}
		f.AddPnPtcpStatus(mac, domainUUID, irdataUUID,
			uint32(period), period != 0,
			uint32(redOrange), redOrange != 0,
			uint32(orange), orange != 0,
			uint32(green), green != 0)
	}

	if p := pl.Find("pn-mau-type-ext"); p != nil {
		v, err := p.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return err
		}
		f.AddPnMauTypeExtension(uint16(v))
	}

	if idP := pl.Find("pn-mrp-ic-domain-id"); idP != nil {
		id, err := idP.AsUint64(0, 0xffff, ctx.Rand())
		if err != nil {
			return err
		}
		role, err := optUint(ctx, pl, "pn-mrp-ic-role", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		pos, err := optUint(ctx, pl, "pn-mrp-ic-pos", 0, 0xffff, 0)
		if err != nil {
			return err
		}
		f.AddPnMrpInterconnectPortStatus(uint16(id), uint16(role), uint16(pos))
	}

	return nil
}

// optUUID reads a 16-byte UUID parameter, returning the zero UUID if
// absent, matching cUUID::fromZero() defaults in the original's PTCP
// status parameter group.
func optUUID(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) ([16]byte, error) {
	b, err := optStream(ctx, pl, name)
	if err != nil {
		return [16]byte{}, err
	}
	if b == nil {
		return [16]byte{}, nil
	}
	if len(b) != 16 {
		return [16]byte{}, fmt.Errorf("%w: %s must be 16 bytes", paramlist.ErrParamFormat, name)
	}
	var u [16]byte
	copy(u[:], b)
	return u, nil
}

// lldpRawAndOUITLVs wires free-form TLVs for anything without a
// dedicated setter: arbitrary (type, value) pairs and arbitrary
// (OUI, subtype, value) organization-specific triples.
func lldpRawAndOUITLVs(ctx *compilectx.Context, pl *paramlist.ParameterList, f *lldp.Frame) error {
	var cursor *paramlist.Parameter
	for {
		typeP := pl.FindAfter(cursor, "", "raw-tlv-type")
		if typeP == nil {
			break
		}
		cursor = typeP
		typ, err := typeP.AsUint64(0, 127, ctx.Rand())
		if err != nil {
			return err
		}
		valueP := pl.FindAfter(typeP, "raw-tlv-type", "raw-tlv-value")
		if valueP == nil {
			return fmt.Errorf("%w: raw-tlv-value", paramlist.ErrParamUnknown)
		}
		value, err := valueP.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		f.AddRawTLV(uint8(typ), value)
	}

	cursor = nil
	for {
		ouiP := pl.FindAfter(cursor, "", "oui-tlv-oui")
		if ouiP == nil {
			break
		}
		cursor = ouiP
		ouiBytes, err := ouiP.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		if len(ouiBytes) != 3 {
			return fmt.Errorf("%w: oui-tlv-oui must be 3 bytes", paramlist.ErrParamFormat)
		}
		subtypeP := pl.FindAfter(ouiP, "oui-tlv-oui", "oui-tlv-type")
		if subtypeP == nil {
			return fmt.Errorf("%w: oui-tlv-type", paramlist.ErrParamUnknown)
		}
		subtype, err := subtypeP.AsUint64(0, 255, ctx.Rand())
		if err != nil {
			return err
		}
		valueP := pl.FindAfter(subtypeP, "oui-tlv-oui", "oui-tlv-value")
		if valueP == nil {
			return fmt.Errorf("%w: oui-tlv-value", paramlist.ErrParamUnknown)
		}
		value, err := valueP.AsStream(ctx.Rand())
		if err != nil {
			return err
		}
		var oui [3]byte
		copy(oui[:], ouiBytes)
		f.AddOUITLV(oui, uint8(subtype), value)
	}

	return nil
}

// reqStream resolves a required stream parameter, erroring with
// paramlist.ErrParamUnknown if absent.
func reqStream(ctx *compilectx.Context, pl *paramlist.ParameterList, name string) ([]byte, error) {
	p := pl.Find(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", paramlist.ErrParamUnknown, name)
	}
	return p.AsStream(ctx.Rand())
}

// optAfterBool resolves a boolean parameter scoped to the group started
// by cursor (bounded by the next occurrence of stopAt), defaulting to
// def if absent.
func optAfterBool(pl *paramlist.ParameterList, cursor *paramlist.Parameter, stopAt, name string, def bool) (bool, error) {
	p := pl.FindAfter(cursor, stopAt, name)
	if p == nil {
		return def, nil
	}
	return p.AsBool()
}

// reqAfterUint resolves a required integer parameter scoped to the
// group started by cursor (bounded by the next occurrence of stopAt).
func reqAfterUint(ctx *compilectx.Context, pl *paramlist.ParameterList, cursor *paramlist.Parameter, stopAt, name string, lo, hi uint64) (uint64, error) {
	p := pl.FindAfter(cursor, stopAt, name)
	if p == nil {
		return 0, fmt.Errorf("%w: %s", paramlist.ErrParamUnknown, name)
	}
	return p.AsUint64(lo, hi, ctx.Rand())
}

// --- raw -------------------------------------------------------------

// compileRaw iterates the parameter list positionally (spec.md §4.9),
// interpreting each name as a type keyword regardless of its value text:
// byte, be16/32/64, le16/32/64, ip4, ip6, mac, stream. With noEthHeader
// the bytes become a bare Ethernet payload (used for embedded-packet
// byte streams); otherwise they are the whole frame starting at offset 0.
func compileRaw(ctx *compilectx.Context, pl *paramlist.ParameterList, opts options) ([]*eth.Frame, error) {
	var out []byte
	for i := 0; i < pl.Len(); i++ {
		p := pl.At(i)
		var chunk []byte
		var err error
		switch p.Name {
		case "byte":
			var v uint64
			v, err = p.AsUint64(0, 0xff, ctx.Rand())
			chunk = []byte{byte(v)}
		case "be16":
			var v uint64
			v, err = p.AsUint64(0, 0xffff, ctx.Rand())
			chunk = []byte{byte(v >> 8), byte(v)}
		case "le16":
			var v uint64
			v, err = p.AsUint64(0, 0xffff, ctx.Rand())
			chunk = []byte{byte(v), byte(v >> 8)}
		case "be32":
			var v uint64
			v, err = p.AsUint64(0, 0xffffffff, ctx.Rand())
			chunk = []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		case "le32":
			var v uint64
			v, err = p.AsUint64(0, 0xffffffff, ctx.Rand())
			chunk = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		case "be64":
			var v uint64
			v, err = p.AsUint64(0, 0xffffffffffffffff, ctx.Rand())
			chunk = make([]byte, 8)
			for k := 0; k < 8; k++ {
				chunk[k] = byte(v >> uint(56-8*k))
			}
		case "le64":
			var v uint64
			v, err = p.AsUint64(0, 0xffffffffffffffff, ctx.Rand())
			chunk = make([]byte, 8)
			for k := 0; k < 8; k++ {
				chunk[k] = byte(v >> uint(8*k))
			}
		case "ip4":
			var v addr.IPv4
			v, err = p.AsIPv4(ctx.Rand())
			chunk = v.Bytes()
		case "ip6":
			var v addr.IPv6
			v, err = p.AsIPv6(ctx.Rand())
			chunk = v.Bytes()
		case "mac":
			var v addr.MAC
			v, err = p.AsMAC(ctx.Rand())
			chunk = v.Bytes()
		case "stream":
			chunk, err = p.AsStream(ctx.Rand())
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}

	if opts.noEthHeader {
		f := eth.New()
		f.SetSourceMAC(ctx.OwnMAC)
		f.SetPayload(out)
		return []*eth.Frame{f}, nil
	}
	return []*eth.Frame{eth.FromRawBytes(out)}, nil
}
