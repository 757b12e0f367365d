// Package compilectx carries the process-wide state the packet compiler
// needs - own addresses, MTU, RNG, and monotonic counters - as an explicit
// struct instead of package-level globals, so that multiple compilations
// (e.g. concurrent test cases) never interfere with each other.
package compilectx

import (
	"sync/atomic"

	"github.com/pumptool/tcppump/internal/addr"
)

// TimeRegressionPolicy controls how the script driver reacts to an
// absolute timestamp that precedes the current virtual clock.
type TimeRegressionPolicy int

const (
	// PolicyError fails the instruction with ErrTimeRegression. This is
	// the default: scripts should be written with monotonically
	// increasing absolute timestamps.
	PolicyError TimeRegressionPolicy = iota
	// PolicyClampToZero treats the regression as a zero-delay emission
	// instead of an error, useful for scripts translated from capture
	// traces with jittered timestamps.
	PolicyClampToZero
)

// MaxEmbeddedDepth bounds recursive parsing of embedded (`<...>`)
// instructions.
const MaxEmbeddedDepth = 8

// DefaultMTU is used when no MTU override is configured.
const DefaultMTU = 1500

// Context is the compiler's process-wide state, threaded explicitly
// through the parser and every protocol encoder. It is never stored in a
// package-level variable.
type Context struct {
	// OwnMAC, OwnIPv4, OwnIPv6 are the defaults used as "smac", source IP
	// and similar fields when a script omits them.
	OwnMAC  addr.MAC
	OwnIPv4 addr.IPv4
	OwnIPv6 addr.IPv6

	// IfName names the interface these packets are notionally bound to.
	IfName string

	// MTU bounds IPv4 fragmentation (see internal/ip).
	MTU int

	// TimeRegression controls driver behavior on backward absolute jumps.
	TimeRegression TimeRegressionPolicy

	rng *Random

	ipv4ID  atomic.Uint32 // wraps at 16 bits
	tcpSeq  atomic.Uint32
	depth   atomic.Int32
}

// New builds a Context with the given own-addresses and MTU, using a
// non-deterministic RNG seed.
func New(mac addr.MAC, ip4 addr.IPv4, ip6 addr.IPv6, ifName string, mtu int) *Context {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	c := &Context{
		OwnMAC:  mac,
		OwnIPv4: ip4,
		OwnIPv6: ip6,
		IfName:  ifName,
		MTU:     mtu,
		rng:     NewRandom(),
	}
	c.ipv4ID.Store(1)
	return c
}

// NewDeterministic builds a Context whose RNG runs in counter mode, for
// reproducible tests: Rand(a,b) returns seq++ % (b-a+1) + a.
func NewDeterministic(mac addr.MAC, ip4 addr.IPv4, ip6 addr.IPv6, ifName string, mtu int, seed uint64) *Context {
	c := New(mac, ip4, ip6, ifName, mtu)
	c.rng = NewCounterRandom(seed)
	return c
}

// Rand returns the context's random source.
func (c *Context) Rand() *Random {
	return c.rng
}

// NextIPv4Identification returns the next value of the process-wide IPv4
// identification counter, wrapping at 16 bits.
func (c *Context) NextIPv4Identification() uint16 {
	v := c.ipv4ID.Add(1) - 1
	return uint16(v)
}

// AdvanceTCPSequence bumps the process-wide TCP sequence counter by delta
// and returns the value in effect before the bump.
func (c *Context) AdvanceTCPSequence(delta uint32) uint32 {
	return c.tcpSeq.Add(delta) - delta
}

// SetTCPSequence forces the process-wide TCP sequence counter to seq, for
// scripts that give an explicit `seq` parameter - matching the original's
// setSeqNumber, which rewrites both the header field and the running
// counter so the next segment continues from here.
func (c *Context) SetTCPSequence(seq uint32) {
	c.tcpSeq.Store(seq)
}

// EnterEmbedded increments the embedded-instruction recursion depth and
// reports whether the new depth is still within MaxEmbeddedDepth. Callers
// must call LeaveEmbedded exactly once for every successful EnterEmbedded.
func (c *Context) EnterEmbedded() (ok bool) {
	d := c.depth.Add(1)
	if d > MaxEmbeddedDepth {
		c.depth.Add(-1)
		return false
	}
	return true
}

// LeaveEmbedded decrements the embedded-instruction recursion depth.
func (c *Context) LeaveEmbedded() {
	c.depth.Add(-1)
}
