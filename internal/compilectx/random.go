package compilectx

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// Random is the process-wide RNG. In normal mode it is a cryptographically
// seeded PRNG; in counter mode (used by tests) it produces a deterministic
// sequence so that compiled output is reproducible across runs.
//
// Counter mode grounding: original_source cRandom's test-mode behavior,
// confirmed by spec.md §8.9: "rand(a,b) returns seq++ % (b-a+1) + a".
type Random struct {
	counter   bool
	seq       uint64
	src       *mathrand.ChaCha8
}

// NewRandom returns a Random seeded from the OS CSPRNG.
func NewRandom() *Random {
	var seed [32]byte
	_, _ = rand.Read(seed[:])
	return &Random{src: mathrand.NewChaCha8(seed)}
}

// NewCounterRandom returns a Random in deterministic counter mode whose
// counter starts at seed.
func NewCounterRandom(seed uint64) *Random {
	return &Random{counter: true, seq: seed}
}

// Uint32 returns a uniformly distributed 32-bit value (or the next
// counter value in counter mode, which callers then reduce modulo range).
func (r *Random) Uint32() uint32 {
	if r.counter {
		r.seq++
		return uint32(r.seq - 1)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(r.src.Uint64()))
	return binary.BigEndian.Uint32(b[:])
}

// Uint64 returns a uniformly distributed 64-bit value.
func (r *Random) Uint64() uint64 {
	if r.counter {
		r.seq++
		return r.seq - 1
	}
	return r.src.Uint64()
}

// Range returns a value in [lo, hi] inclusive. In counter mode this is
// exactly seq++ % (hi-lo+1) + lo, per spec.md §8.9.
func (r *Random) Range(lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	span := hi - lo + 1
	if r.counter {
		r.seq++
		return (r.seq-1)%span + lo
	}
	return lo + r.src.Uint64()%span
}

// Fill writes len(buf) random bytes into buf.
func (r *Random) Fill(buf []byte) {
	for i := range buf {
		if r.counter {
			r.seq++
			buf[i] = byte(r.seq - 1)
			continue
		}
		buf[i] = byte(r.src.Uint64())
	}
}
