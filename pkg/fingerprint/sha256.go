package fingerprint

import (
	"encoding/hex"
	"math/bits"
)

// Size is the length of a digest in bytes.
const Size = 32

// blockSize is the SHA-256 block size in bytes.
const blockSize = 64

// initState holds the initial hash values: the first 32 bits of the
// fractional parts of the square roots of the first 8 primes.
var initState = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// roundK holds the 64 round constants: the first 32 bits of the fractional
// parts of the cube roots of the first 64 primes.
var roundK = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5,
	0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3,
	0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc,
	0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7,
	0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13,
	0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3,
	0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5,
	0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208,
	0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// Hasher computes a SHA-256 digest incrementally.
//
// The zero value is not ready for use; create instances with New. A Hasher
// is not safe for concurrent use.
type Hasher struct {
	// h holds the 8 working registers.
	h [8]uint32

	// buf accumulates input until a full 64-byte block is available.
	buf [blockSize]byte

	// n is the number of buffered bytes in buf.
	n int

	// total is the total message length in bytes.
	total uint64
}

// New creates a Hasher initialized to the standard starting state.
func New() *Hasher {
	h := &Hasher{}
	h.Reset()
	return h
}

// Reset returns the Hasher to its initial state.
func (d *Hasher) Reset() {
	d.h = initState
	d.n = 0
	d.total = 0
}

// Write absorbs p into the digest state. It never returns an error; the
// signature matches io.Writer so a Hasher can be a sink for fmt and io
// helpers.
func (d *Hasher) Write(p []byte) (int, error) {
	written := len(p)
	d.total += uint64(written)

	// Top up a partially filled block first.
	if d.n > 0 {
		c := copy(d.buf[d.n:], p)
		d.n += c
		p = p[c:]
		if d.n == blockSize {
			d.compress(d.buf[:])
			d.n = 0
		}
	}

	// Compress full blocks directly from the input.
	for len(p) >= blockSize {
		d.compress(p[:blockSize])
		p = p[blockSize:]
	}

	// Buffer the tail.
	if len(p) > 0 {
		d.n = copy(d.buf[:], p)
	}

	return written, nil
}

// Sum returns the digest of everything written so far. It does not disturb
// the running state, so callers can continue writing afterwards.
func (d *Hasher) Sum() [Size]byte {
	// Work on a copy: padding must not contaminate the stream.
	c := *d

	bitLen := c.total << 3

	// One 0x80 byte, then zeros until the length is congruent to 56 mod 64.
	var pad [blockSize + 8]byte
	pad[0] = 0x80
	padLen := 56 - int(c.total%blockSize)
	if padLen <= 0 {
		padLen += blockSize
	}

	// Original bit length as a 64-bit big-endian integer.
	for i := 0; i < 8; i++ {
		pad[padLen+i] = byte(bitLen >> (56 - 8*i))
	}
	c.Write(pad[:padLen+8])

	var out [Size]byte
	for i, v := range c.h {
		out[i*4+0] = byte(v >> 24)
		out[i*4+1] = byte(v >> 16)
		out[i*4+2] = byte(v >> 8)
		out[i*4+3] = byte(v)
	}
	return out
}

// compress folds one 64-byte block into the working registers.
func (d *Hasher) compress(p []byte) {
	var w [64]uint32

	// First 16 words come straight from the block, big-endian.
	for i := 0; i < 16; i++ {
		j := i * 4
		w[i] = uint32(p[j])<<24 | uint32(p[j+1])<<16 | uint32(p[j+2])<<8 | uint32(p[j+3])
	}

	// Message schedule expansion for words 16..63.
	for i := 16; i < 64; i++ {
		v15 := w[i-15]
		s0 := bits.RotateLeft32(v15, -7) ^ bits.RotateLeft32(v15, -18) ^ (v15 >> 3)
		v2 := w[i-2]
		s1 := bits.RotateLeft32(v2, -17) ^ bits.RotateLeft32(v2, -19) ^ (v2 >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, dd := d.h[0], d.h[1], d.h[2], d.h[3]
	e, f, g, h := d.h[4], d.h[5], d.h[6], d.h[7]

	// All additions wrap at 32 bits, which is native uint32 arithmetic.
	for i := 0; i < 64; i++ {
		sigma1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
		ch := (e & f) ^ (^e & g)
		t1 := h + sigma1 + ch + roundK[i] + w[i]

		sigma0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := sigma0 + maj

		h = g
		g = f
		f = e
		e = dd + t1
		dd = c
		c = b
		b = a
		a = t1 + t2
	}

	d.h[0] += a
	d.h[1] += b
	d.h[2] += c
	d.h[3] += dd
	d.h[4] += e
	d.h[5] += f
	d.h[6] += g
	d.h[7] += h
}

// Sum256 returns the SHA-256 digest of data in one shot.
func Sum256(data []byte) [Size]byte {
	h := New()
	h.Write(data)
	return h.Sum()
}

// HexSum returns the SHA-256 digest of data as a lowercase hex string.
func HexSum(data []byte) string {
	sum := Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortID returns a short stable identifier for s: the first 8 hex characters
// of its digest. Used to reference secrets (API keys) in logs, metric labels,
// and storage rows without exposing the secret itself.
func ShortID(s string) string {
	return HexSum([]byte(s))[:8]
}
