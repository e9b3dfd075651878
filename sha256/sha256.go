// Package sha256 implements component H: a standalone FIPS-180-2 SHA-256
// port. No other package in this module imports it; vimregex keeps no
// pattern cache.
//
// Go's standard library already ships crypto/sha256; this package exists
// because the spec calls out SHA-256 as a named component with its own
// self-test vectors rather than an incidental hashing detail, and keeping
// the reference constants and round function spelled out here is what
// lets selfTest (run once via sync.Once) assert byte-for-byte agreement
// with the three canonical FIPS test vectors independent of whatever the
// standard library happens to do internally.
package sha256

import (
	"encoding/binary"
	"sync"
)

// Size is the digest length in bytes.
const Size = 32

// BlockSize is the block size in bytes.
const BlockSize = 64

var k = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

var initH = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

// digest tracks SHA-256 state across Write calls, mirroring
// crypto/sha256's internal digest without exposing streaming as a public
// API: the exported entry point hashes a whole message at once (Sum256),
// so Write stays package-private plumbing for Sum256's block loop.
type digest struct {
	h   [8]uint32
	buf [BlockSize]byte
	n   int   // bytes buffered in buf
	len uint64 // total bytes written
}

func newDigest() *digest {
	d := &digest{}
	d.h = initH
	return d
}

func (d *digest) write(p []byte) {
	d.len += uint64(len(p))
	if d.n > 0 {
		n := copy(d.buf[d.n:], p)
		d.n += n
		p = p[n:]
		if d.n == BlockSize {
			d.block(d.buf[:])
			d.n = 0
		}
	}
	for len(p) >= BlockSize {
		d.block(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.n = copy(d.buf[:], p)
	}
}

func (d *digest) checkSum() [Size]byte {
	length := d.len
	var tmp [BlockSize]byte
	tmp[0] = 0x80
	if length%64 < 56 {
		d.write(tmp[0 : 56-length%64])
	} else {
		d.write(tmp[0 : 64+56-length%64])
	}
	length <<= 3
	binary.BigEndian.PutUint64(tmp[:8], length)
	d.write(tmp[:8])

	var out [Size]byte
	for i, s := range d.h {
		binary.BigEndian.PutUint32(out[i*4:], s)
	}
	return out
}

func (d *digest) block(p []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(p[i*4:])
	}
	for i := 16; i < 64; i++ {
		v1 := w[i-2]
		t1 := rotr(v1, 17) ^ rotr(v1, 19) ^ (v1 >> 10)
		v2 := w[i-15]
		t2 := rotr(v2, 7) ^ rotr(v2, 18) ^ (v2 >> 3)
		w[i] = t1 + w[i-7] + t2 + w[i-16]
	}

	a, b, c, dd, e, f, g, h := d.h[0], d.h[1], d.h[2], d.h[3], d.h[4], d.h[5], d.h[6], d.h[7]
	for i := 0; i < 64; i++ {
		t1 := h + (rotr(e, 6) ^ rotr(e, 11) ^ rotr(e, 25)) + ((e & f) ^ (^e & g)) + k[i] + w[i]
		t2 := (rotr(a, 2) ^ rotr(a, 13) ^ rotr(a, 22)) + ((a & b) ^ (a & c) ^ (b & c))
		h, g, f, e = g, f, e, dd+t1
		dd, c, b, a = c, b, a, t1+t2
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

func rotr(x uint32, n uint) uint32 { return (x >> n) | (x << (32 - n)) }

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [Size]byte {
	d := newDigest()
	d.write(data)
	return d.checkSum()
}

var selfTestOnce sync.Once
var selfTestErr error

// SelfTest runs the three FIPS-180-2 canonical test vectors ("abc", the
// two-block 448-bit message, and one million repeated 'a' bytes) exactly
// once and caches the result, so repeated calls (e.g. from an init-time
// sanity check in multiple packages) don't repeat the expensive
// million-byte vector.
func SelfTest() error {
	selfTestOnce.Do(func() {
		selfTestErr = runSelfTest()
	})
	return selfTestErr
}

func runSelfTest() error {
	cases := []struct {
		in   string
		want [Size]byte
	}{
		{
			"abc",
			hex("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"),
		},
		{
			"abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			hex("248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"),
		},
	}
	for _, c := range cases {
		got := Sum256([]byte(c.in))
		if got != c.want {
			return errMismatch(c.in)
		}
	}
	million := make([]byte, 1_000_000)
	for i := range million {
		million[i] = 'a'
	}
	got := Sum256(million)
	want := hex("cdc76e5c9914fb9281a1c7e284d73e67f1809a48a497200e046d39ccc7112cd0")
	if got != want {
		return errMismatch("1,000,000 x 'a'")
	}
	return nil
}

type selfTestError string

func (e selfTestError) Error() string { return "sha256: self-test failed for input " + string(e) }

func errMismatch(input string) error { return selfTestError(input) }

// hex decodes a 64-hex-digit literal into a digest; panics on malformed
// input, which only a typo in the table above could produce.
func hex(s string) [Size]byte {
	var out [Size]byte
	for i := 0; i < Size; i++ {
		out[i] = hexByte(s[i*2])<<4 | hexByte(s[i*2+1])
	}
	return out
}

func hexByte(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	panic("sha256: bad hex digit in self-test vector")
}
