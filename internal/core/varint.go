package core

// EncodeVarint appends the SQLite varint encoding of v to dst and returns
// the extended slice. The encoding uses 1 to 9 bytes: each byte's high bit
// (except the ninth) signals continuation, and the low 7 bits (8 for the
// ninth byte) carry data in big-endian order.
func EncodeVarint(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, 0)
	}

	var buf [9]byte
	if v&(0xff<<56) != 0 {
		// Ninth byte carries all 8 remaining bits; no continuation bit.
		buf[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			buf[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return append(dst, buf[:]...)
	}

	n := 0
	for v > 0 {
		buf[n] = byte(v & 0x7f)
		v >>= 7
		n++
	}
	// buf[0..n) holds 7-bit groups least-significant first; emit
	// most-significant first with continuation bits set on all but the
	// last byte written.
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := buf[n-1-i]
		if i != n-1 {
			b |= 0x80
		}
		out[i] = b
	}
	return append(dst, out...)
}

// DecodeVarint reads a SQLite varint from the front of src and returns the
// decoded value and the number of bytes consumed. It returns ok=false if
// src is empty or truncated mid-varint.
func DecodeVarint(src []byte) (value uint64, n int, ok bool) {
	var v uint64
	for i := 0; i < 8; i++ {
		if i >= len(src) {
			return 0, 0, false
		}
		b := src[i]
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 == 0 {
			return v, i + 1, true
		}
	}
	// Ninth byte: all 8 bits are data, no continuation bit.
	if len(src) < 9 {
		return 0, 0, false
	}
	v = (v << 8) | uint64(src[8])
	return v, 9, true
}
