package core

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ErrInvalidValue is wrapped by any error produced by decoding a malformed
// value payload (unknown tag, truncated length-prefixed payload, etc.).
var ErrInvalidValue = fmt.Errorf("invalid value")

// EncodeValue appends the wire encoding of v (one tag byte followed by its
// payload, per spec.md §4.1) to dst and returns the extended slice.
func EncodeValue(dst []byte, v Value) []byte {
	switch v.tag {
	case TagUndefined:
		return append(dst, byte(TagUndefined))
	case TagNull:
		return append(dst, byte(TagNull))
	case TagInteger:
		dst = append(dst, byte(TagInteger))
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.i))
		return append(dst, buf[:]...)
	case TagReal:
		f := v.f
		if math.IsNaN(f) {
			return append(dst, byte(TagNull))
		}
		if f == 0 {
			f = 0
		}
		dst = append(dst, byte(TagReal))
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		return append(dst, buf[:]...)
	case TagText:
		dst = append(dst, byte(TagText))
		dst = EncodeVarint(dst, uint64(len(v.text)))
		return append(dst, v.text...)
	case TagBlob:
		dst = append(dst, byte(TagBlob))
		dst = EncodeVarint(dst, uint64(len(v.blob)))
		return append(dst, v.blob...)
	default:
		panic(fmt.Sprintf("core: unknown value tag %d", v.tag))
	}
}

// DecodeValue reads one value from the front of src, returning the decoded
// Value and the number of bytes consumed. NaN payloads normalize to Null
// and -0.0 normalizes to +0.0 on decode, matching the encode-side rules.
func DecodeValue(src []byte) (Value, int, error) {
	if len(src) == 0 {
		return Value{}, 0, fmt.Errorf("%w: empty input", ErrInvalidValue)
	}
	tag := Tag(src[0])
	rest := src[1:]
	switch tag {
	case TagUndefined:
		return Undefined, 1, nil
	case TagNull:
		return Null, 1, nil
	case TagInteger:
		if len(rest) < 8 {
			return Value{}, 0, fmt.Errorf("%w: truncated integer payload", ErrInvalidValue)
		}
		i := int64(binary.BigEndian.Uint64(rest[:8]))
		return Integer(i), 9, nil
	case TagReal:
		if len(rest) < 8 {
			return Value{}, 0, fmt.Errorf("%w: truncated real payload", ErrInvalidValue)
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(rest[:8]))
		return Real(f), 9, nil
	case TagText:
		n, consumed, ok := DecodeVarint(rest)
		if !ok {
			return Value{}, 0, fmt.Errorf("%w: truncated text length", ErrInvalidValue)
		}
		rest = rest[consumed:]
		if uint64(len(rest)) < n {
			return Value{}, 0, fmt.Errorf("%w: truncated text payload", ErrInvalidValue)
		}
		return Text(string(rest[:n])), 1 + consumed + int(n), nil
	case TagBlob:
		n, consumed, ok := DecodeVarint(rest)
		if !ok {
			return Value{}, 0, fmt.Errorf("%w: truncated blob length", ErrInvalidValue)
		}
		rest = rest[consumed:]
		if uint64(len(rest)) < n {
			return Value{}, 0, fmt.Errorf("%w: truncated blob payload", ErrInvalidValue)
		}
		return Blob(rest[:n]), 1 + consumed + int(n), nil
	default:
		return Value{}, 0, fmt.Errorf("%w: unknown tag 0x%02x", ErrInvalidValue, byte(tag))
	}
}
