package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Undefined,
		Null,
		Integer(0),
		Integer(-1),
		Integer(math.MinInt64),
		Integer(math.MaxInt64),
		Real(3.5),
		Real(0),
		Text(""),
		Text("hello, world"),
		Blob(nil),
		Blob([]byte{0x01, 0x02, 0xff}),
	}

	for _, v := range cases {
		buf := EncodeValue(nil, v)
		decoded, n, err := DecodeValue(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
		assert.True(t, v.Equal(decoded), "got %s, want %s", decoded.GoString(), v.GoString())
	}
}

func TestValueRealNormalization(t *testing.T) {
	nan := Real(math.NaN())
	assert.True(t, nan.IsNull())

	negZero := Real(math.Copysign(0, -1))
	posZero := Real(0)
	assert.Equal(t, EncodeValue(nil, negZero), EncodeValue(nil, posZero))

	// Decoding a payload whose bytes represent NaN yields Null.
	buf := EncodeValue(nil, Real(1))
	buf[0] = byte(TagReal)
	for i := 1; i < 9; i++ {
		buf[i] = 0xff
	}
	decoded, _, err := DecodeValue(buf)
	require.NoError(t, err)
	assert.True(t, decoded.IsNull())
}

func TestValueNullUndefinedEqual(t *testing.T) {
	assert.True(t, Null.Equal(Undefined))
	assert.True(t, Undefined.Equal(Null))
	assert.Equal(t, Null.HashKey(), Undefined.HashKey())
}

func TestValueEqualityDistinguishesTags(t *testing.T) {
	assert.False(t, Integer(0).Equal(Text("0")))
	assert.False(t, Integer(1).Equal(Integer(2)))
	assert.True(t, Blob([]byte("abc")).Equal(Blob([]byte("abc"))))
	assert.False(t, Blob([]byte("abc")).Equal(Blob([]byte("abd"))))
}

func TestDecodeValueErrors(t *testing.T) {
	_, _, err := DecodeValue(nil)
	require.Error(t, err)

	_, _, err = DecodeValue([]byte{byte(TagInteger), 1, 2})
	require.Error(t, err)

	_, _, err = DecodeValue([]byte{0xAA})
	require.Error(t, err)

	// Truncated text length varint.
	_, _, err = DecodeValue([]byte{byte(TagText), 0x80})
	require.Error(t, err)

	// Length says 5 bytes but only 2 are present.
	_, _, err = DecodeValue([]byte{byte(TagText), 5, 'h', 'i'})
	require.Error(t, err)
}

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 20, 1 << 40, math.MaxUint64, math.MaxUint64 - 1}
	for _, v := range values {
		buf := EncodeVarint(nil, v)
		got, n, ok := DecodeVarint(buf)
		require.True(t, ok)
		assert.Equal(t, len(buf), n)
		assert.Equal(t, v, got)
	}
}

func TestVarintMaxLength(t *testing.T) {
	buf := EncodeVarint(nil, math.MaxUint64)
	assert.LessOrEqual(t, len(buf), 9)
}

func TestDecodeVarintTruncated(t *testing.T) {
	_, _, ok := DecodeVarint(nil)
	assert.False(t, ok)

	_, _, ok = DecodeVarint([]byte{0x80})
	assert.False(t, ok)
}
