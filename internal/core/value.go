// Package core contains the single source of truth for the in-memory
// changeset/patchset representation: the value tagged union, table schema
// capability, schema-less operations, and the diff-set store with its
// consolidation algebra. Everything here is synchronous and side-effect
// free; no function in this package performs I/O.
package core

import (
	"fmt"
	"math"
)

// Tag identifies the wire representation of a Value.
type Tag byte

// Value tags, fixed by the SQLite session-extension wire format. These are
// NOT the same as SQLite's on-disk record serial types.
const (
	TagUndefined Tag = 0x00
	TagInteger   Tag = 0x01
	TagReal      Tag = 0x02
	TagText      Tag = 0x03
	TagBlob      Tag = 0x04
	TagNull      Tag = 0x05
)

// Value is a tagged union over the five SQLite storage classes plus the
// Undefined marker used inside Update records for "column did not change".
//
// Equality and hashing treat Null and Undefined as equal, and compare Real
// values bitwise (via math.Float64bits), matching the teacher's contract
// that Value must implement a hash consistent with its equality.
type Value struct {
	tag  Tag
	i    int64
	f    float64
	text string
	blob []byte
}

// Null is the canonical Null value.
var Null = Value{tag: TagNull}

// Undefined is the canonical Undefined marker.
var Undefined = Value{tag: TagUndefined}

// Integer constructs an Integer value.
func Integer(v int64) Value { return Value{tag: TagInteger, i: v} }

// Real constructs a Real value, normalizing NaN to Null and -0.0 to 0.0 as
// spec.md §4.1 requires on both encode and decode.
func Real(v float64) Value {
	if math.IsNaN(v) {
		return Null
	}
	if v == 0 {
		v = 0 // normalizes -0.0 to +0.0
	}
	return Value{tag: TagReal, f: v}
}

// Text constructs a Text value. The caller is responsible for the value
// being valid UTF-8; ingestion paths that cannot guarantee this (CDC shims,
// the SQL ingester) must validate before calling Text.
func Text(v string) Value { return Value{tag: TagText, text: v} }

// Blob constructs a Blob value from raw bytes. The slice is copied so the
// resulting Value owns its data independently of the caller's buffer.
func Blob(v []byte) Value {
	cp := make([]byte, len(v))
	copy(cp, v)
	return Value{tag: TagBlob, blob: cp}
}

// Tag reports the value's wire tag.
func (v Value) Tag() Tag { return v.tag }

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.tag == TagNull }

// IsUndefined reports whether v is the Undefined variant.
func (v Value) IsUndefined() bool { return v.tag == TagUndefined }

// IsNullOrUndefined reports whether v is Null or Undefined; the two are
// equivalent under the equality/hash contract of spec.md §3.
func (v Value) IsNullOrUndefined() bool { return v.tag == TagNull || v.tag == TagUndefined }

// Int returns the integer payload. Valid only when Tag() == TagInteger.
func (v Value) Int() int64 { return v.i }

// Float returns the real payload. Valid only when Tag() == TagReal.
func (v Value) Float() float64 { return v.f }

// String returns the text payload. Valid only when Tag() == TagText.
func (v Value) String() string { return v.text }

// Bytes returns the blob payload. Valid only when Tag() == TagBlob.
func (v Value) Bytes() []byte { return v.blob }

// Equal implements the Null==Undefined, bitwise-real equality contract.
func (v Value) Equal(o Value) bool {
	if v.IsNullOrUndefined() && o.IsNullOrUndefined() {
		return true
	}
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case TagInteger:
		return v.i == o.i
	case TagReal:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case TagText:
		return v.text == o.text
	case TagBlob:
		return bytesEqual(v.blob, o.blob)
	default:
		return true
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HashKey returns a comparable Go value suitable for use as a map key that
// agrees with Equal: two Values that are Equal produce the same HashKey.
func (v Value) HashKey() any {
	if v.IsNullOrUndefined() {
		return nil
	}
	switch v.tag {
	case TagInteger:
		return v.i
	case TagReal:
		return math.Float64bits(v.f)
	case TagText:
		return v.text
	case TagBlob:
		return string(v.blob)
	default:
		return nil
	}
}

// GoString renders a Value for debugging/test failure messages only; it is
// not part of the wire format or the literal-rendering rules of spec.md §6.
func (v Value) GoString() string {
	switch v.tag {
	case TagUndefined:
		return "Undefined"
	case TagNull:
		return "Null"
	case TagInteger:
		return fmt.Sprintf("Integer(%d)", v.i)
	case TagReal:
		return fmt.Sprintf("Real(%v)", v.f)
	case TagText:
		return fmt.Sprintf("Text(%q)", v.text)
	case TagBlob:
		return fmt.Sprintf("Blob(% x)", v.blob)
	default:
		return "Value(?)"
	}
}
