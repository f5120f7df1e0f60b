package managed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a managed value: a primitive of some Kind, or a reference
// (possibly null) to an Object owned by the VM.
type Value struct {
	obj  *Object
	bits uint64
	kind Kind
}

var (
	// Null is the null reference.
	Null = Value{kind: KindReference}
	// Void is returned by methods without a result.
	Void = Value{kind: KindVoid}
)

func Boolean(b bool) Value {
	if b {
		return Value{kind: KindBoolean, bits: 1}
	}
	return Value{kind: KindBoolean}
}

func Byte(v int8) Value     { return Value{kind: KindByte, bits: uint64(int64(v))} }
func Char(v uint16) Value   { return Value{kind: KindChar, bits: uint64(v)} }
func Short(v int16) Value   { return Value{kind: KindShort, bits: uint64(int64(v))} }
func Int(v int32) Value     { return Value{kind: KindInt, bits: uint64(int64(v))} }
func Long(v int64) Value    { return Value{kind: KindLong, bits: uint64(v)} }
func Float(v float32) Value { return Value{kind: KindFloat, bits: uint64(math.Float32bits(v))} }
func Double(v float64) Value {
	return Value{kind: KindDouble, bits: math.Float64bits(v)}
}

// Ref wraps an object reference. A nil object yields Null.
func Ref(o *Object) Value {
	return Value{kind: KindReference, obj: o}
}

// Kind returns the runtime tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.kind == KindReference && v.obj == nil }

// IsVoid reports whether v carries no value.
func (v Value) IsVoid() bool { return v.kind == KindVoid }

// Object returns the referenced object, nil for null or primitives.
func (v Value) Object() *Object { return v.obj }

func (v Value) AsBoolean() bool   { return v.bits != 0 }
func (v Value) AsByte() int8      { return int8(v.bits) }
func (v Value) AsChar() uint16    { return uint16(v.bits) }
func (v Value) AsShort() int16    { return int16(v.bits) }
func (v Value) AsInt() int32      { return int32(v.bits) }
func (v Value) AsLong() int64     { return int64(v.bits) }
func (v Value) AsFloat() float32  { return math.Float32frombits(uint32(v.bits)) }
func (v Value) AsDouble() float64 { return math.Float64frombits(v.bits) }

// Int64 returns an integral primitive widened to int64.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindByte:
		return int64(v.AsByte())
	case KindChar:
		return int64(v.AsChar())
	case KindShort:
		return int64(v.AsShort())
	case KindInt:
		return int64(v.AsInt())
	case KindLong:
		return v.AsLong()
	case KindFloat:
		return int64(v.AsFloat())
	case KindDouble:
		return int64(v.AsDouble())
	}
	return 0
}

// Float64 returns a numeric primitive widened to float64.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindFloat:
		return float64(v.AsFloat())
	case KindDouble:
		return v.AsDouble()
	}
	return float64(v.Int64())
}

// Widen applies a primitive widening conversion to kind to.
func (v Value) Widen(to Kind) (Value, bool) {
	if v.kind == to {
		return v, true
	}
	if !Widens(v.kind, to) {
		return Value{}, false
	}
	switch to {
	case KindShort:
		return Short(int16(v.Int64())), true
	case KindInt:
		return Int(int32(v.Int64())), true
	case KindLong:
		return Long(v.Int64()), true
	case KindFloat:
		return Float(float32(v.Int64())), true
	case KindDouble:
		return Double(v.Float64()), true
	}
	return Value{}, false
}

// Zero returns the default value for a type of kind k.
func Zero(k Kind) Value {
	if k == KindReference {
		return Null
	}
	return Value{kind: k}
}

func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindBoolean:
		return fmt.Sprint(v.AsBoolean())
	case KindChar:
		return string(rune(v.AsChar()))
	case KindFloat:
		return formatFloat(float64(v.AsFloat()), 32)
	case KindDouble:
		return formatFloat(v.AsDouble(), 64)
	case KindReference:
		if v.obj == nil {
			return "null"
		}
		return v.obj.String()
	}
	return fmt.Sprint(v.Int64())
}

// formatFloat renders f the way Double.toString does: plain decimal with
// at least one fractional digit inside [1e-3, 1e7), scientific otherwise.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, bits)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, bits), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(n)
}
