package univ

import (
	"fmt"
	"math"
)

// Value is a runtime universal scalar: it wraps exactly one of an
// unsigned integer, a signed integer, a float, or a string, tagged by
// Datatype, and supports checked numeric widening across classes.
type Value struct {
	dt  Datatype
	u   uint64
	i   int64
	f   float64
	str string
}

// Uint constructs a Value over an unsigned integer datatype.
func Uint(dt Datatype, v uint64) Value { return Value{dt: dt, u: v} }

// Int constructs a Value over a signed integer datatype.
func Int(dt Datatype, v int64) Value { return Value{dt: dt, i: v} }

// Float constructs a Value over a floating point datatype.
func Float(dt Datatype, v float64) Value { return Value{dt: dt, f: v} }

// Str constructs a Value over the String datatype.
func Str(v string) Value { return Value{dt: String, str: v} }

// Datatype reports the wrapped value's datatype.
func (v Value) Datatype() Datatype { return v.dt }

// AsFloat64 widens the wrapped value to float64, the common comparison
// domain for numeric quantization math. It returns an error only if the
// wrapped value is not numeric; a uint64/int64 magnitude beyond
// float64's exact integer range (2^53) is rounded to the nearest float64
// without an error. Bits() gives the exact ordering key for such values.
func (v Value) AsFloat64() (float64, error) {
	switch v.dt.SignClass() {
	case Unsigned:
		return float64(v.u), nil
	case TwosComplement:
		return float64(v.i), nil
	case OnesComplementFloat:
		return v.f, nil
	default:
		return 0, fmt.Errorf("univ: %s is not numeric", v.dt.Name())
	}
}

// String returns the wrapped string, or errors if the datatype is not
// String.
func (v Value) String() (string, error) {
	if v.dt != String {
		return "", fmt.Errorf("univ: %s is not a string datatype", v.dt.Name())
	}
	return v.str, nil
}

// Bits returns the value's raw bit pattern as used for sigbits
// quantization comparisons (§3): for unsigned types, the value itself;
// for two's-complement signed types, the value's bit pattern truncated to
// the datatype's width with the sign bit flipped, so that unsigned
// comparison matches signed order; for floats, the IEEE-754 bit pattern with
// sign-magnitude order applied so that -0 sorts strictly below +0 and
// negative values sort below positive ones (one's-complement-style
// ordering per §3).
func (v Value) Bits() (uint64, error) {
	switch v.dt.SignClass() {
	case Unsigned:
		return v.u, nil
	case TwosComplement:
		signBit := uint64(1) << (uint(v.dt.ByteWidth())*8 - 1)
		mask := signBit<<1 - 1 // all ones for the 64-bit width
		return (uint64(v.i) & mask) ^ signBit, nil
	case OnesComplementFloat:
		var bits uint64
		if v.dt == Float32 {
			bits = uint64(math.Float32bits(float32(v.f)))
		} else {
			bits = math.Float64bits(v.f)
		}
		return floatOrderingKey(bits, v.dt), nil
	default:
		return 0, fmt.Errorf("univ: %s has no bit-pattern ordering", v.dt.Name())
	}
}

// floatOrderingKey remaps an IEEE-754 bit pattern so that unsigned
// comparison of the result matches floating point total order: if the
// sign bit is set (negative, including -0), flip all bits; otherwise
// just set the sign bit. This yields -0 immediately below +0 and
// negative values below positive ones, matching the one's-complement
// ordering described in §3.
func floatOrderingKey(bits uint64, dt Datatype) uint64 {
	signBit := uint64(1) << 63
	if dt == Float32 {
		signBit = uint64(1) << 31
	}
	if bits&signBit != 0 {
		return ^bits & (signBit<<1 - 1)
	}
	return bits | signBit
}

// Compare orders two Values using their natural numeric order (not the
// Bits() ordering key), after widening both to float64 via AsFloat64, so
// numeric values of different SignClasses compare with each other. It
// returns -1, 0 or 1. Strings compare lexically; comparing a string with
// a numeric value is an error.
func (v Value) Compare(other Value) (int, error) {
	if v.dt == String || other.dt == String {
		if v.dt != String || other.dt != String {
			return 0, fmt.Errorf("univ: cannot compare %s with %s", v.dt.Name(), other.dt.Name())
		}
		switch {
		case v.str < other.str:
			return -1, nil
		case v.str > other.str:
			return 1, nil
		default:
			return 0, nil
		}
	}
	a, err := v.AsFloat64()
	if err != nil {
		return 0, err
	}
	b, err := other.AsFloat64()
	if err != nil {
		return 0, err
	}
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	default:
		return 0, nil
	}
}
