package univ

import "testing"

func TestDatatypeByName(t *testing.T) {
	dt, err := DatatypeByName("uint32")
	if err != nil {
		t.Fatalf("DatatypeByName(uint32): %v", err)
	}
	if dt != Uint32 {
		t.Errorf("DatatypeByName(uint32) = %v, want Uint32", dt)
	}

	if _, err := DatatypeByName("bogus"); err == nil {
		t.Errorf("DatatypeByName(bogus): expected error, got nil")
	}
}

func TestDatatypeProperties(t *testing.T) {
	cases := []struct {
		dt        Datatype
		name      string
		byteWidth int
		sign      SignClass
		numeric   bool
	}{
		{Uint8, "uint8", 1, Unsigned, true},
		{Int32, "int32", 4, TwosComplement, true},
		{Float64, "float64", 8, OnesComplementFloat, true},
		{String, "string", 0, NotNumeric, false},
	}
	for _, c := range cases {
		if got := c.dt.Name(); got != c.name {
			t.Errorf("%v.Name() = %q, want %q", c.dt, got, c.name)
		}
		if got := c.dt.ByteWidth(); got != c.byteWidth {
			t.Errorf("%v.ByteWidth() = %d, want %d", c.dt, got, c.byteWidth)
		}
		if got := c.dt.SignClass(); got != c.sign {
			t.Errorf("%v.SignClass() = %v, want %v", c.dt, got, c.sign)
		}
		if got := c.dt.IsNumeric(); got != c.numeric {
			t.Errorf("%v.IsNumeric() = %v, want %v", c.dt, got, c.numeric)
		}
	}
}

func TestValueCompare(t *testing.T) {
	a := Uint(Uint32, 5)
	b := Uint(Uint32, 10)
	if cmp, err := a.Compare(b); err != nil || cmp != -1 {
		t.Errorf("5.Compare(10) = %d, err=%v; want -1", cmp, err)
	}
	if cmp, err := b.Compare(a); err != nil || cmp != 1 {
		t.Errorf("10.Compare(5) = %d, err=%v; want 1", cmp, err)
	}
	if cmp, err := a.Compare(Uint(Uint32, 5)); err != nil || cmp != 0 {
		t.Errorf("5.Compare(5) = %d, err=%v; want 0", cmp, err)
	}

	s1, s2 := Str("apple"), Str("banana")
	if cmp, err := s1.Compare(s2); err != nil || cmp != -1 {
		t.Errorf("apple.Compare(banana) = %d, err=%v; want -1", cmp, err)
	}

	if _, err := a.Compare(s1); err == nil {
		t.Errorf("comparing numeric with string: expected error, got nil")
	}
}

func TestValueAsFloat64(t *testing.T) {
	v := Int(Int16, -42)
	f, err := v.AsFloat64()
	if err != nil || f != -42 {
		t.Errorf("AsFloat64(-42) = %v, err=%v", f, err)
	}

	if _, err := Str("x").AsFloat64(); err == nil {
		t.Errorf("AsFloat64 on a string: expected error, got nil")
	}
}

func TestValueString(t *testing.T) {
	v := Str("hello")
	s, err := v.String()
	if err != nil || s != "hello" {
		t.Errorf("String() = %q, err=%v; want %q", s, err, "hello")
	}

	if _, err := Uint(Uint8, 1).String(); err == nil {
		t.Errorf("String() on a non-string value: expected error, got nil")
	}
}

// TestValueBitsUnsignedOrderPreserving checks that Bits() preserves
// natural numeric order for unsigned values.
func TestValueBitsUnsignedOrderPreserving(t *testing.T) {
	lo, err := Uint(Uint32, 3).Bits()
	if err != nil {
		t.Fatalf("Bits: %v", err)
	}
	hi, err := Uint(Uint32, 9).Bits()
	if err != nil {
		t.Fatalf("Bits: %v", err)
	}
	if lo >= hi {
		t.Errorf("Bits() did not preserve unsigned order: Bits(3)=%d, Bits(9)=%d", lo, hi)
	}
}

// TestValueBitsFloatOrderPreserving checks §3's total-order remapping:
// unsigned comparison of Bits() must match floating point's natural
// order, including negative-below-positive and -0 below +0.
func TestValueBitsFloatOrderPreserving(t *testing.T) {
	values := []float64{-5.0, -0.0, 0.0, 1.5, 100.0}
	var prevBits uint64
	for i, f := range values {
		b, err := Float(Float64, f).Bits()
		if err != nil {
			t.Fatalf("Bits(%v): %v", f, err)
		}
		if i > 0 && b < prevBits {
			t.Errorf("Bits() broke total order at %v: got %d < previous %d", f, b, prevBits)
		}
		prevBits = b
	}
}

// TestValueBitsSignedPreservesOrder checks the two's-complement sign-bit
// flip produces an order-preserving unsigned key.
func TestValueBitsSignedPreservesOrder(t *testing.T) {
	neg, err := Int(Int32, -10).Bits()
	if err != nil {
		t.Fatalf("Bits(-10): %v", err)
	}
	pos, err := Int(Int32, 10).Bits()
	if err != nil {
		t.Fatalf("Bits(10): %v", err)
	}
	if neg >= pos {
		t.Errorf("Bits() did not order -10 below 10: Bits(-10)=%d, Bits(10)=%d", neg, pos)
	}
}
