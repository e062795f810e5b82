package quant

import (
	"testing"

	"ridx/univ"
)

func TestSigbitsQuantizerOrderPreserving(t *testing.T) {
	q, err := NewSigbitsQuantizer(univ.Uint32, 8)
	if err != nil {
		t.Fatalf("NewSigbitsQuantizer: %v", err)
	}
	lo, err := q.Quantize(univ.Uint(univ.Uint32, 10))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	hi, err := q.Quantize(univ.Uint(univ.Uint32, 1000))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if lo > hi {
		t.Errorf("sigbits quantize did not preserve order: Quantize(10)=%d, Quantize(1000)=%d", lo, hi)
	}
}

func TestSigbitsQuantizerRejectsBadInputs(t *testing.T) {
	if _, err := NewSigbitsQuantizer(univ.String, 8); err == nil {
		t.Errorf("sigbits over a non-numeric datatype: expected error, got nil")
	}
	if _, err := NewSigbitsQuantizer(univ.Uint32, 0); err == nil {
		t.Errorf("sigbits with 0 bits: expected error, got nil")
	}
	if _, err := NewSigbitsQuantizer(univ.Uint32, 65); err == nil {
		t.Errorf("sigbits with 65 bits: expected error, got nil")
	}
}

func TestPrecisionQuantizerRoundTripsCoarsely(t *testing.T) {
	q, err := NewPrecisionQuantizer(univ.Float64, 3)
	if err != nil {
		t.Fatalf("NewPrecisionQuantizer: %v", err)
	}
	k1, err := q.Quantize(univ.Float(univ.Float64, 1.0001))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	k2, err := q.Quantize(univ.Float(univ.Float64, 1.0002))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if k1 != k2 {
		t.Errorf("3-digit precision quantizer distinguished 1.0001 from 1.0002: %d != %d", k1, k2)
	}

	lo, err := q.Quantize(univ.Float(univ.Float64, -5.0))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	hi, err := q.Quantize(univ.Float(univ.Float64, 5.0))
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if lo > hi {
		t.Errorf("precision quantize did not preserve sign order: Quantize(-5)=%d, Quantize(5)=%d", lo, hi)
	}
}

func TestPrecisionQuantizerRejectsNonFloat(t *testing.T) {
	if _, err := NewPrecisionQuantizer(univ.Uint32, 3); err == nil {
		t.Errorf("precision binning over uint32: expected error, got nil")
	}
	if _, err := NewPrecisionQuantizer(univ.Float64, 0); err == nil {
		t.Errorf("precision binning with 0 digits: expected error, got nil")
	}
}

func TestExplicitQuantizerBuckets(t *testing.T) {
	q, err := NewExplicitQuantizer(univ.Uint32, []univ.Value{
		univ.Uint(univ.Uint32, 10),
		univ.Uint(univ.Uint32, 20),
		univ.Uint(univ.Uint32, 30),
	})
	if err != nil {
		t.Fatalf("NewExplicitQuantizer: %v", err)
	}

	cases := []struct {
		v    uint64
		want QKey
	}{
		{5, 0},
		{10, 1},
		{15, 1},
		{20, 2},
		{25, 2},
		{30, 3},
		{100, 3},
	}
	for _, c := range cases {
		got, err := q.Quantize(univ.Uint(univ.Uint32, c.v))
		if err != nil {
			t.Fatalf("Quantize(%d): %v", c.v, err)
		}
		if got != c.want {
			t.Errorf("Quantize(%d) = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestExplicitQuantizerRejectsNonIncreasingBoundaries(t *testing.T) {
	_, err := NewExplicitQuantizer(univ.Uint32, []univ.Value{
		univ.Uint(univ.Uint32, 10),
		univ.Uint(univ.Uint32, 10),
	})
	if err == nil {
		t.Errorf("non-strictly-increasing boundaries: expected error, got nil")
	}

	_, err = NewExplicitQuantizer(univ.Uint32, []univ.Value{
		univ.Uint(univ.Uint32, 20),
		univ.Uint(univ.Uint32, 10),
	})
	if err == nil {
		t.Errorf("decreasing boundaries: expected error, got nil")
	}
}

func TestBinningSpecPopulateAndLookup(t *testing.T) {
	q, err := NewSigbitsQuantizer(univ.Uint32, 8)
	if err != nil {
		t.Fatalf("NewSigbitsQuantizer: %v", err)
	}
	spec := NewBinningSpec(q)

	if _, err := spec.NumBins(); err != ErrUnpopulated {
		t.Errorf("NumBins before Populate: got %v, want ErrUnpopulated", err)
	}

	observed := []QKey{5, 1, 3, 1, 5}
	if err := spec.Populate(observed); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if err := spec.Populate(observed); err == nil {
		t.Errorf("re-populating an already-populated spec: expected error, got nil")
	}

	n, err := spec.NumBins()
	if err != nil || n != 3 {
		t.Fatalf("NumBins() = %d, err=%v; want 3 distinct keys", n, err)
	}

	k0, err := spec.QKeyAt(0)
	if err != nil || k0 != 1 {
		t.Errorf("QKeyAt(0) = %d, err=%v; want 1", k0, err)
	}
	k2, err := spec.QKeyAt(2)
	if err != nil || k2 != 5 {
		t.Errorf("QKeyAt(2) = %d, err=%v; want 5", k2, err)
	}

	if _, err := spec.QKeyAt(99); err == nil {
		t.Errorf("QKeyAt out of range: expected error, got nil")
	}
}

func TestBinningSpecBinRange(t *testing.T) {
	q, err := NewExplicitQuantizer(univ.Uint32, []univ.Value{
		univ.Uint(univ.Uint32, 10),
		univ.Uint(univ.Uint32, 20),
		univ.Uint(univ.Uint32, 30),
	})
	if err != nil {
		t.Fatalf("NewExplicitQuantizer: %v", err)
	}
	spec := NewBinningSpec(q)
	var observed []QKey
	for _, v := range []uint64{0, 10, 20, 30} {
		qk, err := q.Quantize(univ.Uint(univ.Uint32, v))
		if err != nil {
			t.Fatalf("Quantize: %v", err)
		}
		observed = append(observed, qk)
	}
	if err := spec.Populate(observed); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	lbBin, ubBin, err := spec.BinRange(univ.Uint(univ.Uint32, 10), univ.Uint(univ.Uint32, 30))
	if err != nil {
		t.Fatalf("BinRange: %v", err)
	}
	if lbBin >= ubBin {
		t.Errorf("BinRange(10,30) = [%d,%d), want a non-empty range", lbBin, ubBin)
	}
}
