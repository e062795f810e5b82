package encoding

import (
	"testing"

	"ridx/region"
)

func allEncodings() []IndexEncoding {
	return []IndexEncoding{Equality{}, Range{}, Interval{}, BinaryComponent{}, Hierarchical{}}
}

// equalityBins builds K bin regions, each containing exactly RID i, over
// domain [0,K).
func equalityBins(k int) []region.Region {
	bins := make([]region.Region, k)
	for i := 0; i < k; i++ {
		r, err := region.RIDsToRegion(region.TypeBitmap, k, []uint32{uint32(i)})
		if err != nil {
			panic(err)
		}
		bins[i] = r
	}
	return bins
}

func evalRange(t *testing.T, enc IndexEncoding, stored []region.Region, k, lb, ub int, preferComplement bool) []uint32 {
	t.Helper()
	expr, err := enc.RegionMath(k, lb, ub, preferComplement)
	if err != nil {
		t.Fatalf("%s: RegionMath(%d,%d,%d,complement=%v): %v", enc.Name(), k, lb, ub, preferComplement, err)
	}
	regions := make(map[int]region.Region, len(stored))
	for _, id := range expr.RegionIDs() {
		if id < 0 || id >= len(stored) {
			t.Fatalf("%s: RegionMath referenced out-of-range stored region %d", enc.Name(), id)
		}
		regions[id] = stored[id]
	}
	result, err := expr.Eval(regions)
	if err != nil {
		t.Fatalf("%s: Eval(%d,%d): %v", enc.Name(), lb, ub, err)
	}
	return result.ConvertToRIDs()
}

// TestIndexEncodings_RegionMathMatchesBinRange checks, for every
// registered encoding, that RegionMath(k,lb,ub) evaluates to exactly the
// RIDs [lb,ub) claims to cover, both via the direct plan and via the
// prefer_complement plan (§4.4's "every encoding answers every range two
// ways, and they must agree").
func TestIndexEncodings_RegionMathMatchesBinRange(t *testing.T) {
	const k = 8
	bins := equalityBins(k)

	for _, enc := range allEncodings() {
		stored, err := enc.EncodedRegions(bins, k)
		if err != nil {
			t.Fatalf("%s: EncodedRegions: %v", enc.Name(), err)
		}
		if len(stored) != enc.NumRegions(k) {
			t.Fatalf("%s: EncodedRegions returned %d regions, NumRegions(%d) = %d", enc.Name(), len(stored), k, enc.NumRegions(k))
		}

		for lb := 0; lb < k; lb++ {
			for ub := lb + 1; ub <= k; ub++ {
				want := make([]uint32, 0, ub-lb)
				for i := lb; i < ub; i++ {
					want = append(want, uint32(i))
				}

				direct := evalRange(t, enc, stored, k, lb, ub, false)
				if !sameUint32Set(direct, want) {
					t.Errorf("%s: direct RegionMath(%d,%d,%d) = %v, want %v", enc.Name(), k, lb, ub, direct, want)
				}

				complement := evalRange(t, enc, stored, k, lb, ub, true)
				if !sameUint32Set(complement, want) {
					t.Errorf("%s: complement RegionMath(%d,%d,%d) = %v, want %v", enc.Name(), k, lb, ub, complement, want)
				}
			}
		}
	}
}

func TestRegistry_ByAndByTagRoundTrip(t *testing.T) {
	for _, enc := range allEncodings() {
		byName, err := By(enc.Name())
		if err != nil {
			t.Fatalf("By(%q): %v", enc.Name(), err)
		}
		if byName.Tag() != enc.Tag() {
			t.Errorf("By(%q).Tag() = %d, want %d", enc.Name(), byName.Tag(), enc.Tag())
		}

		byTag, err := ByTag(enc.Tag())
		if err != nil {
			t.Fatalf("ByTag(%d): %v", enc.Tag(), err)
		}
		if byTag.Name() != enc.Name() {
			t.Errorf("ByTag(%d).Name() = %q, want %q", enc.Tag(), byTag.Name(), enc.Name())
		}
	}

	if _, err := By("bogus"); err == nil {
		t.Errorf("By(bogus): expected error, got nil")
	}
	if _, err := ByTag(255); err == nil {
		t.Errorf("ByTag(255): expected error, got nil")
	}
}

func TestExpression_RegionIDsDeduplicates(t *testing.T) {
	expr := Expression{RegionTerm(2), RegionTerm(0), RegionTerm(2), NAryTerm(OpUnion, 2)}
	ids := expr.RegionIDs()
	if len(ids) != 2 {
		t.Fatalf("RegionIDs() = %v, want 2 distinct ids", ids)
	}
}

func TestExpression_EvalStackUnderflow(t *testing.T) {
	expr := Expression{ComplementTerm()}
	if _, err := expr.Eval(map[int]region.Region{}); err == nil {
		t.Errorf("Eval with empty stack at complement: expected error, got nil")
	}

	expr = Expression{RegionTerm(0), NAryTerm(OpUnion, 2)}
	r, _ := region.RIDsToRegion(region.TypeBitmap, 4, []uint32{0})
	if _, err := expr.Eval(map[int]region.Region{0: r}); err == nil {
		t.Errorf("Eval with insufficient operands for a binary op: expected error, got nil")
	}
}

func sameUint32Set(got, want []uint32) bool {
	if len(got) != len(want) {
		return false
	}
	m := map[uint32]bool{}
	for _, g := range got {
		m[g] = true
	}
	for _, w := range want {
		if !m[w] {
			return false
		}
	}
	return true
}
