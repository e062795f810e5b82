package region

import (
	"bytes"
	"math/rand"
	"testing"
)

func allTypes() []Type {
	return []Type{TypeII, TypeCII, TypeBitmap, TypeWAH, TypeCBLQ2, TypeCBLQ3, TypeCBLQ4}
}

func randomRIDs(domainSize, max int) []uint32 {
	seen := map[uint32]bool{}
	n := rand.Intn(max)
	for len(seen) < n {
		seen[uint32(rand.Intn(domainSize))] = true
	}
	out := make([]uint32, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	return out
}

func TestRIDsToRegion_RoundTrip(t *testing.T) {
	domainSize := 4096
	rids := randomRIDs(domainSize, 500)
	for _, typ := range allTypes() {
		r, err := RIDsToRegion(typ, domainSize, rids)
		if err != nil {
			t.Fatalf("%s: RIDsToRegion: %v", typ, err)
		}
		got := r.ConvertToRIDs()
		if len(got) != len(rids) {
			t.Fatalf("%s: ElementCount/decode mismatch: got %d rids, want %d", typ, len(got), len(rids))
		}
		want := map[uint32]bool{}
		for _, rid := range rids {
			want[rid] = true
		}
		for _, rid := range got {
			if !want[rid] {
				t.Fatalf("%s: decoded unexpected rid %d", typ, rid)
			}
		}
		if r.DomainSize() != domainSize {
			t.Errorf("%s: DomainSize() = %d, want %d", typ, r.DomainSize(), domainSize)
		}
		if r.ElementCount() != len(rids) {
			t.Errorf("%s: ElementCount() = %d, want %d", typ, r.ElementCount(), len(rids))
		}
	}
}

func TestRegion_SaveLoadRoundTrip(t *testing.T) {
	domainSize := 2048
	rids := randomRIDs(domainSize, 300)
	for _, typ := range allTypes() {
		orig, err := RIDsToRegion(typ, domainSize, rids)
		if err != nil {
			t.Fatalf("%s: build: %v", typ, err)
		}
		var buf bytes.Buffer
		if err := orig.Save(&buf); err != nil {
			t.Fatalf("%s: Save: %v", typ, err)
		}
		loaded, err := LoadRegion(typ, &buf)
		if err != nil {
			t.Fatalf("%s: LoadRegion: %v", typ, err)
		}
		if !orig.Equals(loaded) {
			t.Errorf("%s: loaded region not equal to original", typ)
		}
	}
}

func TestMakeUniform(t *testing.T) {
	for _, typ := range allTypes() {
		empty, err := MakeUniform(typ, 100, false)
		if err != nil {
			t.Fatalf("%s: MakeUniform(false): %v", typ, err)
		}
		if filled, ok := empty.Uniform(); !ok || filled {
			t.Errorf("%s: empty uniform region reports filled=%v ok=%v", typ, filled, ok)
		}
		if empty.ElementCount() != 0 {
			t.Errorf("%s: empty uniform region has %d elements", typ, empty.ElementCount())
		}

		full, err := MakeUniform(typ, 100, true)
		if err != nil {
			t.Fatalf("%s: MakeUniform(true): %v", typ, err)
		}
		if filled, ok := full.Uniform(); !ok || !filled {
			t.Errorf("%s: full uniform region reports filled=%v ok=%v", typ, filled, ok)
		}
		if full.ElementCount() != 100 {
			t.Errorf("%s: full uniform region has %d elements, want 100", typ, full.ElementCount())
		}
	}
}

// TestSetOps_AgreeWithNaiveSets cross-checks Union/Intersect/Difference/
// SymmetricDifference against a plain set-based reference, for every
// same-type pair and for a cross-type pair (exercising the mixed-type
// commonBitmapOp fallback).
func TestSetOps_AgreeWithNaiveSets(t *testing.T) {
	domainSize := 1024
	aRIDs := randomRIDs(domainSize, 200)
	bRIDs := randomRIDs(domainSize, 200)

	naiveUnion := naiveSetOp(aRIDs, bRIDs, func(inA, inB bool) bool { return inA || inB })
	naiveIntersect := naiveSetOp(aRIDs, bRIDs, func(inA, inB bool) bool { return inA && inB })
	naiveDiff := naiveSetOp(aRIDs, bRIDs, func(inA, inB bool) bool { return inA && !inB })
	naiveSymDiff := naiveSetOp(aRIDs, bRIDs, func(inA, inB bool) bool { return inA != inB })

	types := allTypes()
	for _, ta := range types {
		for _, tb := range types {
			a, err := RIDsToRegion(ta, domainSize, aRIDs)
			if err != nil {
				t.Fatalf("%s: %v", ta, err)
			}
			b, err := RIDsToRegion(tb, domainSize, bRIDs)
			if err != nil {
				t.Fatalf("%s: %v", tb, err)
			}

			if got, err := Union(a, b); err != nil || !sameRIDs(got.ConvertToRIDs(), naiveUnion) {
				t.Errorf("Union(%s,%s) = %v, err=%v; want %v", ta, tb, got.ConvertToRIDs(), err, naiveUnion)
			}
			if got, err := Intersect(a, b); err != nil || !sameRIDs(got.ConvertToRIDs(), naiveIntersect) {
				t.Errorf("Intersect(%s,%s) = %v, err=%v; want %v", ta, tb, got.ConvertToRIDs(), err, naiveIntersect)
			}
			if got, err := Difference(a, b); err != nil || !sameRIDs(got.ConvertToRIDs(), naiveDiff) {
				t.Errorf("Difference(%s,%s) = %v, err=%v; want %v", ta, tb, got.ConvertToRIDs(), err, naiveDiff)
			}
			if got, err := SymmetricDifference(a, b); err != nil || !sameRIDs(got.ConvertToRIDs(), naiveSymDiff) {
				t.Errorf("SymmetricDifference(%s,%s) = %v, err=%v; want %v", ta, tb, got.ConvertToRIDs(), err, naiveSymDiff)
			}
		}
	}
}

func TestComplement(t *testing.T) {
	domainSize := 256
	rids := randomRIDs(domainSize, 100)
	want := map[uint32]bool{}
	for i := 0; i < domainSize; i++ {
		want[uint32(i)] = true
	}
	for _, r := range rids {
		delete(want, r)
	}
	var wantList []uint32
	for r := range want {
		wantList = append(wantList, r)
	}

	for _, typ := range allTypes() {
		r, err := RIDsToRegion(typ, domainSize, rids)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		comp, err := Complement(r)
		if err != nil {
			t.Fatalf("%s: Complement: %v", typ, err)
		}
		if !sameRIDs(comp.ConvertToRIDs(), wantList) {
			t.Errorf("%s: Complement mismatch", typ)
		}
	}
}

func TestSetOps_DomainMismatchErrors(t *testing.T) {
	a, _ := RIDsToRegion(TypeBitmap, 100, []uint32{1, 2, 3})
	b, _ := RIDsToRegion(TypeBitmap, 200, []uint32{1, 2, 3})
	if _, err := Union(a, b); err != ErrOperandIncompatible {
		t.Errorf("Union across mismatched domains: got %v, want ErrOperandIncompatible", err)
	}
}

func naiveSetOp(a, b []uint32, keep func(inA, inB bool) bool) []uint32 {
	aSet, bSet := toSet(a), toSet(b)
	all := map[uint32]bool{}
	for r := range aSet {
		all[r] = true
	}
	for r := range bSet {
		all[r] = true
	}
	var out []uint32
	for r := range all {
		if keep(aSet[r], bSet[r]) {
			out = append(out, r)
		}
	}
	return out
}

func toSet(rids []uint32) map[uint32]bool {
	m := make(map[uint32]bool, len(rids))
	for _, r := range rids {
		m[r] = true
	}
	return m
}

func sameRIDs(got, want []uint32) bool {
	if len(got) != len(want) {
		return false
	}
	gotSet := toSet(got)
	for _, w := range want {
		if !gotSet[w] {
			return false
		}
	}
	return true
}
