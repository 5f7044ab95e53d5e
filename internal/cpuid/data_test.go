package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "testing"

func dataFromLeaves(leaves ...Leaf) *Data {
	data := &Data{}
	for _, leaf := range leaves {
		data.AddLeaf(leaf)
	}
	return data
}

func dataEqual(a, b *Data) bool {
	return a.Covers(b) && b.Covers(a)
}

func TestLeafLookup(t *testing.T) {
	data := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x00100000, Edx: 0x1},
		Leaf{Function: 0x80000001, Edx: 0x20000000},
	)

	leaf := data.Leaf(0x1)
	if leaf == nil || leaf.Ecx != 0x00100000 {
		t.Fatalf("lookup of leaf 0x1 failed: %+v", leaf)
	}
	leaf = data.Leaf(0x80000001)
	if leaf == nil || leaf.Edx != 0x20000000 {
		t.Fatalf("lookup of leaf 0x80000001 failed: %+v", leaf)
	}
	// leaf 0x0 was materialized by expansion but holds no bits
	if data.Leaf(0x0) != nil {
		t.Fatal("empty leaf must be treated as absent")
	}
	if data.Leaf(0x7) != nil {
		t.Fatal("missing leaf must be absent")
	}
}

func TestIterOrderAndSkipsEmpty(t *testing.T) {
	data := dataFromLeaves(
		Leaf{Function: 0x80000001, Ecx: 0x4},
		Leaf{Function: 0x7, Ebx: 0x20},
		Leaf{Function: 0x1, Edx: 0x1},
	)

	var functions []uint32
	for leaf := range data.Iter() {
		functions = append(functions, leaf.Function)
	}
	want := []uint32{0x1, 0x7, 0x80000001}
	if len(functions) != len(want) {
		t.Fatalf("expected %d leaves, got %d", len(want), len(functions))
	}
	for i := range want {
		if functions[i] != want[i] {
			t.Fatalf("leaf %d: expected function %#x, got %#x", i, want[i], functions[i])
		}
	}
}

func TestExpandSetsFunctionNumbers(t *testing.T) {
	data := dataFromLeaves(Leaf{Function: 0x7, Ebx: 0x1})
	for leaf := range data.Iter() {
		if leaf.Function != 0x7 {
			t.Fatalf("unexpected function %#x", leaf.Function)
		}
	}
	// expansion slots carry their own function numbers even while empty
	data.AddLeaf(Leaf{Function: 0x3, Eax: 0x1})
	leaf := data.Leaf(0x3)
	if leaf == nil || leaf.Function != 0x3 {
		t.Fatalf("expected function 0x3, got %+v", leaf)
	}
}

func TestAddLeafMerges(t *testing.T) {
	data := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x1},
		Leaf{Function: 0x1, Ecx: 0x2, Edx: 0x4},
	)
	leaf := data.Leaf(0x1)
	if leaf.Ecx != 0x3 || leaf.Edx != 0x4 {
		t.Fatalf("AddLeaf must OR registers, got %+v", leaf)
	}
}

func TestUnionIdempotentAndCommutative(t *testing.T) {
	a := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x00100020},
		Leaf{Function: 0x80000001, Edx: 0x20000000},
	)
	b := dataFromLeaves(
		Leaf{Function: 0x1, Edx: 0x1},
		Leaf{Function: 0x7, Ebx: 0x20},
	)

	aa := a.Copy()
	aa.Union(a)
	if !dataEqual(aa, a) {
		t.Fatal("union(A, A) != A")
	}

	ab := a.Copy()
	ab.Union(b)
	ba := b.Copy()
	ba.Union(a)
	if !dataEqual(ab, ba) {
		t.Fatal("union(A, B) != union(B, A)")
	}
}

func TestSubtractNeutralizesUnion(t *testing.T) {
	a := dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x00100000})
	b := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x02000000},
		Leaf{Function: 0x80000001, Edx: 0x20000000},
	)

	ab := a.Copy()
	ab.Union(b)
	ab.Subtract(b)
	if !a.Covers(ab) {
		t.Fatal("subtract(union(A, B), B) must be a subset of A")
	}
}

func TestSubtractIgnoresTail(t *testing.T) {
	short := dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x1})
	long := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x1},
		Leaf{Function: 0x80000001, Edx: 0x20000000},
	)

	// subtracting a longer set only visits the overlap; the extended
	// leaves of the longer set must not materialize in the shorter one
	short.Subtract(long)
	if !short.IsEmpty() {
		t.Fatal("overlapping bits must be cleared")
	}
	if short.Leaf(0x80000001) != nil {
		t.Fatal("subtract must not materialize leaves")
	}

	// and the longer set keeps its tail when the shorter is subtracted
	long.Subtract(dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x1}))
	if long.Leaf(0x80000001) == nil {
		t.Fatal("tail leaves beyond the overlap must be untouched")
	}
}

func TestIntersect(t *testing.T) {
	a := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x3},
		Leaf{Function: 0x7, Ebx: 0x20},
	)
	b := dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x2})

	ab := a.Copy()
	ab.Intersect(b)

	if !a.Covers(ab) {
		t.Fatal("intersection must be a subset of A")
	}
	if !b.Covers(ab) {
		t.Fatal("intersection must be a subset of B")
	}
	leaf := ab.Leaf(0x1)
	if leaf == nil || leaf.Ecx != 0x2 {
		t.Fatalf("expected ecx 0x2, got %+v", leaf)
	}
	// leaf 0x7 is absent in b and must be cleared entirely
	if ab.Leaf(0x7) != nil {
		t.Fatal("leaf absent in B must be cleared")
	}
}

func TestIsEmpty(t *testing.T) {
	data := &Data{}
	if !data.IsEmpty() {
		t.Fatal("fresh data must be empty")
	}
	data.AddLeaf(Leaf{Function: 0x5})
	if !data.IsEmpty() {
		t.Fatal("all-zero leaves must not count")
	}
	data.AddLeaf(Leaf{Function: 0x5, Eax: 0x1})
	if data.IsEmpty() {
		t.Fatal("data with bits must not be empty")
	}
}

func TestCovers(t *testing.T) {
	whole := dataFromLeaves(
		Leaf{Function: 0x1, Ecx: 0x00100020, Edx: 0x1},
		Leaf{Function: 0x80000001, Edx: 0x20000000},
	)
	part := dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x20})

	if !whole.Covers(part) {
		t.Fatal("whole must cover part")
	}
	if part.Covers(whole) {
		t.Fatal("part must not cover whole")
	}
	part.AddLeaf(Leaf{Function: 0x7, Ebx: 0x1})
	if whole.Covers(part) {
		t.Fatal("missing leaf must fail the subset check")
	}
	if !whole.Covers(&Data{}) {
		t.Fatal("every set covers the empty set")
	}
}

func TestCopyIsDeep(t *testing.T) {
	orig := dataFromLeaves(Leaf{Function: 0x1, Ecx: 0x1})
	copied := orig.Copy()
	copied.AddLeaf(Leaf{Function: 0x1, Ecx: 0x2})
	if orig.Leaf(0x1).Ecx != 0x1 {
		t.Fatal("modifying the copy must not affect the original")
	}
}

func TestFunctionNeverMutated(t *testing.T) {
	a := dataFromLeaves(Leaf{Function: 0x80000001, Ecx: 0x4})
	b := dataFromLeaves(Leaf{Function: 0x80000001, Ecx: 0x4})
	a.Subtract(b)
	a.Intersect(b)
	a.Union(b)
	if a.extended[1].Function != 0x80000001 {
		t.Fatalf("function mutated: %#x", a.extended[1].Function)
	}
}
