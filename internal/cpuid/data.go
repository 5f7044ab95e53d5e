package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "iter"

// Data is a sparse bit set over CPUID leaves. Leaves are stored in two
// dense slices indexed by function number, one for the basic range and
// one for the extended range. A leaf whose registers are all zero is
// equivalent to a missing leaf; the slices only ever grow.
type Data struct {
	basic    []Leaf
	extended []Leaf
}

// Leaf returns the stored leaf for the given function number, or nil if
// the leaf is absent or empty.
func (d *Data) Leaf(function uint32) *Leaf {
	var leaves []Leaf
	var i uint32
	if function < Extended {
		leaves = d.basic
		i = function
	} else {
		leaves = d.extended
		i = function - Extended
	}
	if i < uint32(len(leaves)) && !leaves[i].empty() {
		return &leaves[i]
	}
	return nil
}

// Iter yields all non-empty leaves: the basic range in ascending function
// order, then the extended range in ascending function order. The yielded
// pointers refer to the stored leaves, so callers may modify register
// values in place but must not touch Function.
func (d *Data) Iter() iter.Seq[*Leaf] {
	return func(yield func(*Leaf) bool) {
		for i := range d.basic {
			if d.basic[i].empty() {
				continue
			}
			if !yield(&d.basic[i]) {
				return
			}
		}
		for i := range d.extended {
			if d.extended[i].empty() {
				continue
			}
			if !yield(&d.extended[i]) {
				return
			}
		}
	}
}

// expand grows the basic and extended slices by the given leaf counts.
// New slots are zero except for their function number.
func (d *Data) expand(basicBy, extendedBy int) {
	if basicBy > 0 {
		base := len(d.basic)
		d.basic = append(d.basic, make([]Leaf, basicBy)...)
		for i := base; i < len(d.basic); i++ {
			d.basic[i].Function = uint32(i)
		}
	}
	if extendedBy > 0 {
		base := len(d.extended)
		d.extended = append(d.extended, make([]Leaf, extendedBy)...)
		for i := base; i < len(d.extended); i++ {
			d.extended[i].Function = uint32(i) + Extended
		}
	}
}

// AddLeaf ORs the registers of leaf into the slot for its function
// number, growing the backing array as needed.
func (d *Data) AddLeaf(leaf Leaf) {
	var leaves []Leaf
	var pos uint32
	if leaf.Function < Extended {
		pos = leaf.Function
		d.expand(int(pos)+1-len(d.basic), 0)
		leaves = d.basic
	} else {
		pos = leaf.Function - Extended
		d.expand(0, int(pos)+1-len(d.extended))
		leaves = d.extended
	}
	leaves[pos].Or(&leaf)
}

// Union ORs every leaf of src into d, growing d as needed.
func (d *Data) Union(src *Data) {
	d.expand(len(src.basic)-len(d.basic), len(src.extended)-len(d.extended))
	for i := range src.basic {
		d.basic[i].Or(&src.basic[i])
	}
	for i := range src.extended {
		d.extended[i].Or(&src.extended[i])
	}
}

// Subtract clears from d every bit set in src. Only the overlap of the
// two backing arrays is visited: subtracting a leaf that d never
// materialized is a no-op, and leaves of d beyond src's length are left
// alone.
func (d *Data) Subtract(src *Data) {
	n := min(len(d.basic), len(src.basic))
	for i := range n {
		d.basic[i].AndNot(&src.basic[i])
	}
	n = min(len(d.extended), len(src.extended))
	for i := range n {
		d.extended[i].AndNot(&src.extended[i])
	}
}

// Intersect ANDs every non-empty leaf of d with the same-function leaf
// of src, clearing leaves that src does not have.
func (d *Data) Intersect(src *Data) {
	for leaf := range d.Iter() {
		if other := src.Leaf(leaf.Function); other != nil {
			leaf.And(other)
		} else {
			leaf.AndNot(leaf)
		}
	}
}

// IsEmpty reports whether d holds no set bits at all.
func (d *Data) IsEmpty() bool {
	for range d.Iter() {
		return false
	}
	return true
}

// Covers reports whether every bit of part is also set in d.
func (d *Data) Covers(part *Data) bool {
	for leaf := range part.Iter() {
		mine := d.Leaf(leaf.Function)
		if mine == nil || !mine.Contains(leaf) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of d.
func (d *Data) Copy() *Data {
	copied := &Data{
		basic:    make([]Leaf, len(d.basic)),
		extended: make([]Leaf, len(d.extended)),
	}
	copy(copied.basic, d.basic)
	copy(copied.extended, d.extended)
	return copied
}
