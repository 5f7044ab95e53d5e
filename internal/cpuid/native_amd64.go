//go:build amd64

package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// cpuidCall executes the CPUID instruction for the given function
// number. The other input registers are zeroed before the call as some
// leaves take them as additional arguments. Implemented in
// cpuid_amd64.s.
func cpuidCall(function uint32) (eax, ebx, ecx, edx uint32)

// leafRange reads every leaf of the range starting at base. The first
// read of the base leaf reports the maximum supported function number in
// eax; all leaves up to that number are then read in sequence. The
// returned slice is indexed from zero within the range.
func leafRange(base uint32) []Leaf {
	eax, _, _, _ := cpuidCall(base)
	max := eax - base
	leaves := make([]Leaf, max+1)
	for i := uint32(0); i <= max; i++ {
		leaf := &leaves[i]
		leaf.Function = base | i
		leaf.Eax, leaf.Ebx, leaf.Ecx, leaf.Edx = cpuidCall(leaf.Function)
	}
	return leaves
}

// Native reads the basic and extended CPUID leaves of the processor the
// program is running on.
func Native() (*Data, error) {
	return &Data{
		basic:    leafRange(Basic),
		extended: leafRange(Extended),
	}, nil
}
