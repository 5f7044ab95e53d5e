/*
Package cpux86 implements the CPU compatibility engine for CPUs with the
x86 CPUID instruction. It resolves CPU definitions against the catalog
of known vendors, features and models, compares guest requirements with
host capabilities, decodes raw CPUID data into named models, and
synthesizes guest CPUID data.

Every operation loads its own catalog and keeps no state between calls.
*/
package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpuid"
	"cpucompat/internal/cpumap"
)

var archs = []cpu.Arch{cpu.ArchI686, cpu.ArchX86_64}

// loadCatalog loads the catalog for one operation; overridable in tests.
var loadCatalog = cpumap.LoadDefault

type driver struct{}

func init() {
	cpu.Register(driver{})
}

func (driver) Name() string {
	return "x86"
}

func (driver) Archs() []cpu.Arch {
	return archs
}

func (driver) Compare(host, guest *cpu.Def) (cpu.CompareResult, error) {
	result, _, _, err := compute(host, guest, false)
	return result, err
}

func (driver) GuestData(host, guest *cpu.Def) (cpu.CompareResult, *cpu.Data, string, error) {
	return compute(host, guest, true)
}

func (driver) Decode(def *cpu.Def, data *cpu.Data, models []string, preferred string, flags uint32) error {
	if data == nil || data.X86 == nil {
		return fmt.Errorf("no CPUID data given")
	}
	return decode(def, data.X86, models, preferred, flags)
}

func (driver) Encode(arch cpu.Arch, def *cpu.Def, req cpu.EncodeRequest) (cpu.EncodeResult, error) {
	return encode(arch, def, req)
}

func (driver) NodeData(arch cpu.Arch) (*cpu.Data, error) {
	data, err := cpuid.Native()
	if err != nil {
		return nil, err
	}
	return &cpu.Data{Arch: arch, X86: data}, nil
}

func (driver) Baseline(cpus []*cpu.Def, models []string, flags uint32) (*cpu.Def, error) {
	return baseline(cpus, models, flags)
}

func (driver) Update(guest, host *cpu.Def) error {
	return update(guest, host)
}

func (driver) HasFeature(data *cpu.Data, name string) (bool, error) {
	if data == nil || data.X86 == nil {
		return false, fmt.Errorf("no CPUID data given")
	}
	catalog, err := loadCatalog()
	if err != nil {
		return false, err
	}
	feature := catalog.FindFeature(name)
	if feature == nil {
		return false, fmt.Errorf("unknown CPU feature %s", name)
	}
	return data.X86.Covers(feature.Data), nil
}
