package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpuid"
	"cpucompat/internal/cpumap"
)

// encodePolicy produces the CPUID data set of the definition's features
// that carry the given policy.
func encodePolicy(def *cpu.Def, catalog *cpumap.Map, policy cpu.Policy) (*cpuid.Data, error) {
	m, err := modelFromCPU(def, catalog, policy)
	if err != nil {
		return nil, err
	}
	return m.data, nil
}

// encode produces one CPUID data set per requested feature policy, plus
// the single-leaf vendor data when requested. Any failing output aborts
// the whole operation.
func encode(arch cpu.Arch, def *cpu.Def, req cpu.EncodeRequest) (cpu.EncodeResult, error) {
	var result cpu.EncodeResult

	catalog, err := loadCatalog()
	if err != nil {
		return cpu.EncodeResult{}, err
	}

	wrap := func(data *cpuid.Data) *cpu.Data {
		return &cpu.Data{Arch: arch, X86: data}
	}

	if req.Forced {
		data, err := encodePolicy(def, catalog, cpu.PolicyForce)
		if err != nil {
			return cpu.EncodeResult{}, err
		}
		result.Forced = wrap(data)
	}
	if req.Required {
		data, err := encodePolicy(def, catalog, cpu.PolicyRequire)
		if err != nil {
			return cpu.EncodeResult{}, err
		}
		result.Required = wrap(data)
	}
	if req.Optional {
		data, err := encodePolicy(def, catalog, cpu.PolicyOptional)
		if err != nil {
			return cpu.EncodeResult{}, err
		}
		result.Optional = wrap(data)
	}
	if req.Disabled {
		data, err := encodePolicy(def, catalog, cpu.PolicyDisable)
		if err != nil {
			return cpu.EncodeResult{}, err
		}
		result.Disabled = wrap(data)
	}
	if req.Forbidden {
		data, err := encodePolicy(def, catalog, cpu.PolicyForbid)
		if err != nil {
			return cpu.EncodeResult{}, err
		}
		result.Forbidden = wrap(data)
	}
	if req.Vendor {
		data := &cpuid.Data{}
		if def.Vendor != "" {
			vendor := catalog.FindVendor(def.Vendor)
			if vendor == nil {
				return cpu.EncodeResult{}, fmt.Errorf("CPU vendor %s not found", def.Vendor)
			}
			data.AddLeaf(vendor.ID)
		}
		result.Vendor = wrap(data)
	}

	return result, nil
}
