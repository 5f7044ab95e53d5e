package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpumap"
)

// baseline computes a CPU definition whose capability set is the
// intersection of all the given host CPU descriptions. The result names
// the closest catalog model and carries the common vendor, unless some
// input left its vendor unspecified.
func baseline(cpus []*cpu.Def, models []string, flags uint32) (*cpu.Def, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	base, err := modelFromCPU(cpus[0], catalog, cpu.PolicyRequire)
	if err != nil {
		return nil, err
	}

	result := &cpu.Def{
		Arch:  cpus[0].Arch,
		Type:  cpu.TypeGuest,
		Match: cpu.MatchExact,
	}

	outputVendor := true
	var vendor *cpumap.Vendor
	if cpus[0].Vendor == "" {
		outputVendor = false
	} else if vendor = catalog.FindVendor(cpus[0].Vendor); vendor == nil {
		return nil, fmt.Errorf("unknown CPU vendor %s", cpus[0].Vendor)
	}

	for _, next := range cpus[1:] {
		m, err := modelFromCPU(next, catalog, cpu.PolicyRequire)
		if err != nil {
			return nil, err
		}

		if next.Vendor != "" && m.vendor != nil && next.Vendor != m.vendor.Name {
			return nil, fmt.Errorf("CPU vendor %s of model %s differs from vendor %s",
				m.vendor.Name, m.name, next.Vendor)
		}

		var vendorName string
		if next.Vendor != "" {
			vendorName = next.Vendor
		} else {
			outputVendor = false
			if m.vendor != nil {
				vendorName = m.vendor.Name
			}
		}

		if vendorName != "" {
			if vendor == nil {
				if vendor = catalog.FindVendor(vendorName); vendor == nil {
					return nil, fmt.Errorf("unknown CPU vendor %s", vendorName)
				}
			} else if vendor.Name != vendorName {
				return nil, fmt.Errorf("CPU vendors do not match")
			}
		}

		base.data.Intersect(m.data)
	}

	if base.data.IsEmpty() {
		return nil, fmt.Errorf("CPUs are incompatible")
	}

	if vendor != nil {
		base.data.AddLeaf(vendor.ID)
	}

	if err := decode(result, base.data, models, "", flags); err != nil {
		return nil, err
	}

	if !outputVendor {
		result.Vendor = ""
	}
	result.Arch = cpu.ArchNone

	return result, nil
}
