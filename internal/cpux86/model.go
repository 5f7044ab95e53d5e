package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpuid"
	"cpucompat/internal/cpumap"
)

// model is a working copy of a catalog model, owned by the operation
// that built it.
type model struct {
	name   string
	vendor *cpumap.Vendor
	data   *cpuid.Data
}

func (m *model) copy() *model {
	return &model{
		name:   m.name,
		vendor: m.vendor,
		data:   m.data.Copy(),
	}
}

// modelFromCPU builds a model holding the CPUID bits of the definition's
// features that carry the given policy. For PolicyRequire the named base
// model's data seeds the result. Feature policies are only honored for
// guest-type CPUs; host feature lists carry no policy and are included
// wholesale in the PolicyRequire model, while any other policy yields
// an empty model for a host CPU.
func modelFromCPU(def *cpu.Def, catalog *cpumap.Map, policy cpu.Policy) (*model, error) {
	var result *model
	if policy == cpu.PolicyRequire {
		base := catalog.FindModel(def.Model)
		if base == nil {
			return nil, fmt.Errorf("unknown CPU model %s", def.Model)
		}
		result = &model{name: base.Name, vendor: base.Vendor, data: base.Data.Copy()}
	} else {
		result = &model{data: &cpuid.Data{}}
		if def.Type == cpu.TypeHost {
			return result, nil
		}
	}

	for i := range def.Features {
		if def.Type == cpu.TypeGuest && def.Features[i].Policy != policy {
			continue
		}
		feature := catalog.FindFeature(def.Features[i].Name)
		if feature == nil {
			return nil, fmt.Errorf("unknown CPU feature %s", def.Features[i].Name)
		}
		result.data.Union(feature.Data)
	}

	return result, nil
}

// modelSubtractCPU removes the definition's base model data and all its
// feature data from m.
func modelSubtractCPU(m *model, def *cpu.Def, catalog *cpumap.Map) error {
	base := catalog.FindModel(def.Model)
	if base == nil {
		return fmt.Errorf("unknown CPU model %s", def.Model)
	}
	m.data.Subtract(base.Data)

	for i := range def.Features {
		feature := catalog.FindFeature(def.Features[i].Name)
		if feature == nil {
			return fmt.Errorf("unknown CPU feature %s", def.Features[i].Name)
		}
		m.data.Subtract(feature.Data)
	}

	return nil
}

type compareResult int

const (
	subset compareResult = iota
	equal
	superset
	unrelated
)

// modelCompare relates two models by their CPUID data: equal, one a
// subset or superset of the other, or unrelated when bits exist on both
// sides that the other lacks.
func modelCompare(model1, model2 *model) compareResult {
	result := equal

	fold := func(match compareResult) bool {
		if result == equal {
			result = match
		} else if result != match {
			result = unrelated
			return false
		}
		return true
	}

	for leaf1 := range model1.data.Iter() {
		match := superset
		if leaf2 := model2.data.Leaf(leaf1.Function); leaf2 != nil {
			if leaf1.Equal(leaf2) {
				continue
			} else if !leaf1.Contains(leaf2) {
				match = subset
			}
		}
		if !fold(match) {
			return unrelated
		}
	}

	for leaf2 := range model2.data.Iter() {
		match := subset
		if leaf1 := model1.data.Leaf(leaf2.Function); leaf1 != nil {
			if leaf2.Equal(leaf1) {
				continue
			} else if !leaf2.Contains(leaf1) {
				match = superset
			}
		}
		if !fold(match) {
			return unrelated
		}
	}

	return result
}

// dataToVendor finds the first catalog vendor whose identification bits
// are present in data, clears those bits, and returns the vendor. This
// keeps vendor bits from being reported as features.
func dataToVendor(data *cpuid.Data, catalog *cpumap.Map) *cpumap.Vendor {
	for _, vendor := range catalog.Vendors {
		leaf := data.Leaf(vendor.ID.Function)
		if leaf != nil && leaf.Contains(&vendor.ID) {
			leaf.AndNot(&vendor.ID)
			return vendor
		}
	}
	return nil
}

// dataToFeatures adds every catalog feature fully contained in data to
// the definition with the given policy, removing the detected bits from
// data as it goes. Features are matched in catalog order.
func dataToFeatures(def *cpu.Def, policy cpu.Policy, data *cpuid.Data, catalog *cpumap.Map) error {
	for _, feature := range catalog.Features {
		if data.Covers(feature.Data) {
			data.Subtract(feature.Data)
			if err := def.AddFeature(feature.Name, policy); err != nil {
				return err
			}
		}
	}
	return nil
}

// dataFromFeatures unions the CPUID data of all features on the
// definition regardless of policy.
func dataFromFeatures(def *cpu.Def, catalog *cpumap.Map) (*cpuid.Data, error) {
	data := &cpuid.Data{}
	for i := range def.Features {
		feature := catalog.FindFeature(def.Features[i].Name)
		if feature == nil {
			return nil, fmt.Errorf("unknown CPU feature %s", def.Features[i].Name)
		}
		data.Union(feature.Data)
	}
	return data, nil
}

// dataToCPU decodes raw CPUID data relative to a catalog model: the
// result names the model, carries the vendor found in the data, requires
// the features present in the data but not in the model, and disables
// the features present in the model but not in the data.
func dataToCPU(data *cpuid.Data, candidate *cpumap.Model, catalog *cpumap.Map) (*cpu.Def, error) {
	def := &cpu.Def{Model: candidate.Name}
	dataCopy := data.Copy()
	modelData := candidate.Data.Copy()

	if vendor := dataToVendor(dataCopy, catalog); vendor != nil {
		def.Vendor = vendor.Name
	}

	dataCopy.Subtract(modelData)
	modelData.Subtract(data)

	// feature policy is ignored for host CPUs, so decode as guest
	def.Type = cpu.TypeGuest

	if err := dataToFeatures(def, cpu.PolicyRequire, dataCopy, catalog); err != nil {
		return nil, err
	}
	if err := dataToFeatures(def, cpu.PolicyDisable, modelData, catalog); err != nil {
		return nil, err
	}

	return def, nil
}

// featureNames renders a separator-joined list of all catalog features
// fully contained in data, in catalog order.
func featureNames(catalog *cpumap.Map, separator string, data *cpuid.Data) string {
	var names []string
	for _, feature := range catalog.Features {
		if data.Covers(feature.Data) {
			names = append(names, feature.Name)
		}
	}
	return strings.Join(names, separator)
}
