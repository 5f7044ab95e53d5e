/*
Package cpumap maintains the in-memory registry of CPU vendors, features
and models the compatibility engine reasons about. The registry is
populated through a visitor-driven loader so the document format stays
outside the engine; a curated default catalog is embedded in the binary.
*/
package cpumap

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	mapset "github.com/deckarep/golang-set/v2"

	"cpucompat/internal/cpuid"
)

// Vendor identifies a CPU manufacturer by the 12-byte vendor string
// returned at CPUID leaf 0, packed into the ebx/edx/ecx registers.
type Vendor struct {
	Name string
	ID   cpuid.Leaf
}

// Feature is a named CPU feature together with the CPUID bits that must
// be set for the feature to be present.
type Feature struct {
	Name string
	Data *cpuid.Data
}

// Model is a named CPU model. Its data is the union of its ancestor's
// data and all features the model declares.
type Model struct {
	Name   string
	Vendor *Vendor
	Data   *cpuid.Data
}

// Map owns the three catalog collections. Traversal order is document
// order of the loader stream; order-sensitive operations (decoder
// tie-breaks, feature name rendering) depend on it.
type Map struct {
	Vendors  []*Vendor
	Features []*Feature
	Models   []*Model

	vendorNames  mapset.Set[string]
	featureNames mapset.Set[string]
	modelNames   mapset.Set[string]
}

// NewMap returns an empty catalog ready for loading.
func NewMap() *Map {
	return &Map{
		vendorNames:  mapset.NewThreadUnsafeSet[string](),
		featureNames: mapset.NewThreadUnsafeSet[string](),
		modelNames:   mapset.NewThreadUnsafeSet[string](),
	}
}

// FindVendor returns the named vendor or nil.
func (m *Map) FindVendor(name string) *Vendor {
	for _, vendor := range m.Vendors {
		if vendor.Name == name {
			return vendor
		}
	}
	return nil
}

// FindFeature returns the named feature or nil.
func (m *Map) FindFeature(name string) *Feature {
	for _, feature := range m.Features {
		if feature.Name == name {
			return feature
		}
	}
	return nil
}

// FindModel returns the named model or nil.
func (m *Map) FindModel(name string) *Model {
	for _, model := range m.Models {
		if model.Name == name {
			return model
		}
	}
	return nil
}

// FeatureNames returns the names of all catalog features in catalog
// order.
func (m *Map) FeatureNames() []string {
	names := make([]string, 0, len(m.Features))
	for _, feature := range m.Features {
		names = append(names, feature.Name)
	}
	return names
}
