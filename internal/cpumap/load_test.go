package cpumap

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpucompat/internal/cpuid"
)

func TestLoadDefault(t *testing.T) {
	catalog, err := LoadDefault()
	require.NoError(t, err)

	assert.NotEmpty(t, catalog.Vendors)
	assert.NotEmpty(t, catalog.Features)
	assert.NotEmpty(t, catalog.Models)

	// the vendor string is packed little-endian into ebx, edx, ecx
	intel := catalog.FindVendor("Intel")
	require.NotNil(t, intel)
	assert.Equal(t, uint32(0), intel.ID.Function)
	assert.Equal(t, uint32(0x756e6547), intel.ID.Ebx) // "Genu"
	assert.Equal(t, uint32(0x49656e69), intel.ID.Edx) // "ineI"
	assert.Equal(t, uint32(0x6c65746e), intel.ID.Ecx) // "ntel"

	lm := catalog.FindFeature("lm")
	require.NotNil(t, lm)
	leaf := lm.Data.Leaf(0x80000001)
	require.NotNil(t, leaf)
	assert.Equal(t, uint32(0x20000000), leaf.Edx)

	// a model's data is its ancestor's data plus its own features
	penryn := catalog.FindModel("Penryn")
	nehalem := catalog.FindModel("Nehalem")
	require.NotNil(t, penryn)
	require.NotNil(t, nehalem)
	assert.True(t, nehalem.Data.Covers(penryn.Data))
	assert.False(t, penryn.Data.Covers(nehalem.Data))
	sse42 := catalog.FindFeature("sse4.2")
	require.NotNil(t, sse42)
	assert.True(t, nehalem.Data.Covers(sse42.Data))
	assert.False(t, penryn.Data.Covers(sse42.Data))

	// vendor is inherited from the ancestor
	require.NotNil(t, nehalem.Vendor)
	assert.Equal(t, "Intel", nehalem.Vendor.Name)
	qemu64 := catalog.FindModel("qemu64")
	require.NotNil(t, qemu64)
	assert.Nil(t, qemu64.Vendor)
}

func TestLoadVendorRejectsBadElements(t *testing.T) {
	m := NewMap()

	require.NoError(t, m.LoadVendor(&VendorElement{Name: "", String: "GenuineIntel"}))
	assert.Empty(t, m.Vendors)

	require.NoError(t, m.LoadVendor(&VendorElement{Name: "Short", String: "abc"}))
	assert.Empty(t, m.Vendors)

	require.NoError(t, m.LoadVendor(&VendorElement{Name: "Intel", String: "GenuineIntel"}))
	require.Len(t, m.Vendors, 1)

	// duplicates are discarded, the first entry stays
	require.NoError(t, m.LoadVendor(&VendorElement{Name: "Intel", String: "AuthenticAMD"}))
	require.Len(t, m.Vendors, 1)
	assert.Equal(t, uint32(0x756e6547), m.Vendors[0].ID.Ebx)
}

func TestLoadFeatureRejectsBadElements(t *testing.T) {
	m := NewMap()

	// function is mandatory
	require.NoError(t, m.LoadFeature(&FeatureElement{
		Name:  "broken",
		Cpuid: []CpuidElement{{Eax: "0x1"}},
	}))
	assert.Empty(t, m.Features)

	// malformed register values are rejected
	require.NoError(t, m.LoadFeature(&FeatureElement{
		Name:  "badhex",
		Cpuid: []CpuidElement{{Function: "0x1", Ecx: "xyz"}},
	}))
	assert.Empty(t, m.Features)

	// missing registers default to zero, tuples are OR-merged
	require.NoError(t, m.LoadFeature(&FeatureElement{
		Name: "good",
		Cpuid: []CpuidElement{
			{Function: "0x1", Ecx: "0x1"},
			{Function: "0x1", Ecx: "0x2"},
		},
	}))
	require.Len(t, m.Features, 1)
	leaf := m.Features[0].Data.Leaf(0x1)
	require.NotNil(t, leaf)
	assert.Equal(t, uint32(0x3), leaf.Ecx)
	assert.Equal(t, uint32(0), leaf.Eax)

	require.NoError(t, m.LoadFeature(&FeatureElement{
		Name:  "good",
		Cpuid: []CpuidElement{{Function: "0x7", Ebx: "0x1"}},
	}))
	require.Len(t, m.Features, 1)
}

func TestLoadModelRejectsDanglingReferences(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.LoadFeature(&FeatureElement{
		Name:  "feat",
		Cpuid: []CpuidElement{{Function: "0x1", Ecx: "0x1"}},
	}))

	require.NoError(t, m.LoadModel(&ModelElement{Name: "orphan", Model: "missing"}))
	assert.Empty(t, m.Models)

	require.NoError(t, m.LoadModel(&ModelElement{Name: "novendor", Vendor: "missing"}))
	assert.Empty(t, m.Models)

	require.NoError(t, m.LoadModel(&ModelElement{Name: "nofeature", Features: []string{"missing"}}))
	assert.Empty(t, m.Models)

	require.NoError(t, m.LoadModel(&ModelElement{Name: "base", Features: []string{"feat"}}))
	require.Len(t, m.Models, 1)

	// the catalog stays usable after discarded elements
	require.NoError(t, m.LoadModel(&ModelElement{Name: "child", Model: "base"}))
	require.Len(t, m.Models, 2)
	assert.True(t, m.Models[1].Data.Covers(m.Models[0].Data))
}

func TestWalkOrderPreserved(t *testing.T) {
	doc := []byte(`
features:
  - name: one
    cpuid:
      - {function: "0x1", ecx: "0x1"}
  - name: two
    cpuid:
      - {function: "0x1", ecx: "0x2"}
models:
  - name: m1
    features: [one]
  - name: m2
    model: m1
    features: [two]
`)
	catalog, err := LoadBuffer(doc)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, catalog.FeatureNames())
	require.Len(t, catalog.Models, 2)
	assert.Equal(t, "m1", catalog.Models[0].Name)
	assert.Equal(t, "m2", catalog.Models[1].Name)
	leaf := catalog.Models[1].Data.Leaf(0x1)
	require.NotNil(t, leaf)
	assert.Equal(t, uint32(0x3), leaf.Ecx)
}

func TestParseLeaf(t *testing.T) {
	leaf, err := ParseLeaf(&CpuidElement{Function: "0x80000001", Edx: "0x20000000"})
	require.NoError(t, err)
	assert.Equal(t, cpuid.Leaf{Function: 0x80000001, Edx: 0x20000000}, leaf)

	_, err = ParseLeaf(&CpuidElement{Edx: "0x1"})
	assert.Error(t, err)

	_, err = ParseLeaf(&CpuidElement{Function: "0x1", Eax: "zz"})
	assert.Error(t, err)
}
