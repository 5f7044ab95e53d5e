package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"
	"testing"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpumap"
)

// withCatalog substitutes the catalog loaded by the engine for the
// duration of one test.
func withCatalog(t *testing.T, doc string) {
	t.Helper()
	saved := loadCatalog
	loadCatalog = func() (*cpumap.Map, error) {
		return cpumap.LoadBuffer([]byte(doc))
	}
	t.Cleanup(func() { loadCatalog = saved })
}

func TestDecodeRoundTrip(t *testing.T) {
	catalog := testCatalog(t)

	for _, m := range catalog.Models {
		def := &cpu.Def{Type: cpu.TypeGuest}
		if err := decode(def, m.Data, nil, "", 0); err != nil {
			t.Fatalf("decode of %s: %v", m.Name, err)
		}
		if def.Model != m.Name {
			t.Fatalf("decode of %s yielded %s", m.Name, def.Model)
		}
		for _, feature := range def.Features {
			if feature.Policy == cpu.PolicyRequire {
				t.Fatalf("decode of %s left residual require feature %s", m.Name, feature.Name)
			}
		}
	}
}

func TestDecodeStripsVendor(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem").Copy()
	data.AddLeaf(catalog.FindVendor("Intel").ID)

	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, data, nil, "", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Nehalem" {
		t.Fatalf("expected Nehalem, got %s", def.Model)
	}
	if def.Vendor != "Intel" {
		t.Fatalf("expected Intel vendor, got %q", def.Vendor)
	}
	for _, feature := range def.Features {
		if feature.Policy == cpu.PolicyRequire {
			t.Fatalf("vendor bits reported as feature %s", feature.Name)
		}
	}
}

func TestDecodeResidualFeatures(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem").Copy()
	avx := catalog.FindFeature("avx")
	data.Union(avx.Data)

	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, data, nil, "", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Nehalem" {
		t.Fatalf("expected Nehalem, got %s", def.Model)
	}
	found := false
	for _, feature := range def.Features {
		if feature.Name == "avx" && feature.Policy == cpu.PolicyRequire {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected residual require feature avx, got %+v", def.Features)
	}
}

func TestDecodeAllowList(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem")

	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, data, []string{"Penryn"}, "", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Penryn" {
		t.Fatalf("expected Penryn, got %s", def.Model)
	}
	// the bits beyond Penryn surface as required features
	var required []string
	for _, feature := range def.Features {
		if feature.Policy == cpu.PolicyRequire {
			required = append(required, feature.Name)
		}
	}
	if strings.Join(required, ",") != "sse4.2,popcnt" {
		t.Fatalf("unexpected residual features: %v", required)
	}
}

func TestDecodePreferredRejectedByAllowList(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem")

	def := &cpu.Def{Type: cpu.TypeGuest, Fallback: cpu.FallbackForbid}
	err := decode(def, data, []string{"Penryn"}, "Nehalem", 0)
	if err == nil || !strings.Contains(err.Error(), "not supported by hypervisor") {
		t.Fatalf("expected a hard error, got %v", err)
	}

	// with fallback allowed the closest supported model is used
	def = &cpu.Def{Type: cpu.TypeGuest, Fallback: cpu.FallbackAllow}
	if err := decode(def, data, []string{"Penryn"}, "Nehalem", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Penryn" {
		t.Fatalf("expected Penryn, got %s", def.Model)
	}
}

func TestDecodePreferredWins(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem")

	// without a preferred model the exact match wins; with one, the
	// preferred model is taken even though it is not the smallest diff
	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, data, nil, "Penryn", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Penryn" {
		t.Fatalf("expected preferred Penryn, got %s", def.Model)
	}
}

func TestDecodeNoCandidate(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Penryn")

	// a host-type CPU cannot be decoded against a model whose features
	// it lacks
	def := &cpu.Def{Type: cpu.TypeHost}
	err := decode(def, data, []string{"Nehalem"}, "", 0)
	if err == nil || !strings.Contains(err.Error(), "Cannot find suitable CPU model") {
		t.Fatalf("expected no-candidate error, got %v", err)
	}
}

func TestDecodeHostErasesPolicies(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem").Copy()
	data.Union(catalog.FindFeature("avx").Data)

	def := &cpu.Def{Type: cpu.TypeHost}
	if err := decode(def, data, nil, "", 0); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Nehalem" {
		t.Fatalf("expected Nehalem, got %s", def.Model)
	}
	for _, feature := range def.Features {
		if feature.Policy != cpu.PolicyNone {
			t.Fatalf("host decode must erase policies, feature %s has %v", feature.Name, feature.Policy)
		}
	}
}

func TestDecodeTieBreakFirstWins(t *testing.T) {
	withCatalog(t, `
features:
  - name: f1
    cpuid:
      - {function: "0x1", ecx: "0x1"}
models:
  - name: first
    features: [f1]
  - name: second
    features: [f1]
`)
	catalog, err := loadCatalog()
	if err != nil {
		t.Fatal(err)
	}

	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, catalog.Models[0].Data, nil, "", 0); err != nil {
		t.Fatal(err)
	}
	// both candidates have zero residual features; the earlier one wins
	if def.Model != "first" {
		t.Fatalf("expected first, got %s", def.Model)
	}
}

func TestDecodeExpandFeatures(t *testing.T) {
	catalog := testCatalog(t)
	data := modelData(t, catalog, "Nehalem")

	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, data, nil, "", cpu.DecodeExpandFeatures); err != nil {
		t.Fatal(err)
	}
	if def.Model != "Nehalem" {
		t.Fatalf("expected Nehalem, got %s", def.Model)
	}
	names := make(map[string]bool)
	for _, feature := range def.Features {
		if feature.Policy != cpu.PolicyRequire {
			t.Fatalf("expanded feature %s has policy %v", feature.Name, feature.Policy)
		}
		names[feature.Name] = true
	}
	for _, want := range []string{"fpu", "sse2", "ssse3", "sse4.2", "popcnt", "lm"} {
		if !names[want] {
			t.Fatalf("expanded feature list is missing %s: %v", want, def.Features)
		}
	}
}

func TestDecodeRejectsUnknownFlags(t *testing.T) {
	catalog := testCatalog(t)
	def := &cpu.Def{Type: cpu.TypeGuest}
	if err := decode(def, modelData(t, catalog, "Penryn"), nil, "", 0xf0); err == nil {
		t.Fatal("expected an error for unknown flags")
	}
}
