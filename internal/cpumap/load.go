package cpumap

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"cpucompat/internal/cpuid"
)

const vendorStringLength = 12

//go:embed cpu_map.yaml
var defaultMap []byte

// VendorElement is one vendor entry of a catalog document.
type VendorElement struct {
	Name   string `yaml:"name"`
	String string `yaml:"string"`
}

// CpuidElement is one CPUID leaf of a feature entry. All values are hex
// strings; registers default to zero when omitted.
type CpuidElement struct {
	Function string `yaml:"function"`
	Eax      string `yaml:"eax,omitempty"`
	Ebx      string `yaml:"ebx,omitempty"`
	Ecx      string `yaml:"ecx,omitempty"`
	Edx      string `yaml:"edx,omitempty"`
}

// FeatureElement is one feature entry of a catalog document.
type FeatureElement struct {
	Name  string         `yaml:"name"`
	Cpuid []CpuidElement `yaml:"cpuid"`
}

// ModelElement is one model entry of a catalog document. Model names an
// already-loaded ancestor model whose data seeds this model's data;
// Vendor overrides the ancestor's vendor.
type ModelElement struct {
	Name     string   `yaml:"name"`
	Model    string   `yaml:"model,omitempty"`
	Vendor   string   `yaml:"vendor,omitempty"`
	Features []string `yaml:"features,omitempty"`
}

// Visitor receives catalog elements in document order. An implementation
// may discard a specific element by returning nil without recording it;
// a non-nil error aborts the walk.
type Visitor interface {
	LoadVendor(element *VendorElement) error
	LoadFeature(element *FeatureElement) error
	LoadModel(element *ModelElement) error
}

type document struct {
	Vendors  []VendorElement  `yaml:"vendors"`
	Features []FeatureElement `yaml:"features"`
	Models   []ModelElement   `yaml:"models"`
}

// Walk parses a catalog document and feeds its elements to the visitor:
// all vendors, then all features, then all models, each in document
// order so that ancestor and feature references resolve.
func Walk(doc []byte, visitor Visitor) error {
	var parsed document
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return errors.Wrap(err, "cannot parse CPU map")
	}
	for i := range parsed.Vendors {
		if err := visitor.LoadVendor(&parsed.Vendors[i]); err != nil {
			return err
		}
	}
	for i := range parsed.Features {
		if err := visitor.LoadFeature(&parsed.Features[i]); err != nil {
			return err
		}
	}
	for i := range parsed.Models {
		if err := visitor.LoadModel(&parsed.Models[i]); err != nil {
			return err
		}
	}
	return nil
}

// Load builds a catalog from the document at path.
func Load(path string) (*Map, error) {
	doc, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read CPU map %s", path)
	}
	return LoadBuffer(doc)
}

// LoadBuffer builds a catalog from an in-memory document.
func LoadBuffer(doc []byte) (*Map, error) {
	m := NewMap()
	if err := Walk(doc, m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadDefault builds a catalog from the embedded default document.
func LoadDefault() (*Map, error) {
	return LoadBuffer(defaultMap)
}

// LoadVendor records a vendor element. Malformed or duplicate elements
// are reported and discarded; the catalog stays usable.
func (m *Map) LoadVendor(element *VendorElement) error {
	if element.Name == "" {
		slog.Warn("ignoring CPU vendor with no name")
		return nil
	}
	if m.vendorNames.Contains(element.Name) {
		slog.Warn("CPU vendor already defined", slog.String("vendor", element.Name))
		return nil
	}
	if len(element.String) != vendorStringLength {
		slog.Warn("invalid CPU vendor string",
			slog.String("vendor", element.Name),
			slog.String("string", element.String))
		return nil
	}
	id := []byte(element.String)
	vendor := &Vendor{
		Name: element.Name,
		ID: cpuid.Leaf{
			Function: 0,
			Ebx:      binary.LittleEndian.Uint32(id[0:4]),
			Edx:      binary.LittleEndian.Uint32(id[4:8]),
			Ecx:      binary.LittleEndian.Uint32(id[8:12]),
		},
	}
	m.Vendors = append(m.Vendors, vendor)
	m.vendorNames.Add(vendor.Name)
	return nil
}

// LoadFeature records a feature element. The function number of each
// CPUID tuple is mandatory; registers default to zero, but a present yet
// malformed register discards the element.
func (m *Map) LoadFeature(element *FeatureElement) error {
	if element.Name == "" {
		slog.Warn("ignoring CPU feature with no name")
		return nil
	}
	if m.featureNames.Contains(element.Name) {
		slog.Warn("CPU feature already defined", slog.String("feature", element.Name))
		return nil
	}
	feature := &Feature{Name: element.Name, Data: &cpuid.Data{}}
	for i := range element.Cpuid {
		leaf, err := ParseLeaf(&element.Cpuid[i])
		if err != nil {
			slog.Warn("invalid cpuid element in CPU feature",
				slog.String("feature", element.Name),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			return nil
		}
		feature.Data.AddLeaf(leaf)
	}
	m.Features = append(m.Features, feature)
	m.featureNames.Add(feature.Name)
	return nil
}

// LoadModel records a model element. Ancestor, vendor and feature
// references must resolve against already-loaded elements; a dangling
// reference discards the model.
func (m *Map) LoadModel(element *ModelElement) error {
	if element.Name == "" {
		slog.Warn("ignoring CPU model with no name")
		return nil
	}
	if m.modelNames.Contains(element.Name) {
		slog.Warn("CPU model already defined", slog.String("model", element.Name))
		return nil
	}
	model := &Model{Name: element.Name, Data: &cpuid.Data{}}
	if element.Model != "" {
		ancestor := m.FindModel(element.Model)
		if ancestor == nil {
			slog.Warn("ancestor model not found",
				slog.String("model", element.Name),
				slog.String("ancestor", element.Model))
			return nil
		}
		model.Vendor = ancestor.Vendor
		model.Data = ancestor.Data.Copy()
	}
	if element.Vendor != "" {
		vendor := m.FindVendor(element.Vendor)
		if vendor == nil {
			slog.Warn("unknown vendor referenced by CPU model",
				slog.String("model", element.Name),
				slog.String("vendor", element.Vendor))
			return nil
		}
		model.Vendor = vendor
	}
	for _, name := range element.Features {
		feature := m.FindFeature(name)
		if feature == nil {
			slog.Warn("feature required by CPU model not found",
				slog.String("model", element.Name),
				slog.String("feature", name))
			return nil
		}
		model.Data.Union(feature.Data)
	}
	m.Models = append(m.Models, model)
	m.modelNames.Add(model.Name)
	return nil
}

// ParseLeaf converts a catalog cpuid element into a leaf, validating the
// hex values.
func ParseLeaf(element *CpuidElement) (cpuid.Leaf, error) {
	var leaf cpuid.Leaf
	if element.Function == "" {
		return leaf, fmt.Errorf("missing function")
	}
	registers := []struct {
		name  string
		value string
		out   *uint32
	}{
		{"function", element.Function, &leaf.Function},
		{"eax", element.Eax, &leaf.Eax},
		{"ebx", element.Ebx, &leaf.Ebx},
		{"ecx", element.Ecx, &leaf.Ecx},
		{"edx", element.Edx, &leaf.Edx},
	}
	for _, register := range registers {
		if register.value == "" {
			continue
		}
		parsed, err := strconv.ParseUint(register.value, 0, 32)
		if err != nil {
			return leaf, fmt.Errorf("malformed %s value %q", register.name, register.value)
		}
		*register.out = uint32(parsed)
	}
	return leaf, nil
}
