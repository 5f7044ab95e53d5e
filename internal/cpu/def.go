package cpu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "fmt"

// Arch identifies a CPU architecture. The empty value means the
// architecture is not specified.
type Arch string

const (
	ArchNone   Arch = ""
	ArchI686   Arch = "i686"
	ArchX86_64 Arch = "x86_64"
)

// Type distinguishes host CPU descriptions from guest CPU requirements.
// Feature policies only apply to guest CPUs.
type Type int

const (
	TypeHost Type = iota
	TypeGuest
	TypeAuto
)

var typeNames = map[Type]string{
	TypeHost:  "host",
	TypeGuest: "guest",
	TypeAuto:  "auto",
}

func (t Type) String() string { return enumString(typeNames, t) }

func (t *Type) UnmarshalYAML(unmarshal func(any) error) error {
	return enumUnmarshal(typeNames, TypeAuto, "CPU type", t, unmarshal)
}

func (t Type) MarshalYAML() (any, error) { return t.String(), nil }

// Mode selects how a guest CPU model is derived from the host.
type Mode int

const (
	ModeCustom Mode = iota
	ModeHostModel
	ModeHostPassthrough
)

var modeNames = map[Mode]string{
	ModeCustom:          "custom",
	ModeHostModel:       "host-model",
	ModeHostPassthrough: "host-passthrough",
}

func (m Mode) String() string { return enumString(modeNames, m) }

func (m *Mode) UnmarshalYAML(unmarshal func(any) error) error {
	return enumUnmarshal(modeNames, ModeCustom, "CPU mode", m, unmarshal)
}

func (m Mode) MarshalYAML() (any, error) { return m.String(), nil }

// Match selects how strictly a guest CPU must match the host. The zero
// value is MatchExact, the default when a definition does not say.
type Match int

const (
	MatchExact Match = iota
	MatchMinimum
	MatchStrict
)

var matchNames = map[Match]string{
	MatchMinimum: "minimum",
	MatchExact:   "exact",
	MatchStrict:  "strict",
}

func (m Match) String() string { return enumString(matchNames, m) }

func (m *Match) UnmarshalYAML(unmarshal func(any) error) error {
	return enumUnmarshal(matchNames, MatchExact, "CPU match", m, unmarshal)
}

func (m Match) MarshalYAML() (any, error) { return m.String(), nil }

// Fallback controls whether the decoder may substitute the closest
// supported model when the preferred model is rejected.
type Fallback int

const (
	FallbackAllow Fallback = iota
	FallbackForbid
)

var fallbackNames = map[Fallback]string{
	FallbackAllow:  "allow",
	FallbackForbid: "forbid",
}

func (f Fallback) String() string { return enumString(fallbackNames, f) }

func (f *Fallback) UnmarshalYAML(unmarshal func(any) error) error {
	return enumUnmarshal(fallbackNames, FallbackAllow, "CPU fallback", f, unmarshal)
}

func (f Fallback) MarshalYAML() (any, error) { return f.String(), nil }

// Policy classifies a feature on a guest CPU definition. The zero value
// is PolicyRequire, the default when a definition does not say.
// PolicyNone is a sentinel meaning the policy is not applicable, used
// for features of host-type CPUs.
type Policy int

const (
	PolicyRequire Policy = iota
	PolicyForce
	PolicyOptional
	PolicyDisable
	PolicyForbid

	PolicyNone Policy = -1
)

var policyNames = map[Policy]string{
	PolicyForce:    "force",
	PolicyRequire:  "require",
	PolicyOptional: "optional",
	PolicyDisable:  "disable",
	PolicyForbid:   "forbid",
}

func (p Policy) String() string {
	if p == PolicyNone {
		return "none"
	}
	return enumString(policyNames, p)
}

func (p *Policy) UnmarshalYAML(unmarshal func(any) error) error {
	return enumUnmarshal(policyNames, PolicyRequire, "feature policy", p, unmarshal)
}

func (p Policy) MarshalYAML() (any, error) {
	if p == PolicyNone {
		return "", nil
	}
	return p.String(), nil
}

func enumString[E comparable](names map[E]string, value E) string {
	if name, ok := names[value]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%v)", any(value))
}

// enumUnmarshal decodes a YAML scalar into an enum value by name. An
// empty or missing scalar yields the given default.
func enumUnmarshal[E comparable](names map[E]string, dflt E, what string, out *E, unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	if name == "" {
		*out = dflt
		return nil
	}
	for value, n := range names {
		if n == name {
			*out = value
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, name)
}

// Feature is a named CPU feature with the policy requested for it.
type Feature struct {
	Name   string `yaml:"name"`
	Policy Policy `yaml:"policy,omitempty"`
}

// Def is the generic CPU definition record. Host descriptions carry the
// measured model, vendor and feature list; guest requirements carry the
// requested model plus per-feature policies.
type Def struct {
	Type     Type      `yaml:"type,omitempty"`
	Mode     Mode      `yaml:"mode,omitempty"`
	Arch     Arch      `yaml:"arch,omitempty"`
	Model    string    `yaml:"model,omitempty"`
	Vendor   string    `yaml:"vendor,omitempty"`
	Fallback Fallback  `yaml:"fallback,omitempty"`
	Match    Match     `yaml:"match,omitempty"`
	Features []Feature `yaml:"features,omitempty"`
}

// Copy returns a deep copy of the definition.
func (d *Def) Copy() *Def {
	copied := *d
	copied.Features = make([]Feature, len(d.Features))
	copy(copied.Features, d.Features)
	return &copied
}

// FindFeature returns the index of the named feature, or -1.
func (d *Def) FindFeature(name string) int {
	for i := range d.Features {
		if d.Features[i].Name == name {
			return i
		}
	}
	return -1
}

// AddFeature appends a feature to the definition. Duplicate names are
// rejected.
func (d *Def) AddFeature(name string, policy Policy) error {
	if d.FindFeature(name) >= 0 {
		return fmt.Errorf("CPU feature %q specified more than once", name)
	}
	d.Features = append(d.Features, Feature{Name: name, Policy: policy})
	return nil
}

// UpdateFeature sets the policy of the named feature, adding the feature
// if the definition does not have it yet.
func (d *Def) UpdateFeature(name string, policy Policy) {
	if i := d.FindFeature(name); i >= 0 {
		d.Features[i].Policy = policy
		return
	}
	d.Features = append(d.Features, Feature{Name: name, Policy: policy})
}

// ClearModel drops the model name, vendor and feature list while keeping
// type, mode, arch and match.
func (d *Def) ClearModel() {
	d.Model = ""
	d.Vendor = ""
	d.Fallback = FallbackAllow
	d.Features = nil
}

// CopyModel replaces the definition's model, vendor, fallback and
// feature list with those of src. When resetPolicy is set and the two
// definitions differ in type, feature policies are adapted across the
// boundary: a host destination carries no policy (PolicyNone), while a
// guest destination turns policy-less host features into required ones.
func (d *Def) CopyModel(src *Def, resetPolicy bool) {
	d.Model = src.Model
	d.Vendor = src.Vendor
	d.Fallback = src.Fallback
	d.Features = make([]Feature, len(src.Features))
	copy(d.Features, src.Features)
	if resetPolicy && d.Type != src.Type {
		for i := range d.Features {
			if d.Type == TypeHost {
				d.Features[i].Policy = PolicyNone
			} else if d.Features[i].Policy == PolicyNone {
				d.Features[i].Policy = PolicyRequire
			}
		}
	}
}
