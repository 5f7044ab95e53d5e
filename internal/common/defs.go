package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// defs.go provides reading and writing of CPU definition and raw CPUID
// data files used by the application commands.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpuid"
	"cpucompat/internal/cpumap"
	"cpucompat/internal/util"
)

// cpuDataFile is the on-disk form of raw CPUID data: one hex tuple per
// stored leaf.
type cpuDataFile struct {
	Arch  cpu.Arch              `yaml:"arch,omitempty"`
	Cpuid []cpumap.CpuidElement `yaml:"cpuid"`
}

// ReadCPUDef reads a CPU definition from a YAML file.
func ReadCPUDef(path string) (*cpu.Def, error) {
	content, err := os.ReadFile(util.ExpandUser(path)) // #nosec G304
	if err != nil {
		return nil, err
	}
	var def cpu.Def
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("cannot parse CPU definition %s: %v", path, err)
	}
	return &def, nil
}

// ReadCPUDefs reads a list of CPU definitions from a YAML file holding a
// cpus list.
func ReadCPUDefs(path string) ([]*cpu.Def, error) {
	content, err := os.ReadFile(util.ExpandUser(path)) // #nosec G304
	if err != nil {
		return nil, err
	}
	var file struct {
		Cpus []*cpu.Def `yaml:"cpus"`
	}
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("cannot parse CPU definitions %s: %v", path, err)
	}
	return file.Cpus, nil
}

// ReadCPUData reads raw CPUID data from a YAML file.
func ReadCPUData(path string) (*cpu.Data, error) {
	content, err := os.ReadFile(util.ExpandUser(path)) // #nosec G304
	if err != nil {
		return nil, err
	}
	var file cpuDataFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("cannot parse CPUID data %s: %v", path, err)
	}
	data := &cpuid.Data{}
	for i := range file.Cpuid {
		leaf, err := cpumap.ParseLeaf(&file.Cpuid[i])
		if err != nil {
			return nil, fmt.Errorf("invalid cpuid[%d] in %s: %v", i, path, err)
		}
		data.AddLeaf(leaf)
	}
	arch := file.Arch
	if arch == cpu.ArchNone {
		arch = cpu.ArchX86_64
	}
	return &cpu.Data{Arch: arch, X86: data}, nil
}

// MarshalCPUDef renders a CPU definition as YAML.
func MarshalCPUDef(def *cpu.Def) ([]byte, error) {
	return yaml.Marshal(def)
}

// MarshalCPUData renders raw CPUID data as YAML, skipping empty leaves.
func MarshalCPUData(data *cpu.Data) ([]byte, error) {
	file := cpuDataFile{Arch: data.Arch}
	for leaf := range data.X86.Iter() {
		file.Cpuid = append(file.Cpuid, cpumap.CpuidElement{
			Function: fmt.Sprintf("0x%08x", leaf.Function),
			Eax:      fmt.Sprintf("0x%08x", leaf.Eax),
			Ebx:      fmt.Sprintf("0x%08x", leaf.Ebx),
			Ecx:      fmt.Sprintf("0x%08x", leaf.Ecx),
			Edx:      fmt.Sprintf("0x%08x", leaf.Edx),
		})
	}
	return yaml.Marshal(file)
}
