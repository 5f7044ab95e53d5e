/*
Package cpu defines the generic CPU definition record shared by the
compatibility engine and its callers, and dispatches operations to the
architecture driver that understands the CPU's architecture.
*/
package cpu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	"cpucompat/internal/cpuid"
)

// CompareResult classifies how a guest CPU relates to a host CPU.
type CompareResult int

const (
	CompareError        CompareResult = -1
	CompareIncompatible CompareResult = 0
	CompareIdentical    CompareResult = 1
	CompareSuperset     CompareResult = 2
)

func (r CompareResult) String() string {
	switch r {
	case CompareIncompatible:
		return "incompatible"
	case CompareIdentical:
		return "identical"
	case CompareSuperset:
		return "superset"
	}
	return "error"
}

// DecodeExpandFeatures requests that the decoder render the complete
// feature list explicitly instead of relying on the model definition.
const DecodeExpandFeatures uint32 = 1 << 0

// Data carries raw CPUID data together with the architecture it was
// measured on or synthesized for.
type Data struct {
	Arch Arch
	X86  *cpuid.Data
}

// EncodeRequest selects which per-policy data sets Encode produces.
type EncodeRequest struct {
	Forced    bool
	Required  bool
	Optional  bool
	Disabled  bool
	Forbidden bool
	Vendor    bool
}

// EncodeResult holds the data sets requested via EncodeRequest; fields
// that were not requested are nil.
type EncodeResult struct {
	Forced    *Data
	Required  *Data
	Optional  *Data
	Disabled  *Data
	Forbidden *Data
	Vendor    *Data
}

// ArchDriver is the contract an architecture-specific compatibility
// engine implements. All state lives in the arguments; drivers load
// their catalog per call and keep nothing between calls.
type ArchDriver interface {
	Name() string
	Archs() []Arch

	Compare(host, cpu *Def) (CompareResult, error)
	Decode(cpu *Def, data *Data, models []string, preferred string, flags uint32) error
	Encode(arch Arch, cpu *Def, req EncodeRequest) (EncodeResult, error)
	NodeData(arch Arch) (*Data, error)
	GuestData(host, cpu *Def) (CompareResult, *Data, string, error)
	Baseline(cpus []*Def, models []string, flags uint32) (*Def, error)
	Update(guest, host *Def) error
	HasFeature(data *Data, name string) (bool, error)
}

var drivers []ArchDriver

// Register adds a driver to the registry. Called from driver package
// init functions.
func Register(driver ArchDriver) {
	drivers = append(drivers, driver)
}

func driverForArch(arch Arch) (ArchDriver, error) {
	for _, driver := range drivers {
		for _, a := range driver.Archs() {
			if a == arch {
				return driver, nil
			}
		}
	}
	return nil, fmt.Errorf("no CPU driver for architecture %q", arch)
}

// Compare checks whether the requested guest CPU is compatible with the
// host CPU, dispatching on the host architecture.
func Compare(host, guest *Def) (CompareResult, error) {
	driver, err := driverForArch(host.Arch)
	if err != nil {
		return CompareError, err
	}
	slog.Debug("comparing CPUs",
		slog.String("driver", driver.Name()),
		slog.String("host", host.Model),
		slog.String("guest", guest.Model))
	return driver.Compare(host, guest)
}

// Decode fills cpu with the closest catalog model matching data plus the
// residual features.
func Decode(cpu *Def, data *Data, models []string, preferred string, flags uint32) error {
	driver, err := driverForArch(data.Arch)
	if err != nil {
		return err
	}
	return driver.Decode(cpu, data, models, preferred, flags)
}

// Encode produces raw CPUID data per feature policy for the given CPU.
func Encode(arch Arch, cpu *Def, req EncodeRequest) (EncodeResult, error) {
	driver, err := driverForArch(arch)
	if err != nil {
		return EncodeResult{}, err
	}
	return driver.Encode(arch, cpu, req)
}

// NodeData measures the CPUID data of the processor the program is
// running on.
func NodeData(arch Arch) (*Data, error) {
	driver, err := driverForArch(arch)
	if err != nil {
		return nil, err
	}
	return driver.NodeData(arch)
}

// GuestData compares guest against host and, on a compatible outcome,
// synthesizes the CPUID data the guest should be presented with. The
// returned message explains incompatible outcomes; it is not an error.
func GuestData(host, guest *Def) (CompareResult, *Data, string, error) {
	driver, err := driverForArch(host.Arch)
	if err != nil {
		return CompareError, nil, "", err
	}
	return driver.GuestData(host, guest)
}

// Baseline computes a CPU definition that can run on every host in cpus.
func Baseline(cpus []*Def, models []string, flags uint32) (*Def, error) {
	if len(cpus) == 0 {
		return nil, fmt.Errorf("no CPUs given")
	}
	driver, err := driverForArch(cpus[0].Arch)
	if err != nil {
		return nil, err
	}
	return driver.Baseline(cpus, models, flags)
}

// Update adjusts the guest definition against the host according to the
// guest's mode.
func Update(guest, host *Def) error {
	driver, err := driverForArch(host.Arch)
	if err != nil {
		return err
	}
	return driver.Update(guest, host)
}

// HasFeature reports whether the named catalog feature is fully present
// in data.
func HasFeature(data *Data, name string) (bool, error) {
	driver, err := driverForArch(data.Arch)
	if err != nil {
		return false, err
	}
	return driver.HasFeature(data, name)
}
