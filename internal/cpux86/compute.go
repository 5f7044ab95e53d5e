package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"slices"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpumap"
)

// incompatible records an incompatibility outcome: the message names the
// offending features so callers can present them. It is a normal result,
// not an error.
func incompatible(catalog *cpumap.Map, what string, m *model) (cpu.CompareResult, string) {
	names := featureNames(catalog, ", ", m.data)
	message := fmt.Sprintf("%s: %s", what, names)
	slog.Debug("CPUs incompatible", slog.String("reason", message))
	return cpu.CompareIncompatible, message
}

// compute classifies the compatibility of the requested guest CPU with
// the host CPU and, when wantGuest is set, synthesizes the CPUID data
// the guest should see.
func compute(host, guest *cpu.Def, wantGuest bool) (cpu.CompareResult, *cpu.Data, string, error) {
	var arch cpu.Arch
	if guest.Arch != cpu.ArchNone {
		if !slices.Contains(archs, guest.Arch) {
			slog.Debug("CPU arch does not match host arch", slog.String("arch", string(guest.Arch)))
			message := fmt.Sprintf("CPU arch %s does not match host arch", guest.Arch)
			return cpu.CompareIncompatible, nil, message, nil
		}
		arch = guest.Arch
	} else {
		arch = host.Arch
	}

	if guest.Vendor != "" && host.Vendor != guest.Vendor {
		slog.Debug("host CPU vendor does not match required vendor",
			slog.String("vendor", guest.Vendor))
		message := fmt.Sprintf("host CPU vendor does not match required CPU vendor %s", guest.Vendor)
		return cpu.CompareIncompatible, nil, message, nil
	}

	catalog, err := loadCatalog()
	if err != nil {
		return cpu.CompareError, nil, "", err
	}

	hostModel, err := modelFromCPU(host, catalog, cpu.PolicyRequire)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}
	guestForce, err := modelFromCPU(guest, catalog, cpu.PolicyForce)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}
	guestRequire, err := modelFromCPU(guest, catalog, cpu.PolicyRequire)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}
	guestOptional, err := modelFromCPU(guest, catalog, cpu.PolicyOptional)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}
	guestDisable, err := modelFromCPU(guest, catalog, cpu.PolicyDisable)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}
	guestForbid, err := modelFromCPU(guest, catalog, cpu.PolicyForbid)
	if err != nil {
		return cpu.CompareError, nil, "", err
	}

	guestForbid.data.Intersect(hostModel.data)
	if !guestForbid.data.IsEmpty() {
		result, message := incompatible(catalog, "Host CPU provides forbidden features", guestForbid)
		return result, nil, message, nil
	}

	// Features inherited from the base model that were explicitly
	// forced, disabled, or made optional are no longer required from
	// the host.
	guestRequire.data.Subtract(guestForce.data)
	guestRequire.data.Subtract(guestOptional.data)
	guestRequire.data.Subtract(guestDisable.data)

	if relation := modelCompare(hostModel, guestRequire); relation == subset || relation == unrelated {
		guestRequire.data.Subtract(hostModel.data)
		result, message := incompatible(catalog, "Host CPU does not provide required features", guestRequire)
		return result, nil, message, nil
	}

	ret := cpu.CompareIdentical

	diff := hostModel.copy()
	diff.data.Subtract(guestOptional.data)
	diff.data.Subtract(guestRequire.data)
	diff.data.Subtract(guestDisable.data)
	diff.data.Subtract(guestForce.data)

	if !diff.data.IsEmpty() {
		ret = cpu.CompareSuperset
	}

	if ret == cpu.CompareSuperset &&
		guest.Type == cpu.TypeGuest &&
		guest.Match == cpu.MatchStrict {
		result, message := incompatible(catalog,
			"Host CPU does not strictly match guest CPU: Extra features", diff)
		return result, nil, message, nil
	}

	var guestData *cpu.Data
	if wantGuest {
		guestModel := hostModel.copy()
		if guest.Type == cpu.TypeGuest && guest.Match == cpu.MatchExact {
			guestModel.data.Subtract(diff.data)
		}
		guestModel.data.Union(guestForce.data)
		guestModel.data.Subtract(guestDisable.data)
		guestData = &cpu.Data{Arch: arch, X86: guestModel.data}
	}

	return ret, guestData, "", nil
}
