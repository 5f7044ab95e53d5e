package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"

	"cpucompat/internal/cpu"
)

// updateCustom resolves the guest's optional features against the host:
// features the host provides become required, the rest become disabled.
// A minimum-match guest is additionally rewritten to an exact-match one
// by requiring every host capability beyond the guest's own footprint.
func updateCustom(guest, host *cpu.Def) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	hostModel, err := modelFromCPU(host, catalog, cpu.PolicyRequire)
	if err != nil {
		return err
	}

	for i := range guest.Features {
		if guest.Features[i].Policy != cpu.PolicyOptional {
			continue
		}
		feature := catalog.FindFeature(guest.Features[i].Name)
		if feature == nil {
			return fmt.Errorf("unknown CPU feature %s", guest.Features[i].Name)
		}
		if hostModel.data.Covers(feature.Data) {
			guest.Features[i].Policy = cpu.PolicyRequire
		} else {
			guest.Features[i].Policy = cpu.PolicyDisable
		}
	}

	if guest.Match == cpu.MatchMinimum {
		guest.Match = cpu.MatchExact
		if err := modelSubtractCPU(hostModel, guest, catalog); err != nil {
			return err
		}
		if err := dataToFeatures(guest, cpu.PolicyRequire, hostModel.data, catalog); err != nil {
			return err
		}
	}

	return nil
}

// updateHostModel replaces the guest's model with the host's while
// reapplying the guest's own feature customizations on top.
func updateHostModel(guest, host *cpu.Def) error {
	guest.Match = cpu.MatchExact

	if len(guest.Features) == 0 {
		guest.CopyModel(host, true)
		return nil
	}

	saved := guest.Copy()
	guest.CopyModel(host, true)
	for i := range saved.Features {
		guest.UpdateFeature(saved.Features[i].Name, saved.Features[i].Policy)
	}

	return nil
}

// update rewrites the guest definition against the host according to the
// guest's mode.
func update(guest, host *cpu.Def) error {
	switch guest.Mode {
	case cpu.ModeCustom:
		return updateCustom(guest, host)

	case cpu.ModeHostModel:
		return updateHostModel(guest, host)

	case cpu.ModeHostPassthrough:
		guest.Match = cpu.MatchMinimum
		guest.CopyModel(host, true)
		return nil
	}

	return fmt.Errorf("unexpected CPU mode: %d", guest.Mode)
}
