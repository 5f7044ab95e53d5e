package cpux86

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"cpucompat/internal/cpu"
	"cpucompat/internal/cpuid"
)

// decode finds the catalog model that explains the raw CPUID data with
// the smallest residual feature list, honoring the hypervisor allow-list
// and the caller's preferred model.
func decode(def *cpu.Def, data *cpuid.Data, models []string, preferred string, flags uint32) error {
	if flags&^cpu.DecodeExpandFeatures != 0 {
		return fmt.Errorf("unsupported decode flags 0x%x", flags)
	}

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	allowed := mapset.NewThreadUnsafeSet(models...)

	var best *cpu.Def
	var bestData *cpuid.Data

	for _, candidate := range catalog.Models {
		if !allowed.IsEmpty() && !allowed.Contains(candidate.Name) {
			if preferred != "" && candidate.Name == preferred {
				if def.Fallback != cpu.FallbackAllow {
					return fmt.Errorf("CPU model %s is not supported by hypervisor", preferred)
				}
				slog.Warn("preferred CPU model not allowed by hypervisor; using closest supported model",
					slog.String("model", preferred))
			} else {
				slog.Debug("CPU model not allowed by hypervisor; ignoring",
					slog.String("model", candidate.Name))
			}
			continue
		}

		candidateDef, err := dataToCPU(data, candidate, catalog)
		if err != nil {
			return err
		}

		if candidate.Vendor != nil && candidateDef.Vendor != "" &&
			candidate.Vendor.Name != candidateDef.Vendor {
			slog.Debug("CPU vendor of model differs from data; ignoring",
				slog.String("model", candidate.Name),
				slog.String("modelVendor", candidate.Vendor.Name),
				slog.String("dataVendor", candidateDef.Vendor))
			continue
		}

		if def.Type == cpu.TypeHost {
			candidateDef.Type = cpu.TypeHost
			disabled := false
			for i := range candidateDef.Features {
				if candidateDef.Features[i].Policy == cpu.PolicyDisable {
					disabled = true
					break
				}
				candidateDef.Features[i].Policy = cpu.PolicyNone
			}
			if disabled {
				continue
			}
		}

		if preferred != "" && candidateDef.Model == preferred {
			best = candidateDef
			bestData = candidate.Data
			break
		}

		if best == nil || len(best.Features) > len(candidateDef.Features) {
			best = candidateDef
			bestData = candidate.Data
		}
	}

	if best == nil {
		return fmt.Errorf("Cannot find suitable CPU model for given data")
	}

	if flags&cpu.DecodeExpandFeatures != 0 {
		remaining := bestData.Copy()
		features, err := dataFromFeatures(best, catalog)
		if err != nil {
			return err
		}
		remaining.Subtract(features)
		if err := dataToFeatures(best, cpu.PolicyRequire, remaining, catalog); err != nil {
			return err
		}
	}

	def.Model = best.Model
	def.Vendor = best.Vendor
	def.Features = best.Features

	return nil
}
