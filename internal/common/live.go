package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"

	"cpucompat/internal/cpu"
)

// LiveHostData measures the CPUID data of the local processor.
func LiveHostData() (*cpu.Data, error) {
	return cpu.NodeData(cpu.ArchX86_64)
}

// LiveHostDef measures the local processor and decodes it into a
// host-type CPU definition.
func LiveHostDef() (*cpu.Def, error) {
	data, err := LiveHostData()
	if err != nil {
		return nil, err
	}
	def := &cpu.Def{Type: cpu.TypeHost, Arch: cpu.ArchX86_64}
	if err := cpu.Decode(def, data, nil, "", 0); err != nil {
		return nil, err
	}
	slog.Debug("decoded local host CPU",
		slog.String("model", def.Model),
		slog.String("vendor", def.Vendor),
		slog.Int("features", len(def.Features)))
	return def, nil
}
