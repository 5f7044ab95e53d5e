//go:build !amd64

package cpuid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "errors"

// Native is only available on processors with the CPUID instruction.
func Native() (*Data, error) {
	return nil, errors.New("CPUID instruction is not available on this architecture")
}
