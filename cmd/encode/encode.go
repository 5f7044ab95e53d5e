// Package encode is a subcommand of the root command. It renders a CPU
// definition as per-policy CPUID bit sets.
package encode

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
)

const cmdName = "encode"

var examples = []string{
	fmt.Sprintf("  All per-policy data for a guest CPU: $ %s %s --cpu guest.yaml", common.AppName, cmdName),
	fmt.Sprintf("  Required and forbidden bits only:    $ %s %s --cpu guest.yaml --policies require,forbid", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Render a CPU definition as per-policy CPUID bit sets",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagCpu      string
	flagArch     string
	flagPolicies []string
)

const (
	flagCpuName      = "cpu"
	flagArchName     = "arch"
	flagPoliciesName = "policies"
)

var allPolicies = []string{"force", "require", "optional", "disable", "forbid", "vendor"}

func init() {
	Cmd.Flags().StringVar(&flagCpu, flagCpuName, "", "CPU definition file")
	Cmd.Flags().StringVar(&flagArch, flagArchName, string(cpu.ArchX86_64), "CPU architecture of the encoded data")
	Cmd.Flags().StringSliceVar(&flagPolicies, flagPoliciesName, allPolicies, fmt.Sprintf("data sets to produce, from: %s", strings.Join(allPolicies, ", ")))
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagCpu == "" {
		return fmt.Errorf("the --%s flag is required", flagCpuName)
	}
	for _, policy := range flagPolicies {
		found := false
		for _, known := range allPolicies {
			if policy == known {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown policy %q, expected one of: %s", policy, strings.Join(allPolicies, ", "))
		}
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appCtx := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)

	def, err := common.ReadCPUDef(flagCpu)
	if err != nil {
		return err
	}

	var req cpu.EncodeRequest
	for _, policy := range flagPolicies {
		switch policy {
		case "force":
			req.Forced = true
		case "require":
			req.Required = true
		case "optional":
			req.Optional = true
		case "disable":
			req.Disabled = true
		case "forbid":
			req.Forbidden = true
		case "vendor":
			req.Vendor = true
		}
	}

	result, err := cpu.Encode(cpu.Arch(flagArch), def, req)
	if err != nil {
		return err
	}

	outputs := []struct {
		name string
		data *cpu.Data
	}{
		{"force", result.Forced},
		{"require", result.Required},
		{"optional", result.Optional},
		{"disable", result.Disabled},
		{"forbid", result.Forbidden},
		{"vendor", result.Vendor},
	}
	for _, output := range outputs {
		if output.data == nil {
			continue
		}
		out, err := common.MarshalCPUData(output.data)
		if err != nil {
			return err
		}
		outputPath := filepath.Join(appCtx.OutputDir, fmt.Sprintf("%s_%s_%s.yaml", common.AppName, cmdName, output.name))
		if err := os.WriteFile(outputPath, out, 0644); err != nil { // #nosec G306
			return err
		}
		fmt.Println(outputPath)
	}
	return nil
}
