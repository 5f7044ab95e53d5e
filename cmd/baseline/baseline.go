// Package baseline is a subcommand of the root command. It computes a
// CPU definition that can run on every host in a pool.
package baseline

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
)

const cmdName = "baseline"

var examples = []string{
	fmt.Sprintf("  Baseline CPU for a pool of hosts:     $ %s %s --cpus hosts.yaml", common.AppName, cmdName),
	fmt.Sprintf("  With an explicit feature list:        $ %s %s --cpus hosts.yaml --expand-features", common.AppName, cmdName),
	fmt.Sprintf("  Restricted to hypervisor models:      $ %s %s --cpus hosts.yaml --models Nehalem,Westmere", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Compute a common-denominator CPU for a pool of hosts",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagCpus           string
	flagModels         []string
	flagExpandFeatures bool
	flagOutput         string
)

const (
	flagCpusName           = "cpus"
	flagModelsName         = "models"
	flagExpandFeaturesName = "expand-features"
	flagOutputName         = "out"
)

func init() {
	Cmd.Flags().StringVar(&flagCpus, flagCpusName, "", "file with the host CPU definitions")
	Cmd.Flags().StringSliceVar(&flagModels, flagModelsName, nil, "restrict the result to these models")
	Cmd.Flags().BoolVar(&flagExpandFeatures, flagExpandFeaturesName, false, "render the complete feature list explicitly")
	Cmd.Flags().StringVar(&flagOutput, flagOutputName, "", "write the baseline CPU definition to this file instead of stdout")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagCpus == "" {
		return fmt.Errorf("the --%s flag is required", flagCpusName)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	cpus, err := common.ReadCPUDefs(flagCpus)
	if err != nil {
		return err
	}
	if len(cpus) == 0 {
		return fmt.Errorf("no CPU definitions found in %s", flagCpus)
	}
	for _, def := range cpus {
		def.Type = cpu.TypeHost
	}

	var flags uint32
	if flagExpandFeatures {
		flags |= cpu.DecodeExpandFeatures
	}
	result, err := cpu.Baseline(cpus, flagModels, flags)
	if err != nil {
		return err
	}
	slog.Info("computed baseline CPU",
		slog.Int("cpus", len(cpus)),
		slog.String("model", result.Model),
		slog.String("vendor", result.Vendor))

	out, err := common.MarshalCPUDef(result)
	if err != nil {
		return err
	}
	if flagOutput != "" {
		return os.WriteFile(flagOutput, out, 0644) // #nosec G306
	}
	fmt.Print(string(out))
	return nil
}
