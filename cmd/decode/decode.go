// Package decode is a subcommand of the root command. It names the CPU
// model that best matches raw CPUID data and lists the residual
// features.
package decode

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"math/bits"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
	"cpucompat/internal/report"
	"cpucompat/internal/table"
)

const cmdName = "decode"

var examples = []string{
	fmt.Sprintf("  Name the CPU model of this host:   $ %s %s --live", common.AppName, cmdName),
	fmt.Sprintf("  Decode captured CPUID data:        $ %s %s --data host_data.yaml", common.AppName, cmdName),
	fmt.Sprintf("  Restrict to hypervisor models:     $ %s %s --live --models Nehalem,Westmere --preferred Nehalem", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Name the CPU model matching raw CPUID data",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagData           string
	flagLive           bool
	flagModels         []string
	flagPreferred      string
	flagExpandFeatures bool
	flagHostType       bool
	flagFormat         string
)

const (
	flagDataName           = "data"
	flagLiveName           = "live"
	flagModelsName         = "models"
	flagPreferredName      = "preferred"
	flagExpandFeaturesName = "expand-features"
	flagHostTypeName       = "host"
	flagFormatName         = "format"
)

func init() {
	Cmd.Flags().StringVar(&flagData, flagDataName, "", "raw CPUID data file")
	Cmd.Flags().BoolVar(&flagLive, flagLiveName, false, "read CPUID data from the local host CPU")
	Cmd.Flags().StringSliceVar(&flagModels, flagModelsName, nil, "restrict the result to these models")
	Cmd.Flags().StringVar(&flagPreferred, flagPreferredName, "", "prefer this model over the closest match")
	Cmd.Flags().BoolVar(&flagExpandFeatures, flagExpandFeaturesName, false, "render the complete feature list explicitly")
	Cmd.Flags().BoolVar(&flagHostType, flagHostTypeName, false, "decode as a host CPU description instead of a guest requirement")
	Cmd.Flags().StringVar(&flagFormat, flagFormatName, report.FormatTxt, fmt.Sprintf("report format, one of: %s", strings.Join(report.FormatOptions, ", ")))
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagLive == (flagData != "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", flagDataName, flagLiveName)
	}
	if !slices.Contains(report.FormatOptions, flagFormat) {
		return fmt.Errorf("format must be one of: %s", strings.Join(report.FormatOptions, ", "))
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appCtx := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)

	var data *cpu.Data
	var err error
	if flagLive {
		data, err = common.LiveHostData()
	} else {
		data, err = common.ReadCPUData(flagData)
	}
	if err != nil {
		return err
	}

	def := &cpu.Def{Arch: data.Arch}
	if flagHostType {
		def.Type = cpu.TypeHost
	} else {
		def.Type = cpu.TypeGuest
	}
	var flags uint32
	if flagExpandFeatures {
		flags |= cpu.DecodeExpandFeatures
	}
	if err := cpu.Decode(def, data, flagModels, flagPreferred, flags); err != nil {
		return err
	}
	slog.Info("decoded CPUID data",
		slog.String("model", def.Model),
		slog.String("vendor", def.Vendor),
		slog.Int("features", len(def.Features)))

	printer := message.NewPrinter(language.English)
	summary := table.TableValues{
		TableDefinition: table.TableDefinition{Name: "CPU Model"},
		Fields: []table.Field{
			{Name: "Model", Values: []string{def.Model}},
			{Name: "Vendor", Values: []string{def.Vendor}},
			{Name: "Feature Bits", Values: []string{printer.Sprintf("%d", featureBits(data))}},
		},
	}
	features := table.TableValues{
		TableDefinition: table.TableDefinition{
			Name:        "Residual Features",
			HasRows:     true,
			NoDataFound: "The model explains all feature bits.",
		},
		Fields: []table.Field{
			{Name: "Feature", Values: nil},
			{Name: "Policy", Values: nil},
		},
	}
	for i := range def.Features {
		features.Fields[0].Values = append(features.Fields[0].Values, def.Features[i].Name)
		features.Fields[1].Values = append(features.Fields[1].Values, def.Features[i].Policy.String())
	}

	return common.WriteReport(appCtx, flagFormat, common.AppName+"_"+cmdName,
		[]table.TableValues{summary, features})
}

// featureBits counts the bits set across all stored CPUID leaves.
func featureBits(data *cpu.Data) int {
	count := 0
	for leaf := range data.X86.Iter() {
		count += bits.OnesCount32(leaf.Eax) +
			bits.OnesCount32(leaf.Ebx) +
			bits.OnesCount32(leaf.Ecx) +
			bits.OnesCount32(leaf.Edx)
	}
	return count
}
