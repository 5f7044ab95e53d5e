// Package compare is a subcommand of the root command. It compares a
// guest CPU definition with a host CPU and optionally synthesizes the
// guest CPUID data.
package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
	"cpucompat/internal/report"
	"cpucompat/internal/table"
)

const cmdName = "compare"

var examples = []string{
	fmt.Sprintf("  Compare a guest CPU with this host:   $ %s %s --cpu guest.yaml --live", common.AppName, cmdName),
	fmt.Sprintf("  Compare two CPU definitions:          $ %s %s --cpu guest.yaml --host host.yaml", common.AppName, cmdName),
	fmt.Sprintf("  Also synthesize the guest CPUID data: $ %s %s --cpu guest.yaml --live --guest-data guest_data.yaml", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Compare a guest CPU definition with a host CPU",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagCpu       string
	flagHost      string
	flagLive      bool
	flagGuestData string
	flagFormat    string
)

const (
	flagCpuName       = "cpu"
	flagHostName      = "host"
	flagLiveName      = "live"
	flagGuestDataName = "guest-data"
	flagFormatName    = "format"
)

func init() {
	Cmd.Flags().StringVar(&flagCpu, flagCpuName, "", "guest CPU definition file")
	Cmd.Flags().StringVar(&flagHost, flagHostName, "", "host CPU definition file")
	Cmd.Flags().BoolVar(&flagLive, flagLiveName, false, "use the local host CPU as the host definition")
	Cmd.Flags().StringVar(&flagGuestData, flagGuestDataName, "", "write synthesized guest CPUID data to this file")
	Cmd.Flags().StringVar(&flagFormat, flagFormatName, report.FormatTxt, fmt.Sprintf("report format, one of: %s", strings.Join(report.FormatOptions, ", ")))
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagCpu == "" {
		return fmt.Errorf("the --%s flag is required", flagCpuName)
	}
	if flagLive == (flagHost != "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", flagHostName, flagLiveName)
	}
	if !slices.Contains(report.FormatOptions, flagFormat) {
		return fmt.Errorf("format must be one of: %s", strings.Join(report.FormatOptions, ", "))
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appCtx := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)

	guest, err := common.ReadCPUDef(flagCpu)
	if err != nil {
		return err
	}
	guest.Type = cpu.TypeGuest
	var host *cpu.Def
	if flagLive {
		host, err = common.LiveHostDef()
	} else {
		host, err = common.ReadCPUDef(flagHost)
	}
	if err != nil {
		return err
	}
	host.Type = cpu.TypeHost

	result, guestData, message, err := cpu.GuestData(host, guest)
	if err != nil {
		return err
	}
	slog.Info("compared CPUs",
		slog.String("host", host.Model),
		slog.String("guest", guest.Model),
		slog.String("result", result.String()))

	if flagGuestData != "" && guestData != nil {
		out, err := common.MarshalCPUData(guestData)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flagGuestData, out, 0644); err != nil { // #nosec G306
			return err
		}
	}

	tableValues := table.TableValues{
		TableDefinition: table.TableDefinition{Name: "CPU Comparison"},
		Fields: []table.Field{
			{Name: "Host Model", Values: []string{host.Model}},
			{Name: "Guest Model", Values: []string{guest.Model}},
			{Name: "Result", Values: []string{result.String()}},
			{Name: "Message", Values: []string{message}},
		},
	}
	return common.WriteReport(appCtx, flagFormat, common.AppName+"_"+cmdName, []table.TableValues{tableValues})
}
