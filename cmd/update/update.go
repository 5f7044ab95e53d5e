// Package update is a subcommand of the root command. It rewrites a
// guest CPU definition against a host according to the guest's mode.
package update

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

const cmdName = "update"

var examples = []string{
	fmt.Sprintf("  Resolve a custom guest against this host: $ %s %s --guest guest.yaml --live", common.AppName, cmdName),
	fmt.Sprintf("  Host-passthrough guest for a saved host:  $ %s %s --guest guest.yaml --host host.yaml --out resolved.yaml", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Rewrite a guest CPU definition against a host",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagGuest  string
	flagHost   string
	flagLive   bool
	flagOutput string
)

const (
	flagGuestName  = "guest"
	flagHostName   = "host"
	flagLiveName   = "live"
	flagOutputName = "out"
)

func init() {
	Cmd.Flags().StringVar(&flagGuest, flagGuestName, "", "guest CPU definition file")
	Cmd.Flags().StringVar(&flagHost, flagHostName, "", "host CPU definition file")
	Cmd.Flags().BoolVar(&flagLive, flagLiveName, false, "use the local host CPU as the host definition")
	Cmd.Flags().StringVar(&flagOutput, flagOutputName, "", "write the updated guest definition to this file instead of stdout")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagGuest == "" {
		return fmt.Errorf("the --%s flag is required", flagGuestName)
	}
	if flagLive == (flagHost != "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", flagHostName, flagLiveName)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	guest, err := common.ReadCPUDef(flagGuest)
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

	if err := cpu.Update(guest, host); err != nil {
		return err
	}
	slog.Info("updated guest CPU definition",
		slog.String("mode", guest.Mode.String()),
		slog.String("model", guest.Model),
		slog.String("match", guest.Match.String()))

	out, err := common.MarshalCPUDef(guest)
	if err != nil {
		return err
	}
	if flagOutput != "" {
		return os.WriteFile(flagOutput, out, 0644) // #nosec G306
	}
	fmt.Print(string(out))
	return nil
}
