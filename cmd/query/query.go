// Package query is a subcommand of the root command. It checks for
// individual CPU features and evaluates boolean expressions over the
// feature set of raw CPUID data.
package query

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
	"cpucompat/internal/cpumap"
)

const cmdName = "query"

var examples = []string{
	fmt.Sprintf("  Check a feature on this host:      $ %s %s --feature vmx --live", common.AppName, cmdName),
	fmt.Sprintf("  Evaluate a feature expression:     $ %s %s --expr 'vmx && sse4_2 && !svm' --live", common.AppName, cmdName),
	fmt.Sprintf("  Query captured CPUID data:         $ %s %s --feature aes --data host_data.yaml", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Query the feature set of a CPU",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagFeature string
	flagExpr    string
	flagData    string
	flagLive    bool
)

const (
	flagFeatureName = "feature"
	flagExprName    = "expr"
	flagDataName    = "data"
	flagLiveName    = "live"
)

func init() {
	Cmd.Flags().StringVar(&flagFeature, flagFeatureName, "", "name of the CPU feature to check")
	Cmd.Flags().StringVar(&flagExpr, flagExprName, "", "boolean expression over feature names, e.g., 'vmx && sse4_2'")
	Cmd.Flags().StringVar(&flagData, flagDataName, "", "raw CPUID data file")
	Cmd.Flags().BoolVar(&flagLive, flagLiveName, false, "read CPUID data from the local host CPU")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if (flagFeature == "") == (flagExpr == "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", flagFeatureName, flagExprName)
	}
	if flagLive == (flagData != "") {
		return fmt.Errorf("exactly one of --%s and --%s is required", flagDataName, flagLiveName)
	}
	return nil
}

// expressionName maps a catalog feature name to a valid expression
// variable name, e.g., sse4.2 becomes sse4_2.
func expressionName(feature string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return '_'
		}
		return r
	}, feature)
}

func runCmd(cmd *cobra.Command, args []string) error {
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

	if flagFeature != "" {
		present, err := cpu.HasFeature(data, flagFeature)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %t\n", flagFeature, present)
		return nil
	}

	catalog, err := cpumap.LoadDefault()
	if err != nil {
		return err
	}
	present := mapset.NewThreadUnsafeSet[string]()
	parameters := make(map[string]any)
	for _, feature := range catalog.Features {
		has := data.X86.Covers(feature.Data)
		parameters[expressionName(feature.Name)] = has
		if has {
			present.Add(feature.Name)
		}
	}
	slog.Debug("evaluating feature expression",
		slog.String("expression", flagExpr),
		slog.Int("features", present.Cardinality()))

	expression, err := govaluate.NewEvaluableExpression(flagExpr)
	if err != nil {
		return fmt.Errorf("invalid expression %q: %v", flagExpr, err)
	}
	result, err := expression.Evaluate(parameters)
	if err != nil {
		return fmt.Errorf("cannot evaluate expression %q: %v", flagExpr, err)
	}
	fmt.Printf("%v\n", result)
	return nil
}
