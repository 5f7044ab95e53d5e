package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"path/filepath"

	"cpucompat/internal/report"
	"cpucompat/internal/table"
)

// WriteReport renders the table values in the requested format. Text and
// json reports go to stdout; xlsx reports are written to a file in the
// output directory and the path is printed.
func WriteReport(appCtx AppContext, format string, baseName string, allTableValues []table.TableValues) error {
	out, err := report.Create(format, allTableValues)
	if err != nil {
		return err
	}
	if format == report.FormatXlsx {
		reportPath := filepath.Join(appCtx.OutputDir, fmt.Sprintf("%s_%s.%s", baseName, appCtx.Timestamp, format))
		if err := os.WriteFile(reportPath, out, 0644); err != nil { // #nosec G306
			return err
		}
		fmt.Println(reportPath)
		return nil
	}
	fmt.Print(string(out))
	return nil
}
