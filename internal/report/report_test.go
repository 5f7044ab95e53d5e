package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"
	"strings"
	"testing"

	"cpucompat/internal/table"
)

func testTableValues() []table.TableValues {
	return []table.TableValues{
		{
			TableDefinition: table.TableDefinition{Name: "CPU Model"},
			Fields: []table.Field{
				{Name: "Model", Values: []string{"Nehalem"}},
				{Name: "Vendor", Values: []string{"Intel"}},
			},
		},
		{
			TableDefinition: table.TableDefinition{Name: "Residual Features", HasRows: true},
			Fields: []table.Field{
				{Name: "Feature", Values: []string{"avx", "aes"}},
				{Name: "Policy", Values: []string{"require", "require"}},
			},
		},
	}
}

func TestCreateTextReport(t *testing.T) {
	out, err := Create(FormatTxt, testTableValues())
	if err != nil {
		t.Fatal(err)
	}
	text := string(out)
	for _, want := range []string{"CPU Model", "Nehalem", "Feature", "avx"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text report is missing %q:\n%s", want, text)
		}
	}
}

func TestCreateJsonReport(t *testing.T) {
	out, err := Create(FormatJson, testTableValues())
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string][]map[string]string
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["CPU Model"][0]["Model"] != "Nehalem" {
		t.Fatalf("unexpected json report: %s", string(out))
	}
	if len(parsed["Residual Features"]) != 2 {
		t.Fatalf("expected two feature records: %s", string(out))
	}
}

func TestCreateXlsxReport(t *testing.T) {
	out, err := Create(FormatXlsx, testTableValues())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("empty xlsx report")
	}
}

func TestCreateRejectsRaggedFields(t *testing.T) {
	values := []table.TableValues{
		{
			TableDefinition: table.TableDefinition{Name: "Broken", HasRows: true},
			Fields: []table.Field{
				{Name: "A", Values: []string{"1", "2"}},
				{Name: "B", Values: []string{"1"}},
			},
		},
	}
	if _, err := Create(FormatTxt, values); err == nil {
		t.Fatal("expected an error for ragged field values")
	}
}
