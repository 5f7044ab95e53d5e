package serve

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	_ "cpucompat/internal/cpux86" // register the x86 driver
)

func TestHandleCompare(t *testing.T) {
	body := `
host:
  type: host
  arch: x86_64
  model: Nehalem
guest:
  type: guest
  arch: x86_64
  model: Nehalem
`
	req := httptest.NewRequest(http.MethodPost, "/v1/compare", strings.NewReader(body))
	w := httptest.NewRecorder()
	handleCompare(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var response compareResponse
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "identical", response.Result)
}

func TestHandleCompareMissingDefs(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/compare", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	handleCompare(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBaseline(t *testing.T) {
	body := `
cpus:
  - type: host
    arch: x86_64
    model: Nehalem
    vendor: Intel
  - type: host
    arch: x86_64
    model: Westmere
    vendor: Intel
`
	req := httptest.NewRequest(http.MethodPost, "/v1/baseline", strings.NewReader(body))
	w := httptest.NewRecorder()
	handleBaseline(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	text := w.Body.String()
	assert.Contains(t, text, "Nehalem")
	assert.Contains(t, text, "Intel")
}
