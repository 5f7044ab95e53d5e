// Package serve is a subcommand of the root command. It exposes the
// compare and baseline operations over a small HTTP API with prometheus
// instrumentation. Requests and responses use the same YAML documents as
// the command line.
package serve

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"cpucompat/internal/common"
	"cpucompat/internal/cpu"
)

const cmdName = "serve"

var examples = []string{
	fmt.Sprintf("  Serve the compatibility API:       $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Serve on a specific address:       $ %s %s --listen 0.0.0.0:8765", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Serve compare and baseline over HTTP",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var flagListen string

const flagListenName = "listen"

func init() {
	Cmd.Flags().StringVar(&flagListen, flagListenName, "127.0.0.1:8765", "address to listen on")
}

const promMetricPrefix = "cpucompat_"

var requestsCounterVec = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: promMetricPrefix + "requests_total",
		Help: "Number of API requests served",
	},
	[]string{"operation", "outcome"},
)

const contentType = "application/yaml"

type compareRequest struct {
	Host  *cpu.Def `yaml:"host"`
	Guest *cpu.Def `yaml:"guest"`
}

type compareResponse struct {
	Result  string `yaml:"result"`
	Message string `yaml:"message,omitempty"`
}

type baselineRequest struct {
	Cpus   []*cpu.Def `yaml:"cpus"`
	Models []string   `yaml:"models,omitempty"`
}

func writeYAML(w http.ResponseWriter, status int, v any) {
	out, err := yaml.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeYAML(w, status, map[string]string{"error": err.Error()})
}

func readRequest(r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(body, v)
}

func handleCompare(w http.ResponseWriter, r *http.Request) {
	var request compareRequest
	if err := readRequest(r, &request); err != nil {
		requestsCounterVec.WithLabelValues("compare", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if request.Host == nil || request.Guest == nil {
		requestsCounterVec.WithLabelValues("compare", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("both host and guest CPU definitions are required"))
		return
	}
	request.Host.Type = cpu.TypeHost
	request.Guest.Type = cpu.TypeGuest
	result, _, message, err := cpu.GuestData(request.Host, request.Guest)
	if err != nil {
		requestsCounterVec.WithLabelValues("compare", "error").Inc()
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	requestsCounterVec.WithLabelValues("compare", result.String()).Inc()
	writeYAML(w, http.StatusOK, compareResponse{Result: result.String(), Message: message})
}

func handleBaseline(w http.ResponseWriter, r *http.Request) {
	var request baselineRequest
	if err := readRequest(r, &request); err != nil {
		requestsCounterVec.WithLabelValues("baseline", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(request.Cpus) == 0 {
		requestsCounterVec.WithLabelValues("baseline", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, fmt.Errorf("at least one CPU definition is required"))
		return
	}
	for _, def := range request.Cpus {
		def.Type = cpu.TypeHost
	}
	result, err := cpu.Baseline(request.Cpus, request.Models, 0)
	if err != nil {
		requestsCounterVec.WithLabelValues("baseline", "error").Inc()
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	requestsCounterVec.WithLabelValues("baseline", "ok").Inc()
	writeYAML(w, http.StatusOK, result)
}

func runCmd(cmd *cobra.Command, args []string) error {
	if err := prometheus.Register(requestsCounterVec); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("Failed to register Prometheus metric", slog.String("error", err.Error()))
			return err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/compare", handleCompare)
	mux.HandleFunc("POST /v1/baseline", handleBaseline)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              flagListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("serving compatibility API", slog.String("address", flagListen))
	fmt.Printf("Serving on http://%s (endpoints: /v1/compare, /v1/baseline, /metrics)\n", flagListen)
	return server.ListenAndServe()
}
