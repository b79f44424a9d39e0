/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package server is the http surface of the etl agent: metrics exposition and a few operational apis.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/traas-stack/holoinsight-etl/pkg/appconfig"
	"github.com/traas-stack/holoinsight-etl/pkg/logger"
	"github.com/traas-stack/holoinsight-etl/pkg/metrics"
	"github.com/traas-stack/holoinsight-etl/pkg/pipeline"
	"go.uber.org/zap"
)

type (
	HttpServerComponent struct {
		addr   string
		mux    *http.ServeMux
		server *http.Server

		usages   map[string][]string
		usagesMu sync.RWMutex
	}
)

// NewHttpServerComponent builds the server listening on addr and registers every api.
func NewHttpServerComponent(addr string, m *metrics.Metrics, set *pipeline.Set) *HttpServerComponent {
	h := &HttpServerComponent{
		addr:   addr,
		mux:    http.NewServeMux(),
		usages: make(map[string][]string),
	}

	h.mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	h.addUsage("/metrics")
	logger.RegisterHttpHandler(h)
	appconfig.RegisterHttpHandler(h)
	h.HandleFunc("/api/pipelines", pipelinesHandler(set))
	h.mux.HandleFunc("/", h.printHelp)
	h.server = &http.Server{Handler: h.mux}
	return h
}

// HandleFunc registers handler for pattern and lists it in the help page.
func (h *HttpServerComponent) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	h.RegisterApiHandleFunc(pattern, handler)
}

func (h *HttpServerComponent) RegisterApiHandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request), additionalUsages ...string) {
	h.usagesMu.Lock()
	defer h.usagesMu.Unlock()
	if _, exist := h.usages[pattern]; exist {
		return
	}
	h.usages[pattern] = additionalUsages
	h.mux.HandleFunc(pattern, handler)
}

func (h *HttpServerComponent) addUsage(pattern string, usages ...string) {
	h.usagesMu.Lock()
	h.usages[pattern] = usages
	h.usagesMu.Unlock()
}

func (h *HttpServerComponent) Handler() http.Handler {
	return h.mux
}

// Run serves until Stop is called. A server closed by Stop is not an error.
func (h *HttpServerComponent) Run() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	return h.Serve(ln)
}

// Serve accepts connections on ln. Once Stop was called it returns immediately.
func (h *HttpServerComponent) Serve(ln net.Listener) error {
	logger.Infoz("[http] start http server", zap.String("addr", ln.Addr().String()))
	if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		logger.Errorz("[http] listen and serve error", zap.String("addr", h.addr), zap.Error(err))
		return err
	}
	logger.Infoz("[http] server closed", zap.String("addr", h.addr))
	return nil
}

// Stop shuts the server down gracefully, closing remaining connections when ctx expires.
func (h *HttpServerComponent) Stop(ctx context.Context) {
	if err := h.server.Shutdown(ctx); err != nil {
		logger.Warnz("[http] graceful shutdown error", zap.Error(err))
		h.server.Close()
	}
}

func (h *HttpServerComponent) buildHelps() string {
	h.usagesMu.RLock()
	defer h.usagesMu.RUnlock()

	var urls []string
	for k := range h.usages {
		urls = append(urls, k)
	}
	sort.Strings(urls)

	var sb strings.Builder
	sb.WriteString("Some help msg for holoinsight-etl:\n")
	for _, k := range urls {
		sb.WriteString(fmt.Sprintf("%-25s%s\n", k, "curl 127.0.0.1"+h.port()+k))
		for _, u := range h.usages[k] {
			if u != "" {
				sb.WriteString(strings.Repeat(" ", 25) + u + "\n")
			}
		}
	}
	return sb.String()
}

func (h *HttpServerComponent) port() string {
	if i := strings.LastIndex(h.addr, ":"); i >= 0 {
		return h.addr[i:]
	}
	return ""
}

func (h *HttpServerComponent) printHelp(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte(h.buildHelps()))
}
