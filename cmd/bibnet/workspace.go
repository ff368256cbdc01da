package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
	"github.com/matsen/bibnet/internal/datasource/builtin"
)

// workspace opens configured sources on first use and closes them at the end.
type workspace struct {
	root    string
	sources config.Sources
	factory *datasource.Factory
	open    map[string]datasource.Source
	metrics *http.Server
}

// workspaceRoot resolves the root from --workspace, the global settings or
// the current directory, in that order.
func workspaceRoot() (string, error) {
	if workspaceFlag != "" {
		return config.ExpandPath(workspaceFlag), nil
	}
	if settings.Workspace != "" {
		return settings.Workspace, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return cwd, nil
}

// mustOpenWorkspace finds the workspace and loads its sources, exits on error.
// The caller is responsible for calling Close() on the returned workspace.
func mustOpenWorkspace() *workspace {
	start, err := workspaceRoot()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	root, err := config.FindWorkspace(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	sources, err := config.LoadSources(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading sources: %v", err)
	}

	metrics := datasource.NewMetrics()
	ws := &workspace{
		root:    root,
		sources: sources,
		factory: builtin.NewFactory(datasource.Options{Logger: slog.Default(), Metrics: metrics}),
		open:    map[string]datasource.Source{},
	}
	if metricsAddr != "" {
		if err := ws.serveMetrics(metrics); err != nil {
			exitWithError(ExitError, "serving metrics: %v", err)
		}
	}
	return ws
}

// serveMetrics exposes the store counters on a private registry.
func (w *workspace) serveMetrics(m *datasource.Metrics) error {
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	w.metrics = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := w.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", metricsAddr, "error", err)
		}
	}()
	slog.Debug("serving metrics", "addr", metricsAddr)
	return nil
}

// source opens the named source once.
func (w *workspace) source(name string) (datasource.Source, error) {
	if src, ok := w.open[name]; ok {
		return src, nil
	}
	cfg, ok := w.sources[name]
	if !ok {
		return nil, fmt.Errorf("no source named %q (configured: %v)", name, w.sources.Names())
	}
	src, err := w.factory.Open(name, cfg)
	if err != nil {
		return nil, err
	}
	w.open[name] = src
	return src, nil
}

func (w *workspace) docs(name string) (datasource.DocSource, error) {
	src, err := w.source(name)
	if err != nil {
		return nil, err
	}
	s, ok := src.(datasource.DocSource)
	if !ok {
		return nil, datasource.Unsupported(src.Kind(), "documents")
	}
	return s, nil
}

func (w *workspace) graphs(name string) (datasource.GraphSource, error) {
	src, err := w.source(name)
	if err != nil {
		return nil, err
	}
	s, ok := src.(datasource.GraphSource)
	if !ok {
		return nil, datasource.Unsupported(src.Kind(), "graphs")
	}
	return s, nil
}

// Close closes every opened source; file-backed sources flush on close.
func (w *workspace) Close() error {
	names := make([]string, 0, len(w.open))
	for name := range w.open {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := w.open[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	if w.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.metrics.Shutdown(ctx)
	}
	return errors.Join(errs...)
}

// mustClose closes the workspace, exits on error.
func (w *workspace) mustClose() {
	if err := w.Close(); err != nil {
		exitWithError(ExitError, "%v", err)
	}
}
