package app

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vk/propgrid/internal/database"
	"github.com/vk/propgrid/internal/metrics"
)

// healthHandler reports liveness; it always answers OK while the process runs.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// startDebugServer initializes and runs the debug HTTP server, exposing
// /health and the engine's /metrics.
func (a *App) startDebugServer(port int, db *database.Database) {
	a.logger.Debug("Configuring debug server.")

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(db)); err != nil {
		a.logger.Error("Failed to register metrics collector", "error", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)

	go func() {
		a.logger.Info("🩺 Debug server starting", "address", fmt.Sprintf("http://localhost%s", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			a.logger.Error("Debug server failed", "error", err)
		}
	}()
}
