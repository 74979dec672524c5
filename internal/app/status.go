package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mkobari/skmeterd/internal/ctxlog"
	"github.com/mkobari/skmeterd/internal/readings"
)

// statusServer serves /health and /status on the local status port.
type statusServer struct {
	httpServer *http.Server
}

// statusResponse is the /status JSON document.
type statusResponse struct {
	Version      string            `json:"version"`
	Connected    bool              `json:"connected"`
	Channel      string            `json:"channel,omitempty"`
	PanID        string            `json:"pan_id,omitempty"`
	Meter        string            `json:"meter,omitempty"`
	Latest       *readings.Reading `json:"latest,omitempty"`
	ReadingCount int               `json:"reading_count"`
}

// healthHandler answers liveness probes.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("health check endpoint hit", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler reports the session state and the latest reading.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:      Version,
		ReadingCount: a.log.Total(),
	}
	if cli := a.currentClient(); cli != nil {
		resp.Connected = cli.Joined()
		if pan, ok := cli.Pan(); ok {
			resp.Channel = fmt.Sprintf("%02X", pan.Channel)
			resp.PanID = fmt.Sprintf("%04X", pan.PanID)
		}
		if addr, ok := cli.MeterAddr(); ok {
			resp.Meter = addr.String()
		}
	}
	if latest, ok := a.log.Latest(); ok {
		resp.Latest = &latest
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.Error("status encoding failed", "error", err)
	}
}

// startStatusServer runs the HTTP server in the background.
func (a *App) startStatusServer(ctx context.Context, port int) *statusServer {
	logger := ctxlog.FromContext(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/status", a.statusHandler)

	addr := fmt.Sprintf(":%d", port)
	srv := &statusServer{
		httpServer: &http.Server{Addr: addr, Handler: mux},
	}

	go func() {
		logger.Info("status server starting", "address", fmt.Sprintf("http://localhost%s/status", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown; only
		// anything else is a real failure.
		if err := srv.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

// stop shuts the server down gracefully. It runs on the shutdown path, so
// it gets its own deadline instead of the (already canceled) run context.
func (s *statusServer) stop() error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
