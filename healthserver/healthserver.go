// Package healthserver exposes the tiny internal /healthz endpoint
// SPEC_FULL.md §4.15 adds on top of spec.md: an operator-facing liveness
// probe, not the out-of-scope public block-explorer API. It is built on
// gorilla/mux to match the rest of this pack's HTTP surfaces even though
// a single route barely needs a router.
package healthserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/5G-Cash/bulwark-explorer/logger"
)

var log = logger.Logger(logger.SubsystemTags.HLTH)

// Status is the liveness snapshot carversyncd reports. LastHeight and
// LastSyncedAt are updated by the sync loop after every committed
// block; Healthy turns false once a sync attempt has failed and stays
// false until a subsequent attempt succeeds.
type Status struct {
	Healthy      bool      `json:"healthy"`
	LastHeight   int64     `json:"last_height"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	LastError    string    `json:"last_error,omitempty"`
}

// Reporter is the concurrency-safe status box the sync loop writes to
// and the HTTP handler reads from.
type Reporter struct {
	status atomic.Value // Status
}

// NewReporter returns a Reporter starting in the unhealthy state: no
// sync attempt has completed yet.
func NewReporter() *Reporter {
	r := &Reporter{}
	r.status.Store(Status{Healthy: false})
	return r
}

// ReportSynced records a successful sync up to height.
func (r *Reporter) ReportSynced(height int64) {
	r.status.Store(Status{Healthy: true, LastHeight: height, LastSyncedAt: time.Now().UTC()})
}

// ReportError records a failed sync attempt, preserving the last
// successfully synced height.
func (r *Reporter) ReportError(err error) {
	prev := r.status.Load().(Status)
	prev.Healthy = false
	prev.LastError = err.Error()
	r.status.Store(prev)
}

func (r *Reporter) current() Status {
	return r.status.Load().(Status)
}

// Server serves the /healthz endpoint over listenAddr.
type Server struct {
	httpServer *http.Server
}

// New builds a Server bound to listenAddr, reporting from reporter.
func New(listenAddr string, reporter *Reporter) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := reporter.current()
		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Warnf("encoding health response: %s", err)
		}
	}).Methods(http.MethodGet)

	return &Server{httpServer: &http.Server{Addr: listenAddr, Handler: router}}
}

// Start runs the server in a background goroutine and returns at once,
// without waiting for the listener; a listen failure is only logged.
// Callers stop it via Shutdown.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("health server: %s", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
