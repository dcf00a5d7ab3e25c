package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vk/assetforge/internal/graph"
	"github.com/vk/assetforge/internal/session"
)

// progressTracker hands the status endpoint a live session without racing
// App.Run: the session only exists once the run starts.
type progressTracker struct {
	mu   sync.Mutex
	sess *session.Session
}

func (p *progressTracker) track(sess *session.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sess = sess
}

func (p *progressTracker) counts() (graph.Counts, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return graph.Counts{}, false
	}
	return p.sess.Progress(), true
}

// statusHandler reports live node-state counts as JSON.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)

	counts, running := a.progress.counts()
	w.Header().Set("Content-Type", "application/json")
	if !running {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(counts); err != nil {
		a.logger.Error("Failed to encode status response", "error", err)
	}
}

// startStatusServer runs the status HTTP server in the background and returns
// a function that shuts it down gracefully.
func (a *App) startStatusServer(port int) func() {
	a.logger.Debug("Configuring status server.")
	mux := http.NewServeMux()
	mux.HandleFunc("/status", a.statusHandler)

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		a.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Error("Status server shutdown failed", "error", err)
			return
		}
		a.logger.Debug("Status server shut down gracefully.")
	}
}
