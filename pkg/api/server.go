// CineBot - status API server
// Serves health and status endpoints + WebSocket for live domain events
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sipeed/cinebot/pkg/component"
	"github.com/sipeed/cinebot/pkg/config"
	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/infrastructure/eventbus"
	"github.com/sipeed/cinebot/pkg/integration"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
)

const healthTimeout = 3 * time.Second

// Deps are the services the status endpoints report on. Any may be nil.
type Deps struct {
	Components   *component.Manager
	Chat         *conversation.Session
	Movies       *movies.Service
	Events       *eventbus.InProcessEventBus
	Integrations *integration.Registry
}

// Server is the HTTP status server.
type Server struct {
	config    config.GatewayConfig
	deps      Deps
	wsHub     *WSHub
	bridge    *EventBridge
	startTime time.Time
	server    *http.Server
}

// NewServer creates a new API server instance.
func NewServer(cfg config.GatewayConfig, deps Deps) *Server {
	s := &Server{
		config:    cfg,
		deps:      deps,
		startTime: time.Now(),
	}
	s.wsHub = NewWSHub(s)
	s.bridge = NewEventBridge(deps.Events, s.wsHub)
	return s
}

// Handler returns the routed, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/ws", s.wsHub.HandleWebSocket)
	return authMiddleware(s.config.APIKey, mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.wsHub.Run(ctx)
	s.bridge.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("api", "Status server starting", map[string]interface{}{
			"addr": addr,
		})
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.InfoC("api", "Status server stopping")
	return s.server.Shutdown(shutdownCtx)
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	if s.deps.Integrations != nil {
		status = s.deps.Integrations.HealthAll(r.Context(), healthTimeout)
	}

	code := http.StatusOK
	overall := "ok"
	if !integration.Healthy(status) {
		code = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, code, map[string]interface{}{
		"status":       overall,
		"integrations": status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(r.Context()))
}

// snapshot collects the live counters shown by /api/status and pushed to
// WebSocket clients.
func (s *Server) snapshot(ctx context.Context) map[string]interface{} {
	uptime := time.Since(s.startTime)
	status := map[string]interface{}{
		"uptime_seconds": int(uptime.Seconds()),
		"uptime_human":   formatDuration(uptime),
		"ws_clients":     s.wsHub.Clients(),
	}

	if s.deps.Components != nil {
		status["active_collectors"] = s.deps.Components.Active()
	}
	if chat := s.deps.Chat; chat != nil {
		info := map[string]interface{}{"configured": chat.Configured()}
		if c := chat.Cache(); c != nil {
			info["cache_enabled"] = c.Enabled()
			info["cached_conversations"] = c.Len()
		}
		if p := chat.Policy(); p != nil {
			info["rate_limit_windows"] = p.Len()
		}
		status["chat"] = info
	}
	if s.deps.Movies != nil {
		info := map[string]interface{}{"lookups_enabled": s.deps.Movies.LookupsEnabled()}
		if n, err := s.deps.Movies.Count(ctx); err == nil {
			info["count"] = n
		} else {
			info["error"] = err.Error()
		}
		status["movies"] = info
	}
	if s.deps.Events != nil {
		status["events"] = s.deps.Events.Counts()
	}
	return status
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
