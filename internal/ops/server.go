package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vrcmeet/meetbot/internal/config"
	"github.com/vrcmeet/meetbot/internal/database"
	"github.com/vrcmeet/meetbot/internal/invitation"
	"github.com/vrcmeet/meetbot/internal/ticket"
	"github.com/vrcmeet/meetbot/pkg/response"
)

// Server exposes operational endpoints: liveness and a few counters.
// It is not a public API; bind it to an internal port.
type Server struct {
	http *http.Server
	db   *gorm.DB
	inv  *invitation.Service
	tick *ticket.Service
	log  *zap.Logger
}

// NewServer builds the ops HTTP server on the configured port
func NewServer(cfg *config.Config, db *gorm.DB, inv *invitation.Service, tick *ticket.Service, log *zap.Logger) *Server {
	s := &Server{
		db:   db,
		inv:  inv,
		tick: tick,
		log:  log.Named("ops"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	s.http = &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called. Blocks; run it in a goroutine.
func (s *Server) Start() error {
	s.log.Info("ops server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := database.Ping(r.Context(), s.db); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		response.ServiceUnavailable(w, "database unreachable")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	openInvitations, err := s.inv.OpenCount(r.Context())
	if err != nil {
		s.log.Error("failed to count open invitations", zap.Error(err))
		response.InternalError(w, "failed to collect stats")
		return
	}
	openTickets, err := s.tick.OpenCount(r.Context())
	if err != nil {
		s.log.Error("failed to count open tickets", zap.Error(err))
		response.InternalError(w, "failed to collect stats")
		return
	}

	response.JSON(w, http.StatusOK, map[string]int64{
		"open_invitations": openInvitations,
		"open_tickets":     openTickets,
	})
}
