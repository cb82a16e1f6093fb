package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/service"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/metrics"
)

// Commands is the operator command set the API exposes. The coordinator
// implements it.
type Commands interface {
	TriggerFire(ctx context.Context, building int) (types.PresenceReport, error)
	SimulateAccess(ctx context.Context, badge, building int, action types.Action) error
	Logs(ctx context.Context) ([]string, error)
}

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Commands Commands
	Metrics  *metrics.Metrics // optional; /metrics is not served without it
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	commands   Commands
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:   d.Logger,
		commands: d.Commands,
	}

	r := gin.New()
	r.Use(gin.Recovery(), loggingMiddleware(d.Logger))

	v1 := r.Group("/v1")
	v1.POST("/fire", s.handleFire)
	v1.POST("/simulate", s.handleSimulate)
	v1.GET("/logs", s.handleLogs)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found", "no such route")
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type fireRequest struct {
	Building int `json:"building" binding:"required"`
}

type fireResponse struct {
	Building  int      `json:"building"`
	Occupants []string `json:"occupants"`
}

type simulateRequest struct {
	BadgeID  *int   `json:"badge_id" binding:"required"` // 0 is a valid badge
	Building int    `json:"building" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type logsResponse struct {
	Count int      `json:"count"`
	Lines []string `json:"lines"`
}

func (s *Server) handleFire(c *gin.Context) {
	var req fireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	report, err := s.commands.TriggerFire(c.Request.Context(), req.Building)
	if err != nil {
		s.commandError(c, "fire", err)
		return
	}

	c.JSON(http.StatusOK, fireResponse{Building: req.Building, Occupants: report.Names})
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	action, err := types.ParseAction(strings.TrimSpace(req.Action))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_action", service.ErrInvalidAction.Error())
		return
	}

	if err := s.commands.SimulateAccess(c.Request.Context(), *req.BadgeID, req.Building, action); err != nil {
		s.commandError(c, "simulate", err)
		return
	}

	// The decision is made asynchronously by the building.
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) handleLogs(c *gin.Context) {
	lines, err := s.commands.Logs(c.Request.Context())
	if err != nil {
		s.commandError(c, "logs", err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, logsResponse{Count: len(lines), Lines: lines})
}

func (s *Server) commandError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownBuilding):
		writeError(c, http.StatusBadRequest, "unknown_building", err.Error())
	case errors.Is(err, service.ErrInvalidAction):
		writeError(c, http.StatusBadRequest, "invalid_action", err.Error())
	case errors.Is(err, service.ErrNoSimulator):
		writeError(c, http.StatusBadRequest, "no_simulator", err.Error())
	case errors.Is(err, service.ErrResponseTimeout):
		writeError(c, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, service.ErrCoordinatorDone), errors.Is(err, service.ErrNotStarted):
		writeError(c, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(c, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": code, "message": msg})
}
