package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/platform/apierr"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/httpapi/response"
	"github.com/yungbote/contentsafety/internal/safety/orchestrator"
	"github.com/yungbote/contentsafety/internal/safety/sessions"
)

type SessionHandler struct {
	log      *logger.Logger
	registry *sessions.Registry
	maxBytes int64
}

func NewSessionHandler(log *logger.Logger, registry *sessions.Registry, maxBytes int64) *SessionHandler {
	return &SessionHandler{
		log:      logger.OrNop(log).With("handler", "SessionHandler"),
		registry: registry,
		maxBytes: maxBytes,
	}
}

// POST /v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	id, s, err := h.registry.Create()
	if err != nil {
		if errors.Is(err, sessions.ErrFull) {
			response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "session_limit", err))
			return
		}
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "view": s.View()})
}

// GET /v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	response.RespondOK(c, s.View())
}

// POST /v1/sessions/:id/check
func (h *SessionHandler) Check(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req checkRequest
	if err := decodeJSON(c, h.maxBytes, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	view, err := s.CheckProduct(c.Request.Context(), req.Product, req.tags())
	if err != nil {
		response.RespondAPIError(c, mapCheckError(err))
		return
	}
	response.RespondOK(c, view)
}

type dismissRequest struct {
	WarningID string `json:"warning_id"`
}

// POST /v1/sessions/:id/dismiss
func (h *SessionHandler) Dismiss(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req dismissRequest
	if err := decodeJSON(c, h.maxBytes, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if strings.TrimSpace(req.WarningID) == "" {
		response.RespondAPIError(c, apierr.BadRequest("missing_warning_id", errors.New("warning_id is required")))
		return
	}
	if err := s.Dismiss(req.WarningID); err != nil {
		response.RespondAPIError(c, mapCheckError(err))
		return
	}
	response.RespondOK(c, s.View())
}

// DELETE /v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		response.RespondAPIError(c, mapSessionError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) session(c *gin.Context) (*orchestrator.Session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, mapSessionError(err))
		return nil, false
	}
	return s, true
}

func mapSessionError(err error) error {
	if errors.Is(err, sessions.ErrNotFound) {
		return apierr.NotFound("session_not_found", err)
	}
	return err
}
