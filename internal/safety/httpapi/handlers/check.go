package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/apierr"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/compliance"
	"github.com/yungbote/contentsafety/internal/safety/httpapi/response"
	"github.com/yungbote/contentsafety/internal/safety/orchestrator"
)

type CheckHandler struct {
	log        *logger.Logger
	orch       *orchestrator.Orchestrator
	compliance *compliance.Checker
	maxBytes   int64
}

func NewCheckHandler(log *logger.Logger, orch *orchestrator.Orchestrator, checker *compliance.Checker, maxBytes int64) *CheckHandler {
	return &CheckHandler{
		log:        logger.OrNop(log).With("handler", "CheckHandler"),
		orch:       orch,
		compliance: checker,
		maxBytes:   maxBytes,
	}
}

type checkResponse struct {
	Warnings  []safety.CombinedWarning `json:"warnings"`
	IsLoading bool                     `json:"is_loading"`
	Error     *string                  `json:"error"`
	Degraded  bool                     `json:"degraded,omitempty"`
}

// POST /v1/check
func (h *CheckHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := decodeJSON(c, h.maxBytes, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.orch.Run(c.Request.Context(), req.Product, req.tags())
	var total *orchestrator.TotalCheckFailure
	switch {
	case err == nil:
		response.RespondOK(c, checkResponse{Warnings: res.Warnings, Degraded: res.Partial != nil})
	case errors.As(err, &total):
		msg := orchestrator.UnavailableMessage
		response.RespondOK(c, checkResponse{Warnings: []safety.CombinedWarning{}, Error: &msg})
	default:
		response.RespondAPIError(c, mapCheckError(err))
	}
}

type complianceRequest struct {
	Text string `json:"text"`
}

type complianceResponse struct {
	Violations    []safety.Violation `json:"violations"`
	SuggestedText string             `json:"suggested_text"`
}

// POST /v1/compliance/check
func (h *CheckHandler) Compliance(c *gin.Context) {
	var req complianceRequest
	if err := decodeJSON(c, h.maxBytes, &req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	violations, err := h.compliance.Check(c.Request.Context(), req.Text)
	if err != nil {
		response.RespondAPIError(c, mapCheckError(err))
		return
	}
	response.RespondOK(c, complianceResponse{
		Violations:    violations,
		SuggestedText: compliance.Rewrite(req.Text, violations),
	})
}

func mapCheckError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrNoProduct):
		return apierr.BadRequest("no_product", err)
	case errors.Is(err, orchestrator.ErrSessionClosed):
		return apierr.NotFound("session_not_found", err)
	case errors.Is(err, orchestrator.ErrSuperseded):
		return apierr.New(http.StatusConflict, "superseded", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusServiceUnavailable, "request_canceled", err)
	default:
		return err
	}
}
