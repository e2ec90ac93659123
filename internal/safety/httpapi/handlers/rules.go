package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/httpapi/response"
	"github.com/yungbote/contentsafety/internal/safety/rules"
)

type RulesHandler struct {
	log   *logger.Logger
	store *rules.Store
}

func NewRulesHandler(log *logger.Logger, store *rules.Store) *RulesHandler {
	return &RulesHandler{log: logger.OrNop(log).With("handler", "RulesHandler"), store: store}
}

type rulesResponse struct {
	Origin        string                    `json:"origin"`
	LoadedAt      time.Time                 `json:"loaded_at"`
	Rejected      int                       `json:"rejected"`
	Sources       []string                  `json:"sources"`
	BannedPhrases []safety.BannedPhraseRule `json:"banned_phrases"`
	PersonaRules  []safety.PersonaRule      `json:"persona_rules"`
}

// GET /v1/rules
func (h *RulesHandler) List(c *gin.Context) {
	snap := h.store.Current(c.Request.Context())
	banned := snap.Rules
	if banned == nil {
		banned = []safety.BannedPhraseRule{}
	}
	response.RespondOK(c, rulesResponse{
		Origin:        snap.Origin,
		LoadedAt:      snap.LoadedAt,
		Rejected:      snap.Rejected,
		Sources:       h.store.SourceNames(),
		BannedPhrases: banned,
		PersonaRules:  h.store.LoadPersonaRules(),
	})
}

// POST /v1/admin/rules/invalidate
func (h *RulesHandler) Invalidate(c *gin.Context) {
	h.store.Invalidate()
	h.log.Info("rule cache invalidated by admin", "subject", c.GetString("admin_subject"))
	c.JSON(http.StatusAccepted, gin.H{"invalidated": true})
}
