package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/memo"
	"github.com/rustyeddy/tradejournal/rules"
	"github.com/rustyeddy/tradejournal/settings"
)

// EngineHandler runs the evaluator and classifier, either over a history
// posted by the client or over the stored journal.
type EngineHandler struct {
	Store    journal.Store
	Engine   *memo.Engine
	Settings SettingsSource
}

func (h *EngineHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1")
	g.POST("/evaluate", h.evaluate)
	g.POST("/evolution", h.classifyPosted)
	g.GET("/evolution", h.classifyStored)
}

// historyRequest carries a trade history and, optionally, settings to use
// instead of the server's.
type historyRequest struct {
	Trades   []journal.Trade    `json:"trades"`
	Settings *settings.Settings `json:"settings"`
}

type evaluateResponse struct {
	Trades  []journal.Trade         `json:"trades"`
	Results map[string]rules.Result `json:"results"`
}

func (h *EngineHandler) bind(c *gin.Context) (historyRequest, settings.Settings, bool) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return req, settings.Settings{}, false
	}
	if req.Settings != nil {
		return req, *req.Settings, true
	}
	s, err := h.Settings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return req, settings.Settings{}, false
	}
	return req, s, true
}

func (h *EngineHandler) evaluate(c *gin.Context) {
	req, s, ok := h.bind(c)
	if !ok {
		return
	}
	results, err := h.Engine.Evaluations(c.Request.Context(), req.Trades, s)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]journal.Trade, len(req.Trades))
	for i, t := range req.Trades {
		out[i] = results[t.ID].ApplyTo(t)
	}
	Ok(c, evaluateResponse{Trades: out, Results: results}, map[string]any{"count": len(out)})
}

func (h *EngineHandler) classifyPosted(c *gin.Context) {
	req, s, ok := h.bind(c)
	if !ok {
		return
	}
	res, err := h.Engine.Classify(c.Request.Context(), req.Trades, s)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func (h *EngineHandler) classifyStored(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	s, err := h.Settings(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	all, err := h.Store.List(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.Engine.Classify(ctx, all, s)
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, res, map[string]any{"trades": len(all)})
}
