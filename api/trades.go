package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/memo"
	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/rustyeddy/tradejournal/rules"
)

type TradeHandler struct {
	Store    journal.Store
	Engine   *memo.Engine
	Settings SettingsSource
	Logger   *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/trades")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.remove)
}

// list accepts optional RFC3339 from/to bounds on entry time.
func (h *TradeHandler) list(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	from, err := timeQuery(c, "from", time.Time{})
	if err != nil {
		Error(c, http.StatusBadRequest, "from: "+err.Error(), nil)
		return
	}
	to, err := timeQuery(c, "to", time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		Error(c, http.StatusBadRequest, "to: "+err.Error(), nil)
		return
	}

	var items []journal.Trade
	if c.Query("from") == "" && c.Query("to") == "" {
		items, err = h.Store.List(c.Request.Context())
	} else {
		items, err = h.Store.ListEnteredBetween(c.Request.Context(), from, to)
	}
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *TradeHandler) get(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	t, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	Ok(c, t, nil)
}

type createTradeResponse struct {
	Trade  journal.Trade `json:"trade"`
	Result rules.Result  `json:"result"`
}

// create stores a trade and re-evaluates the journal, since a back-dated
// trade changes the history every later trade is judged against.
func (h *TradeHandler) create(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	var t journal.Trade
	if err := c.ShouldBindJSON(&t); err != nil {
		Error(c, http.StatusBadRequest, "invalid trade: "+err.Error(), nil)
		return
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = id.NewAt(t.EntryTime)
	}
	if err := t.Validate(); err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.Store.Save(ctx, t); err != nil {
		fail(c, err)
		return
	}
	all, results, err := h.reevaluate(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	for _, stored := range all {
		if stored.ID == t.ID {
			t = stored
			break
		}
	}
	h.Logger.Info("trade saved",
		zap.String("trade_id", t.ID),
		zap.Strings("violated", t.ViolatedRules),
	)
	Ok(c, createTradeResponse{Trade: t, Result: results[t.ID]}, nil)
}

func (h *TradeHandler) remove(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	tradeID := c.Param("id")
	if err := h.Store.Delete(ctx, tradeID); err != nil {
		fail(c, err)
		return
	}
	if _, _, err := h.reevaluate(ctx); err != nil {
		fail(c, err)
		return
	}
	Ok(c, nil, map[string]any{"deleted": tradeID})
}

func (h *TradeHandler) reevaluate(ctx context.Context) ([]journal.Trade, map[string]rules.Result, error) {
	s, err := h.Settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	return h.Engine.Refresh(ctx, h.Store, s)
}

func timeQuery(c *gin.Context, key string, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
