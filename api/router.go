// Package api exposes the journal and the rule engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/memo"
	"github.com/rustyeddy/tradejournal/settings"
)

// SettingsSource returns the current rule settings. It is called per
// request so edits to the settings document apply without a restart.
type SettingsSource func(ctx context.Context) (settings.Settings, error)

// StaticSettings always returns s.
func StaticSettings(s settings.Settings) SettingsSource {
	return func(context.Context) (settings.Settings, error) { return s, nil }
}

type Deps struct {
	Store    journal.Store
	Engine   *memo.Engine
	Settings SettingsSource
	Logger   *zap.Logger
}

// NewRouter wires every handler onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Engine == nil {
		d.Engine = memo.NewEngine(nil, d.Logger)
	}
	if d.Settings == nil {
		d.Settings = StaticSettings(*settings.Default())
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(d.Logger))

	health := &HealthHandler{Store: d.Store}
	health.Register(engine)

	trades := &TradeHandler{Store: d.Store, Engine: d.Engine, Settings: d.Settings, Logger: d.Logger}
	trades.Register(engine)

	eval := &EngineHandler{Store: d.Store, Engine: d.Engine, Settings: d.Settings}
	eval.Register(engine)

	return engine
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type HealthHandler struct {
	Store journal.Store
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
}

func (h *HealthHandler) health(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_missing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
