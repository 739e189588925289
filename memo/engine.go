package memo

import (
	"context"
	"encoding/json"

	"github.com/rustyeddy/tradejournal/evolution"
	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/rules"
	"github.com/rustyeddy/tradejournal/settings"
	"go.uber.org/zap"
)

// Engine memoizes whole-history evaluation and classification. Cache
// failures are logged and fall back to computing; they never fail a call.
type Engine struct {
	cache  Cache
	logger *zap.Logger
}

func NewEngine(cache Cache, logger *zap.Logger) *Engine {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cache: cache, logger: logger}
}

// Apply returns copies of trades with their rule sets evaluated against
// the full history.
func (e *Engine) Apply(ctx context.Context, trades []journal.Trade, s settings.Settings) ([]journal.Trade, error) {
	results, err := e.Evaluations(ctx, trades, s)
	if err != nil {
		return nil, err
	}
	out := make([]journal.Trade, len(trades))
	for i, t := range trades {
		out[i] = results[t.ID].ApplyTo(t)
	}
	return out, nil
}

// Evaluations returns rule results keyed by trade ID.
func (e *Engine) Evaluations(ctx context.Context, trades []journal.Trade, s settings.Settings) (map[string]rules.Result, error) {
	var results map[string]rules.Result
	err := e.memoize(ctx, "eval", trades, s, &results, func() (any, error) {
		return rules.EvaluateAll(trades, s)
	})
	return results, err
}

// Classify returns the evolution snapshot for the history.
func (e *Engine) Classify(ctx context.Context, trades []journal.Trade, s settings.Settings) (evolution.Result, error) {
	var res evolution.Result
	err := e.memoize(ctx, "evo", trades, s, &res, func() (any, error) {
		return evolution.Classify(trades, s)
	})
	return res, err
}

func (e *Engine) memoize(ctx context.Context, kind string, trades []journal.Trade, s settings.Settings, dst any, compute func() (any, error)) error {
	key, err := Key(trades, s)
	if err != nil {
		return err
	}
	key = kind + ":" + key

	if raw, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("memo: cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal(raw, dst); err == nil {
			e.logger.Debug("memo: hit", zap.String("key", key))
			return nil
		}
		e.logger.Warn("memo: discarding undecodable entry", zap.String("key", key))
	}

	v, err := compute()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := e.cache.Set(ctx, key, raw); err != nil {
		e.logger.Warn("memo: cache set failed", zap.String("key", key), zap.Error(err))
	}
	e.logger.Debug("memo: computed", zap.String("key", key), zap.Int("trades", len(trades)))
	return json.Unmarshal(raw, dst)
}

// Refresh re-evaluates every stored trade under s and writes the rule sets
// back. It returns the refreshed trades in store order with their results.
func (e *Engine) Refresh(ctx context.Context, store journal.Store, s settings.Settings) ([]journal.Trade, map[string]rules.Result, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	results, err := e.Evaluations(ctx, all, s)
	if err != nil {
		return nil, nil, err
	}
	for i, t := range all {
		all[i] = results[t.ID].ApplyTo(t)
	}
	if err := store.UpdateEvaluations(ctx, all); err != nil {
		return nil, nil, err
	}
	return all, results, nil
}
