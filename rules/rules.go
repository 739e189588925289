// Package rules checks journal trades against the trader's discipline and
// risk configuration.
//
// Evaluation is a pure function of (trade, history, settings): nothing is
// cached and nothing previously written to a trade is consulted, so a
// settings change is picked up by simply evaluating again.
package rules

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/settings"
)

// ID identifies a rule check. Custom rules are prefixed with "custom:".
type ID string

const (
	MaxTradesPerDay      ID = "max_trades_per_day"
	MaxTradesPerWeek     ID = "max_trades_per_week"
	AllowedHours         ID = "allowed_hours"
	MaxLotSize           ID = "max_lot_size"
	DailyProfitTarget    ID = "daily_profit_target"
	DailyLossLimit       ID = "daily_loss_limit"
	MaxRiskPerTrade      ID = "max_risk_per_trade"
	MaxRiskPerDay        ID = "max_risk_per_day"
	MaxRiskPerWeek       ID = "max_risk_per_week"
	MaxDrawdown          ID = "max_drawdown"
	CooldownAfterLoss    ID = "cooldown_after_loss"
	MaxConsecutiveLosses ID = "max_consecutive_losses"
	TradingSession       ID = "trading_session"
	TradingDay           ID = "trading_day"
)

const customPrefix = "custom:"

func CustomID(id string) ID { return ID(customPrefix + id) }

// RiskRules are the risk-bound checks. A trade respects risk when none of
// them is violated.
var RiskRules = []ID{MaxRiskPerTrade, MaxRiskPerDay, MaxRiskPerWeek, MaxDrawdown}

// critical violations close the session when Discipline.CloseSessionOnCritical is set.
var critical = map[ID]bool{
	DailyLossLimit:       true,
	MaxConsecutiveLosses: true,
	MaxDrawdown:          true,
}

func IsRiskRule(id ID) bool {
	for _, r := range RiskRules {
		if r == id {
			return true
		}
	}
	return false
}

// Violation explains a failed or advisory check.
type Violation struct {
	Code ID     `json:"code"`
	Msg  string `json:"message"`
}

// Result of evaluating one trade. Evaluated and Violated never share an ID.
// Warnings are advisory: the check neither passed nor failed.
type Result struct {
	Evaluated []ID `json:"evaluatedRules"`
	Violated  []ID `json:"violatedRules"`
	Warnings  []ID `json:"warnings"`

	Details []Violation `json:"details,omitempty"`

	// SessionClosed is set when a critical rule broke and the settings
	// ask for the session to be closed.
	SessionClosed bool `json:"sessionClosed"`
}

// HasRiskViolation reports whether any risk-bound check failed.
func (r Result) HasRiskViolation() bool {
	for _, id := range r.Violated {
		if IsRiskRule(id) {
			return true
		}
	}
	return false
}

// ApplyTo returns a copy of t carrying this result's rule sets.
func (r Result) ApplyTo(t journal.Trade) journal.Trade {
	t.EvaluatedRules = toStrings(r.Evaluated)
	t.ViolatedRules = toStrings(r.Violated)
	return t
}

// Evaluate checks t against every configured rule using all as the trade
// history. t does not have to be part of all; if a trade with the same ID
// is, t takes its place. all is not modified.
func Evaluate(t journal.Trade, all []journal.Trade, s settings.Settings) (Result, error) {
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	idx, err := newIndex(all, s)
	if err != nil {
		return Result{}, err
	}
	return idx.evaluate(t), nil
}

// Apply evaluates every trade in all against the whole history and returns
// copies with EvaluatedRules and ViolatedRules overwritten.
func Apply(all []journal.Trade, s settings.Settings) ([]journal.Trade, error) {
	idx, err := newIndex(all, s)
	if err != nil {
		return nil, err
	}
	out := make([]journal.Trade, len(all))
	for i, t := range all {
		out[i] = idx.evaluate(t).ApplyTo(t)
	}
	return out, nil
}

// EvaluateAll is Apply without touching the trades: results are keyed by trade ID.
func EvaluateAll(all []journal.Trade, s settings.Settings) (map[string]Result, error) {
	idx, err := newIndex(all, s)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Result, len(all))
	for _, t := range all {
		out[t.ID] = idx.evaluate(t)
	}
	return out, nil
}

type builder struct {
	evaluated map[ID]bool
	violated  map[ID]bool
	warnings  map[ID]bool
	details   []Violation
}

func newBuilder() *builder {
	return &builder{
		evaluated: map[ID]bool{},
		violated:  map[ID]bool{},
		warnings:  map[ID]bool{},
	}
}

func (b *builder) pass(id ID) {
	if !b.violated[id] {
		b.evaluated[id] = true
	}
}

func (b *builder) fail(id ID, format string, args ...any) {
	delete(b.evaluated, id)
	b.violated[id] = true
	b.details = append(b.details, Violation{Code: id, Msg: fmt.Sprintf(format, args...)})
}

func (b *builder) warn(id ID, format string, args ...any) {
	b.warnings[id] = true
	b.details = append(b.details, Violation{Code: id, Msg: fmt.Sprintf(format, args...)})
}

func (b *builder) result(s settings.Settings) Result {
	r := Result{
		Evaluated: sortedIDs(b.evaluated),
		Violated:  sortedIDs(b.violated),
		Warnings:  sortedIDs(b.warnings),
		Details:   b.details,
	}
	if d := s.Discipline(); d != nil && d.CloseSessionOnCritical {
		for id := range b.violated {
			if critical[id] {
				r.SessionClosed = true
				break
			}
		}
	}
	return r
}

func sortedIDs(set map[ID]bool) []ID {
	out := make([]ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toStrings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
