package rules

import (
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/settings"
	"github.com/shopspring/decimal"
)

// index is the validated, chronologically sorted history shared by every
// trade evaluated in one pass.
type index struct {
	s      settings.Settings
	loc    *time.Location
	trades []journal.Trade
}

func newIndex(all []journal.Trade, s settings.Settings) (*index, error) {
	if err := journal.ValidateAll(all); err != nil {
		return nil, err
	}
	return &index{
		s:      s,
		loc:    s.Location(),
		trades: journal.Chronological(all),
	}, nil
}

// tradeContext is the history as seen from one trade.
type tradeContext struct {
	idx   *index
	t     journal.Trade
	entry time.Time // entry time in the settings zone

	// atOrBefore is chronological and ends with t itself.
	atOrBefore []journal.Trade
}

func (x *index) contextFor(t journal.Trade) *tradeContext {
	hist := make([]journal.Trade, 0, len(x.trades)+1)
	for _, o := range x.trades {
		if o.ID == t.ID {
			continue
		}
		if !journal.Before(o, t) {
			break
		}
		hist = append(hist, o)
	}
	hist = append(hist, t)
	return &tradeContext{
		idx:        x,
		t:          t,
		entry:      t.EntryTime.In(x.loc),
		atOrBefore: hist,
	}
}

func (x *index) evaluate(t journal.Trade) Result {
	c := x.contextFor(t)
	b := newBuilder()
	for _, check := range checks {
		check(c, b)
	}
	return b.result(x.s)
}

// prior is the history strictly before t.
func (c *tradeContext) prior() []journal.Trade {
	return c.atOrBefore[:len(c.atOrBefore)-1]
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek is the local Sunday midnight on or before t.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

func (c *tradeContext) sameDay() []journal.Trade {
	day := startOfDay(c.entry)
	var out []journal.Trade
	for _, o := range c.atOrBefore {
		if startOfDay(o.EntryTime.In(c.idx.loc)).Equal(day) {
			out = append(out, o)
		}
	}
	return out
}

func (c *tradeContext) sameWeek() []journal.Trade {
	week := startOfWeek(c.entry)
	var out []journal.Trade
	for _, o := range c.atOrBefore {
		if startOfWeek(o.EntryTime.In(c.idx.loc)).Equal(week) {
			out = append(out, o)
		}
	}
	return out
}

// dailyPnL sums realized P/L of closed trades entered the same day, up to
// and including t.
func (c *tradeContext) dailyPnL() decimal.Decimal {
	sum := decimal.Zero
	for _, o := range c.sameDay() {
		if o.IsClosed() && o.PnL != nil {
			sum = sum.Add(*o.PnL)
		}
	}
	return sum
}

func sumRisk(trades []journal.Trade) float64 {
	var sum float64
	for _, o := range trades {
		if o.RiskPercent != nil {
			sum += *o.RiskPercent
		}
	}
	return sum
}

// consecutiveLosses counts the losing streak among earlier trades already
// closed when t was entered. Trades still open at that moment are skipped.
func (c *tradeContext) consecutiveLosses() int {
	prior := c.prior()
	n := 0
	for i := len(prior) - 1; i >= 0; i-- {
		o := prior[i]
		if !o.IsClosed() || o.CloseTime == nil || o.CloseTime.After(c.t.EntryTime) {
			continue
		}
		if !o.IsLoss() {
			break
		}
		n++
	}
	return n
}

// drawdownAtEntry is the account drawdown, in percent, from trades closed
// at or before t was entered.
func (c *tradeContext) drawdownAtEntry() float64 {
	initial := decimal.NewFromFloat(c.idx.s.Balance())
	curve := journal.EquityCurve(c.idx.trades, initial, c.t.EntryTime)
	current, _ := journal.Drawdowns(curve, initial)
	return current
}

// lastLossWithin returns the most recent losing trade that closed within
// window before t's entry.
func (c *tradeContext) lastLossWithin(window time.Duration) (journal.Trade, bool) {
	var (
		found journal.Trade
		ok    bool
	)
	for _, o := range c.idx.trades {
		if o.ID == c.t.ID || !o.IsLoss() || o.CloseTime == nil {
			continue
		}
		gap := c.t.EntryTime.Sub(*o.CloseTime)
		if gap < 0 || gap >= window {
			continue
		}
		if !ok || o.CloseTime.After(*found.CloseTime) {
			found, ok = o, true
		}
	}
	return found, ok
}
