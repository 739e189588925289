package journal

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is the account equity right after a trade closed.
type EquityPoint struct {
	Time    time.Time
	TradeID string
	Equity  decimal.Decimal
}

// EquityCurve replays realized P/L of closed trades in close order, starting
// from initial. A non-zero until drops trades closed after it.
func EquityCurve(trades []Trade, initial decimal.Decimal, until time.Time) []EquityPoint {
	closed := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if !t.IsClosed() || t.CloseTime == nil || t.PnL == nil {
			continue
		}
		if !until.IsZero() && t.CloseTime.After(until) {
			continue
		}
		closed = append(closed, t)
	}
	sort.SliceStable(closed, func(i, j int) bool {
		a, b := *closed[i].CloseTime, *closed[j].CloseTime
		if !a.Equal(b) {
			return a.Before(b)
		}
		return closed[i].ID < closed[j].ID
	})

	out := make([]EquityPoint, 0, len(closed))
	equity := initial
	for _, t := range closed {
		equity = equity.Add(*t.PnL)
		out = append(out, EquityPoint{Time: *t.CloseTime, TradeID: t.ID, Equity: equity})
	}
	return out
}

// Drawdowns returns the drawdown at the end of the curve and the deepest
// drawdown along it, both in percent of the running equity peak and within
// [0, 100]. When the peak is not positive any equity below it counts as a
// full drawdown.
func Drawdowns(curve []EquityPoint, initial decimal.Decimal) (current, deepest float64) {
	peak := initial
	hundred := decimal.NewFromInt(100)
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		var dd float64
		switch {
		case !p.Equity.LessThan(peak):
			dd = 0
		case !peak.IsPositive():
			dd = 100
		default:
			dd = peak.Sub(p.Equity).Div(peak).Mul(hundred).InexactFloat64()
		}
		if dd > 100 {
			dd = 100
		}
		if dd > deepest {
			deepest = dd
		}
		current = dd
	}
	return current, deepest
}
