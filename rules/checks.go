package rules

import (
	"math"
	"time"

	"github.com/rustyeddy/tradejournal/settings"
	"github.com/shopspring/decimal"
)

// checks run independently; each adds at most one ID (custom rules one per rule).
var checks = []func(*tradeContext, *builder){
	checkTradesPerDay,
	checkTradesPerWeek,
	checkAllowedHours,
	checkLotSize,
	checkDailyPnL,
	checkRiskPerTrade,
	checkRiskPerDay,
	checkRiskPerWeek,
	checkDrawdown,
	checkCooldown,
	checkConsecutiveLosses,
	checkSession,
	checkDay,
	checkCustomRules,
}

func checkTradesPerDay(c *tradeContext, b *builder) {
	tr := c.idx.s.TradingRules()
	if tr == nil || tr.MaxTradesPerDay == nil {
		return
	}
	limit := *tr.MaxTradesPerDay
	if n := len(c.sameDay()); n > limit {
		b.fail(MaxTradesPerDay, "trade #%d of the day exceeds max %d", n, limit)
		return
	}
	b.pass(MaxTradesPerDay)
}

func checkTradesPerWeek(c *tradeContext, b *builder) {
	tr := c.idx.s.TradingRules()
	if tr == nil || tr.MaxTradesPerWeek == nil {
		return
	}
	limit := *tr.MaxTradesPerWeek
	if n := len(c.sameWeek()); n > limit {
		b.fail(MaxTradesPerWeek, "trade #%d of the week exceeds max %d", n, limit)
		return
	}
	b.pass(MaxTradesPerWeek)
}

func checkAllowedHours(c *tradeContext, b *builder) {
	tr := c.idx.s.TradingRules()
	if tr == nil || tr.AllowedHours == nil || !tr.AllowedHours.Enabled {
		return
	}
	w := tr.AllowedHours
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 || w.StartHour == w.EndHour {
		return
	}
	h := c.entry.Hour()
	inside := h >= w.StartHour && h < w.EndHour
	if w.StartHour > w.EndHour {
		inside = h >= w.StartHour || h < w.EndHour
	}
	if !inside {
		b.fail(AllowedHours, "entry hour %02d outside allowed window %02d-%02d", h, w.StartHour, w.EndHour)
		return
	}
	b.pass(AllowedHours)
}

func checkLotSize(c *tradeContext, b *builder) {
	tr := c.idx.s.TradingRules()
	if tr == nil || tr.MaxLotSize == nil {
		return
	}
	if c.t.Size > *tr.MaxLotSize {
		b.fail(MaxLotSize, "size %.2f exceeds max lot size %.2f", c.t.Size, *tr.MaxLotSize)
		return
	}
	b.pass(MaxLotSize)
}

// checkDailyPnL covers both the profit target, which is informational, and
// the loss limit.
func checkDailyPnL(c *tradeContext, b *builder) {
	tr := c.idx.s.TradingRules()
	if tr == nil || (tr.DailyProfitTarget == nil && tr.DailyLossLimit == nil) {
		return
	}
	day := c.dailyPnL()

	if tr.DailyProfitTarget != nil {
		b.pass(DailyProfitTarget)
		target := decimal.NewFromFloat(*tr.DailyProfitTarget)
		if target.IsPositive() && day.GreaterThanOrEqual(target) {
			b.warn(DailyProfitTarget, "daily P/L %s reached profit target %s", day.StringFixed(2), target.StringFixed(2))
		}
	}

	// A zero limit would flag every flat day.
	if tr.DailyLossLimit != nil && *tr.DailyLossLimit != 0 {
		limit := decimal.NewFromFloat(math.Abs(*tr.DailyLossLimit)).Neg()
		if day.LessThanOrEqual(limit) {
			b.fail(DailyLossLimit, "daily P/L %s breached loss limit %s", day.StringFixed(2), limit.StringFixed(2))
			return
		}
		b.pass(DailyLossLimit)
	}
}

func checkRiskPerTrade(c *tradeContext, b *builder) {
	rm := c.idx.s.RiskManagement()
	if rm == nil || rm.MaxRiskPerTrade == nil || c.t.RiskPercent == nil {
		return
	}
	if *c.t.RiskPercent > *rm.MaxRiskPerTrade {
		b.fail(MaxRiskPerTrade, "risk %.2f%% exceeds max %.2f%% per trade", *c.t.RiskPercent, *rm.MaxRiskPerTrade)
		return
	}
	b.pass(MaxRiskPerTrade)
}

func checkRiskPerDay(c *tradeContext, b *builder) {
	rm := c.idx.s.RiskManagement()
	if rm == nil || rm.MaxRiskPerDay == nil || c.t.RiskPercent == nil {
		return
	}
	if total := sumRisk(c.sameDay()); total > *rm.MaxRiskPerDay {
		b.fail(MaxRiskPerDay, "daily risk %.2f%% exceeds max %.2f%%", total, *rm.MaxRiskPerDay)
		return
	}
	b.pass(MaxRiskPerDay)
}

func checkRiskPerWeek(c *tradeContext, b *builder) {
	rm := c.idx.s.RiskManagement()
	if rm == nil || rm.MaxRiskPerWeek == nil || c.t.RiskPercent == nil {
		return
	}
	if total := sumRisk(c.sameWeek()); total > *rm.MaxRiskPerWeek {
		b.fail(MaxRiskPerWeek, "weekly risk %.2f%% exceeds max %.2f%%", total, *rm.MaxRiskPerWeek)
		return
	}
	b.pass(MaxRiskPerWeek)
}

// checkDrawdown escalates according to DrawdownMode: warning mode (also the
// default when unset) only warns, every other mode makes the breach a violation.
func checkDrawdown(c *tradeContext, b *builder) {
	rm := c.idx.s.RiskManagement()
	if rm == nil || rm.MaxDrawdown == nil || *rm.MaxDrawdown <= 0 {
		return
	}
	dd := c.drawdownAtEntry()
	if dd < *rm.MaxDrawdown {
		b.pass(MaxDrawdown)
		return
	}
	if rm.DrawdownMode == "" || rm.DrawdownMode == settings.DrawdownWarning {
		b.warn(MaxDrawdown, "drawdown %.2f%% at entry reached max %.2f%%", dd, *rm.MaxDrawdown)
		return
	}
	b.fail(MaxDrawdown, "drawdown %.2f%% at entry reached max %.2f%%", dd, *rm.MaxDrawdown)
}

func checkCooldown(c *tradeContext, b *builder) {
	d := c.idx.s.Discipline()
	if d == nil || d.CooldownAfterLoss == nil || *d.CooldownAfterLoss < 0 {
		return
	}
	window := time.Duration(*d.CooldownAfterLoss) * time.Minute
	if loss, ok := c.lastLossWithin(window); ok {
		gap := c.t.EntryTime.Sub(*loss.CloseTime)
		b.fail(CooldownAfterLoss, "entered %s after losing trade %s, cooldown is %s",
			gap.Round(time.Second), loss.ID, window)
		return
	}
	b.pass(CooldownAfterLoss)
}

func checkConsecutiveLosses(c *tradeContext, b *builder) {
	d := c.idx.s.Discipline()
	if d == nil || d.MaxConsecutiveLosses == nil || *d.MaxConsecutiveLosses < 1 {
		return
	}
	limit := *d.MaxConsecutiveLosses
	if n := c.consecutiveLosses(); n >= limit {
		b.fail(MaxConsecutiveLosses, "entered after %d consecutive losses, max %d", n, limit)
		return
	}
	b.pass(MaxConsecutiveLosses)
}
