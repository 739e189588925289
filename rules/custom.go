package rules

import (
	"sort"
	"strings"
)

// metric extracts a number from the trade and its history. ok is false
// when the value does not exist for this trade (e.g. P/L of an open trade).
type metric func(c *tradeContext) (v float64, ok bool)

var metrics = map[string]metric{
	"size": func(c *tradeContext) (float64, bool) {
		return c.t.Size, true
	},
	"risk_percent": func(c *tradeContext) (float64, bool) {
		if c.t.RiskPercent == nil {
			return 0, false
		}
		return *c.t.RiskPercent, true
	},
	"r_multiple": func(c *tradeContext) (float64, bool) {
		if c.t.RMultiple == nil {
			return 0, false
		}
		return *c.t.RMultiple, true
	},
	"pnl": func(c *tradeContext) (float64, bool) {
		if !c.t.IsClosed() || c.t.PnL == nil {
			return 0, false
		}
		return c.t.PnL.InexactFloat64(), true
	},
	"entry_hour": func(c *tradeContext) (float64, bool) {
		return float64(c.entry.Hour()), true
	},
	"weekday": func(c *tradeContext) (float64, bool) {
		return float64(c.entry.Weekday()), true
	},
	"trades_today": func(c *tradeContext) (float64, bool) {
		return float64(len(c.sameDay())), true
	},
	"trades_this_week": func(c *tradeContext) (float64, bool) {
		return float64(len(c.sameWeek())), true
	},
	"daily_pnl": func(c *tradeContext) (float64, bool) {
		return c.dailyPnL().InexactFloat64(), true
	},
	"consecutive_losses": func(c *tradeContext) (float64, bool) {
		return float64(c.consecutiveLosses()), true
	},
}

var operators = map[string]func(a, b float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
}

// Metrics lists the metric names custom rules may reference.
func Metrics() []string {
	out := make([]string, 0, len(metrics))
	for name := range metrics {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// KnownMetric reports whether name can be used in a custom rule.
func KnownMetric(name string) bool {
	_, ok := metrics[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// checkCustomRules evaluates each enabled rule as `metric operator value`.
// Rules with an unknown metric or operator, or whose metric is unavailable
// for this trade, are skipped.
func checkCustomRules(c *tradeContext, b *builder) {
	re := c.idx.s.RuleEngine()
	if re == nil || !re.Enabled {
		return
	}
	for _, r := range re.Rules {
		if !r.Enabled || r.ID == "" {
			continue
		}
		m, ok := metrics[strings.ToLower(strings.TrimSpace(r.Metric))]
		if !ok {
			continue
		}
		op, ok := operators[strings.TrimSpace(r.Operator)]
		if !ok {
			continue
		}
		v, ok := m(c)
		if !ok {
			continue
		}
		id := CustomID(r.ID)
		if !op(v, r.Value) {
			name := r.Name
			if name == "" {
				name = r.ID
			}
			b.fail(id, "%s: %s %g %s %g does not hold", name, r.Metric, v, r.Operator, r.Value)
			continue
		}
		b.pass(id)
	}
}
