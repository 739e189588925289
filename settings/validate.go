package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Weekdays maps the lower-case day names used in SessionRules.Days.
var Weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Operators accepted by CustomRule.Operator.
var Operators = []string{"<", "<=", ">", ">=", "==", "!="}

// Validate reports every problem in the document at once. The evaluator
// never calls it: a section that fails here is simply skipped there.
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			add("timezone %q: %v", s.Timezone, err)
		}
	}
	if s.InitialBalance < 0 {
		add("initialBalance must not be negative")
	}

	if tr := s.TradingRules(); tr != nil {
		if tr.MaxTradesPerDay != nil && *tr.MaxTradesPerDay < 1 {
			add("tradingRules.maxTradesPerDay must be at least 1")
		}
		if tr.MaxTradesPerWeek != nil && *tr.MaxTradesPerWeek < 1 {
			add("tradingRules.maxTradesPerWeek must be at least 1")
		}
		if w := tr.AllowedHours; w != nil && w.Enabled {
			if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
				add("tradingRules.allowedHours startHour must be within 0-23 and endHour within 0-24")
			}
			if w.StartHour == w.EndHour {
				add("tradingRules.allowedHours start and end must differ")
			}
		}
		if tr.MaxLotSize != nil && *tr.MaxLotSize <= 0 {
			add("tradingRules.maxLotSize must be positive")
		}
		if tr.DailyLossLimit != nil && *tr.DailyLossLimit == 0 {
			add("tradingRules.dailyLossLimit must not be zero (omit it to disable)")
		}
		seen := map[string]bool{}
		for _, p := range tr.PsychologicalRules {
			if p.ID == "" {
				add("tradingRules.psychologicalRules: id is required")
				continue
			}
			if seen[p.ID] {
				add("tradingRules.psychologicalRules: duplicate id %q", p.ID)
			}
			seen[p.ID] = true
		}
	}

	if rm := s.RiskManagement(); rm != nil {
		for name, v := range map[string]*float64{
			"maxRiskPerTrade": rm.MaxRiskPerTrade,
			"maxRiskPerDay":   rm.MaxRiskPerDay,
			"maxRiskPerWeek":  rm.MaxRiskPerWeek,
			"maxDrawdown":     rm.MaxDrawdown,
		} {
			if v != nil && (*v <= 0 || *v > 100) {
				add("riskManagement.%s must be within (0, 100]", name)
			}
		}
		switch rm.DrawdownMode {
		case "", DrawdownWarning, DrawdownPause, DrawdownStop:
		default:
			add("riskManagement.drawdownMode %q is not one of warning, pause, stop", rm.DrawdownMode)
		}
	}

	if d := s.Discipline(); d != nil {
		if d.CooldownAfterLoss != nil && *d.CooldownAfterLoss < 0 {
			add("discipline.cooldownAfterLoss must not be negative")
		}
		if d.MaxConsecutiveLosses != nil && *d.MaxConsecutiveLosses < 1 {
			add("discipline.maxConsecutiveLosses must be at least 1")
		}
	}

	if sr := s.Sessions(); sr != nil {
		folded := map[string]int{}
		for name := range sr.Sessions {
			lower := strings.ToLower(string(name))
			if !knownSession(Session(lower)) {
				add("sessions.sessions: unknown session %q", name)
			}
			folded[lower]++
		}
		for _, name := range sortedDuplicates(folded) {
			add("sessions.sessions: %q is set more than once (keys ignore case)", name)
		}
		folded = map[string]int{}
		for name := range sr.Days {
			lower := strings.ToLower(name)
			if _, ok := Weekdays[lower]; !ok {
				add("sessions.days: unknown day %q", name)
			}
			folded[lower]++
		}
		for _, name := range sortedDuplicates(folded) {
			add("sessions.days: %q is set more than once (keys ignore case)", name)
		}
	}

	if re := s.RuleEngine(); re != nil {
		seen := map[string]bool{}
		for i, r := range re.Rules {
			if r.ID == "" {
				add("ruleEngine.rules[%d]: id is required", i)
			} else if seen[r.ID] {
				add("ruleEngine.rules[%d]: duplicate id %q", i, r.ID)
			}
			seen[r.ID] = true
			if !knownOperator(strings.TrimSpace(r.Operator)) {
				add("ruleEngine.rules[%d]: unknown operator %q", i, r.Operator)
			}
		}
	}

	return errors.Join(errs...)
}

func sortedDuplicates(counts map[string]int) []string {
	var out []string
	for name, n := range counts {
		if n > 1 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func knownSession(s Session) bool {
	for _, k := range AllSessions {
		if k == s {
			return true
		}
	}
	return false
}

func knownOperator(op string) bool {
	for _, k := range Operators {
		if k == op {
			return true
		}
	}
	return false
}
