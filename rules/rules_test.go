package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_EmptySettingsChecksNothing(t *testing.T) {
	t.Parallel()

	hist := []journal.Trade{
		closedTrade(tid(1), tuesday, "-50"),
		openTrade(tid(2), tuesday.Add(time.Hour)),
	}
	for _, s := range []settings.Settings{{}, {Advanced: &settings.AdvancedSettings{}}} {
		res, err := Evaluate(hist[1], hist, s)
		require.NoError(t, err)
		assert.Empty(t, res.Evaluated)
		assert.Empty(t, res.Violated)
		assert.Empty(t, res.Warnings)
		assert.False(t, res.SessionClosed)
	}
}

func TestEvaluate_MaxTradesPerDayBoundary(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{MaxTradesPerDay: ip(3)},
	})
	var hist []journal.Trade
	for i := 0; i < 4; i++ {
		hist = append(hist, openTrade(tid(i), tuesday.Add(time.Duration(i)*time.Hour)))
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Contains(t, got[tid(i)].Evaluated, MaxTradesPerDay, "trade %d", i)
		assert.NotContains(t, got[tid(i)].Violated, MaxTradesPerDay, "trade %d", i)
	}
	assert.Contains(t, got[tid(3)].Violated, MaxTradesPerDay)
	assert.NotContains(t, got[tid(3)].Evaluated, MaxTradesPerDay)
}

func TestEvaluate_SameInstantOrdersByID(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{MaxTradesPerDay: ip(1)},
	})
	hist := []journal.Trade{openTrade("b", tuesday), openTrade("a", tuesday)}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["a"].Evaluated, MaxTradesPerDay)
	assert.Contains(t, got["b"].Violated, MaxTradesPerDay)
}

func TestEvaluate_WeekStartsOnSunday(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{MaxTradesPerWeek: ip(1)},
	})
	saturday := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	hist := []journal.Trade{
		openTrade("tue", tuesday),
		openTrade("sat", saturday),
		openTrade("sun", sunday),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["tue"].Evaluated, MaxTradesPerWeek)
	assert.Contains(t, got["sat"].Violated, MaxTradesPerWeek)
	assert.Contains(t, got["sun"].Evaluated, MaxTradesPerWeek)
}

func TestEvaluate_DayFollowsTimezone(t *testing.T) {
	t.Parallel()

	// 23:30 and 00:30 UTC are the same day in New York (UTC-5 in March).
	s := settings.Settings{
		Timezone: "America/New_York",
		Advanced: &settings.AdvancedSettings{
			TradingRules: &settings.TradingRules{MaxTradesPerDay: ip(1)},
		},
	}
	first := time.Date(2025, 3, 4, 23, 30, 0, 0, time.UTC)
	hist := []journal.Trade{openTrade("a", first), openTrade("b", first.Add(time.Hour))}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["b"].Violated, MaxTradesPerDay)
}

func TestEvaluate_AllowedHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		hour       int
		violated   bool
	}{
		{"inside", 8, 17, 9, false},
		{"at start", 8, 17, 8, false},
		{"at end is outside", 8, 17, 17, true},
		{"before", 8, 17, 6, true},
		{"wrap late", 22, 2, 23, false},
		{"wrap early", 22, 2, 1, false},
		{"wrap outside", 22, 2, 12, true},
		{"end of day", 20, 24, 23, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := inUTC(&settings.AdvancedSettings{
				TradingRules: &settings.TradingRules{
					AllowedHours: &settings.HourWindow{Enabled: true, StartHour: tt.start, EndHour: tt.end},
				},
			})
			at := time.Date(2025, 3, 4, tt.hour, 15, 0, 0, time.UTC)
			tr := openTrade("x", at)
			res, err := Evaluate(tr, []journal.Trade{tr}, s)
			require.NoError(t, err)
			assert.Equal(t, tt.violated, has(res.Violated, AllowedHours))
			assert.Equal(t, !tt.violated, has(res.Evaluated, AllowedHours))
		})
	}
}

func TestEvaluate_DisabledHourWindowIsSkipped(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{
			AllowedHours: &settings.HourWindow{Enabled: false, StartHour: 8, EndHour: 9},
		},
	})
	tr := openTrade("x", tuesday.Add(5*time.Hour))
	res, err := Evaluate(tr, nil, s)
	require.NoError(t, err)
	assert.False(t, has(res.Evaluated, AllowedHours))
	assert.False(t, has(res.Violated, AllowedHours))
}

func TestEvaluate_MaxLotSize(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{MaxLotSize: fp(1)},
	})
	small := openTrade("small", tuesday)
	big := openTrade("big", tuesday.Add(time.Minute))
	big.Size = 1.5

	got, err := EvaluateAll([]journal.Trade{small, big}, s)
	require.NoError(t, err)
	assert.Contains(t, got["small"].Evaluated, MaxLotSize)
	assert.Contains(t, got["big"].Violated, MaxLotSize)
}

func TestEvaluate_DailyLossLimit(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{DailyLossLimit: fp(200)},
	})
	hist := []journal.Trade{
		closedTrade("a", tuesday, "-150"),
		closedTrade("b", tuesday.Add(time.Hour), "-50"),
		closedTrade("c", tuesday.Add(2*time.Hour), "-10"),
		closedTrade("next-day", tuesday.Add(24*time.Hour), "-10"),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["a"].Evaluated, DailyLossLimit)
	assert.Contains(t, got["b"].Violated, DailyLossLimit, "exactly at the limit")
	assert.Contains(t, got["c"].Violated, DailyLossLimit)
	assert.Contains(t, got["next-day"].Evaluated, DailyLossLimit)
}

func TestEvaluate_DailyProfitTargetWarns(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{DailyProfitTarget: fp(300)},
	})
	hist := []journal.Trade{
		closedTrade("a", tuesday, "200"),
		closedTrade("b", tuesday.Add(time.Hour), "150"),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["a"].Evaluated, DailyProfitTarget)
	assert.NotContains(t, got["a"].Warnings, DailyProfitTarget)
	assert.Contains(t, got["b"].Evaluated, DailyProfitTarget)
	assert.Contains(t, got["b"].Warnings, DailyProfitTarget)
	assert.Empty(t, got["b"].Violated)
}

func TestEvaluate_RiskBounds(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		RiskManagement: &settings.RiskManagement{
			MaxRiskPerTrade: fp(1),
			MaxRiskPerDay:   fp(2),
			MaxRiskPerWeek:  fp(2.5),
		},
	})
	hist := []journal.Trade{
		withRisk(openTrade("a", tuesday), 1),
		withRisk(openTrade("b", tuesday.Add(time.Hour)), 1.5),
		openTrade("no-risk", tuesday.Add(2*time.Hour)),
		withRisk(openTrade("wed", tuesday.Add(24*time.Hour)), 0.5),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)

	assert.Equal(t, []ID{MaxRiskPerDay, MaxRiskPerTrade, MaxRiskPerWeek}, got["a"].Evaluated)
	assert.Equal(t, []ID{MaxRiskPerDay, MaxRiskPerTrade}, got["b"].Violated)
	assert.Contains(t, got["b"].Evaluated, MaxRiskPerWeek)
	assert.True(t, got["b"].HasRiskViolation())

	assert.Empty(t, got["no-risk"].Evaluated)
	assert.Empty(t, got["no-risk"].Violated)

	// 1 + 1.5 + 0.5 for the week.
	assert.Contains(t, got["wed"].Violated, MaxRiskPerWeek)
	assert.Contains(t, got["wed"].Evaluated, MaxRiskPerDay)
}

func TestEvaluate_MaxDrawdownModes(t *testing.T) {
	t.Parallel()

	hist := []journal.Trade{
		closedTrade("loss", tuesday, "-1500"),
		openTrade("after", tuesday.Add(2*time.Hour)),
	}

	tests := []struct {
		mode     settings.DrawdownMode
		violated bool
	}{
		{"", false},
		{settings.DrawdownWarning, false},
		{settings.DrawdownPause, true},
		{settings.DrawdownStop, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			s := inUTC(&settings.AdvancedSettings{
				RiskManagement: &settings.RiskManagement{MaxDrawdown: fp(10), DrawdownMode: tt.mode},
			})
			got, err := EvaluateAll(hist, s)
			require.NoError(t, err)

			assert.Contains(t, got["loss"].Evaluated, MaxDrawdown, "no loss has closed yet")
			after := got["after"]
			assert.NotContains(t, after.Evaluated, MaxDrawdown)
			assert.Equal(t, tt.violated, has(after.Violated, MaxDrawdown))
			assert.Equal(t, !tt.violated, has(after.Warnings, MaxDrawdown))
			assert.Equal(t, tt.violated, after.HasRiskViolation())
		})
	}
}

func TestEvaluate_CooldownAfterLoss(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Discipline: &settings.Discipline{CooldownAfterLoss: ip(30)},
	})
	// The loss closes at 09:30.
	loss := closedTrade("loss", tuesday, "-20")

	tests := []struct {
		name     string
		after    time.Duration
		violated bool
	}{
		{"right after", 0, true},
		{"inside", 20 * time.Minute, true},
		{"at cooldown end", 30 * time.Minute, false},
		{"later", 2 * time.Hour, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next := openTrade("next", loss.CloseTime.Add(tt.after))
			res, err := Evaluate(next, []journal.Trade{loss, next}, s)
			require.NoError(t, err)
			assert.Equal(t, tt.violated, has(res.Violated, CooldownAfterLoss))
			assert.Equal(t, !tt.violated, has(res.Evaluated, CooldownAfterLoss))
		})
	}
}

func TestEvaluate_CooldownIgnoresWins(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Discipline: &settings.Discipline{CooldownAfterLoss: ip(30)},
	})
	win := closedTrade("win", tuesday, "20")
	next := openTrade("next", win.CloseTime.Add(time.Minute))

	res, err := Evaluate(next, []journal.Trade{win, next}, s)
	require.NoError(t, err)
	assert.Contains(t, res.Evaluated, CooldownAfterLoss)
}

func TestEvaluate_MaxConsecutiveLosses(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Discipline: &settings.Discipline{MaxConsecutiveLosses: ip(2)},
	})

	t.Run("streak", func(t *testing.T) {
		t.Parallel()
		hist := []journal.Trade{
			closedTrade("l1", tuesday, "-10"),
			closedTrade("l2", tuesday.Add(time.Hour), "-10"),
			openTrade("next", tuesday.Add(2*time.Hour)),
		}
		got, err := EvaluateAll(hist, s)
		require.NoError(t, err)
		assert.Contains(t, got["l1"].Evaluated, MaxConsecutiveLosses)
		assert.Contains(t, got["l2"].Evaluated, MaxConsecutiveLosses)
		assert.Contains(t, got["next"].Violated, MaxConsecutiveLosses)
	})

	t.Run("broken by a win", func(t *testing.T) {
		t.Parallel()
		hist := []journal.Trade{
			closedTrade("l1", tuesday, "-10"),
			closedTrade("w", tuesday.Add(time.Hour), "30"),
			closedTrade("l2", tuesday.Add(2*time.Hour), "-10"),
			openTrade("next", tuesday.Add(3*time.Hour)),
		}
		got, err := EvaluateAll(hist, s)
		require.NoError(t, err)
		assert.Contains(t, got["next"].Evaluated, MaxConsecutiveLosses)
	})
}

func TestEvaluate_SessionClosedOnCritical(t *testing.T) {
	t.Parallel()

	adv := func(closeOnCritical bool) *settings.AdvancedSettings {
		return &settings.AdvancedSettings{
			TradingRules: &settings.TradingRules{DailyLossLimit: fp(100), MaxLotSize: fp(1)},
			Discipline:   &settings.Discipline{CloseSessionOnCritical: closeOnCritical},
		}
	}
	big := closedTrade("big", tuesday, "-150")
	oversized := openTrade("oversized", tuesday.Add(24*time.Hour))
	oversized.Size = 3

	got, err := EvaluateAll([]journal.Trade{big, oversized}, inUTC(adv(true)))
	require.NoError(t, err)
	assert.True(t, got["big"].SessionClosed)
	assert.False(t, got["oversized"].SessionClosed, "lot size is not critical")

	got, err = EvaluateAll([]journal.Trade{big}, inUTC(adv(false)))
	require.NoError(t, err)
	assert.False(t, got["big"].SessionClosed)
}

func TestEvaluate_MalformedTrade(t *testing.T) {
	t.Parallel()

	good := openTrade("good", tuesday)
	noPnL := closedTrade("no-pnl", tuesday, "1")
	noPnL.PnL = nil
	noEntry := openTrade("no-entry", time.Time{})

	_, err := Evaluate(noPnL, []journal.Trade{good}, settings.Settings{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, journal.ErrMalformedTrade))

	_, err = Evaluate(good, []journal.Trade{good, noEntry}, settings.Settings{})
	require.Error(t, err)
	var fe *journal.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "no-entry", fe.TradeID)
	assert.Equal(t, "entryTime", fe.Field)

	_, err = Apply([]journal.Trade{good, noPnL}, settings.Settings{})
	assert.ErrorIs(t, err, journal.ErrMalformedTrade)
}

func TestEvaluate_ReplacesStoredVersion(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		TradingRules: &settings.TradingRules{MaxLotSize: fp(1)},
	})
	stored := openTrade("x", tuesday)
	stored.Size = 5
	edited := stored
	edited.Size = 0.5

	res, err := Evaluate(edited, []journal.Trade{stored}, s)
	require.NoError(t, err)
	assert.Contains(t, res.Evaluated, MaxLotSize)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	s := defaultUTC()
	hist := sampleHistory()
	hist[0].EvaluatedRules = []string{"stale"}
	hist[1].ViolatedRules = []string{"stale"}

	once, err := Apply(hist, s)
	require.NoError(t, err)
	twice, err := Apply(once, s)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	for _, tr := range once {
		assert.NotContains(t, tr.EvaluatedRules, "stale")
		assert.NotContains(t, tr.ViolatedRules, "stale")
	}
	assert.Equal(t, []string{"stale"}, hist[0].EvaluatedRules, "input is not modified")
}

func TestEvaluate_EvaluatedAndViolatedAreDisjoint(t *testing.T) {
	t.Parallel()

	got, err := EvaluateAll(sampleHistory(), defaultUTC())
	require.NoError(t, err)
	for tradeID, res := range got {
		for _, v := range res.Violated {
			assert.NotContains(t, res.Evaluated, v, "trade %s", tradeID)
		}
	}
}

func TestEvaluate_DisablingRuleOnlyRemovesIt(t *testing.T) {
	t.Parallel()

	hist := sampleHistory()
	before, err := EvaluateAll(hist, everyRule())
	require.NoError(t, err)

	tests := []struct {
		name    string
		drop    []ID
		disable func(a *settings.AdvancedSettings)
	}{
		{"trades per day", []ID{MaxTradesPerDay}, func(a *settings.AdvancedSettings) { a.TradingRules.MaxTradesPerDay = nil }},
		{"trades per week", []ID{MaxTradesPerWeek}, func(a *settings.AdvancedSettings) { a.TradingRules.MaxTradesPerWeek = nil }},
		{"allowed hours", []ID{AllowedHours}, func(a *settings.AdvancedSettings) { a.TradingRules.AllowedHours.Enabled = false }},
		{"lot size", []ID{MaxLotSize}, func(a *settings.AdvancedSettings) { a.TradingRules.MaxLotSize = nil }},
		{"profit target", []ID{DailyProfitTarget}, func(a *settings.AdvancedSettings) { a.TradingRules.DailyProfitTarget = nil }},
		{"loss limit", []ID{DailyLossLimit}, func(a *settings.AdvancedSettings) { a.TradingRules.DailyLossLimit = nil }},
		{"risk per trade", []ID{MaxRiskPerTrade}, func(a *settings.AdvancedSettings) { a.RiskManagement.MaxRiskPerTrade = nil }},
		{"risk per day", []ID{MaxRiskPerDay}, func(a *settings.AdvancedSettings) { a.RiskManagement.MaxRiskPerDay = nil }},
		{"risk per week", []ID{MaxRiskPerWeek}, func(a *settings.AdvancedSettings) { a.RiskManagement.MaxRiskPerWeek = nil }},
		{"drawdown", []ID{MaxDrawdown}, func(a *settings.AdvancedSettings) { a.RiskManagement.MaxDrawdown = nil }},
		{"cooldown", []ID{CooldownAfterLoss}, func(a *settings.AdvancedSettings) { a.Discipline.CooldownAfterLoss = nil }},
		{"consecutive losses", []ID{MaxConsecutiveLosses}, func(a *settings.AdvancedSettings) { a.Discipline.MaxConsecutiveLosses = nil }},
		{"sessions", []ID{TradingSession}, func(a *settings.AdvancedSettings) { a.Sessions.Sessions = nil }},
		{"days", []ID{TradingDay}, func(a *settings.AdvancedSettings) { a.Sessions.Days = nil }},
		{"rule engine", []ID{CustomID("small"), CustomID("morning")}, func(a *settings.AdvancedSettings) { a.RuleEngine.Enabled = false }},
		{"one custom rule", []ID{CustomID("small")}, func(a *settings.AdvancedSettings) { a.RuleEngine.Rules[0].Enabled = false }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seen := false
			for _, b := range before {
				for _, id := range tt.drop {
					seen = seen || has(b.Evaluated, id) || has(b.Violated, id) || has(b.Warnings, id)
				}
			}
			require.True(t, seen, "history never exercises %v", tt.drop)

			s := everyRule()
			tt.disable(s.Advanced)
			after, err := EvaluateAll(hist, s)
			require.NoError(t, err)

			for tradeID, b := range before {
				a := after[tradeID]
				assert.Equal(t, without(b.Evaluated, tt.drop...), a.Evaluated, "trade %s", tradeID)
				assert.Equal(t, without(b.Violated, tt.drop...), a.Violated, "trade %s", tradeID)
				assert.Equal(t, without(b.Warnings, tt.drop...), a.Warnings, "trade %s", tradeID)
			}
		})
	}
}

func TestEvaluate_ZeroDailyLossLimitIsOff(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Discipline:   &settings.Discipline{CloseSessionOnCritical: true},
		TradingRules: &settings.TradingRules{DailyLossLimit: fp(0)},
	})
	flat := openTrade("flat", tuesday)
	loss := closedTrade("loss", tuesday.Add(time.Hour), "-50")

	got, err := EvaluateAll([]journal.Trade{flat, loss}, s)
	require.NoError(t, err)
	for tradeID, res := range got {
		assert.NotContains(t, res.Violated, DailyLossLimit, "trade %s", tradeID)
		assert.NotContains(t, res.Evaluated, DailyLossLimit, "trade %s", tradeID)
		assert.False(t, res.SessionClosed, "trade %s", tradeID)
	}
}

func TestEvaluate_SessionKeysDifferingOnlyInCase(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Sessions: &settings.SessionRules{
			Sessions:            map[settings.Session]bool{"London": true, "london": false, "LONDON": true},
			Days:                map[string]bool{"Tuesday": true, "tuesday": false},
			BlockOutsideSession: true,
		},
	})
	tr := openTrade("a", tuesday)

	for i := 0; i < 100; i++ {
		res, err := Evaluate(tr, nil, s)
		require.NoError(t, err)
		require.Contains(t, res.Violated, TradingSession, "run %d", i)
		require.Contains(t, res.Violated, TradingDay, "run %d", i)
	}
}

func TestEvaluate_ConsecutiveLossesOnlyCountClosedByEntry(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Discipline: &settings.Discipline{MaxConsecutiveLosses: ip(1)},
	})
	// a is still open when b is entered and closes at a loss afterwards.
	a := closedTrade("a", tuesday, "-40")
	late := tuesday.Add(6 * time.Hour)
	a.CloseTime = &late
	b := openTrade("b", tuesday.Add(2*time.Hour))
	c := openTrade("c", tuesday.Add(7*time.Hour))

	got, err := EvaluateAll([]journal.Trade{a, b, c}, s)
	require.NoError(t, err)
	assert.Contains(t, got["b"].Evaluated, MaxConsecutiveLosses)
	assert.Contains(t, got["c"].Violated, MaxConsecutiveLosses, "b is still open, a has closed")
}

func TestEvaluate_DrawdownWithoutInitialBalance(t *testing.T) {
	t.Parallel()

	s := settings.Settings{
		Timezone: "UTC",
		Advanced: &settings.AdvancedSettings{
			RiskManagement: &settings.RiskManagement{MaxDrawdown: fp(10), DrawdownMode: settings.DrawdownStop},
		},
	}
	hist := []journal.Trade{
		closedTrade("loss", tuesday, "-50"),
		openTrade("after", tuesday.Add(2*time.Hour)),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["after"].Evaluated, MaxDrawdown, "measured against the default balance")
	assert.Empty(t, got["after"].Warnings)
}

func TestSessionAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hour int
		want settings.Session
	}{
		{0, settings.SessionAsian},
		{7, settings.SessionAsian},
		{8, settings.SessionLondon},
		{12, settings.SessionLondon},
		{13, settings.SessionOverlap},
		{16, settings.SessionOverlap},
		{17, settings.SessionNewYork},
		{21, settings.SessionNewYork},
		{22, settings.SessionOther},
		{23, settings.SessionOther},
	}
	for _, tt := range tests {
		at := time.Date(2025, 3, 4, tt.hour, 30, 0, 0, time.UTC)
		assert.Equal(t, tt.want, SessionAt(at), "hour %d", tt.hour)
	}

	// Sessions are fixed in UTC regardless of the instant's zone.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, settings.SessionLondon, SessionAt(time.Date(2025, 3, 4, 18, 0, 0, 0, tokyo)))
}

func TestEvaluate_Sessions(t *testing.T) {
	t.Parallel()

	rulesFor := func(block bool) settings.Settings {
		return inUTC(&settings.AdvancedSettings{
			Sessions: &settings.SessionRules{
				Sessions:            map[settings.Session]bool{settings.SessionLondon: true, settings.SessionOverlap: false},
				BlockOutsideSession: block,
			},
		})
	}
	london := openTrade("london", tuesday)
	overlap := openTrade("overlap", tuesday.Add(5*time.Hour))
	asian := openTrade("asian", tuesday.Add(-6*time.Hour))
	hist := []journal.Trade{asian, london, overlap}

	got, err := EvaluateAll(hist, rulesFor(true))
	require.NoError(t, err)
	assert.Contains(t, got["london"].Evaluated, TradingSession)
	assert.Contains(t, got["overlap"].Violated, TradingSession)
	assert.Contains(t, got["asian"].Violated, TradingSession, "missing key is disabled")

	got, err = EvaluateAll(hist, rulesFor(false))
	require.NoError(t, err)
	assert.Contains(t, got["overlap"].Warnings, TradingSession)
	assert.NotContains(t, got["overlap"].Violated, TradingSession)
	assert.NotContains(t, got["overlap"].Evaluated, TradingSession)
}

func TestEvaluate_TradingDays(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		Sessions: &settings.SessionRules{
			Days:                map[string]bool{"Monday": true, "tuesday": true, "wednesday": false},
			BlockOutsideSession: true,
		},
	})
	hist := []journal.Trade{
		openTrade("tue", tuesday),
		openTrade("wed", tuesday.Add(24*time.Hour)),
		openTrade("thu", tuesday.Add(48*time.Hour)),
	}

	got, err := EvaluateAll(hist, s)
	require.NoError(t, err)
	assert.Contains(t, got["tue"].Evaluated, TradingDay)
	assert.Contains(t, got["wed"].Violated, TradingDay)
	assert.Contains(t, got["thu"].Violated, TradingDay)
	assert.False(t, has(got["tue"].Evaluated, TradingSession), "empty session map is off")
}

func TestEvaluate_CustomRules(t *testing.T) {
	t.Parallel()

	s := inUTC(&settings.AdvancedSettings{
		RuleEngine: &settings.RuleEngine{
			Enabled: true,
			Rules: []settings.CustomRule{
				{ID: "small", Enabled: true, Metric: "size", Operator: "<=", Value: 1},
				{ID: "morning", Enabled: true, Metric: "entry_hour", Operator: "<", Value: 12},
				{ID: "positive", Enabled: true, Metric: "pnl", Operator: ">", Value: 0},
				{ID: "off", Enabled: false, Metric: "size", Operator: ">", Value: 100},
				{ID: "bogus-metric", Enabled: true, Metric: "mood", Operator: ">", Value: 1},
				{ID: "bogus-op", Enabled: true, Metric: "size", Operator: "=~", Value: 1},
			},
		},
	})
	big := openTrade("big", tuesday)
	big.Size = 2

	res, err := Evaluate(big, []journal.Trade{big}, s)
	require.NoError(t, err)
	assert.Equal(t, []ID{CustomID("morning")}, res.Evaluated)
	assert.Equal(t, []ID{CustomID("small")}, res.Violated)

	loss := closedTrade("loss", tuesday.Add(5*time.Hour), "-5")
	res, err = Evaluate(loss, []journal.Trade{loss}, s)
	require.NoError(t, err)
	assert.Equal(t, []ID{CustomID("small")}, res.Evaluated)
	assert.Equal(t, []ID{CustomID("morning"), CustomID("positive")}, res.Violated)

	s.Advanced.RuleEngine.Enabled = false
	res, err = Evaluate(loss, []journal.Trade{loss}, s)
	require.NoError(t, err)
	assert.Empty(t, res.Evaluated)
	assert.Empty(t, res.Violated)
}

func TestKnownMetric(t *testing.T) {
	t.Parallel()

	assert.True(t, KnownMetric("size"))
	assert.True(t, KnownMetric(" Daily_PnL "))
	assert.False(t, KnownMetric("mood"))
	assert.Contains(t, Metrics(), "consecutive_losses")
}

func TestResult_ApplyTo(t *testing.T) {
	t.Parallel()

	r := Result{Evaluated: []ID{MaxLotSize}, Violated: []ID{CustomID("x")}}
	tr := r.ApplyTo(openTrade("a", tuesday))
	assert.Equal(t, []string{"max_lot_size"}, tr.EvaluatedRules)
	assert.Equal(t, []string{"custom:x"}, tr.ViolatedRules)
}

// sampleHistory spans two weeks of mixed wins, losses and open trades.
func sampleHistory() []journal.Trade {
	pnls := []string{"-120", "-90", "40", "-30", "250", "-15", "80", "-60", "-70", "10"}
	var out []journal.Trade
	at := tuesday
	for i, p := range pnls {
		tr := withRisk(closedTrade(tid(i), at, p), 0.5+float64(i%3)*0.5)
		tr.Size = 0.5 + float64(i%4)*0.4
		out = append(out, tr)
		at = at.Add(time.Duration(5+i*7) * time.Hour)
	}
	out = append(out, openTrade(tid(len(pnls)), at))
	return out
}

func without(ids []ID, drop ...ID) []ID {
	out := []ID{}
	for _, i := range ids {
		if !has(drop, i) {
			out = append(out, i)
		}
	}
	return out
}

// everyRule is the default document with every optional check switched on.
func everyRule() settings.Settings {
	s := defaultUTC()
	s.Advanced.TradingRules.AllowedHours = &settings.HourWindow{Enabled: true, StartHour: 8, EndHour: 20}
	s.Advanced.RuleEngine = &settings.RuleEngine{
		Enabled: true,
		Rules: []settings.CustomRule{
			{ID: "small", Enabled: true, Metric: "size", Operator: "<=", Value: 1},
			{ID: "morning", Enabled: true, Metric: "entry_hour", Operator: "<", Value: 12},
		},
	}
	return s
}
