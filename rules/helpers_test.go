package rules

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/settings"
	"github.com/shopspring/decimal"
)

// tuesday 2025-03-04 09:00 UTC, inside the london session.
var tuesday = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func openTrade(id string, at time.Time) journal.Trade {
	return journal.Trade{
		ID:        id,
		Symbol:    "EURUSD",
		Direction: journal.Long,
		EntryTime: at,
		Size:      1,
		Status:    journal.StatusOpen,
	}
}

// closedTrade is held for 30 minutes.
func closedTrade(id string, at time.Time, pnl string) journal.Trade {
	t := openTrade(id, at)
	ct := at.Add(30 * time.Minute)
	p := decimal.RequireFromString(pnl)
	t.Status = journal.StatusClosed
	t.CloseTime = &ct
	t.PnL = &p
	return t
}

func withRisk(t journal.Trade, pct float64) journal.Trade {
	t.RiskPercent = &pct
	return t
}

func ip(v int) *int { return &v }

func fp(v float64) *float64 { return &v }

func tid(n int) string { return fmt.Sprintf("t%02d", n) }

func inUTC(adv *settings.AdvancedSettings) settings.Settings {
	return settings.Settings{Timezone: "UTC", InitialBalance: 10000, Advanced: adv}
}

func defaultUTC() settings.Settings {
	s := *settings.Default()
	s.Timezone = "UTC"
	return s
}

func has(ids []ID, want ID) bool {
	for _, i := range ids {
		if i == want {
			return true
		}
	}
	return false
}
