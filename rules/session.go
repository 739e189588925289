package rules

import (
	"time"

	"github.com/rustyeddy/tradejournal/settings"
)

// sessionByHour maps the UTC entry hour to its market session. Bands are
// fixed: asian 00-07, london 08-12, london/new-york overlap 13-16,
// new-york 17-21, other 22-23.
var sessionByHour = [24]settings.Session{
	settings.SessionAsian, settings.SessionAsian, settings.SessionAsian, settings.SessionAsian,
	settings.SessionAsian, settings.SessionAsian, settings.SessionAsian, settings.SessionAsian,
	settings.SessionLondon, settings.SessionLondon, settings.SessionLondon, settings.SessionLondon,
	settings.SessionLondon,
	settings.SessionOverlap, settings.SessionOverlap, settings.SessionOverlap, settings.SessionOverlap,
	settings.SessionNewYork, settings.SessionNewYork, settings.SessionNewYork, settings.SessionNewYork,
	settings.SessionNewYork,
	settings.SessionOther, settings.SessionOther,
}

var dayNames = [7]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// SessionAt classifies an instant into its market session.
func SessionAt(t time.Time) settings.Session {
	return sessionByHour[t.UTC().Hour()]
}

// DayName is the lower-case weekday name used in SessionRules.Days.
func DayName(d time.Weekday) string {
	return dayNames[d]
}

func checkSession(c *tradeContext, b *builder) {
	sr := c.idx.s.Sessions()
	if sr == nil || len(sr.Sessions) == 0 {
		return
	}
	session := SessionAt(c.t.EntryTime)
	if sr.SessionEnabled(session) {
		b.pass(TradingSession)
		return
	}
	if sr.BlockOutsideSession {
		b.fail(TradingSession, "entered during disabled session %s", session)
		return
	}
	b.warn(TradingSession, "entered during disabled session %s", session)
}

func checkDay(c *tradeContext, b *builder) {
	sr := c.idx.s.Sessions()
	if sr == nil || len(sr.Days) == 0 {
		return
	}
	day := DayName(c.entry.Weekday())
	if sr.DayAllowed(day) {
		b.pass(TradingDay)
		return
	}
	if sr.BlockOutsideSession {
		b.fail(TradingDay, "entered on disallowed day %s", day)
		return
	}
	b.warn(TradingDay, "entered on disallowed day %s", day)
}
