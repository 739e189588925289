package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a Trade as an Org-mode block suitable for pasting into a journal.
// Structured facts live in a PROPERTIES drawer, rule outcomes in their own section.
func FormatTradeOrg(t Trade) string {
	heading := fmt.Sprintf("** Trade: %s %s (%s)", t.Symbol, t.Direction, shortID(t.TradeLabel()))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":SIZE: %s\n", f(t.Size)))
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", t.Status))
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339)))
	if t.CloseTime != nil {
		b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339)))
	}
	if t.PnL != nil {
		b.WriteString(fmt.Sprintf(":PNL: %s\n", t.PnL.StringFixed(2)))
	}
	if t.RMultiple != nil {
		b.WriteString(fmt.Sprintf(":R_MULTIPLE: %.2f\n", *t.RMultiple))
	}
	if t.RiskPercent != nil {
		b.WriteString(fmt.Sprintf(":RISK_PERCENT: %.2f\n", *t.RiskPercent))
	}
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Rules\n")
	writeRuleList(&b, "+", t.EvaluatedRules)
	writeRuleList(&b, "-", t.ViolatedRules)
	b.WriteString("\n")
	b.WriteString("*** Notes\n")
	if t.Notes != "" {
		b.WriteString("- " + t.Notes + "\n")
	} else {
		b.WriteString("- \n")
	}

	return b.String()
}

func writeRuleList(b *strings.Builder, mark string, ids []string) {
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("- [%s] %s\n", mark, id))
	}
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// TradeLabel is the ID, or "new" for a trade not yet saved.
func (t Trade) TradeLabel() string {
	if t.ID == "" {
		return "new"
	}
	return t.ID
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
