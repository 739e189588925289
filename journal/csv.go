package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradejournal/pkg/id"
	"github.com/shopspring/decimal"
)

var csvHeader = []string{
	"trade_id", "symbol", "direction", "entry_time", "close_time", "size", "status",
	"pnl", "r_multiple", "risk_percent", "notes", "evaluated_rules", "violated_rules",
}

// WriteCSV exports trades with a header row. Rule sets are joined with ';'.
func WriteCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		closeTime := ""
		if t.CloseTime != nil {
			closeTime = t.CloseTime.UTC().Format(time.RFC3339)
		}
		pnl := ""
		if t.PnL != nil {
			pnl = t.PnL.String()
		}
		err := cw.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Direction),
			t.EntryTime.UTC().Format(time.RFC3339),
			closeTime,
			f(t.Size),
			string(t.Status),
			pnl,
			optF(t.RMultiple),
			optF(t.RiskPercent),
			t.Notes,
			strings.Join(t.EvaluatedRules, ";"),
			strings.Join(t.ViolatedRules, ";"),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV imports trades. Columns are matched by header name so partial
// exports from other tools load as long as the required columns exist.
// Rows without a trade_id get a fresh ID.
func ReadCSV(r io.Reader) ([]Trade, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"entry_time", "status"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []Trade
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		t, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseRow(get func(string) string) (Trade, error) {
	t := Trade{
		ID:             get("trade_id"),
		Symbol:         get("symbol"),
		Direction:      Direction(strings.ToLower(get("direction"))),
		Status:         Status(strings.ToLower(get("status"))),
		Notes:          get("notes"),
		EvaluatedRules: splitRules(get("evaluated_rules")),
		ViolatedRules:  splitRules(get("violated_rules")),
	}
	var err error
	if t.EntryTime, err = parseTime(get("entry_time")); err != nil {
		return t, fmt.Errorf("entry_time: %w", err)
	}
	if t.ID == "" {
		t.ID = id.NewAt(t.EntryTime)
	}
	if v := get("close_time"); v != "" {
		ct, err := parseTime(v)
		if err != nil {
			return t, fmt.Errorf("close_time: %w", err)
		}
		t.CloseTime = &ct
	}
	if v := get("size"); v != "" {
		if t.Size, err = strconv.ParseFloat(v, 64); err != nil {
			return t, fmt.Errorf("size: %w", err)
		}
	}
	if v := get("pnl"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return t, fmt.Errorf("pnl: %w", err)
		}
		t.PnL = &d
	}
	if t.RMultiple, err = parseOptF(get("r_multiple")); err != nil {
		return t, fmt.Errorf("r_multiple: %w", err)
	}
	if t.RiskPercent, err = parseOptF(get("risk_percent")); err != nil {
		return t, fmt.Errorf("risk_percent: %w", err)
	}
	return t, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}

func splitRules(v string) []string {
	out := []string{}
	for _, s := range strings.Split(v, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func optF(p *float64) string {
	if p == nil {
		return ""
	}
	return f(*p)
}

func parseOptF(v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
