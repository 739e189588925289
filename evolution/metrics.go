package evolution

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/rules"
	"github.com/shopspring/decimal"
)

var zeroTime time.Time

type month struct {
	key int // year*12 + month-1
	pnl decimal.Decimal
}

func (m month) green() bool { return m.pnl.IsPositive() }

// bucketMonths sums realized P/L per calendar month of close time, oldest first.
func bucketMonths(closed []journal.Trade, loc *time.Location) []month {
	byKey := map[int]decimal.Decimal{}
	for _, t := range closed {
		ct := t.CloseTime.In(loc)
		key := ct.Year()*12 + int(ct.Month()) - 1
		byKey[key] = byKey[key].Add(*t.PnL)
	}
	out := make([]month, 0, len(byKey))
	for k, pnl := range byKey {
		out = append(out, month{key: k, pnl: pnl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func countGreen(months []month) int {
	n := 0
	for _, m := range months {
		if m.green() {
			n++
		}
	}
	return n
}

func winRate(closed []journal.Trade) float64 {
	if len(closed) == 0 {
		return 0
	}
	wins := 0
	for _, t := range closed {
		if t.IsWin() {
			wins++
		}
	}
	return 100 * float64(wins) / float64(len(closed))
}

func avgR(closed []journal.Trade) float64 {
	var sum float64
	n := 0
	for _, t := range closed {
		if t.RMultiple != nil {
			sum += *t.RMultiple
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// drawdownControl is 100 at no drawdown, 0 at or beyond bound, linear between.
func drawdownControl(current, bound float64) float64 {
	if bound <= 0 {
		return 0
	}
	return clamp(100 * (1 - current/bound))
}

// consistency scores the coefficient of variation of monthly P/L: 100 for
// identical months, 0 at maxCV or above. A non-positive mean scores 0.
func consistency(months []month, maxCV float64) float64 {
	values := make([]float64, len(months))
	for i, m := range months {
		values[i] = m.pnl.InexactFloat64()
	}
	mean := computeMean(values)
	if mean <= 0 || maxCV <= 0 {
		return 0
	}
	cv := computeStddev(values, mean) / mean
	return clamp(100 * (1 - cv/maxCV))
}

func riskRespect(closed []journal.Trade, evaluations map[string]rules.Result) float64 {
	if len(closed) == 0 {
		return 0
	}
	clean := 0
	for _, t := range closed {
		if !evaluations[t.ID].HasRiskViolation() {
			clean++
		}
	}
	return clamp(100 * float64(clean) / float64(len(closed)))
}

func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev is the sample standard deviation (n-1 denominator).
func computeStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundProgress(p Progress) Progress {
	p.DrawdownControl = round2(p.DrawdownControl)
	p.GreenMonths = round2(p.GreenMonths)
	p.OperationalConsistency = round2(p.OperationalConsistency)
	p.RiskRespect = round2(p.RiskRespect)
	return p
}
