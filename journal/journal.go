// journal/journal.go
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Trade is a single journal entry. EvaluatedRules and ViolatedRules are
// written by the rule evaluator and are otherwise left alone.
type Trade struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Direction   Direction        `json:"direction"`
	EntryTime   time.Time        `json:"entryTime"`
	CloseTime   *time.Time       `json:"closeTime,omitempty"`
	Size        float64          `json:"size"`
	Status      Status           `json:"status"`
	PnL         *decimal.Decimal `json:"pnl,omitempty"`
	RMultiple   *float64         `json:"rMultiple,omitempty"`
	RiskPercent *float64         `json:"riskPercent,omitempty"`
	Notes       string           `json:"notes,omitempty"`

	EvaluatedRules []string `json:"evaluatedRules"`
	ViolatedRules  []string `json:"violatedRules"`
}

var (
	// ErrMalformedTrade is wrapped by every FieldError.
	ErrMalformedTrade = errors.New("malformed trade")

	ErrNotFound = errors.New("trade not found")
)

// FieldError names the trade and the required field it is missing.
type FieldError struct {
	TradeID string
	Field   string
	Reason  string
}

func (e *FieldError) Error() string {
	id := e.TradeID
	if id == "" {
		id = "<no id>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("trade %s: field %s: %s", id, e.Field, e.Reason)
	}
	return fmt.Sprintf("trade %s: missing required field %s", id, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrMalformedTrade }

// Validate checks the fields every aggregate over the history depends on.
func (t Trade) Validate() error {
	if t.ID == "" {
		return &FieldError{Field: "id"}
	}
	if t.EntryTime.IsZero() {
		return &FieldError{TradeID: t.ID, Field: "entryTime"}
	}
	switch t.Status {
	case StatusOpen:
	case StatusClosed:
		if t.CloseTime == nil || t.CloseTime.IsZero() {
			return &FieldError{TradeID: t.ID, Field: "closeTime"}
		}
		if t.PnL == nil {
			return &FieldError{TradeID: t.ID, Field: "pnl"}
		}
	case "":
		return &FieldError{TradeID: t.ID, Field: "status"}
	default:
		return &FieldError{TradeID: t.ID, Field: "status", Reason: fmt.Sprintf("unknown status %q", t.Status)}
	}
	return nil
}

// ValidateAll fails on the first malformed trade.
func ValidateAll(trades []Trade) error {
	for _, t := range trades {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t Trade) IsClosed() bool { return t.Status == StatusClosed }

// IsLoss reports a closed trade with negative realized P/L.
func (t Trade) IsLoss() bool {
	return t.IsClosed() && t.PnL != nil && t.PnL.IsNegative()
}

func (t Trade) IsWin() bool {
	return t.IsClosed() && t.PnL != nil && t.PnL.IsPositive()
}

// Chronological returns a copy of trades ordered by entry time, then ID.
func Chronological(trades []Trade) []Trade {
	out := make([]Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Before reports whether a sorts before b in Chronological order.
func Before(a, b Trade) bool {
	if !a.EntryTime.Equal(b.EntryTime) {
		return a.EntryTime.Before(b.EntryTime)
	}
	return a.ID < b.ID
}

// Store is the host-side persistence for trades.
type Store interface {
	Save(ctx context.Context, t Trade) error
	Get(ctx context.Context, id string) (Trade, error)
	List(ctx context.Context) ([]Trade, error)
	ListEnteredBetween(ctx context.Context, start, end time.Time) ([]Trade, error)
	Delete(ctx context.Context, id string) error
	UpdateEvaluations(ctx context.Context, trades []Trade) error
	Close() error
}
