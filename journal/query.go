package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const selectTrades = `
	SELECT trade_id, symbol, direction, entry_time, close_time, size, status, pnl, r_multiple, risk_percent, notes, evaluated_rules, violated_rules
	FROM trades`

// Get returns a single trade by ID.
func (j *SQLite) Get(ctx context.Context, id string) (Trade, error) {
	row := j.db.QueryRowContext(ctx, selectTrades+` WHERE trade_id = ?`, id)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Trade{}, fmt.Errorf("trade %s: %w", id, ErrNotFound)
		}
		return Trade{}, err
	}
	return t, nil
}

// List returns every trade ordered by entry time, then ID.
func (j *SQLite) List(ctx context.Context) ([]Trade, error) {
	rows, err := j.db.QueryContext(ctx, selectTrades+` ORDER BY entry_time ASC, trade_id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListEnteredBetween returns trades whose entry_time is within [start, end).
func (j *SQLite) ListEnteredBetween(ctx context.Context, start, end time.Time) ([]Trade, error) {
	rows, err := j.db.QueryContext(ctx, selectTrades+`
		WHERE entry_time >= ? AND entry_time < ?
		ORDER BY entry_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func collect(rows *sql.Rows) ([]Trade, error) {
	defer rows.Close()

	out := []Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTrade(s scanner) (Trade, error) {
	var (
		t                   Trade
		direction, status   string
		closeTime           sql.NullTime
		pnl                 sql.NullString
		rMultiple, riskPct  sql.NullFloat64
		evaluated, violated string
	)
	err := s.Scan(
		&t.ID,
		&t.Symbol,
		&direction,
		&t.EntryTime,
		&closeTime,
		&t.Size,
		&status,
		&pnl,
		&rMultiple,
		&riskPct,
		&t.Notes,
		&evaluated,
		&violated,
	)
	if err != nil {
		return Trade{}, err
	}

	t.Direction = Direction(direction)
	t.Status = Status(status)
	if closeTime.Valid {
		ct := closeTime.Time
		t.CloseTime = &ct
	}
	if pnl.Valid {
		d, err := decimal.NewFromString(pnl.String)
		if err != nil {
			return Trade{}, fmt.Errorf("trade %s: pnl: %w", t.ID, err)
		}
		t.PnL = &d
	}
	if rMultiple.Valid {
		v := rMultiple.Float64
		t.RMultiple = &v
	}
	if riskPct.Valid {
		v := riskPct.Float64
		t.RiskPercent = &v
	}
	if t.EvaluatedRules, err = decodeRules(evaluated); err != nil {
		return Trade{}, fmt.Errorf("trade %s: evaluated_rules: %w", t.ID, err)
	}
	if t.ViolatedRules, err = decodeRules(violated); err != nil {
		return Trade{}, fmt.Errorf("trade %s: violated_rules: %w", t.ID, err)
	}
	return t, nil
}
