package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Save inserts or replaces a trade. Malformed trades are rejected before
// they can reach the table.
func (j *SQLite) Save(ctx context.Context, t Trade) error {
	if err := t.Validate(); err != nil {
		return err
	}
	row, err := toRow(t)
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, symbol, direction, entry_time, close_time, size, status, pnl, r_multiple, risk_percent, notes, evaluated_rules, violated_rules)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			symbol = excluded.symbol,
			direction = excluded.direction,
			entry_time = excluded.entry_time,
			close_time = excluded.close_time,
			size = excluded.size,
			status = excluded.status,
			pnl = excluded.pnl,
			r_multiple = excluded.r_multiple,
			risk_percent = excluded.risk_percent,
			notes = excluded.notes,
			evaluated_rules = excluded.evaluated_rules,
			violated_rules = excluded.violated_rules`,
		row.id, row.symbol, row.direction, row.entry, row.close, row.size, row.status,
		row.pnl, row.rMultiple, row.riskPercent, row.notes, row.evaluated, row.violated,
	)
	return err
}

// UpdateEvaluations writes only the engine-derived columns, in one transaction.
func (j *SQLite) UpdateEvaluations(ctx context.Context, trades []Trade) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE trades SET evaluated_rules = ?, violated_rules = ? WHERE trade_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		evaluated, err := encodeRules(t.EvaluatedRules)
		if err != nil {
			return err
		}
		violated, err := encodeRules(t.ViolatedRules)
		if err != nil {
			return err
		}
		res, err := stmt.ExecContext(ctx, evaluated, violated, t.ID)
		if err != nil {
			return fmt.Errorf("update %s: %w", t.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update %s: %w", t.ID, ErrNotFound)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Delete(ctx context.Context, id string) error {
	res, err := j.db.ExecContext(ctx, `DELETE FROM trades WHERE trade_id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

type tradeRow struct {
	id, symbol, direction, status, notes string
	entry                                any
	close                                any
	size                                 float64
	pnl                                  any
	rMultiple, riskPercent               any
	evaluated, violated                  string
}

func toRow(t Trade) (tradeRow, error) {
	r := tradeRow{
		id:        t.ID,
		symbol:    t.Symbol,
		direction: string(t.Direction),
		status:    string(t.Status),
		notes:     t.Notes,
		entry:     t.EntryTime.UTC(),
		size:      t.Size,
	}
	if t.CloseTime != nil {
		r.close = t.CloseTime.UTC()
	}
	if t.PnL != nil {
		r.pnl = t.PnL.String()
	}
	if t.RMultiple != nil {
		r.rMultiple = *t.RMultiple
	}
	if t.RiskPercent != nil {
		r.riskPercent = *t.RiskPercent
	}

	var err error
	if r.evaluated, err = encodeRules(t.EvaluatedRules); err != nil {
		return r, err
	}
	if r.violated, err = encodeRules(t.ViolatedRules); err != nil {
		return r, err
	}
	return r, nil
}

func encodeRules(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRules(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
