package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	close_time DATETIME,
	size REAL NOT NULL,
	status TEXT NOT NULL,
	pnl TEXT,
	r_multiple REAL,
	risk_percent REAL,
	notes TEXT NOT NULL DEFAULT '',
	evaluated_rules TEXT NOT NULL DEFAULT '[]',
	violated_rules TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time);
`
