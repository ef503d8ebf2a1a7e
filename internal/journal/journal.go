// Package journal persists order activity to SQLite for audit and
// post-trade analysis. The engine reconciles live state from the
// exchange, not from here; the journal is write-mostly.
package journal

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"maker-systemv1/internal/model"
)

// Journal records order submissions and cancellations.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// New opens (or creates) the journal database.
func New(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS orders (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		action            TEXT NOT NULL,
		internal_id       TEXT NOT NULL,
		exchange_order_id TEXT,
		symbol            TEXT NOT NULL,
		side              TEXT NOT NULL,
		price             REAL NOT NULL,
		amount            REAL NOT NULL,
		reduce_only       INTEGER NOT NULL,
		at                DATETIME NOT NULL,
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
	CREATE INDEX IF NOT EXISTS idx_orders_at ON orders(at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened order journal at %s", dbPath)
	return &Journal{db: db}, nil
}

func (j *Journal) record(action string, o model.Order) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	side := "sell"
	if o.IsBuy {
		side = "buy"
	}
	_, err := j.db.Exec(
		`INSERT INTO orders (action, internal_id, exchange_order_id, symbol, side, price, amount, reduce_only, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		action,
		o.ID,
		o.ExchangeOrderID,
		o.Symbol,
		side,
		o.Price,
		o.Amount,
		boolInt(o.ReduceOnly),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecordSubmit journals a successful order submission.
func (j *Journal) RecordSubmit(o model.Order) error {
	return j.record("submit", o)
}

// RecordCancel journals an order cancellation request.
func (j *Journal) RecordCancel(o model.Order) error {
	return j.record("cancel", o)
}

// Record is one row from the orders table.
type Record struct {
	ID              int64   `json:"id"`
	Action          string  `json:"action"`
	InternalID      string  `json:"internal_id"`
	ExchangeOrderID string  `json:"exchange_order_id"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Price           float64 `json:"price"`
	Amount          float64 `json:"amount"`
	ReduceOnly      bool    `json:"reduce_only"`
	At              string  `json:"at"`
}

// GetRecent returns the last N records, newest first.
func (j *Journal) GetRecent(limit int) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, action, internal_id, COALESCE(exchange_order_id, ''), symbol, side, price, amount, reduce_only, at
		 FROM orders ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		var ro int
		if err := rows.Scan(&r.ID, &r.Action, &r.InternalID, &r.ExchangeOrderID,
			&r.Symbol, &r.Side, &r.Price, &r.Amount, &ro, &r.At); err != nil {
			continue
		}
		r.ReduceOnly = ro != 0
		recs = append(recs, r)
	}
	return recs, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
