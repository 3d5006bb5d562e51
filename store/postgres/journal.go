// Package postgres persists the trade log beyond the in-memory ring.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/michaelpento.lv/arbscanner/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal appends trade log entries to PostgreSQL
type Journal struct {
	pool *pgxpool.Pool
	db   execer
}

// Open connects to dsn, verifies the connection and applies migrations
func Open(ctx context.Context, dsn string) (*Journal, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	j := &Journal{pool: pool, db: pool}
	if err := j.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

// migrate applies every embedded migration in name order. Migrations are
// idempotent.
func (j *Journal) migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Name() < entries[b].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", entry.Name(), err)
		}
		if _, err := j.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("postgres: exec migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

const insertTrade = `
INSERT INTO trade_log (
    id, executed_at, chain, strategy, route, amount_in, status, outcome,
    expected_usd, net_profit_usd, gas_cost_usd, tx_hashes, stranded, duration_ms, error
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO NOTHING`

func tradeArgs(e types.TradeLogEntry) ([]any, error) {
	hashes := e.TxHashes
	if hashes == nil {
		hashes = []string{}
	}
	hashJSON, err := json.Marshal(hashes)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal tx hashes: %w", err)
	}

	var stranded []byte
	if e.Stranded != nil {
		if stranded, err = json.Marshal(e.Stranded); err != nil {
			return nil, fmt.Errorf("postgres: marshal stranded asset: %w", err)
		}
	}

	return []any{
		e.ID,
		e.Timestamp,
		e.Chain,
		string(e.Strategy),
		e.Route,
		e.AmountIn,
		e.Status,
		string(e.Outcome),
		e.ExpectedUsd.String(),
		e.NetProfitUsd.String(),
		e.GasCostUsd.String(),
		hashJSON,
		stranded,
		e.DurationMs,
		e.Error,
	}, nil
}

// Record inserts one entry. Replays of the same id are ignored.
func (j *Journal) Record(ctx context.Context, entry types.TradeLogEntry) error {
	args, err := tradeArgs(entry)
	if err != nil {
		return err
	}
	if _, err := j.db.Exec(ctx, insertTrade, args...); err != nil {
		return fmt.Errorf("postgres: record trade %s: %w", entry.ID, err)
	}
	return nil
}

// Close shuts down the connection pool
func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}
