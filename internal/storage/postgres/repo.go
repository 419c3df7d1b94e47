// Package postgres implements a Postgres repository using pgx v5. Rows are
// written with the COPY protocol through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a Close function for
// cleanup. pgxpool connects lazily; callers should Ping before relying on
// the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Repository{pool: pool}, pool.Close, nil
}

// Ping checks that a connection can be acquired.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Exec runs a statement that returns no rows.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("postgres: Exec: empty SQL")
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return wrapPgErr("exec", err)
	}
	return nil
}

// CopyFrom streams rows into table using COPY FROM STDIN. Numeric cells held
// as decimal.Decimal are converted to pgtype.Numeric so no precision is lost.
func (r *Repository) CopyFrom(
	ctx context.Context,
	table string,
	columns []string,
	rows [][]any,
) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		row := rows[i]
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d: length %d != columns length %d", i, len(row), len(columns))
		}
		out := make([]any, len(row))
		for j, v := range row {
			out[j] = toPg(v)
		}
		return out, nil
	})

	n, err := r.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return n, wrapPgErr("copy into "+table, err)
	}
	return n, nil
}

func toPg(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
	default:
		return v
	}
}

// wrapPgErr surfaces server-side detail and SQLSTATE when present.
func wrapPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail != "" {
			return fmt.Errorf("postgres: %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
		}
		return fmt.Errorf("postgres: %s (%s): %w", op, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
