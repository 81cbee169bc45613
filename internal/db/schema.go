package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The three UNIQUE columns are the authoritative duplicate signal for
// registration; the service never pre-checks and races the insert.
const usersTable = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	phone_number  TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, usersTable)
	return err
}
