package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema bootstraps the persisted schema surface. The uniqueness
// constraints double as concurrency-safety invariants: one card_tags row per
// (card, tag) pair, one review_queue row per card.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mana_cost TEXT NOT NULL DEFAULT '',
	cmc INTEGER NOT NULL DEFAULT 0,
	type_line TEXT NOT NULL DEFAULT '',
	oracle_text TEXT NOT NULL DEFAULT '',
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	colors JSONB NOT NULL DEFAULT '[]'::jsonb,
	rarity TEXT NOT NULL DEFAULT '',
	power INTEGER,
	toughness INTEGER,
	released_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	tag_names JSONB NOT NULL DEFAULT '[]'::jsonb,
	tag_confidence_avg DOUBLE PRECISION,
	needs_review BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cards_name_lower ON cards(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_cards_released_at ON cards(released_at DESC);
CREATE INDEX IF NOT EXISTS idx_cards_needs_review ON cards(needs_review) WHERE needs_review;

CREATE TABLE IF NOT EXISTS tags (
	name TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	parent_name TEXT REFERENCES tags(name),
	combo_relevant BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS card_tags (
	card_id TEXT NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
	tag_name TEXT NOT NULL REFERENCES tags(name),
	confidence DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (card_id, tag_name)
);

CREATE TABLE IF NOT EXISTS review_queue (
	card_id TEXT PRIMARY KEY REFERENCES cards(id) ON DELETE CASCADE,
	reason TEXT NOT NULL,
	priority INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_review_queue_priority ON review_queue(priority DESC);

CREATE TABLE IF NOT EXISTS extraction_jobs (
	id TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	prompt_version TEXT NOT NULL DEFAULT '',
	confidence_threshold DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	total_cards INTEGER NOT NULL DEFAULT 0,
	processed_cards INTEGER NOT NULL DEFAULT 0,
	failed_cards INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
