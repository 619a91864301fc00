package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const documentRowID = "primary"

// PGQuerier is the subset of *pgxpool.Pool the Postgres backend needs.
type PGQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend keeps the document in one jsonb row of record_document.
// The table is created by the migrations.
type PostgresBackend struct {
	db PGQuerier
}

func NewPostgresBackend(db PGQuerier) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Name() string { return DriverPostgres }

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var body []byte
	err := b.db.QueryRow(ctx,
		`SELECT body FROM record_document WHERE id = $1`, documentRowID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record document: %w", err)
	}
	return body, nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.Exec(ctx, `
		INSERT INTO record_document (id, body, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		documentRowID, string(data))
	if err != nil {
		return fmt.Errorf("save record document: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (b *PostgresBackend) Close() error { return nil }
