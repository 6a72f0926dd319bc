package activity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepo stores activities in an INSERT-only table.
// The seq column breaks timestamp ties in reverse append order.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Schema is applied by storage.Migrate at startup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS activities (
  seq        BIGSERIAL PRIMARY KEY,
  id         TEXT NOT NULL UNIQUE,
  lead_id    TEXT NOT NULL,
  type       TEXT NOT NULL,
  message    TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS activities_lead_idx ON activities (lead_id, created_at DESC)`,
}

func (r *PostgresRepo) Append(ctx context.Context, a Activity) error {
	const q = `
INSERT INTO activities (id, lead_id, type, message, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.LeadID, string(a.Type), a.Message, a.Timestamp)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepo) List(ctx context.Context, leadID string) ([]Activity, error) {
	const q = `
SELECT id, lead_id, type, message, created_at
FROM activities
WHERE ($1 = '' OR lead_id = $1)
ORDER BY created_at DESC, seq DESC
`
	rows, err := r.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var typ string
		if err := rows.Scan(&a.ID, &a.LeadID, &typ, &a.Message, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Type = Type(typ)
		out = append(out, a)
	}
	return out, rows.Err()
}
