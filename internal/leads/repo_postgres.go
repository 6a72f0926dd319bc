package leads

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"leadpipe/pkg/storage"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// PostgresRepo keeps leads in a single table. Version guards every update.
type PostgresRepo struct {
	db    *sql.DB
	types *pgtype.Map
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, types: pgtype.NewMap()}
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
  seq                 BIGSERIAL,
  id                  TEXT PRIMARY KEY,
  name                TEXT NOT NULL,
  contact_handle      TEXT NOT NULL,
  email               TEXT NOT NULL DEFAULT '',
  status              TEXT NOT NULL,
  tags                TEXT[] NOT NULL DEFAULT '{}',
  last_interaction_at TIMESTAMPTZ NOT NULL,
  created_at          TIMESTAMPTZ NOT NULL,
  updated_at          TIMESTAMPTZ NOT NULL,
  version             BIGINT NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS leads_status_idx ON leads (status)`,
}

const leadColumns = `id, name, contact_handle, email, status, tags, last_interaction_at, created_at, updated_at, version`

func (r *PostgresRepo) Insert(ctx context.Context, batch ...Lead) error {
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	return storage.WithTx(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, l := range batch {
			if _, err := tx.ExecContext(ctx, q, r.args(l)...); err != nil {
				if isUniqueViolation(err) {
					return ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := r.scan(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *PostgresRepo) Update(ctx context.Context, l Lead, prevVersion int64) error {
	const q = `
UPDATE leads
SET name = $2, contact_handle = $3, email = $4, status = $5, tags = $6,
    last_interaction_at = $7, updated_at = $9, version = $10
WHERE id = $1 AND created_at = $8 AND version = $11
`
	res, err := r.db.ExecContext(ctx, q, append(r.args(l), prevVersion)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.Get(ctx, l.ID); err != nil {
		return err
	}
	return ErrConflict
}

func (r *PostgresRepo) Put(ctx context.Context, l Lead) error {
	const q = `
INSERT INTO leads (` + leadColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  contact_handle = EXCLUDED.contact_handle,
  email = EXCLUDED.email,
  status = EXCLUDED.status,
  tags = EXCLUDED.tags,
  last_interaction_at = EXCLUDED.last_interaction_at,
  updated_at = EXCLUDED.updated_at,
  version = EXCLUDED.version
`
	_, err := r.db.ExecContext(ctx, q, r.args(l)...)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Lead, error) {
	q := `
SELECT ` + leadColumns + `
FROM leads
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR contact_handle LIKE '%' || $2 || '%')
ORDER BY created_at DESC, seq DESC
`
	rows, err := r.db.QueryContext(ctx, q, string(f.Status), escapeLike(strings.TrimSpace(f.Query)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepo) scan(row rowScanner) (Lead, error) {
	var l Lead
	var status string
	if err := row.Scan(
		&l.ID,
		&l.Name,
		&l.ContactHandle,
		&l.Email,
		&status,
		r.types.SQLScanner(&l.Tags),
		&l.LastInteractionAt,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.Version,
	); err != nil {
		return Lead{}, err
	}
	l.Status = Stage(status)
	if l.Tags == nil {
		l.Tags = []string{}
	}
	return l, nil
}

func (r *PostgresRepo) args(l Lead) []any {
	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		l.ID,
		l.Name,
		l.ContactHandle,
		l.Email,
		string(l.Status),
		tags,
		l.LastInteractionAt,
		l.CreatedAt,
		l.UpdatedAt,
		l.Version,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
