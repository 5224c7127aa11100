package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

var _ repo.CheckStore = (*Store)(nil)

// Schema holds one JSON document per check id.
const Schema = `
CREATE TABLE IF NOT EXISTS checks (
  id         TEXT PRIMARY KEY,
  doc        JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Migrate creates the checks table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Create(ctx context.Context, c domain.Check) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("postgres.Store.Create: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO checks (id, doc) VALUES ($1, $2)`,
		string(c.ID), doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("postgres.Store.Create %s: %w", c.ID, repo.ErrExists)
		}
		return fmt.Errorf("postgres.Store.Create %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) Read(ctx context.Context, id domain.CheckID) (domain.Check, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM checks WHERE id = $1`, string(id)).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Check{}, fmt.Errorf("postgres.Store.Read %s: %w", id, repo.ErrNotFound)
		}
		return domain.Check{}, fmt.Errorf("postgres.Store.Read %s: %w", id, err)
	}
	var c domain.Check
	if err := json.Unmarshal(doc, &c); err != nil {
		return domain.Check{}, fmt.Errorf("postgres.Store.Read %s: %w: %v", id, repo.ErrCorrupt, err)
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, c domain.Check) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("postgres.Store.Update: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE checks SET doc = $2, updated_at = now() WHERE id = $1`,
		string(c.ID), doc,
	)
	if err != nil {
		return fmt.Errorf("postgres.Store.Update %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.Store.Update %s: %w", c.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id domain.CheckID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM checks WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("postgres.Store.Remove %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres.Store.Remove %s: %w", id, repo.ErrNotFound)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.CheckID, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM checks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres.Store.List: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan check id: %w", err)
		}
		out = append(out, domain.CheckID(id))
	}
	return out, rows.Err()
}
