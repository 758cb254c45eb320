// Package journal persists pool submissions to Postgres.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fd1az/poolctl/business/pool/app"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_submissions (
	id          UUID PRIMARY KEY,
	kind        TEXT        NOT NULL,
	pool        TEXT        NOT NULL,
	account     TEXT        NOT NULL,
	args        JSONB       NOT NULL,
	spot_a_in_b TEXT,
	tx_hash     TEXT,
	block       BIGINT,
	status      TEXT        NOT NULL,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL
)`

const insertSubmission = `
INSERT INTO pool_submissions (id, kind, pool, account, args, spot_a_in_b, tx_hash, block, status, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

// Ensure Store and Noop implement Journal.
var (
	_ app.Journal = (*Store)(nil)
	_ app.Journal = Noop{}
)

// Execer is the subset of pgxpool.Pool the store needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config holds the journal connection settings.
type Config struct {
	DSN      string
	MaxConns int32
}

// Store writes submissions to the pool_submissions table.
type Store struct {
	db     Execer
	pool   *pgxpool.Pool
	logger logger.LoggerInterface
}

// New wraps an existing connection.
func New(db Execer, log logger.LoggerInterface) *Store {
	return &Store{db: db, logger: log}
}

// Open connects, pings and migrates. An empty DSN yields a Noop journal.
func Open(ctx context.Context, cfg Config, log logger.LoggerInterface) (app.Journal, error) {
	if cfg.DSN == "" {
		return Noop{}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err), apperror.WithContext("journal.dsn"))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperror.External(apperror.CodeJournalWriteFailed, "create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperror.External(apperror.CodeJournalWriteFailed, "ping database", err)
	}

	s := &Store{db: pool, pool: pool, logger: log}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info(ctx, "submission journal ready", "max_conns", poolCfg.MaxConns)
	return s, nil
}

// Migrate creates the submissions table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return apperror.External(apperror.CodeJournalWriteFailed, "migrate pool_submissions", err)
	}
	return nil
}

// Record inserts sub. Re-recording the same id is a no-op.
func (s *Store) Record(ctx context.Context, sub *domain.Submission) error {
	var block *int64
	if sub.Block > 0 {
		b := int64(sub.Block)
		block = &b
	}

	_, err := s.db.Exec(ctx, insertSubmission,
		sub.ID,
		string(sub.Kind),
		sub.Pool,
		sub.Account,
		sub.Args,
		nullable(sub.SpotAInB),
		nullable(sub.TxHash),
		block,
		string(sub.Status),
		nullable(sub.Error),
		sub.CreatedAt,
	)
	if err != nil {
		return apperror.External(apperror.CodeJournalWriteFailed, fmt.Sprintf("submission %s", sub.ID), err)
	}

	s.logger.Debug(ctx, "submission journaled", "submission_id", sub.ID.String(), "status", string(sub.Status))
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Noop discards submissions when no database is configured.
type Noop struct{}

// Record does nothing.
func (Noop) Record(context.Context, *domain.Submission) error { return nil }
