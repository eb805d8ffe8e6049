package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/shared/postgresql"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Storage is the Postgres-backed record store for companies, job postings,
// captured pages and enrichment results.
type Storage struct {
	db     *sqlx.DB
	sb     sq.StatementBuilderType
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger: logger,
	}
}

// mapError translates driver errors into domain sentinels, keeping the
// original error in the chain.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case postgresql.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrAlreadyExists, err)
	case postgresql.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: referenced record: %w: %w", op, domain.ErrNotFound, err)
	case postgresql.IsCheckViolation(err):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidInput, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// checkAffected turns a zero-row delete into ErrNotFound.
func checkAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
