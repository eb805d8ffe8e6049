package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/shared/postgresql"
)

const companyColumns = "id, name, industry, created_at"

type companyRow struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Industry  sql.NullString `db:"industry"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r companyRow) toDomain() *domain.Company {
	return &domain.Company{
		ID:        r.ID,
		Name:      r.Name,
		Industry:  nullString(r.Industry),
		CreatedAt: r.CreatedAt,
	}
}

// CreateCompany inserts a company. A name that already exists under any
// casing yields ErrAlreadyExists.
func (s *Storage) CreateCompany(ctx context.Context, name string, industry *string) (*domain.Company, error) {
	query := `
		INSERT INTO company (name, industry)
		VALUES ($1, $2)
		RETURNING ` + companyColumns

	var row companyRow
	if err := s.db.GetContext(ctx, &row, query, strings.TrimSpace(name), industry); err != nil {
		return nil, mapError("create company", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM company WHERE id = $1`

	var row companyRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError("get company", err)
	}
	return row.toDomain(), nil
}

// GetCompanyByName matches case-insensitively.
func (s *Storage) GetCompanyByName(ctx context.Context, name string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM company WHERE LOWER(name) = LOWER($1)`

	var row companyRow
	if err := s.db.GetContext(ctx, &row, query, strings.TrimSpace(name)); err != nil {
		return nil, mapError("get company by name", err)
	}
	return row.toDomain(), nil
}

// GetOrCreateCompany returns the existing company for name or creates it.
// Losing an insert race to a concurrent caller resolves to the winner's row.
func (s *Storage) GetOrCreateCompany(ctx context.Context, name string, industry *string) (*domain.Company, bool, error) {
	company, err := s.GetCompanyByName(ctx, name)
	if err == nil {
		return company, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	company, err = s.CreateCompany(ctx, name, industry)
	if err == nil {
		return company, true, nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return nil, false, err
	}

	s.logger.Debug("company created concurrently, refetching", slog.String("name", name))
	company, err = s.GetCompanyByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return company, false, nil
}

func (s *Storage) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM company ORDER BY name`

	var rows []companyRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError("list companies", err)
	}

	companies := make([]domain.Company, 0, len(rows))
	for _, r := range rows {
		companies = append(companies, *r.toDomain())
	}
	return companies, nil
}

func (s *Storage) UpdateCompany(ctx context.Context, id int64, patch domain.CompanyPatch) (*domain.Company, error) {
	ub := s.sb.Update("company").Where(sq.Eq{"id": id})
	changed := false
	if patch.Name != nil {
		ub = ub.Set("name", strings.TrimSpace(*patch.Name))
		changed = true
	}
	if patch.Industry != nil {
		ub = ub.Set("industry", *patch.Industry)
		changed = true
	}
	if !changed {
		return s.GetCompany(ctx, id)
	}

	query, args, err := ub.Suffix("RETURNING " + companyColumns).ToSql()
	if err != nil {
		return nil, mapError("build company update", err)
	}

	var row companyRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, mapError("update company", err)
	}
	return row.toDomain(), nil
}

// DeleteCompany fails while job postings still reference the company.
func (s *Storage) DeleteCompany(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM company WHERE id = $1`, id)
	if err != nil {
		if postgresql.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete company %d: job postings still reference it: %w", id, domain.ErrConflict)
		}
		return mapError("delete company", err)
	}
	return checkAffected("delete company", res)
}
