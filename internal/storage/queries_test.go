package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/shared/logger"
)

var (
	companyCols    = []string{"id", "name", "industry", "created_at"}
	postingCols    = []string{"id", "company_id", "company_name", "title", "description", "url", "created_at", "updated_at"}
	enrichmentCols = []string{
		"id", "job_post_id", "summary", "technical_skills", "seniority_level",
		"estimated_salary_min", "estimated_salary_max", "created_at", "updated_at",
	}
)

const (
	selectCompanyByName = `SELECT id, name, industry, created_at FROM company WHERE LOWER\(name\) = LOWER\(\$1\)`
	insertCompany       = `INSERT INTO company \(name, industry\) VALUES \(\$1, \$2\) RETURNING id, name, industry, created_at`
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStorage(sqlx.NewDb(db, "postgres"), logger.NewNop()), mock
}

func TestGetCompanyByName_MatchesAnyCasing(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	mock.ExpectQuery(selectCompanyByName).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(companyCols).AddRow(4, "Acme", nil, now))

	company, err := s.GetCompanyByName(context.Background(), "  acme ")
	require.NoError(t, err)
	assert.Equal(t, int64(4), company.ID)
	assert.Equal(t, "Acme", company.Name)
	assert.Nil(t, company.Industry)
}

func TestGetOrCreateCompany(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name        string
		expect      func(mock sqlmock.Sqlmock)
		wantID      int64
		wantCreated bool
		wantErr     bool
	}{
		{
			name: "existing under other casing",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectCompanyByName).WithArgs("ACME").
					WillReturnRows(sqlmock.NewRows(companyCols).AddRow(4, "Acme", nil, now))
			},
			wantID: 4,
		},
		{
			name: "created",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectCompanyByName).WithArgs("ACME").
					WillReturnRows(sqlmock.NewRows(companyCols))
				mock.ExpectQuery(insertCompany).WithArgs("ACME", nil).
					WillReturnRows(sqlmock.NewRows(companyCols).AddRow(5, "ACME", nil, now))
			},
			wantID:      5,
			wantCreated: true,
		},
		{
			name: "insert race lost refetches the winner",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectCompanyByName).WithArgs("ACME").
					WillReturnRows(sqlmock.NewRows(companyCols))
				mock.ExpectQuery(insertCompany).WithArgs("ACME", nil).
					WillReturnError(&pq.Error{Code: "23505", Constraint: "company_name_lower_key"})
				mock.ExpectQuery(selectCompanyByName).WithArgs("ACME").
					WillReturnRows(sqlmock.NewRows(companyCols).AddRow(4, "Acme", nil, now))
			},
			wantID: 4,
		},
		{
			name: "lookup failure is not a miss",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectCompanyByName).WithArgs("ACME").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.expect(mock)

			company, created, err := s.GetOrCreateCompany(context.Background(), "ACME", nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, company.ID)
			assert.Equal(t, tt.wantCreated, created)
		})
	}
}

func TestCreateEnrichmentResult(t *testing.T) {
	now := time.Now()
	maxSalary := int64(180000)
	input := &domain.EnrichmentResult{
		JobPostingID:       9,
		Summary:            "Builds payment APIs.",
		TechnicalSkills:    []string{"Go", "PostgreSQL"},
		SeniorityLevel:     domain.SenioritySenior,
		EstimatedSalaryMax: &maxSalary,
	}

	tests := []struct {
		name    string
		result  func(e *sqlmock.ExpectedQuery)
		wantIs  error
		wantErr bool
	}{
		{
			name: "stored",
			result: func(e *sqlmock.ExpectedQuery) {
				e.WillReturnRows(sqlmock.NewRows(enrichmentCols).
					AddRow(1, 9, "Builds payment APIs.", "{Go,PostgreSQL}", "Senior", nil, 180000, now, now))
			},
		},
		{
			name:    "second result for the posting",
			result:  func(e *sqlmock.ExpectedQuery) { e.WillReturnError(&pq.Error{Code: "23505"}) },
			wantIs:  domain.ErrAlreadyExists,
			wantErr: true,
		},
		{
			name:    "posting deleted",
			result:  func(e *sqlmock.ExpectedQuery) { e.WillReturnError(&pq.Error{Code: "23503"}) },
			wantIs:  domain.ErrNotFound,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.result(mock.ExpectQuery(`INSERT INTO summarized_job \(`).
				WithArgs(int64(9), "Builds payment APIs.", pq.StringArray{"Go", "PostgreSQL"}, "Senior", nil, maxSalary))

			got, err := s.CreateEnrichmentResult(context.Background(), input)
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.wantIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"Go", "PostgreSQL"}, got.TechnicalSkills)
			assert.Nil(t, got.EstimatedSalaryMin)
			require.NotNil(t, got.EstimatedSalaryMax)
			assert.Equal(t, maxSalary, *got.EstimatedSalaryMax)
		})
	}
}

func TestListJobPostings_Keyset(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cursor := &JobPostingCursor{CreatedAt: base, ID: 50}

	tests := []struct {
		name     string
		filter   JobPostingFilter
		query    string
		args     []driver.Value
		rows     int
		wantLen  int
		wantNext bool
	}{
		{
			name:     "first page with more to come",
			filter:   JobPostingFilter{PageSize: 2},
			query:    `FROM job_post j JOIN company c ON c.id = j.company_id ORDER BY j.created_at DESC, j.id DESC LIMIT 3`,
			rows:     3,
			wantLen:  2,
			wantNext: true,
		},
		{
			name:    "last page",
			filter:  JobPostingFilter{PageSize: 2},
			query:   `ORDER BY j.created_at DESC, j.id DESC LIMIT 3`,
			rows:    2,
			wantLen: 2,
		},
		{
			name:    "after cursor within a company",
			filter:  JobPostingFilter{CompanyID: 4, PageSize: 2, Cursor: cursor},
			query:   `WHERE j.company_id = \$1 AND \(j.created_at, j.id\) < \(\$2, \$3\) ORDER BY j.created_at DESC, j.id DESC LIMIT 3`,
			args:    []driver.Value{int64(4), base, int64(50)},
			rows:    1,
			wantLen: 1,
		},
		{
			name:    "page size clamped",
			filter:  JobPostingFilter{PageSize: MaxPageSize + 50},
			query:   `LIMIT 101`,
			rows:    0,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			rows := sqlmock.NewRows(postingCols)
			for i := 0; i < tt.rows; i++ {
				created := base.Add(-time.Duration(i+1) * time.Minute)
				rows.AddRow(40-i, 4, "Acme", "Engineer", "d", nil, created, created)
			}
			e := mock.ExpectQuery(tt.query)
			if tt.args != nil {
				e = e.WithArgs(tt.args...)
			}
			e.WillReturnRows(rows)

			page, err := s.ListJobPostings(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, page.Postings, tt.wantLen)
			if !tt.wantNext {
				assert.Nil(t, page.Next)
				return
			}
			require.NotNil(t, page.Next)
			last := page.Postings[len(page.Postings)-1]
			assert.Equal(t, last.ID, page.Next.ID)
			assert.True(t, last.CreatedAt.Equal(page.Next.CreatedAt))
		})
	}
}

func TestDeleteCompany(t *testing.T) {
	tests := []struct {
		name   string
		result func(e *sqlmock.ExpectedExec)
		wantIs error
	}{
		{name: "deleted", result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 1)) }},
		{name: "missing", result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) }, wantIs: domain.ErrNotFound},
		{
			name:   "still referenced",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnError(&pq.Error{Code: "23503"}) },
			wantIs: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)
			tt.result(mock.ExpectExec(`DELETE FROM company WHERE id = \$1`).WithArgs(int64(3)))

			err := s.DeleteCompany(context.Background(), 3)
			if tt.wantIs == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestUpdateCompany_RenameConflict(t *testing.T) {
	s, mock := newMockStorage(t)
	name := " Globex "

	mock.ExpectQuery(`UPDATE company SET name = \$1 WHERE id = \$2 RETURNING id, name, industry, created_at`).
		WithArgs("Globex", int64(3)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := s.UpdateCompany(context.Background(), 3, domain.CompanyPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdateEnrichmentResult(t *testing.T) {
	now := time.Now()
	floor := int64(200000)
	seniority := domain.SeniorityLead

	t.Run("salary range violation is invalid input", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`UPDATE summarized_job SET estimated_salary_min = \$1, updated_at = NOW\(\) WHERE id = \$2 RETURNING`).
			WithArgs(floor, int64(7)).
			WillReturnError(&pq.Error{Code: "23514", Constraint: "summarized_job_salary_range"})

		_, err := s.UpdateEnrichmentResult(context.Background(), 7, domain.EnrichmentResultPatch{EstimatedSalaryMin: &floor})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("applies set fields", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`UPDATE summarized_job SET technical_skills = \$1, seniority_level = \$2, updated_at = NOW\(\) WHERE id = \$3`).
			WithArgs(pq.StringArray{}, "Lead", int64(7)).
			WillReturnRows(sqlmock.NewRows(enrichmentCols).AddRow(7, 9, "s", "{}", "Lead", nil, nil, now, now))

		got, err := s.UpdateEnrichmentResult(context.Background(), 7, domain.EnrichmentResultPatch{
			TechnicalSkills: []string{},
			SeniorityLevel:  &seniority,
		})
		require.NoError(t, err)
		assert.Equal(t, "Lead", got.SeniorityLevel)
		assert.Equal(t, []string{}, got.TechnicalSkills)
	})

	t.Run("empty patch reads the row", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM summarized_job WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(enrichmentCols))

		_, err := s.UpdateEnrichmentResult(context.Background(), 7, domain.EnrichmentResultPatch{})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGetCapturedPageByURL(t *testing.T) {
	s, mock := newMockStorage(t)
	const url = "https://jobs.example/42"

	mock.ExpectQuery(`FROM job_page WHERE url = \$1 ORDER BY created_at DESC, page_id DESC LIMIT 1`).
		WithArgs(url).
		WillReturnRows(sqlmock.NewRows([]string{"page_id", "url", "page_html", "created_at"}).
			AddRow(12, url, "<html></html>", time.Now()))
	mock.ExpectQuery(`FROM job_page WHERE url = \$1`).
		WithArgs("https://jobs.example/none").
		WillReturnRows(sqlmock.NewRows([]string{"page_id", "url", "page_html", "created_at"}))

	page, err := s.GetCapturedPageByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.ID)

	_, err = s.GetCapturedPageByURL(context.Background(), "https://jobs.example/none")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
