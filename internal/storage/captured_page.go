package storage

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

const capturedPageColumns = "page_id, url, page_html, created_at"

type capturedPageRow struct {
	ID        int64     `db:"page_id"`
	URL       string    `db:"url"`
	PageHTML  string    `db:"page_html"`
	CreatedAt time.Time `db:"created_at"`
}

func (r capturedPageRow) toDomain() *domain.CapturedPage {
	return &domain.CapturedPage{
		ID:        r.ID,
		URL:       r.URL,
		PageHTML:  r.PageHTML,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Storage) CreateCapturedPage(ctx context.Context, url, pageHTML string) (*domain.CapturedPage, error) {
	query := `
		INSERT INTO job_page (url, page_html)
		VALUES ($1, $2)
		RETURNING ` + capturedPageColumns

	var row capturedPageRow
	if err := s.db.GetContext(ctx, &row, query, url, pageHTML); err != nil {
		return nil, mapError("create captured page", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) GetCapturedPage(ctx context.Context, id int64) (*domain.CapturedPage, error) {
	query := `SELECT ` + capturedPageColumns + ` FROM job_page WHERE page_id = $1`

	var row capturedPageRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, mapError("get captured page", err)
	}
	return row.toDomain(), nil
}

// GetCapturedPageByURL returns the most recent capture of url.
func (s *Storage) GetCapturedPageByURL(ctx context.Context, url string) (*domain.CapturedPage, error) {
	query := `
		SELECT ` + capturedPageColumns + `
		FROM job_page
		WHERE url = $1
		ORDER BY created_at DESC, page_id DESC
		LIMIT 1
	`

	var row capturedPageRow
	if err := s.db.GetContext(ctx, &row, query, url); err != nil {
		return nil, mapError("get captured page by url", err)
	}
	return row.toDomain(), nil
}

// ListCapturedPages returns id and url only; page bodies can be large.
func (s *Storage) ListCapturedPages(ctx context.Context) ([]domain.CapturedPage, error) {
	query := `SELECT page_id, url, '' AS page_html, created_at FROM job_page ORDER BY page_id`

	var rows []capturedPageRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, mapError("list captured pages", err)
	}

	pages := make([]domain.CapturedPage, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, *r.toDomain())
	}
	return pages, nil
}

func (s *Storage) UpdateCapturedPage(ctx context.Context, id int64, patch domain.CapturedPagePatch) (*domain.CapturedPage, error) {
	ub := s.sb.Update("job_page").Where(sq.Eq{"page_id": id})
	changed := false
	if patch.URL != nil {
		ub = ub.Set("url", *patch.URL)
		changed = true
	}
	if patch.PageHTML != nil {
		ub = ub.Set("page_html", *patch.PageHTML)
		changed = true
	}
	if !changed {
		return s.GetCapturedPage(ctx, id)
	}

	query, args, err := ub.Suffix("RETURNING " + capturedPageColumns).ToSql()
	if err != nil {
		return nil, mapError("build captured page update", err)
	}

	var row capturedPageRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, mapError("update captured page", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) DeleteCapturedPage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM job_page WHERE page_id = $1`, id)
	if err != nil {
		return mapError("delete captured page", err)
	}
	return checkAffected("delete captured page", res)
}
