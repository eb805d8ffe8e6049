package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/storage"
)

// memStore backs both the HTTP handlers and the intake coordinator.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	companies   map[int64]*domain.Company
	postings    map[int64]*domain.JobPosting
	pages       map[int64]*domain.CapturedPage
	enrichments map[int64]*domain.EnrichmentResult
}

func newMemStore() *memStore {
	return &memStore{
		companies:   make(map[int64]*domain.Company),
		postings:    make(map[int64]*domain.JobPosting),
		pages:       make(map[int64]*domain.CapturedPage),
		enrichments: make(map[int64]*domain.EnrichmentResult),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) GetOrCreateCompany(ctx context.Context, name string, industry *string) (*domain.Company, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.companies {
		if strings.EqualFold(c.Name, name) {
			return c, false, nil
		}
	}
	c := &domain.Company{ID: s.id(), Name: name, Industry: industry, CreatedAt: time.Now()}
	s.companies[c.ID] = c
	return c, true, nil
}

func (s *memStore) CreateJobPosting(ctx context.Context, companyID int64, title, description string, url *string) (*domain.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	company, ok := s.companies[companyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	p := &domain.JobPosting{
		ID: s.id(), CompanyID: companyID, CompanyName: company.Name,
		Title: title, Description: description, URL: url, CreatedAt: now, UpdatedAt: now,
	}
	s.postings[p.ID] = p
	return p, nil
}

func (s *memStore) GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ListJobPostings(ctx context.Context, filter storage.JobPostingFilter) (*storage.JobPostingPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []domain.JobPosting
	for _, p := range s.postings {
		if filter.CompanyID > 0 && p.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Cursor != nil && p.ID >= filter.Cursor.ID {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	size := filter.PageSize
	if size <= 0 {
		size = storage.DefaultPageSize
	}
	page := &storage.JobPostingPage{Postings: all}
	if len(all) > size {
		page.Postings = all[:size]
		last := all[size-1]
		page.Next = &storage.JobPostingCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

func (s *memStore) UpdateJobPosting(ctx context.Context, id int64, patch domain.JobPostingPatch) (*domain.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.postings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.URL != nil {
		p.URL = patch.URL
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *memStore) DeleteJobPosting(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.postings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.postings, id)
	delete(s.enrichments, id)
	return nil
}

func (s *memStore) GetCompany(ctx context.Context, id int64) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *memStore) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) ListJobPostingsByCompany(ctx context.Context, companyID int64) ([]domain.JobPosting, error) {
	page, err := s.ListJobPostings(ctx, storage.JobPostingFilter{CompanyID: companyID, PageSize: 1 << 20})
	if err != nil {
		return nil, err
	}
	return page.Postings, nil
}

func (s *memStore) GetEnrichmentByJobPostingID(ctx context.Context, jobPostingID int64) (*domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.enrichments[jobPostingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (s *memStore) CreateCapturedPage(ctx context.Context, url, pageHTML string) (*domain.CapturedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &domain.CapturedPage{ID: s.id(), URL: url, PageHTML: pageHTML, CreatedAt: time.Now()}
	s.pages[p.ID] = p
	return p, nil
}

func (s *memStore) GetCapturedPage(ctx context.Context, id int64) (*domain.CapturedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *memStore) ListCapturedPages(ctx context.Context) ([]domain.CapturedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CapturedPage, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, domain.CapturedPage{ID: p.ID, URL: p.URL, CreatedAt: p.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) DeleteCapturedPage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.pages, id)
	return nil
}

func (s *memStore) UpdateCompany(ctx context.Context, id int64, patch domain.CompanyPatch) (*domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range s.companies {
			if other.ID != id && strings.EqualFold(other.Name, *patch.Name) {
				return nil, domain.ErrAlreadyExists
			}
		}
		c.Name = *patch.Name
	}
	if patch.Industry != nil {
		c.Industry = patch.Industry
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) DeleteCompany(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[id]; !ok {
		return domain.ErrNotFound
	}
	for _, p := range s.postings {
		if p.CompanyID == id {
			return domain.ErrConflict
		}
	}
	delete(s.companies, id)
	return nil
}

func (s *memStore) GetEnrichmentResult(ctx context.Context, id int64) (*domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.enrichments {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) ListEnrichmentResults(ctx context.Context) ([]domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EnrichmentResult, 0, len(s.enrichments))
	for _, r := range s.enrichments {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateEnrichmentResult enforces the salary range the way the table's
// CHECK constraint does.
func (s *memStore) UpdateEnrichmentResult(ctx context.Context, id int64, patch domain.EnrichmentResultPatch) (*domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r *domain.EnrichmentResult
	for _, e := range s.enrichments {
		if e.ID == id {
			r = e
		}
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	next := *r
	if patch.Summary != nil {
		next.Summary = *patch.Summary
	}
	if patch.TechnicalSkills != nil {
		next.TechnicalSkills = patch.TechnicalSkills
	}
	if patch.SeniorityLevel != nil {
		next.SeniorityLevel = *patch.SeniorityLevel
	}
	if patch.EstimatedSalaryMin != nil {
		next.EstimatedSalaryMin = patch.EstimatedSalaryMin
	}
	if patch.EstimatedSalaryMax != nil {
		next.EstimatedSalaryMax = patch.EstimatedSalaryMax
	}
	if next.EstimatedSalaryMin != nil && next.EstimatedSalaryMax != nil && *next.EstimatedSalaryMin > *next.EstimatedSalaryMax {
		return nil, fmt.Errorf("update enrichment result: %w", domain.ErrInvalidInput)
	}
	next.UpdatedAt = time.Now()
	*r = next
	return &next, nil
}

func (s *memStore) DeleteEnrichmentResult(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for postingID, r := range s.enrichments {
		if r.ID == id {
			delete(s.enrichments, postingID)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memStore) GetCapturedPageByURL(ctx context.Context, url string) (*domain.CapturedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.CapturedPage
	for _, p := range s.pages {
		if p.URL == url && (latest == nil || p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (s *memStore) UpdateCapturedPage(ctx context.Context, id int64, patch domain.CapturedPagePatch) (*domain.CapturedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.URL != nil {
		p.URL = *patch.URL
	}
	if patch.PageHTML != nil {
		p.PageHTML = *patch.PageHTML
	}
	cp := *p
	return &cp, nil
}

type downEnqueuer struct{}

func (downEnqueuer) Enqueue(ctx context.Context, jobPostingID int64) error {
	return domain.TransportError("publish enrichment message", errors.New("broker unreachable"))
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }
