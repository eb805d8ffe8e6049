package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/cuongbtq/job-hoarder/internal/domain"
	"github.com/cuongbtq/job-hoarder/internal/llm"
)

// memStore enforces one enrichment result per job posting, like the
// unique index on summarized_job.job_post_id.
type memStore struct {
	mu          sync.Mutex
	postings    map[int64]*domain.JobPosting
	results     map[int64]*domain.EnrichmentResult
	nextID      int64
	inserts     int
	writes      int
	getErr      error
	createErr   error
	lookupCalls int
}

func newMemStore(postings ...*domain.JobPosting) *memStore {
	s := &memStore{
		postings: make(map[int64]*domain.JobPosting),
		results:  make(map[int64]*domain.EnrichmentResult),
	}
	for _, p := range postings {
		s.postings[p.ID] = p
	}
	return s
}

func (s *memStore) GetJobPosting(ctx context.Context, id int64) (*domain.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.postings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) GetEnrichmentByJobPostingID(ctx context.Context, jobPostingID int64) (*domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupCalls++
	r, ok := s.results[jobPostingID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) CreateEnrichmentResult(ctx context.Context, result *domain.EnrichmentResult) (*domain.EnrichmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, ok := s.postings[result.JobPostingID]; !ok {
		return nil, domain.ErrNotFound
	}
	if _, ok := s.results[result.JobPostingID]; ok {
		return nil, domain.ErrAlreadyExists
	}
	s.nextID++
	s.inserts++
	cp := *result
	cp.ID = s.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.results[result.JobPostingID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type fakeGateway struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	prompts  []string
	// wait, when set, blocks every call until it is closed
	wait chan struct{}
}

func (g *fakeGateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, userPrompt)
	wait := g.wait
	g.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.response, g.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeResolver struct {
	gateway llm.Gateway
	err     error
}

func (r fakeResolver) Resolve() (llm.Gateway, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.gateway, nil
}

const (
	testTimeout = 2 * time.Second
	testTick    = 20 * time.Millisecond
)
