package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/providers/llm"
	"github.com/matchfit/matchfit/internal/utils"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testProfile() models.IntakeProfile {
	return models.IntakeProfile{
		TrainingExperience: "intermediate",
		Goals:              []string{"weight loss", "muscle gain"},
		SessionsPerWeek:    "3",
		ChronicDiseases:    []string{"asthma"},
		Injuries:           nil,
		WeightGoal:         "lose 5kg",
	}
}

// fakeOverviewRepo is an in-memory OverviewCacheRepository. Async touches mean
// every method must be safe for concurrent use.
type fakeOverviewRepo struct {
	mu      sync.Mutex
	entries map[string]models.OverviewCacheEntry
	failErr error
}

func newFakeOverviewRepo() *fakeOverviewRepo {
	return &fakeOverviewRepo{entries: make(map[string]models.OverviewCacheEntry)}
}

func (r *fakeOverviewRepo) GetFresh(_ context.Context, profileHash string, window time.Duration) (*models.OverviewCacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	e, ok := r.entries[profileHash]
	if !ok || e.CreatedAt.Before(time.Now().UTC().Add(-window)) {
		return nil, utils.ErrNotFound
	}
	out := e
	return &out, nil
}

func (r *fakeOverviewRepo) Upsert(_ context.Context, e *models.OverviewCacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.entries[e.ProfileHash] = *e
	return nil
}

func (r *fakeOverviewRepo) Touch(_ context.Context, profileHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[profileHash]; ok {
		e.HitCount++
		e.LastAccessedAt = at
		r.entries[profileHash] = e
	}
	return nil
}

func (r *fakeOverviewRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(r.entries, k)
			n++
		}
	}
	return n, r.failErr
}

type matchKey struct {
	hash     string
	expertID int
}

// fakeMatchRepo is an in-memory MatchCacheRepository.
type fakeMatchRepo struct {
	mu      sync.Mutex
	entries map[matchKey]models.MatchCacheEntry
	failErr error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{entries: make(map[matchKey]models.MatchCacheEntry)}
}

func (r *fakeMatchRepo) ListFresh(_ context.Context, overviewHash string, expertIDs []int, window time.Duration) ([]models.MatchCacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	cutoff := time.Now().UTC().Add(-window)
	var out []models.MatchCacheEntry
	for _, id := range expertIDs {
		e, ok := r.entries[matchKey{overviewHash, id}]
		if ok && !e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) Upsert(_ context.Context, e *models.MatchCacheEntry) error {
	return r.UpsertBatch(context.Background(), []models.MatchCacheEntry{*e})
}

func (r *fakeMatchRepo) UpsertBatch(_ context.Context, entries []models.MatchCacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	for _, e := range entries {
		r.entries[matchKey{e.OverviewHash, e.ExpertID}] = e
	}
	return nil
}

func (r *fakeMatchRepo) DeleteByHash(_ context.Context, overviewHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.hash == overviewHash {
			delete(r.entries, k)
		}
	}
	return nil
}

func (r *fakeMatchRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, e := range r.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(r.entries, k)
			n++
		}
	}
	return n, r.failErr
}

// fakeExpertRepo serves a fixed roster.
type fakeExpertRepo struct {
	experts []models.Expert
	err     error
}

func (r *fakeExpertRepo) ListAll(context.Context) ([]models.Expert, error) {
	return r.experts, r.err
}

func rosterOf(n int) []models.Expert {
	out := make([]models.Expert, n)
	for i := range out {
		out[i] = models.Expert{
			ID:                i + 1,
			Name:              "Expert",
			Specialization:    "strength",
			Certifications:    "NASM",
			YearsOfExperience: 5,
			Overview:          "experienced trainer",
		}
	}
	return out
}

// fakeProvider scripts llm.Provider behavior per test.
type fakeProvider struct {
	mu            sync.Mutex
	completeFn    func(req llm.Request) (string, error)
	streamTokens  []string
	streamErr     error
	completeCalls int
	lastRequest   llm.Request
}

func (p *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.completeCalls++
	p.lastRequest = req
	fn := p.completeFn
	p.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(req)
}

func (p *fakeProvider) Stream(_ context.Context, req llm.Request) (<-chan string, <-chan error) {
	p.mu.Lock()
	p.lastRequest = req
	tokens := p.streamTokens
	streamErr := p.streamErr
	p.mu.Unlock()

	out := make(chan string, len(tokens))
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)
		for _, tok := range tokens {
			out <- tok
		}
		if streamErr != nil {
			errs <- streamErr
		}
	}()
	return out, errs
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completeCalls
}
