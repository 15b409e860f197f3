package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/models"
)

// fakeCache is an in-memory CacheService; entries never expire.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = payload
	f.sets++
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	payload, ok := f.entries[key]
	f.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

// countingService counts backend calls behind the decorator.
type countingService struct {
	getCalls  int
	listCalls int
	def       *models.TestDefinition
}

func (s *countingService) GetTest(context.Context, int64) (*models.TestDefinition, error) {
	s.getCalls++
	return s.def, nil
}

func (s *countingService) StartAttempt(context.Context, int64) (time.Time, error) {
	return time.Now(), nil
}

func (s *countingService) SubmitAttempt(_ context.Context, testID int64, _ time.Time, _ []answers.Answer) (*models.Result, error) {
	return &models.Result{ID: 1, TestID: testID}, nil
}

func (s *countingService) ListResults(context.Context, int64) ([]models.Result, error) {
	s.listCalls++
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachingExamServiceReadThrough(t *testing.T) {
	backend := &countingService{def: &models.TestDefinition{
		ID: 7, Title: "Midterm", Status: models.StatusPublished,
		Questions: []models.Question{{ID: 1, Text: "Q1", Type: models.Essay}},
	}}
	store := newFakeCache()
	svc := NewCachingExamService(backend, store, time.Minute, testLogger())

	first, err := svc.GetTest(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.getCalls)
	assert.Equal(t, 1, store.sets)

	second, err := svc.GetTest(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.getCalls, "second read must come from cache")
	assert.Equal(t, first.Title, second.Title)
	assert.Len(t, second.Questions, 1)
}

func TestCachingExamServicePassThrough(t *testing.T) {
	backend := &countingService{def: &models.TestDefinition{ID: 7}}
	svc := NewCachingExamService(backend, newFakeCache(), time.Minute, testLogger())

	// Results listing is used for reconciliation and must never be stale.
	_, err := svc.ListResults(context.Background(), 7)
	require.NoError(t, err)
	_, err = svc.ListResults(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.listCalls)

	result, err := svc.SubmitAttempt(context.Background(), 7, time.Now(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.ID)
}
