// Package cache provides the redis-backed definition cache and the
// read-through decorator layered over the backend client.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pKa1/eg2/internal/answers"
	"github.com/pKa1/eg2/internal/engine"
	"github.com/pKa1/eg2/internal/models"
)

// DefaultDefinitionTTL bounds staleness of cached definitions. Definitions
// change rarely while an exam is live; mutating calls never go through the
// cache at all.
const DefaultDefinitionTTL = 5 * time.Minute

// CachingExamService is a read-through decorator over an engine.ExamService:
// GetTest responses are cached, everything else passes straight through.
type CachingExamService struct {
	svc    engine.ExamService
	cache  CacheService
	ttl    time.Duration
	logger *slog.Logger
}

var _ engine.ExamService = (*CachingExamService)(nil)

func NewCachingExamService(svc engine.ExamService, cache CacheService, ttl time.Duration, logger *slog.Logger) *CachingExamService {
	if ttl <= 0 {
		ttl = DefaultDefinitionTTL
	}
	return &CachingExamService{svc: svc, cache: cache, ttl: ttl, logger: logger}
}

func definitionKey(testID int64) string {
	return fmt.Sprintf("exam:test_definition:%d", testID)
}

// GetTest serves the cached definition when present, otherwise fetches and
// caches it. Cache failures degrade to the backend, never to the caller.
func (c *CachingExamService) GetTest(ctx context.Context, testID int64) (*models.TestDefinition, error) {
	key := definitionKey(testID)

	var cached models.TestDefinition
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		c.logger.Debug("definition cache hit", "test_id", testID)
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("definition cache unavailable", "test_id", testID, "error", err)
	}

	def, err := c.svc.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, def, c.ttl); err != nil {
		c.logger.Warn("failed to cache definition", "test_id", testID, "error", err)
	}
	return def, nil
}

func (c *CachingExamService) StartAttempt(ctx context.Context, testID int64) (time.Time, error) {
	return c.svc.StartAttempt(ctx, testID)
}

func (c *CachingExamService) SubmitAttempt(ctx context.Context, testID int64, startedAt time.Time, answerSet []answers.Answer) (*models.Result, error) {
	return c.svc.SubmitAttempt(ctx, testID, startedAt, answerSet)
}

func (c *CachingExamService) ListResults(ctx context.Context, testID int64) ([]models.Result, error) {
	return c.svc.ListResults(ctx, testID)
}
